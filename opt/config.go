/*
 * config.go, part of gochemopt.
 *
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 * Gochem is developed at the laboratory for instruction in Swedish, Department of Chemistry,
 * University of Helsinki, Finland.
 *
 *
 */
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package opt

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rmera/gochemopt/coords"
	"github.com/rmera/gochemopt/hessupd"
	"github.com/rmera/gochemopt/qm"
	"gopkg.in/yaml.v3"
)

//Thresholds are the convergence criteria. A run converges when the RMS of the
//cartesian gradient is below Gradient (Hartree/A), the change in energy is
//below Energy (Hartree) and the largest cartesian displacement in the last step
//is below Step (A). The energy and step criteria are not used if they are <= 0.
type Thresholds struct {
	Energy   float64 `yaml:"energy"`
	Gradient float64 `yaml:"gradient"`
	Step     float64 `yaml:"step"`
}

//LowLevel describes the calculation for the initial Hessian. If Oracle
//is nil, the oracle for the optimization is used.
type LowLevel struct {
	Method string    `yaml:"method"`
	Oracle qm.Oracle `yaml:"-"`
}

//Config contains the settings for an optimization.
type Config struct {
	Coordinates          string               `yaml:"coordinates"` //"dic" or "cart"
	MaxIterations        int                  `yaml:"max_iterations"`
	TrustRadius          float64              `yaml:"trust_radius"` //largest cartesian displacement allowed in a step, in A.
	Thresholds           Thresholds           `yaml:"thresholds"`
	HessianUpdates       []string             `yaml:"hessian_updates"`
	EigenvalueFloor      float64              `yaml:"eigenvalue_floor"`
	BackTransform        coords.BackTransform `yaml:"back_transform"`
	BackTransformRetries int                  `yaml:"back_transform_retries"`

	Method     string   `yaml:"method"`
	Dielectric float64  `yaml:"dielectric"`
	NCPU       int      `yaml:"ncpu"`
	LowLevel   LowLevel `yaml:"low_level"`

	ScratchDir  string `yaml:"scratch_dir"` //where the scratch directories are created. Empty means the system default.
	KeepScratch bool   `yaml:"keep_scratch"`

	Logger     *slog.Logger `yaml:"-"`
	Trajectory FrameWriter  `yaml:"-"`
}

//DefaultConfig returns the default settings: Delocalised internal coordinates,
//100 iterations, a trust radius of 0.1 A, BFGS-PD Hessian updates and convergence
//when the RMS gradient is below 1e-3 Hartree/A and the energy changes less than 1e-6 Hartree.
func DefaultConfig() Config {
	return Config{
		Coordinates:          "dic",
		MaxIterations:        100,
		TrustRadius:          0.1,
		Thresholds:           Thresholds{Energy: 1e-6, Gradient: 1e-3},
		HessianUpdates:       []string{"bfgs-pd", "null"},
		EigenvalueFloor:      coords.DefaultEigenvalueFloor,
		BackTransform:        coords.DefaultBackTransform(),
		BackTransformRetries: 1,
		Method:               "gfn2",
		NCPU:                 1,
		LowLevel:             LowLevel{Method: qm.DefaultLowLevelMethod},
	}
}

//LoadConfig reads a YAML file. The values not given in the file
//are taken from DefaultConfig().
func LoadConfig(name string) (Config, error) {
	f, err := os.Open(name)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return ReadConfig(f)
}

//ReadConfig reads a configuration in YAML format from r, over the defaults.
func ReadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("reading configuration: %w", err)
	}
	return cfg, cfg.Validate()
}

//Validate returns an error if some setting makes no sense.
func (C Config) Validate() error {
	if _, err := coords.ParseKind(C.Coordinates); err != nil {
		return err
	}
	if C.MaxIterations < 0 {
		return fmt.Errorf("negative maximum number of iterations: %d", C.MaxIterations)
	}
	if C.TrustRadius <= 0 {
		return fmt.Errorf("the trust radius must be positive, got %g", C.TrustRadius)
	}
	if C.Thresholds.Gradient <= 0 {
		return fmt.Errorf("the gradient threshold must be positive, got %g", C.Thresholds.Gradient)
	}
	if C.EigenvalueFloor <= 0 {
		return fmt.Errorf("the eigenvalue floor must be positive, got %g", C.EigenvalueFloor)
	}
	if C.BackTransformRetries < 0 {
		return fmt.Errorf("negative number of back-transformation retries: %d", C.BackTransformRetries)
	}
	_, err := C.updaters()
	return err
}

//updaters returns the Hessian updaters named in the configuration,
//with the null update at the end if it is not already there.
func (C Config) updaters() ([]hessupd.Updater, error) {
	ret := make([]hessupd.Updater, 0, len(C.HessianUpdates)+1)
	hasnull := false
	for _, v := range C.HessianUpdates {
		u, err := hessupd.ByName(v)
		if err != nil {
			return nil, err
		}
		if u.Name() == "null" {
			hasnull = true
		}
		ret = append(ret, u)
	}
	if !hasnull {
		ret = append(ret, hessupd.Null{})
	}
	return ret, nil
}

func (C Config) logger() *slog.Logger {
	if C.Logger != nil {
		return C.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
