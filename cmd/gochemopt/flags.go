/*
 * flags.go, part of gochemopt.
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

package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	chem "github.com/rmera/gochemopt"
	"github.com/rmera/gochemopt/opt"
	"github.com/rmera/gochemopt/qm"
	"github.com/spf13/cobra"
)

//optFlags are the optimization settings that can be given in the command line.
//When given, they take precedence over the configuration file.
type optFlags struct {
	config      string
	coords      string
	method      string
	lowLevel    string
	oracle      string
	xtb         string
	scratch     string
	keepScratch bool
	trust       float64
	gradient    float64
	dielectric  float64
	maxIter     int
	ncpu        int
	charge      int
	multi       int
	constraints []string
}

func addOptFlags(cmd *cobra.Command, f *optFlags) {
	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "YAML file with the optimization settings")
	fl.StringVar(&f.coords, "coords", "dic", "Coordinates for the optimization: dic or cart")
	fl.StringVarP(&f.method, "method", "m", "gfn2", "Method for the energies and gradients")
	fl.StringVar(&f.lowLevel, "low-level", qm.DefaultLowLevelMethod, "Method for the initial Hessian. \"model\" uses a harmonic model")
	fl.StringVar(&f.oracle, "oracle", "xtb", "Program for the energies and gradients: xtb or model")
	fl.StringVar(&f.xtb, "xtb", "xtb", "xtb executable")
	fl.StringVar(&f.scratch, "scratch", "", "Directory for the scratch files")
	fl.BoolVar(&f.keepScratch, "keep-scratch", false, "Don't remove the scratch files")
	fl.Float64Var(&f.trust, "trust", 0.1, "Trust radius: largest cartesian displacement in a step (A)")
	fl.Float64Var(&f.gradient, "gradient", 1e-3, "Convergence threshold for the RMS gradient (Hartree/A)")
	fl.Float64Var(&f.dielectric, "dielectric", 0, "Dielectric constant for implicit solvation, 0 for vacuum")
	fl.IntVar(&f.maxIter, "max-iter", 100, "Maximum number of iterations")
	fl.IntVar(&f.ncpu, "ncpu", 1, "CPUs for each calculation")
	fl.IntVar(&f.charge, "charge", 0, "Total charge")
	fl.IntVar(&f.multi, "multiplicity", 1, "Spin multiplicity")
	fl.StringArrayVar(&f.constraints, "constraint", nil, "Distance constraint i,j,d: atoms i and j (1-based) at d A. Can be repeated")
}

//settings returns the configuration file, or the defaults, modified by the flags that were set.
func (f *optFlags) settings(cmd *cobra.Command, logger *slog.Logger) (opt.Config, error) {
	cfg := opt.DefaultConfig()
	var err error
	if f.config != "" {
		cfg, err = opt.LoadConfig(f.config)
		if err != nil {
			return cfg, err
		}
	}
	fl := cmd.Flags()
	if fl.Changed("coords") {
		cfg.Coordinates = f.coords
	}
	if fl.Changed("method") {
		cfg.Method = f.method
	}
	if fl.Changed("low-level") {
		cfg.LowLevel.Method = f.lowLevel
	}
	if fl.Changed("scratch") {
		cfg.ScratchDir = f.scratch
	}
	if fl.Changed("keep-scratch") {
		cfg.KeepScratch = f.keepScratch
	}
	if fl.Changed("trust") {
		cfg.TrustRadius = f.trust
	}
	if fl.Changed("gradient") {
		cfg.Thresholds.Gradient = f.gradient
	}
	if fl.Changed("dielectric") {
		cfg.Dielectric = f.dielectric
	}
	if fl.Changed("max-iter") {
		cfg.MaxIterations = f.maxIter
	}
	if fl.Changed("ncpu") {
		cfg.NCPU = f.ncpu
	}
	cfg.Logger = logger
	return cfg, cfg.Validate()
}

//prepare sets the charge, multiplicity and constraints given in the flags to mol.
func (f *optFlags) prepare(cmd *cobra.Command, mol *chem.Species) error {
	if cmd.Flags().Changed("charge") {
		mol.SetCharge(f.charge)
	}
	if cmd.Flags().Changed("multiplicity") {
		mol.SetMulti(f.multi)
	}
	for _, v := range f.constraints {
		c, err := parseConstraint(v)
		if err != nil {
			return err
		}
		mol.Constraints = append(mol.Constraints, c)
	}
	return mol.Corrupted()
}

//parseConstraint reads a constraint in the form i,j,d with 1-based atom indexes.
func parseConstraint(s string) (*chem.DistanceConstraint, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return nil, fmt.Errorf("constraint %q: expected i,j,distance", s)
	}
	i, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return nil, fmt.Errorf("constraint %q: %w", s, err)
	}
	j, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return nil, fmt.Errorf("constraint %q: %w", s, err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return nil, fmt.Errorf("constraint %q: %w", s, err)
	}
	return &chem.DistanceConstraint{I: i - 1, J: j - 1, Dist: d}, nil
}

//oracles returns the oracle for the energies and gradients, and sets
//the oracle for the initial Hessian in cfg if the harmonic model was requested.
//The harmonic models are built for the geometries in mols.
func (f *optFlags) oracles(cfg *opt.Config, mols ...*chem.Species) (qm.Oracle, error) {
	var model *modelOracle
	getmodel := func() (*modelOracle, error) {
		if model != nil {
			return model, nil
		}
		var err error
		model, err = newModelOracle(mols...)
		return model, err
	}
	if strings.EqualFold(cfg.LowLevel.Method, "model") {
		m, err := getmodel()
		if err != nil {
			return nil, err
		}
		cfg.LowLevel.Oracle = m
	}
	switch strings.ToLower(f.oracle) {
	case "xtb":
		x := qm.NewXTB()
		x.Command = f.xtb
		return x, nil
	case "model", "harmonic":
		return getmodel()
	default:
		return nil, fmt.Errorf("unknown oracle %q", f.oracle)
	}
}
