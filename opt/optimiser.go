/*
 * optimiser.go, part of gochemopt.
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
	"errors"
	"fmt"
	"log/slog"
	"math"

	chem "github.com/rmera/gochemopt"
	"github.com/rmera/gochemopt/coords"
	"github.com/rmera/gochemopt/hessupd"
	"github.com/rmera/gochemopt/qm"
	v3 "github.com/rmera/gochemopt/v3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//FrameWriter receives the geometry of each point evaluated during an optimization.
type FrameWriter interface {
	WNext(coord *v3.Matrix, box ...[]float64) error
}

//Result is the outcome of an optimization. Species contains the geometry
//of the reported point: The last one if the optimization converged, the one
//with the lowest energy otherwise.
type Result struct {
	State      State
	Species    *chem.Species
	Energy     float64 //Hartree, NaN if no energy was obtained
	Converged  bool
	Iterations int
	Reason     string    //why the optimization failed, if it did
	Energies   []float64 //for each point evaluated
	Err        error
}

//point is a geometry with its energy
type point struct {
	coords *v3.Matrix
	energy float64
}

//Optimiser performs a rational function optimization of one species.
//An Optimiser can only be run once.
type Optimiser struct {
	cfg      Config
	oracle   qm.Oracle
	species  *chem.Species
	calc     *qm.Calc
	log      *slog.Logger
	updaters []hessupd.Updater
	kind     coords.Kind

	state   State
	history []State
	coords  coords.Coordinates
	grad    *v3.Matrix //last cartesian gradient
	energy  float64
	iter    int
	lastmax float64 //largest cartesian displacement in the last step

	energies []float64
	best     point
	err      error
}

//New returns an Optimiser for a copy of species, using the given oracle.
func New(species *chem.Species, oracle qm.Oracle, cfg Config) (*Optimiser, error) {
	if species == nil || oracle == nil {
		return nil, fmt.Errorf("opt: nil species or oracle")
	}
	if err := species.Corrupted(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	O := &Optimiser{cfg: cfg, oracle: oracle, species: species.Copy()}
	O.kind, _ = coords.ParseKind(cfg.Coordinates)
	O.updaters, _ = cfg.updaters()
	O.log = cfg.logger().With("species", species.Name)
	O.calc = &qm.Calc{Method: cfg.Method, Dielectric: cfg.Dielectric, NCPU: cfg.NCPU, DConstraints: O.species.Constraints}
	O.best = point{energy: math.Inf(1)}
	O.energy = math.NaN()
	O.setState(Uninitialised)
	return O, nil
}

//Optimise optimises the geometry of species with the given oracle and settings.
//It always returns a Result. The error is not nil only if the optimization failed.
func Optimise(species *chem.Species, oracle qm.Oracle, cfg Config) (*Result, error) {
	O, err := New(species, oracle, cfg)
	if err != nil {
		res := &Result{State: Failed, Species: species, Energy: math.NaN(), Reason: err.Error(), Err: err}
		return res, err
	}
	return O.Run()
}

//State returns the current state of the optimization.
func (O *Optimiser) State() State { return O.state }

//History returns all the states the optimization has been in, in order.
func (O *Optimiser) History() []State {
	return append([]State(nil), O.history...)
}

func (O *Optimiser) setState(s State) {
	O.state = s
	O.history = append(O.history, s)
}

//Run performs the optimization. All the calculations are done in a scratch directory,
//which is removed at the end unless the configuration says otherwise.
func (O *Optimiser) Run() (*Result, error) {
	if O.state != Uninitialised {
		return nil, fmt.Errorf("opt: the optimiser has already been run")
	}
	err := qm.InScratch(O.cfg.ScratchDir, "gochemopt-", O.cfg.KeepScratch, func(dir string) error {
		O.calc.Dir = dir
		if err := O.initialise(); err != nil {
			return err
		}
		return O.iterate()
	})
	if err != nil && O.state != Failed {
		O.fail(err)
	}
	return O.result()
}

func (O *Optimiser) fail(err error) {
	O.err = err
	O.setState(Failed)
	O.log.Error("optimization failed", "iteration", O.iter, "error", err)
}

func (O *Optimiser) initialise() error {
	O.setState(Initialising)
	var c coords.Coordinates
	var err error
	if O.kind == coords.CartesianKind {
		c = coords.NewCartesian(O.species.Coords)
	} else {
		c, err = coords.FromCartesian(O.species.Coords, O.cfg.BackTransform)
		if err != nil {
			return err
		}
	}
	h, err := O.lowLevelHessian()
	if err != nil {
		return err
	}
	if err := c.UpdateHessianFromCartesian(h); err != nil {
		return err
	}
	if err := c.MakeHessianPositiveDefinite(O.cfg.EigenvalueFloor); err != nil {
		return err
	}
	if err := O.evaluate(c); err != nil {
		return err
	}
	O.coords = c
	O.log.Info("initial point", "coordinates", O.kind, "dof", c.Len(), "energy", O.energy, "rms_gradient", O.rmsGradient())
	if O.rmsGradient() < O.cfg.Thresholds.Gradient {
		O.setState(Converged)
	}
	return nil
}

//lowLevelHessian obtains the initial Hessian, with the low level method,
//for a copy of the species, in its own scratch directory.
func (O *Optimiser) lowLevelHessian() (*mat.SymDense, error) {
	oracle := O.cfg.LowLevel.Oracle
	if oracle == nil {
		oracle = O.oracle
	}
	mol := O.species.Copy()
	calc := O.calc.Copy()
	calc.Method = O.cfg.LowLevel.Method
	if calc.Method == "" {
		calc.Method = qm.DefaultLowLevelMethod
	}
	var h *mat.SymDense
	err := qm.InScratch(O.calc.Dir, "hessian-", O.cfg.KeepScratch, func(dir string) error {
		calc.Dir = dir
		var err error
		h, err = oracle.Hessian(mol.Coords, mol, calc)
		return err
	})
	if err != nil {
		return nil, err
	}
	O.log.Debug("low level Hessian obtained", "method", calc.Method)
	return h, nil
}

//evaluate obtains the energy and gradient for c, and sets the gradient of c.
func (O *Optimiser) evaluate(c coords.Coordinates) error {
	x := c.Cartesian()
	e, g, err := O.oracle.EnergyGradient(x, O.species, O.calc)
	if err != nil {
		return err
	}
	if g == nil || g.NVecs() != x.NVecs() {
		return qm.NewError(qm.ErrNoGradient, "oracle", O.species.Name, "gradient missing or of the wrong size", "evaluate")
	}
	if err := c.UpdateGradientFromCartesian(g); err != nil {
		return err
	}
	O.energy = e
	O.grad = g
	O.energies = append(O.energies, e)
	if e < O.best.energy {
		O.best = point{coords: x, energy: e}
	}
	if O.cfg.Trajectory != nil {
		if err := O.cfg.Trajectory.WNext(x); err != nil {
			O.log.Warn("couldn't write frame", "error", err)
		}
	}
	return nil
}

func (O *Optimiser) rmsGradient() float64 {
	f := O.grad.Flat()
	return math.Sqrt(floats.Dot(f, f) / float64(len(f)))
}

func (O *Optimiser) iterate() error {
	if O.state == Converged {
		return nil
	}
	O.setState(Iterating)
	var prev coords.Coordinates
	for O.iter = 1; O.iter <= O.cfg.MaxIterations; O.iter++ {
		if prev != nil {
			if err := O.updateHessian(prev); err != nil {
				return err
			}
		}
		step, err := O.step()
		if err != nil {
			return err
		}
		next, factor, err := O.constrain(step)
		if err != nil {
			return err
		}
		olde := O.energy
		O.lastmax = MaxDisplacement(O.coords.Cartesian(), next.Cartesian())
		if err := O.evaluate(next); err != nil {
			return err
		}
		prev, O.coords = O.coords, next
		rms := O.rmsGradient()
		O.log.Info("iteration", "iteration", O.iter, "energy", O.energy, "delta_e", O.energy-olde, "rms_gradient", rms, "max_step", O.lastmax, "step_factor", factor)
		if O.converged(olde, rms) {
			O.setState(Converged)
			return nil
		}
	}
	O.iter = O.cfg.MaxIterations
	O.setState(IterationLimitReached)
	O.log.Warn("maximum number of iterations reached", "iterations", O.cfg.MaxIterations)
	return nil
}

func (O *Optimiser) converged(olde, rms float64) bool {
	t := O.cfg.Thresholds
	if rms >= t.Gradient {
		return false
	}
	if t.Energy > 0 && math.Abs(O.energy-olde) >= t.Energy {
		return false
	}
	if t.Step > 0 && O.lastmax >= t.Step {
		return false
	}
	return true
}

//updateHessian updates the Hessian of the current coordinates with the
//first applicable updater, using the change from prev.
func (O *Optimiser) updateHessian(prev coords.Coordinates) error {
	s := O.coords.Values()
	s.SubVec(s, prev.Values())
	y := O.coords.Gradient()
	y.SubVec(y, prev.Gradient())
	u := hessupd.Update{H: prev.Hessian(), S: s, Y: y}
	up := hessupd.First(O.updaters, u)
	if up == nil {
		return fmt.Errorf("opt: no applicable Hessian update")
	}
	h, err := up.Hessian(u)
	if err != nil {
		return err
	}
	O.log.Debug("Hessian updated", "update", up.Name())
	return O.coords.SetHessian(h)
}

//step returns the RFO step for the current coordinates, or the steepest descent
//direction if the RFO step can't be obtained.
func (O *Optimiser) step() (*mat.VecDense, error) {
	g := O.coords.Gradient()
	step, err := RFOStep(O.coords.Hessian(), g)
	if errors.Is(err, ErrRFODegenerate) {
		O.log.Warn("RFO step undefined, using steepest descent", "iteration", O.iter)
		g.ScaleVec(-1, g)
		return g, nil
	}
	return step, err
}

//constrain applies the trust radius to the step. If the back-transformation
//doesn't converge, it retries with half the step, up to BackTransformRetries times.
func (O *Optimiser) constrain(step *mat.VecDense) (coords.Coordinates, float64, error) {
	for attempt := 0; ; attempt++ {
		next, factor, err := ConstrainStep(O.coords, step, O.cfg.TrustRadius)
		var bterr *coords.BackTransformNotConvergedError
		if err == nil || !errors.As(err, &bterr) || attempt >= O.cfg.BackTransformRetries {
			if factor < 1 && err == nil {
				O.log.Warn("step scaled to the trust radius", "iteration", O.iter, "factor", factor)
			}
			return next, factor, err
		}
		O.log.Warn("back-transformation failed, halving the step", "iteration", O.iter, "residual", bterr.Residual)
		step.ScaleVec(0.5, step)
	}
}

func (O *Optimiser) result() (*Result, error) {
	res := &Result{
		State:      O.state,
		Converged:  O.state == Converged,
		Iterations: O.iter,
		Energies:   append([]float64(nil), O.energies...),
		Err:        O.err,
		Energy:     math.NaN(),
	}
	mol := O.species.Copy()
	switch {
	case O.state == Converged:
		mol.Coords = O.coords.Cartesian()
		res.Energy = O.energy
	case O.best.coords != nil:
		mol.Coords = O.best.coords
		res.Energy = O.best.energy
	}
	res.Species = mol
	if O.err != nil {
		res.Reason = O.err.Error()
		return res, O.err
	}
	if O.state == IterationLimitReached {
		res.Reason = fmt.Sprintf("not converged after %d iterations", O.iter)
	}
	return res, nil
}
