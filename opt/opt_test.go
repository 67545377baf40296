/*
 * opt_test.go, part of gochemopt.
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
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	chem "github.com/rmera/gochemopt"
	"github.com/rmera/gochemopt/coords"
	"github.com/rmera/gochemopt/ff"
	"github.com/rmera/gochemopt/qm"
	v3 "github.com/rmera/gochemopt/v3"
	"gonum.org/v1/gonum/mat"
)

//the minimum of triangle() is a triangle with sides 1, 1 and 1.6 A
func triangle() *ff.Harmonic {
	return ff.NewHarmonic(ff.Pair{I: 0, J: 1, K: 1, R0: 1}, ff.Pair{I: 0, J: 2, K: 1, R0: 1}, ff.Pair{I: 1, J: 2, K: 0.5, R0: 1.6})
}

func species(Te *testing.T, name string, data []float64) *chem.Species {
	x, err := v3.NewMatrix(data)
	if err != nil {
		Te.Fatal(err)
	}
	top := chem.NewTopology(0, 1)
	for _, s := range []string{"O", "H", "H"} {
		top.AppendAtom(&chem.Atom{Symbol: s, Name: s, Mass: chem.Mass(s)})
	}
	top.FillIndexes()
	mol, err := chem.NewSpecies(name, top, x)
	if err != nil {
		Te.Fatal(err)
	}
	return mol
}

func bent(Te *testing.T) *chem.Species {
	return species(Te, "bent", []float64{0.0, 0.0, 0.0, 1.1, 0.1, 0.0, -0.4, 1.0, 0.2})
}

func minimum(Te *testing.T) *chem.Species {
	return species(Te, "minimum", []float64{0, 0, 0, 1, 0, 0, -0.28, 0.96, 0})
}

func testConfig(Te *testing.T) Config {
	cfg := DefaultConfig()
	cfg.ScratchDir = Te.TempDir()
	cfg.Thresholds.Gradient = 1e-5
	return cfg
}

//failing is an oracle that fails when asked for an energy, a Hessian, or both.
type failing struct {
	ff.Harmonic
	energy, hessian bool
	dirs            []string
}

func (F *failing) EnergyGradient(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *qm.Calc) (float64, *v3.Matrix, error) {
	F.dirs = append(F.dirs, Q.Dir)
	if F.energy {
		return 0, nil, qm.NewError(qm.ErrNoEnergy, "failing", "", "")
	}
	return F.Harmonic.EnergyGradient(coords, atoms, Q)
}

func (F *failing) Hessian(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *qm.Calc) (*mat.SymDense, error) {
	F.dirs = append(F.dirs, Q.Dir)
	//leave something behind to check that it is cleaned.
	if err := os.WriteFile(filepath.Join(Q.Dir, "hessian"), []byte("junk"), 0o644); err != nil {
		return nil, err
	}
	if F.hessian {
		return nil, qm.NewError(qm.ErrNoHessian, "failing", "", "")
	}
	return F.Harmonic.Hessian(coords, atoms, Q)
}

type frames struct{ n int }

func (F *frames) WNext(coord *v3.Matrix, box ...[]float64) error {
	F.n++
	return nil
}

func TestRFOStep(Te *testing.T) {
	h := mat.NewSymDense(2, []float64{2, 0.5, 0.5, 4})
	g := mat.NewVecDense(2, []float64{1, -2})
	s, err := RFOStep(h, g)
	if err != nil {
		Te.Fatal(err)
	}
	if mat.Dot(s, g) >= 0 {
		Te.Error("The RFO step should go downhill")
	}
	//H*s + g = lambda*s, with lambda = g^T*s
	lambda := mat.Dot(g, s)
	r := mat.NewVecDense(2, nil)
	r.MulVec(h, s)
	r.AddVec(r, g)
	r.AddScaledVec(r, -lambda, s)
	if mat.Norm(r, 2) > 1e-10 {
		Te.Errorf("The step doesn't solve the RFO equations, residual %g", mat.Norm(r, 2))
	}
	zero, err := RFOStep(mat.NewSymDense(2, []float64{2, 0, 0, 4}), mat.NewVecDense(2, nil))
	if err != nil && !errors.Is(err, ErrRFODegenerate) {
		Te.Error(err)
	}
	if err == nil && mat.Norm(zero, 2) != 0 {
		Te.Errorf("With a zero gradient the step should be zero, got %v", mat.Formatted(zero.T()))
	}
	if _, err := RFOStep(h, mat.NewVecDense(3, nil)); err == nil {
		Te.Error("Mismatched dimensions should give an error")
	}
}

func TestConstrainStepCartesian(Te *testing.T) {
	mol := bent(Te)
	c := coords.NewCartesian(mol.Coords)
	step := mat.NewVecDense(9, nil)
	step.SetVec(4, 0.5)
	step.SetVec(0, -0.2)
	next, f, err := ConstrainStep(c, step, 0.1)
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(f-0.2) > 1e-12 {
		Te.Errorf("Wrong factor %g", f)
	}
	if d := MaxDisplacement(c.Cartesian(), next.Cartesian()); math.Abs(d-0.1) > 1e-12 {
		Te.Errorf("Wrong displacement %g", d)
	}
	step.ScaleVec(0.1, step)
	next, f, err = ConstrainStep(c, step, 0.1)
	if err != nil || f != 1 {
		Te.Fatalf("A small step should not be scaled: %g %v", f, err)
	}
	if d := MaxDisplacement(c.Cartesian(), next.Cartesian()); math.Abs(d-0.05) > 1e-12 {
		Te.Errorf("The step should be applied as it is, displacement %g", d)
	}
	same, f, err := ConstrainStep(c, &mat.VecDense{}, 0.1)
	if err != nil || f != 0 || same != coords.Coordinates(c) {
		Te.Errorf("An empty step should return the same coordinates and factor 0, got %g %v", f, err)
	}
}

func TestConstrainStepDIC(Te *testing.T) {
	x, _ := v3.NewMatrix([]float64{0, 0, 0, 1.45, 0, 0, -0.3, 0.92, 0.1, 1.75, -0.2, 0.9})
	d, err := coords.FromCartesian(x)
	if err != nil {
		Te.Fatal(err)
	}
	r := rand.New(rand.NewSource(1))
	const L = 0.01
	for k := 0; k < 10; k++ {
		step := mat.NewVecDense(d.Len(), nil)
		for i := 0; i < d.Len(); i++ {
			step.SetVec(i, 0.02*(2*r.Float64()-1))
		}
		full, err := d.Add(1, step)
		if err != nil {
			Te.Fatal(err)
		}
		fulld := MaxDisplacement(x, full.Cartesian())
		next, f, err := ConstrainStep(d, step, L)
		if err != nil {
			Te.Fatal(err)
		}
		disp := MaxDisplacement(x, next.Cartesian())
		if fulld <= L {
			if f != 1 || disp != fulld {
				Te.Errorf("Step within the trust radius was changed: %g %g %g", f, disp, fulld)
			}
			continue
		}
		if disp > L*(1+TrustTolerance) || f >= 1 {
			Te.Errorf("Displacement %g with factor %g exceeds the trust radius %g", disp, f, L)
		}
	}
}

//steps of order 1 in inverse distances can't be applied as they are,
//but their trust-scaled versions can.
func TestConstrainStepLarge(Te *testing.T) {
	mol := ethanol(Te)
	d, err := coords.FromCartesian(mol.Coords)
	if err != nil {
		Te.Fatal(err)
	}
	r := rand.New(rand.NewSource(3))
	for _, L := range []float64{0.1, 0.02} {
		step := mat.NewVecDense(d.Len(), nil)
		for i := 0; i < d.Len(); i++ {
			step.SetVec(i, 2*r.Float64()-1)
		}
		next, f, err := ConstrainStep(d, step, L)
		if err != nil {
			Te.Fatal(err)
		}
		disp := MaxDisplacement(mol.Coords, next.Cartesian())
		if f >= 1 || f <= 0 || disp > L*(1+TrustTolerance) {
			Te.Errorf("Displacement %g with factor %g for a trust radius of %g", disp, f, L)
		}
	}
}

func ethanol(Te *testing.T) *chem.Species {
	mol, err := chem.XYZFileRead("../test/ethanol.xyz")
	if err != nil {
		Te.Fatal(err)
	}
	return mol
}

//perturbed ethanol, optimized back to the minimum of its model potential.
func TestOptimiseEthanol(Te *testing.T) {
	mol := ethanol(Te)
	model, err := ff.ModelHessian(mol)
	if err != nil {
		Te.Fatal(err)
	}
	r := rand.New(rand.NewSource(7))
	start := mol.Copy()
	for i := 0; i < start.Len(); i++ {
		for j := 0; j < 3; j++ {
			start.Coords.Set(i, j, start.Coords.At(i, j)+0.08*(2*r.Float64()-1))
		}
	}
	for _, c := range []string{"dic", "cart"} {
		cfg := testConfig(Te)
		cfg.Coordinates = c
		cfg.Thresholds.Gradient = 1e-4
		cfg.MaxIterations = 300
		res, err := Optimise(start, model, cfg)
		if err != nil {
			Te.Fatalf("%s: %v", c, err)
		}
		if !res.Converged || res.Iterations == 0 {
			Te.Fatalf("%s: not converged: %v %d %s", c, res.State, res.Iterations, res.Reason)
		}
		if res.Energy >= res.Energies[0] || res.Energy > 1e-5 {
			Te.Errorf("%s: the energy didn't go down to the minimum: %g %v", c, res.Energy, res.Energies[0])
		}
		for _, p := range model.Pairs {
			if d := res.Species.Coords.Dist(p.I, p.J); math.Abs(d-p.R0) > 0.02 {
				Te.Errorf("%s: distance %d-%d is %g, expected %g", c, p.I, p.J, d, p.R0)
			}
		}
	}
}

func checkTriangle(Te *testing.T, x *v3.Matrix, r01 float64) {
	for _, v := range []struct {
		i, j int
		r    float64
	}{{0, 1, r01}, {0, 2, 1}, {1, 2, 1.6}} {
		if d := x.Dist(v.i, v.j); math.Abs(d-v.r) > 1e-3 {
			Te.Errorf("Distance %d-%d is %g, expected %g", v.i, v.j, d, v.r)
		}
	}
}

func TestOptimise(Te *testing.T) {
	for _, c := range []string{"dic", "cart"} {
		cfg := testConfig(Te)
		cfg.Coordinates = c
		var logs bytes.Buffer
		cfg.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
		traj := &frames{}
		cfg.Trajectory = traj
		mol := bent(Te)
		orig := mol.Coords.At(1, 0)
		res, err := Optimise(mol, triangle(), cfg)
		if err != nil {
			Te.Fatalf("%s: %v", c, err)
		}
		if res.State != Converged || !res.Converged {
			Te.Fatalf("%s: not converged: %v %s", c, res.State, res.Reason)
		}
		if res.Iterations == 0 || res.Iterations >= cfg.MaxIterations {
			Te.Errorf("%s: wrong number of iterations %d", c, res.Iterations)
		}
		checkTriangle(Te, res.Species.Coords, 1)
		if res.Energy > 1e-8 || len(res.Energies) != res.Iterations+1 || traj.n != len(res.Energies) {
			Te.Errorf("%s: wrong energies %g %v (%d frames)", c, res.Energy, res.Energies, traj.n)
		}
		if mol.Coords.At(1, 0) != orig {
			Te.Errorf("%s: the input species was modified", c)
		}
		if !strings.Contains(logs.String(), `"msg":"iteration"`) {
			Te.Errorf("%s: iterations not logged", c)
		}
		if left, _ := os.ReadDir(cfg.ScratchDir); len(left) != 0 {
			Te.Errorf("%s: scratch directories left: %v", c, left)
		}
	}
}

func TestOptimiseConstrained(Te *testing.T) {
	mol := bent(Te)
	mol.Constraints = []*chem.DistanceConstraint{{I: 0, J: 1, Dist: 1.2}}
	res, err := Optimise(mol, triangle(), testConfig(Te))
	if err != nil {
		Te.Fatal(err)
	}
	//the restraint, K=10, competes with the K=1 term.
	checkTriangle(Te, res.Species.Coords, (1+10*1.2)/11.0)
}

func TestAtMinimum(Te *testing.T) {
	O, err := New(minimum(Te), triangle(), testConfig(Te))
	if err != nil {
		Te.Fatal(err)
	}
	res, err := O.Run()
	if err != nil {
		Te.Fatal(err)
	}
	if res.State != Converged || res.Iterations != 0 || len(res.Energies) != 1 {
		Te.Errorf("Starting from the minimum should converge with 0 iterations, got %v %d", res.State, res.Iterations)
	}
	for _, s := range O.History() {
		if s == Iterating {
			Te.Error("The optimization should not have iterated")
		}
	}
	if _, err := O.Run(); err == nil {
		Te.Error("An optimiser can't be run twice")
	}
}

func TestOracleFailure(Te *testing.T) {
	for _, hessian := range []bool{false, true} {
		cfg := testConfig(Te)
		oracle := &failing{Harmonic: *triangle(), energy: true, hessian: hessian}
		O, err := New(bent(Te), oracle, cfg)
		if err != nil {
			Te.Fatal(err)
		}
		res, err := O.Run()
		reason := qm.ErrNoEnergy
		if hessian {
			reason = qm.ErrNoHessian
		}
		if !qm.HasReason(err, reason) || !qm.HasReason(res.Err, reason) {
			Te.Errorf("Expected a %q error, got %v", reason, err)
		}
		if res.State != Failed || res.Converged || res.Reason == "" || !math.IsNaN(res.Energy) {
			Te.Errorf("Wrong result for a failure: %+v", res)
		}
		for _, s := range O.History() {
			if s == Iterating {
				Te.Error("The optimization should never have iterated")
			}
		}
		if last := O.History()[len(O.History())-1]; last != Failed {
			Te.Errorf("Final state %v", last)
		}
		if len(oracle.dirs) == 0 || (!hessian && len(oracle.dirs) != 2) {
			Te.Fatalf("Wrong oracle calls %v", oracle.dirs)
		}
		if !hessian && oracle.dirs[0] == oracle.dirs[1] {
			Te.Error("The low level Hessian should be obtained in its own directory")
		}
		for _, d := range oracle.dirs {
			if _, err := os.Stat(d); !os.IsNotExist(err) {
				Te.Errorf("Scratch directory %s not removed", d)
			}
		}
		if left, _ := os.ReadDir(cfg.ScratchDir); len(left) != 0 {
			Te.Errorf("Scratch directories left: %v", left)
		}
	}
}

func TestIterationLimit(Te *testing.T) {
	cfg := testConfig(Te)
	cfg.MaxIterations = 1
	res, err := Optimise(bent(Te), triangle(), cfg)
	if err != nil {
		Te.Fatal(err)
	}
	if res.State != IterationLimitReached || res.Converged || res.Iterations != 1 || res.Reason == "" {
		Te.Errorf("Wrong result %+v", res)
	}
	min := math.Inf(1)
	for _, e := range res.Energies {
		min = math.Min(min, e)
	}
	if res.Energy != min {
		Te.Errorf("The lowest energy point should be reported: %g %v", res.Energy, res.Energies)
	}
}

func TestBackTransformFailure(Te *testing.T) {
	cfg := testConfig(Te)
	cfg.BackTransform = coords.BackTransform{MaxIterations: 1, Tolerance: 1e-14}
	res, err := Optimise(bent(Te), triangle(), cfg)
	var bt *coords.BackTransformNotConvergedError
	if !errors.As(err, &bt) {
		Te.Fatalf("Expected a back-transformation error, got %v", err)
	}
	if res.State != Failed || res.Iterations != 1 || len(res.Energies) != 1 {
		Te.Errorf("Wrong result %+v", res)
	}
}

func TestOptimiseMany(Te *testing.T) {
	mols := []*chem.Species{bent(Te), minimum(Te), bent(Te)}
	mols[2].Name = "bent2"
	cfg := testConfig(Te)
	res, err := OptimiseMany(context.Background(), mols, triangle(), cfg, 2)
	if err != nil {
		Te.Fatal(err)
	}
	for i, r := range res {
		if r.Species.Name != mols[i].Name || !r.Converged {
			Te.Errorf("Wrong result %d: %s %v", i, r.Species.Name, r.State)
		}
	}
	if res[1].Iterations != 0 || res[0].Iterations != res[2].Iterations {
		Te.Errorf("Independent runs gave inconsistent iterations: %d %d %d", res[0].Iterations, res[1].Iterations, res[2].Iterations)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err = OptimiseMany(ctx, mols, triangle(), cfg, 2)
	if !errors.Is(err, context.Canceled) {
		Te.Errorf("Expected a cancellation error, got %v", err)
	}
	for _, r := range res {
		if r.State != Failed || !errors.Is(r.Err, context.Canceled) {
			Te.Errorf("A cancelled run should fail, got %v", r.State)
		}
	}
}

func TestConfig(Te *testing.T) {
	y := `
trust_radius: 0.05
coordinates: cart
thresholds:
  gradient: 1.0e-4
hessian_updates: [bfgs, sr1]
low_level:
  method: gfnff
`
	cfg, err := ReadConfig(strings.NewReader(y))
	if err != nil {
		Te.Fatal(err)
	}
	if cfg.TrustRadius != 0.05 || cfg.Coordinates != "cart" || cfg.Thresholds.Gradient != 1e-4 || cfg.LowLevel.Method != "gfnff" {
		Te.Errorf("Values not read: %+v", cfg)
	}
	if cfg.MaxIterations != 100 || cfg.Thresholds.Energy != 1e-6 {
		Te.Errorf("Defaults not kept: %+v", cfg)
	}
	ups, _ := cfg.updaters()
	if len(ups) != 3 || ups[2].Name() != "null" {
		Te.Errorf("The null update should be added at the end: %v", ups)
	}
	if _, err := ReadConfig(strings.NewReader("trust_radus: 0.1\n")); err == nil {
		Te.Error("Unknown fields should not be accepted")
	}
	if _, err := ReadConfig(strings.NewReader("hessian_updates: [dfp]\n")); err == nil {
		Te.Error("Unknown Hessian updates should not be accepted")
	}
	if _, err := ReadConfig(strings.NewReader("")); err != nil {
		Te.Errorf("An empty file should give the defaults: %v", err)
	}
	bad := DefaultConfig()
	bad.TrustRadius = 0
	if _, err := Optimise(bent(Te), triangle(), bad); err == nil {
		Te.Error("A zero trust radius should not be accepted")
	}
}
