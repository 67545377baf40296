/*
 * coords_test.go, part of gochemopt.
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

package coords

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	v3 "github.com/rmera/gochemopt/v3"
	"gonum.org/v1/gonum/mat"
)

//a non-planar H2O2-like geometry
func h2o2(Te *testing.T) *v3.Matrix {
	x, err := v3.NewMatrix([]float64{
		0.00, 0.00, 0.00,
		1.45, 0.00, 0.00,
		-0.30, 0.92, 0.10,
		1.75, -0.20, 0.90,
	})
	if err != nil {
		Te.Fatal(err)
	}
	return x
}

func randomSym(r *rand.Rand, n int) *mat.SymDense {
	h := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			h.SetSym(i, j, 2*r.Float64()-1)
		}
	}
	return h
}

func minEigen(Te *testing.T, h *mat.SymDense) float64 {
	var eig mat.EigenSym
	if !eig.Factorize(h, false) {
		Te.Fatal("eigendecomposition failed")
	}
	return eig.Values(nil)[0]
}

func TestDICBuild(Te *testing.T) {
	x := h2o2(Te)
	d, err := FromCartesian(x)
	if err != nil {
		Te.Fatal(err)
	}
	if d.Kind() != DICKind || d.NPrimitives() != 6 {
		Te.Errorf("Wrong kind %v or number of primitives %d", d.Kind(), d.NPrimitives())
	}
	if d.Len() != 6 {
		Te.Errorf("4 atoms should have 6 internal coordinates, got %d", d.Len())
	}
	two, _ := v3.NewMatrix([]float64{0, 0, 0, 0, 0, 1.1})
	d2, err := FromCartesian(two)
	if err != nil {
		Te.Fatal(err)
	}
	if d2.Len() != 1 {
		Te.Errorf("A diatomic should have 1 internal coordinate, got %d", d2.Len())
	}
	c := d.Cartesian()
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			if c.At(i, j) != x.At(i, j) {
				Te.Errorf("Cartesian geometry changed %v %v", c, x)
			}
		}
	}
}

func TestDegenerate(Te *testing.T) {
	one, _ := v3.NewMatrix([]float64{0, 0, 0})
	_, err := FromCartesian(one)
	var deg *DegenerateGeometryError
	if !errors.As(err, &deg) {
		Te.Errorf("A single atom should give a DegenerateGeometryError, got %v", err)
	}
	same, _ := v3.NewMatrix([]float64{1, 1, 1, 1, 1, 1, 0, 0, 0})
	_, err = FromCartesian(same)
	if !errors.As(err, &deg) {
		Te.Errorf("Overlapping atoms should give a DegenerateGeometryError, got %v", err)
	}
	if deg == nil || !deg.Critical() {
		Te.Error("Degenerate geometries are critical errors")
	}
}

//going forward and back by the same step gives the same interatomic distances.
func TestRoundTrip(Te *testing.T) {
	x := h2o2(Te)
	d, err := FromCartesian(x)
	if err != nil {
		Te.Fatal(err)
	}
	r := rand.New(rand.NewSource(7))
	step := mat.NewVecDense(d.Len(), nil)
	for i := 0; i < d.Len(); i++ {
		step.SetVec(i, 0.02*(2*r.Float64()-1))
	}
	fw, err := d.Add(1, step)
	if err != nil {
		Te.Fatal(err)
	}
	target := mat.NewVecDense(d.Len(), nil)
	target.AddVec(d.Values(), step)
	vals := fw.Values()
	for i := 0; i < d.Len(); i++ {
		if math.Abs(vals.AtVec(i)-target.AtVec(i)) > 1e-8 {
			Te.Errorf("Internal coordinate %d is %g, expected %g", i, vals.AtVec(i), target.AtVec(i))
		}
	}
	back, err := fw.Add(-1, step)
	if err != nil {
		Te.Fatal(err)
	}
	bc := back.Cartesian()
	moved := false
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if math.Abs(bc.Dist(i, j)-x.Dist(i, j)) > 1e-6 {
				Te.Errorf("Distance %d-%d is %g, expected %g", i, j, bc.Dist(i, j), x.Dist(i, j))
			}
			if math.Abs(fw.Cartesian().Dist(i, j)-x.Dist(i, j)) > 1e-4 {
				moved = true
			}
		}
	}
	if !moved {
		Te.Error("The forward step didn't change the geometry")
	}
	//A zero step gives back the same point.
	z, err := d.Add(1, mat.NewVecDense(d.Len(), nil))
	if err != nil {
		Te.Fatal(err)
	}
	if !mat.EqualApprox(z.Cartesian(), x, 1e-12) {
		Te.Error("A zero step changed the geometry")
	}
}

func TestBackTransformFails(Te *testing.T) {
	d, err := FromCartesian(h2o2(Te), BackTransform{MaxIterations: 1, Tolerance: 1e-14})
	if err != nil {
		Te.Fatal(err)
	}
	step := mat.NewVecDense(d.Len(), nil)
	for i := 0; i < d.Len(); i++ {
		step.SetVec(i, 0.1)
	}
	_, err = d.Add(1, step)
	var bt *BackTransformNotConvergedError
	if !errors.As(err, &bt) {
		Te.Fatalf("Expected a BackTransformNotConvergedError, got %v", err)
	}
	if bt.Iterations != 1 || bt.Critical() {
		Te.Errorf("Wrong error %v", bt)
	}
}

//the cartesian gradient of any function of the interatomic distances
//survives the trip to internal coordinates and back.
func TestGradientTransform(Te *testing.T) {
	x := h2o2(Te)
	d, err := FromCartesian(x)
	if err != nil {
		Te.Fatal(err)
	}
	q, bp, err := primitives(x.VecDense(), d.pairs)
	if err != nil {
		Te.Fatal(err)
	}
	//E = sum 1/2 (q_k - 0.5)^2
	for i := 0; i < q.Len(); i++ {
		q.SetVec(i, q.AtVec(i)-0.5)
	}
	gx := mat.NewVecDense(x.NVecs()*3, nil)
	gx.MulVec(bp.T(), q)
	g, _ := v3.NewMatrix(gx.RawVector().Data)
	if err := d.UpdateGradientFromCartesian(g); err != nil {
		Te.Fatal(err)
	}
	c := d.ToCartesian()
	if !mat.EqualApprox(c.Gradient(), gx, 1e-10) {
		Te.Errorf("Gradient changed in the transformation:\n%v\n%v", mat.Formatted(c.Gradient().T()), mat.Formatted(gx.T()))
	}
	if err := d.UpdateGradientFromCartesian(v3.Zeros(3)); err == nil {
		Te.Error("A gradient of the wrong size should not be accepted")
	}
}

func TestHessianTransform(Te *testing.T) {
	d, err := FromCartesian(h2o2(Te))
	if err != nil {
		Te.Fatal(err)
	}
	r := rand.New(rand.NewSource(3))
	M := randomSym(r, d.Len())
	var t, hx mat.Dense
	t.Mul(d.b.T(), M)
	hx.Mul(&t, d.b)
	if err := d.UpdateHessianFromCartesian(symmetrize(&hx)); err != nil {
		Te.Fatal(err)
	}
	if !mat.EqualApprox(d.Hessian(), M, 1e-8) {
		Te.Errorf("Wrong internal Hessian\n%v\n%v", mat.Formatted(d.Hessian()), mat.Formatted(M))
	}
	c := d.ToCartesian()
	if !mat.EqualApprox(c.Hessian(), &hx, 1e-8) {
		Te.Error("Wrong cartesian Hessian")
	}
}

func TestPositiveDefinite(Te *testing.T) {
	r := rand.New(rand.NewSource(11))
	for k := 0; k < 20; k++ {
		c := NewCartesian(v3.Zeros(3))
		h := randomSym(r, 9)
		if err := c.SetHessian(h); err != nil {
			Te.Fatal(err)
		}
		if err := c.MakeHessianPositiveDefinite(DefaultEigenvalueFloor); err != nil {
			Te.Fatal(err)
		}
		if m := minEigen(Te, c.Hessian()); m < DefaultEigenvalueFloor*(1-1e-6) {
			Te.Errorf("Smallest eigenvalue %g after the correction", m)
		}
		if _, err := c.InvHessian(); err != nil {
			Te.Error(err)
		}
	}
	c := NewCartesian(v3.Zeros(1))
	if err := c.MakeHessianPositiveDefinite(1); err == nil {
		Te.Error("There was no Hessian to correct")
	}
	c.SetHessian(mat.NewSymDense(3, nil))
	if err := c.MakeHessianPositiveDefinite(0); err == nil {
		Te.Error("A zero floor should not be accepted")
	}
}

func TestCartesianAdd(Te *testing.T) {
	x := h2o2(Te)
	c := NewCartesian(x)
	h := mat.NewSymDense(12, nil)
	for i := 0; i < 12; i++ {
		h.SetSym(i, i, 2)
	}
	if err := c.SetHessian(h); err != nil {
		Te.Fatal(err)
	}
	step := mat.NewVecDense(12, nil)
	step.SetVec(0, 1)
	n, err := c.Add(0.5, step)
	if err != nil {
		Te.Fatal(err)
	}
	if n.Cartesian().At(0, 0) != 0.5 || x.At(0, 0) != 0 {
		Te.Errorf("Wrong displacement %v", n.Cartesian())
	}
	if n.Gradient() != nil || n.Hessian() == nil || n.Hessian().At(3, 3) != 2 {
		Te.Error("The Hessian, and only the Hessian, should be carried over")
	}
	hinv, err := n.InvHessian()
	if err != nil || math.Abs(hinv.At(1, 1)-0.5) > 1e-12 {
		Te.Errorf("Wrong inverse Hessian %v", err)
	}
	if _, err := c.Add(1, mat.NewVecDense(3, nil)); err == nil {
		Te.Error("A step of the wrong size should not be accepted")
	}
}

func TestParseKind(Te *testing.T) {
	for s, k := range map[string]Kind{"cart": CartesianKind, "cartesian": CartesianKind, "dic": DICKind, "": DICKind} {
		if got, err := ParseKind(s); err != nil || got != k {
			Te.Errorf("ParseKind(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseKind("zmat"); err == nil {
		Te.Error("zmat is not a coordinate system")
	}
}
