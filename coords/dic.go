/*
 * dic.go, part of gochemopt.
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
	"fmt"
	"math"

	v3 "github.com/rmera/gochemopt/v3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	mindist     = 1e-8  //A
	activeeigen = 1e-10 //eigenvalues of G larger than this define the active space
	maxcond     = 1e12
)

//BackTransform holds the parameters for the iterative conversion
//of internal coordinates back to cartesian ones.
type BackTransform struct {
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
}

//DefaultBackTransform returns the default back-transformation parameters:
//100 iterations and a tolerance of 1e-10 for both the largest cartesian change
//and the RMS error in the internal coordinates.
func DefaultBackTransform() BackTransform {
	return BackTransform{MaxIterations: 100, Tolerance: 1e-10}
}

//DIC are delocalised internal coordinates. They are linear combinations of
//primitive coordinates (inverse interatomic distances for all pairs of atoms)
//spanning the non-redundant space of the primitives.
type DIC struct {
	base
	cart  *mat.VecDense //3N cartesian coordinates, in A.
	pairs [][2]int
	u     *mat.Dense //primitives x active coordinates
	b     *mat.Dense //Wilson B matrix, active x 3N
	binv  *mat.Dense //generalised inverse, (B*B^T)^-1*B
	bt    BackTransform
}

//FromCartesian builds delocalised internal coordinates from the geometry x.
//The optional bt gives the parameters used by Add to go back to cartesian
//coordinates, if not given, DefaultBackTransform() is used.
func FromCartesian(x *v3.Matrix, bt ...BackTransform) (*DIC, error) {
	natoms := x.NVecs()
	if natoms < 2 {
		return nil, &DegenerateGeometryError{Reason: fmt.Sprintf("%d atoms, at least 2 are needed", natoms)}
	}
	D := &DIC{pairs: pairList(natoms), bt: DefaultBackTransform()}
	if len(bt) > 0 {
		D.bt = bt[0]
		if D.bt.MaxIterations <= 0 {
			D.bt.MaxIterations = DefaultBackTransform().MaxIterations
		}
		if D.bt.Tolerance <= 0 {
			D.bt.Tolerance = DefaultBackTransform().Tolerance
		}
	}
	D.cart = x.VecDense()
	q, bp, err := primitives(D.cart, D.pairs)
	if err != nil {
		return nil, err
	}
	var G mat.SymDense
	G.SymOuterK(1, bp)
	var eig mat.EigenSym
	if ok := eig.Factorize(&G, true); !ok {
		return nil, &DegenerateGeometryError{Reason: "eigendecomposition of G failed"}
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	active := make([]int, 0, len(vals))
	for i, v := range vals {
		if v > activeeigen {
			active = append(active, i)
		}
	}
	if len(active) == 0 {
		return nil, &DegenerateGeometryError{Reason: "no non-redundant internal coordinates"}
	}
	nprim := len(D.pairs)
	D.u = mat.NewDense(nprim, len(active), nil)
	col := make([]float64, nprim)
	for j, a := range active {
		mat.Col(col, a, &vecs)
		D.u.SetCol(j, col)
	}
	D.x = mat.NewVecDense(len(active), nil)
	D.x.MulVec(D.u.T(), q)
	D.b, D.binv, err = wilson(D.u, bp)
	if err != nil {
		return nil, err
	}
	return D, nil
}

func (D *DIC) Kind() Kind { return DICKind }

//NPrimitives returns the number of primitive coordinates (pairs of atoms).
func (D *DIC) NPrimitives() int { return len(D.pairs) }

func (D *DIC) Cartesian() *v3.Matrix {
	ret, _ := v3.FromFlat(D.cart.RawVector().Data)
	return ret
}

//ToCartesian returns the cartesian geometry for D, with the gradient (B^T*g)
//and Hessian (B^T*H*B) transformed, if they are set.
func (D *DIC) ToCartesian() *Cartesian {
	ret := &Cartesian{}
	ret.x = mat.VecDenseCopyOf(D.cart)
	if D.g != nil {
		ret.g = mat.NewVecDense(D.cart.Len(), nil)
		ret.g.MulVec(D.b.T(), D.g)
	}
	if D.h != nil {
		var t, h mat.Dense
		t.Mul(D.b.T(), D.h)
		h.Mul(&t, D.b)
		ret.h = symmetrize(&h)
	}
	return ret
}

//UpdateGradientFromCartesian sets the gradient as Binv*g.
func (D *DIC) UpdateGradientFromCartesian(g *v3.Matrix) error {
	if g.NVecs()*3 != D.cart.Len() {
		return fmt.Errorf("coords: gradient for %d atoms given, expected %d", g.NVecs(), D.cart.Len()/3)
	}
	D.g = mat.NewVecDense(D.Len(), nil)
	D.g.MulVec(D.binv, g.VecDense())
	return nil
}

//UpdateHessianFromCartesian sets the Hessian as Binv*H*Binv^T. The term with the
//derivative of B is not included.
func (D *DIC) UpdateHessianFromCartesian(h *mat.SymDense) error {
	if err := checkHessian(h, D.cart.Len()); err != nil {
		return err
	}
	var t, hs mat.Dense
	t.Mul(D.binv, h)
	hs.Mul(&t, D.binv.T())
	D.h = symmetrize(&hs)
	D.hinv = nil
	return nil
}

//Add returns the internal coordinates displaced by factor*step. The cartesian
//geometry is obtained iteratively, keeping the active space of D fixed.
//If that doesn't converge, a *BackTransformNotConvergedError is returned.
func (D *DIC) Add(factor float64, step *mat.VecDense) (Coordinates, error) {
	n := D.Len()
	if step.Len() != n {
		return nil, fmt.Errorf("coords: step of length %d for %d coordinates", step.Len(), n)
	}
	target := mat.NewVecDense(n, nil)
	target.AddScaledVec(D.x, factor, step)
	cart := mat.VecDenseCopyOf(D.cart)
	res := mat.NewVecDense(n, nil)
	dx := mat.NewVecDense(cart.Len(), nil)
	s := mat.NewVecDense(n, nil)
	lastdx := 0.0
	var rms float64
	for it := 0; ; it++ {
		q, bp, err := primitives(cart, D.pairs)
		if err != nil {
			return nil, &BackTransformNotConvergedError{Iterations: it, Residual: math.Inf(1)}
		}
		s.MulVec(D.u.T(), q)
		res.SubVec(target, s)
		rms = mat.Norm(res, 2) / math.Sqrt(float64(n))
		b, binv, err := wilson(D.u, bp)
		if err != nil {
			return nil, &BackTransformNotConvergedError{Iterations: it, Residual: rms}
		}
		if rms < D.bt.Tolerance && lastdx < D.bt.Tolerance {
			ret := &DIC{cart: cart, pairs: D.pairs, u: D.u, b: b, binv: binv, bt: D.bt}
			ret.x = mat.VecDenseCopyOf(s)
			D.copyHessians(&ret.base)
			return ret, nil
		}
		if it >= D.bt.MaxIterations || math.IsNaN(rms) {
			return nil, &BackTransformNotConvergedError{Iterations: it, Residual: rms}
		}
		dx.MulVec(binv.T(), res)
		cart.AddVec(cart, dx)
		lastdx = maxAbs(dx.RawVector().Data)
	}
}

//CartesianStep returns Binv^T*step, the linear estimate of the cartesian
//displacement caused by step.
func (D *DIC) CartesianStep(step *mat.VecDense) (*mat.VecDense, error) {
	if step.Len() != D.Len() {
		return nil, fmt.Errorf("coords: step of length %d for %d coordinates", step.Len(), D.Len())
	}
	dx := mat.NewVecDense(D.cart.Len(), nil)
	dx.MulVec(D.binv.T(), step)
	return dx, nil
}

//pairList returns all the pairs i<j of n atoms.
func pairList(n int) [][2]int {
	ret := make([][2]int, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ret = append(ret, [2]int{i, j})
		}
	}
	return ret
}

//primitives returns the inverse distances for the given pairs of atoms in the
//cartesian vector x, and their derivatives with respect to x (the primitive B matrix).
func primitives(x *mat.VecDense, pairs [][2]int) (*mat.VecDense, *mat.Dense, error) {
	n3 := x.Len()
	q := mat.NewVecDense(len(pairs), nil)
	bp := mat.NewDense(len(pairs), n3, nil)
	var d [3]float64
	for k, p := range pairs {
		i, j := p[0], p[1]
		r2 := 0.0
		for c := 0; c < 3; c++ {
			d[c] = x.AtVec(3*i+c) - x.AtVec(3*j+c)
			r2 += d[c] * d[c]
		}
		r := math.Sqrt(r2)
		if r < mindist {
			return nil, nil, &DegenerateGeometryError{Reason: fmt.Sprintf("atoms %d and %d are %g A apart", i, j, r)}
		}
		q.SetVec(k, 1/r)
		r3 := r2 * r
		for c := 0; c < 3; c++ {
			bp.Set(k, 3*i+c, -d[c]/r3)
			bp.Set(k, 3*j+c, d[c]/r3)
		}
	}
	return q, bp, nil
}

//wilson returns B=U^T*Bp and its generalised inverse (B*B^T)^-1*B.
func wilson(u, bp *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	b := new(mat.Dense)
	b.Mul(u.T(), bp)
	var bbt mat.SymDense
	bbt.SymOuterK(1, b)
	var chol mat.Cholesky
	if ok := chol.Factorize(&bbt); !ok {
		return nil, nil, &DegenerateGeometryError{Reason: "B*B^T is not positive definite"}
	}
	if c := chol.Cond(); c > maxcond || math.IsNaN(c) {
		return nil, nil, &DegenerateGeometryError{Reason: fmt.Sprintf("B*B^T is ill-conditioned (condition number %.3e)", c)}
	}
	binv := new(mat.Dense)
	if err := chol.SolveTo(binv, b); err != nil {
		return nil, nil, &DegenerateGeometryError{Reason: "can't invert B*B^T: " + err.Error()}
	}
	return b, binv, nil
}

func maxAbs(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return math.Max(floats.Max(v), -floats.Min(v))
}
