/*
 * coords.go, part of gochemopt.
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
	"gonum.org/v1/gonum/mat"
)

//DefaultEigenvalueFloor is the smallest eigenvalue a Hessian is allowed to have
//after MakeHessianPositiveDefinite.
const DefaultEigenvalueFloor = 1e-5

//Kind identifies the representation of a set of coordinates.
type Kind int

const (
	CartesianKind Kind = iota
	DICKind
)

func (k Kind) String() string {
	switch k {
	case CartesianKind:
		return "cartesian"
	case DICKind:
		return "dic"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

//ParseKind returns the Kind named by s ("cart", "cartesian" or "dic").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "cart", "cartesian":
		return CartesianKind, nil
	case "dic", "":
		return DICKind, nil
	}
	return 0, fmt.Errorf("unknown coordinate system %q", s)
}

//Coordinates is a point in some coordinate space, together with the gradient
//and Hessian of the energy at that point, expressed in the same space.
//Implementations never change the point in place: Add returns a new value.
type Coordinates interface {
	Kind() Kind

	//Len is the number of degrees of freedom of the representation.
	Len() int

	//Values returns a copy of the current point.
	Values() *mat.VecDense

	//Gradient returns the gradient at the point, or nil if it is not known yet.
	Gradient() *mat.VecDense

	//Hessian returns the Hessian at the point, or nil if it is not known.
	Hessian() *mat.SymDense

	//InvHessian returns the inverse of the Hessian, computing it if needed.
	InvHessian() (*mat.SymDense, error)

	//SetHessian sets the Hessian, dropping any stored inverse.
	SetHessian(h *mat.SymDense) error

	//SetInvHessian sets the inverse Hessian, and the Hessian obtained from it.
	SetInvHessian(hinv *mat.SymDense) error

	//Cartesian returns a copy of the cartesian geometry, in A, for the point.
	Cartesian() *v3.Matrix

	//ToCartesian returns the point, gradient and Hessian (if known)
	//expressed in cartesian coordinates.
	ToCartesian() *Cartesian

	//UpdateGradientFromCartesian sets the gradient from a cartesian one.
	UpdateGradientFromCartesian(g *v3.Matrix) error

	//UpdateHessianFromCartesian sets the Hessian from a cartesian one.
	UpdateHessianFromCartesian(h *mat.SymDense) error

	//MakeHessianPositiveDefinite raises all eigenvalues of the Hessian
	//lower than floor to floor.
	MakeHessianPositiveDefinite(floor float64) error

	//Add returns new coordinates, in the same representation, displaced by
	//factor*step from the current ones. The Hessian is carried over, the
	//gradient is not.
	Add(factor float64, step *mat.VecDense) (Coordinates, error)

	//CartesianStep returns the cartesian displacement (3N) that step produces
	//to first order at the current point.
	CartesianStep(step *mat.VecDense) (*mat.VecDense, error)
}

//base contains what is common to all representations.
type base struct {
	x    *mat.VecDense
	g    *mat.VecDense
	h    *mat.SymDense
	hinv *mat.SymDense
}

func (b *base) Len() int {
	if b.x == nil {
		return 0
	}
	return b.x.Len()
}

func (b *base) Values() *mat.VecDense {
	return mat.VecDenseCopyOf(b.x)
}

func (b *base) Gradient() *mat.VecDense {
	if b.g == nil {
		return nil
	}
	return mat.VecDenseCopyOf(b.g)
}

func (b *base) Hessian() *mat.SymDense {
	return b.h
}

func (b *base) InvHessian() (*mat.SymDense, error) {
	if b.hinv != nil {
		return b.hinv, nil
	}
	if b.h == nil {
		return nil, fmt.Errorf("coords: no Hessian set")
	}
	hinv, err := invertSym(b.h)
	if err != nil {
		return nil, err
	}
	b.hinv = hinv
	return hinv, nil
}

func (b *base) SetHessian(h *mat.SymDense) error {
	if h.SymmetricDim() != b.Len() {
		return fmt.Errorf("coords: Hessian of dimension %d given for %d coordinates", h.SymmetricDim(), b.Len())
	}
	b.h = h
	b.hinv = nil
	return nil
}

func (b *base) SetInvHessian(hinv *mat.SymDense) error {
	if hinv.SymmetricDim() != b.Len() {
		return fmt.Errorf("coords: inverse Hessian of dimension %d given for %d coordinates", hinv.SymmetricDim(), b.Len())
	}
	h, err := invertSym(hinv)
	if err != nil {
		return err
	}
	b.h = h
	b.hinv = hinv
	return nil
}

func (b *base) MakeHessianPositiveDefinite(floor float64) error {
	if b.h == nil {
		return fmt.Errorf("coords: no Hessian to make positive definite")
	}
	h, err := positiveDefinite(b.h, floor)
	if err != nil {
		return err
	}
	b.h = h
	b.hinv = nil
	return nil
}

//copyHessians puts copies of the Hessian and its inverse in b2.
func (b *base) copyHessians(b2 *base) {
	if b.h != nil {
		b2.h = mat.NewSymDense(b.h.SymmetricDim(), nil)
		b2.h.CopySym(b.h)
	}
	if b.hinv != nil {
		b2.hinv = mat.NewSymDense(b.hinv.SymmetricDim(), nil)
		b2.hinv.CopySym(b.hinv)
	}
}

//symmetrize returns the symmetric part of the square matrix A.
func symmetrize(A mat.Matrix) *mat.SymDense {
	n, _ := A.Dims()
	ret := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			ret.SetSym(i, j, 0.5*(A.At(i, j)+A.At(j, i)))
		}
	}
	return ret
}

//positiveDefinite returns a copy of h where all the eigenvalues
//smaller than floor have been set to floor.
func positiveDefinite(h *mat.SymDense, floor float64) (*mat.SymDense, error) {
	if floor <= 0 {
		return nil, fmt.Errorf("coords: eigenvalue floor must be positive, got %g", floor)
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(h, true); !ok {
		return nil, fmt.Errorf("coords: eigendecomposition of the Hessian failed")
	}
	vals := eig.Values(nil)
	for i, v := range vals {
		if v < floor || math.IsNaN(v) {
			vals[i] = floor
		}
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	return fromEigen(&vecs, vals), nil
}

//fromEigen builds V*diag(vals)*V^T
func fromEigen(vecs *mat.Dense, vals []float64) *mat.SymDense {
	n := len(vals)
	scaled := mat.NewDense(n, n, nil)
	scaled.Apply(func(i, j int, v float64) float64 { return v * vals[j] }, vecs)
	var ret mat.Dense
	ret.Mul(scaled, vecs.T())
	return symmetrize(&ret)
}

//invertSym inverts a symmetric matrix through its eigendecomposition.
func invertSym(h *mat.SymDense) (*mat.SymDense, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(h, true); !ok {
		return nil, fmt.Errorf("coords: eigendecomposition failed while inverting")
	}
	vals := eig.Values(nil)
	for i, v := range vals {
		if math.Abs(v) < 1e-14 {
			return nil, fmt.Errorf("coords: singular matrix can't be inverted (eigenvalue %g)", v)
		}
		vals[i] = 1 / v
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	return fromEigen(&vecs, vals), nil
}

//checkHessian returns an error if h is not n x n.
func checkHessian(h *mat.SymDense, n int) error {
	if h == nil {
		return fmt.Errorf("coords: nil Hessian")
	}
	if h.SymmetricDim() != n {
		return fmt.Errorf("coords: cartesian Hessian of dimension %d, expected %d", h.SymmetricDim(), n)
	}
	return nil
}
