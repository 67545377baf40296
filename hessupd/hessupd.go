/*
 * hessupd.go, part of gochemopt.
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

package hessupd

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

const (
	//CurvatureTol is the smallest s^T*y accepted by the BFGS updates.
	CurvatureTol = 1e-10
	//DefaultMinEigenvalue is the smallest eigenvalue BFGSPD allows in the updated Hessian.
	DefaultMinEigenvalue = 1e-5
	sr1tol               = 1e-8
)

//Update contains what is needed to update a Hessian: The previous Hessian
//and/or its inverse, the step taken, S, and the change in the gradient, Y.
type Update struct {
	H    *mat.SymDense
	HInv *mat.SymDense
	S    *mat.VecDense
	Y    *mat.VecDense
}

//Updater is a quasi-Newton update strategy.
type Updater interface {
	Name() string
	//Applicable returns whether the update can be used with the given data.
	Applicable(u Update) bool
	//Inverse returns the updated inverse Hessian.
	Inverse(u Update) (*mat.SymDense, error)
	//Hessian returns the updated Hessian.
	Hessian(u Update) (*mat.SymDense, error)
}

//First returns the first updater in list that is applicable to u, or nil
//if none is.
func First(list []Updater, u Update) Updater {
	for _, v := range list {
		if v.Applicable(u) {
			return v
		}
	}
	return nil
}

//ByName returns the updater with the given name. Names are
//"bfgs-pd", "bfgs", "sr1" and "null".
func ByName(name string) (Updater, error) {
	switch strings.ToLower(name) {
	case "bfgs-pd", "bfgspd":
		return &BFGSPD{MinEigenvalue: DefaultMinEigenvalue}, nil
	case "bfgs":
		return BFGS{}, nil
	case "sr1":
		return SR1{}, nil
	case "null", "none":
		return Null{}, nil
	}
	return nil, fmt.Errorf("hessupd: unknown Hessian update %q", name)
}

//Names returns the names of the updaters in list.
func Names(list []Updater) []string {
	ret := make([]string, 0, len(list))
	for _, v := range list {
		ret = append(ret, v.Name())
	}
	return ret
}

//BFGS is the Broyden-Fletcher-Goldfarb-Shanno update, applicable when
//the curvature condition, s^T*y > 0, holds.
type BFGS struct{}

func (B BFGS) Name() string { return "bfgs" }

func (B BFGS) Applicable(u Update) bool {
	if err := u.check(); err != nil {
		return false
	}
	return mat.Dot(u.S, u.Y) > CurvatureTol
}

//Inverse returns (I-r*s*y^T)*Hinv*(I-r*y*s^T)+r*s*s^T with r=1/(y^T*s)
func (B BFGS) Inverse(u Update) (*mat.SymDense, error) {
	hinv, err := u.inverse()
	if err != nil {
		return nil, err
	}
	n := u.S.Len()
	rho := 1 / mat.Dot(u.Y, u.S)
	L := eye(n)
	L.RankOne(L, -rho, u.S, u.Y)
	var t, r mat.Dense
	t.Mul(L, hinv)
	r.Mul(&t, L.T())
	ret := symmetrize(&r)
	ret.SymRankOne(ret, rho, u.S)
	return ret, nil
}

//Hessian returns H + y*y^T/(y^T*s) - H*s*s^T*H/(s^T*H*s)
func (B BFGS) Hessian(u Update) (*mat.SymDense, error) {
	h, err := u.hessian()
	if err != nil {
		return nil, err
	}
	hs := mat.NewVecDense(u.S.Len(), nil)
	hs.MulVec(h, u.S)
	shs := mat.Dot(u.S, hs)
	if math.Abs(shs) < CurvatureTol {
		return nil, fmt.Errorf("hessupd: s^T*H*s is %g, can't update", shs)
	}
	ret := mat.NewSymDense(h.SymmetricDim(), nil)
	ret.CopySym(h)
	ret.SymRankOne(ret, 1/mat.Dot(u.Y, u.S), u.Y)
	ret.SymRankOne(ret, -1/shs, hs)
	return ret, nil
}

//BFGSPD is the BFGS update that is only applicable when the updated
//Hessian remains positive definite, with no eigenvalue below MinEigenvalue.
type BFGSPD struct {
	MinEigenvalue float64
}

func (B *BFGSPD) Name() string { return "bfgs-pd" }

func (B *BFGSPD) Applicable(u Update) bool {
	if !(BFGS{}).Applicable(u) {
		return false
	}
	h, err := B.Hessian(u)
	if err != nil {
		return false
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(h, false); !ok {
		return false
	}
	min := B.MinEigenvalue
	if min <= 0 {
		min = DefaultMinEigenvalue
	}
	return eig.Values(nil)[0] >= min
}

func (B *BFGSPD) Inverse(u Update) (*mat.SymDense, error) { return BFGS{}.Inverse(u) }

func (B *BFGSPD) Hessian(u Update) (*mat.SymDense, error) { return BFGS{}.Hessian(u) }

//SR1 is the symmetric rank-one update. It does not preserve positive
//definiteness.
type SR1 struct{}

func (S SR1) Name() string { return "sr1" }

func (S SR1) Applicable(u Update) bool {
	if err := u.check(); err != nil {
		return false
	}
	h, err := u.hessian()
	if err != nil {
		return false
	}
	r := u.residual(h)
	return math.Abs(mat.Dot(u.S, r)) >= sr1tol*mat.Norm(u.S, 2)*mat.Norm(r, 2) && mat.Norm(r, 2) > 0
}

//Hessian returns H + r*r^T/(r^T*s), with r=y-H*s
func (S SR1) Hessian(u Update) (*mat.SymDense, error) {
	h, err := u.hessian()
	if err != nil {
		return nil, err
	}
	r := u.residual(h)
	den := mat.Dot(r, u.S)
	if den == 0 {
		return nil, fmt.Errorf("hessupd: SR1 update with zero denominator")
	}
	ret := mat.NewSymDense(h.SymmetricDim(), nil)
	ret.CopySym(h)
	ret.SymRankOne(ret, 1/den, r)
	return ret, nil
}

//Inverse returns Hinv + t*t^T/(t^T*y), with t=s-Hinv*y
func (S SR1) Inverse(u Update) (*mat.SymDense, error) {
	hinv, err := u.inverse()
	if err != nil {
		return nil, err
	}
	t := mat.NewVecDense(u.S.Len(), nil)
	t.MulVec(hinv, u.Y)
	t.SubVec(u.S, t)
	den := mat.Dot(t, u.Y)
	if den == 0 {
		return nil, fmt.Errorf("hessupd: SR1 update with zero denominator")
	}
	ret := mat.NewSymDense(hinv.SymmetricDim(), nil)
	ret.CopySym(hinv)
	ret.SymRankOne(ret, 1/den, t)
	return ret, nil
}

//Null leaves the Hessian unchanged. It is always applicable.
type Null struct{}

func (N Null) Name() string { return "null" }

func (N Null) Applicable(u Update) bool { return true }

func (N Null) Inverse(u Update) (*mat.SymDense, error) { return u.inverse() }

func (N Null) Hessian(u Update) (*mat.SymDense, error) { return u.hessian() }

func (u Update) check() error {
	if u.S == nil || u.Y == nil {
		return fmt.Errorf("hessupd: step or gradient change missing")
	}
	if u.S.Len() != u.Y.Len() {
		return fmt.Errorf("hessupd: step of length %d and gradient change of length %d", u.S.Len(), u.Y.Len())
	}
	if u.H == nil && u.HInv == nil {
		return fmt.Errorf("hessupd: no Hessian to update")
	}
	for _, m := range []*mat.SymDense{u.H, u.HInv} {
		if m != nil && m.SymmetricDim() != u.S.Len() {
			return fmt.Errorf("hessupd: Hessian of dimension %d for a step of length %d", m.SymmetricDim(), u.S.Len())
		}
	}
	return nil
}

func (u Update) hessian() (*mat.SymDense, error) {
	if err := u.check(); err != nil {
		return nil, err
	}
	if u.H != nil {
		return u.H, nil
	}
	return invert(u.HInv)
}

func (u Update) inverse() (*mat.SymDense, error) {
	if err := u.check(); err != nil {
		return nil, err
	}
	if u.HInv != nil {
		return u.HInv, nil
	}
	return invert(u.H)
}

//residual returns y-H*s
func (u Update) residual(h *mat.SymDense) *mat.VecDense {
	r := mat.NewVecDense(u.S.Len(), nil)
	r.MulVec(h, u.S)
	r.SubVec(u.Y, r)
	return r
}

func eye(n int) *mat.Dense {
	ret := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		ret.Set(i, i, 1)
	}
	return ret
}

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

func invert(h *mat.SymDense) (*mat.SymDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(h); ok {
		ret := new(mat.SymDense)
		if err := chol.InverseTo(ret); err == nil {
			return ret, nil
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(h); err != nil {
		return nil, fmt.Errorf("hessupd: can't invert Hessian: %w", err)
	}
	return symmetrize(&inv), nil
}
