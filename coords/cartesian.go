/*
 * cartesian.go, part of gochemopt.
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

	v3 "github.com/rmera/gochemopt/v3"
	"gonum.org/v1/gonum/mat"
)

//Cartesian are plain cartesian coordinates, in A. The gradient and Hessian are
//the cartesian ones, so all transformations are the identity.
type Cartesian struct {
	base
}

//NewCartesian returns cartesian coordinates with a copy of the geometry in x.
func NewCartesian(x *v3.Matrix) *Cartesian {
	C := new(Cartesian)
	C.x = x.VecDense()
	return C
}

func (C *Cartesian) Kind() Kind { return CartesianKind }

func (C *Cartesian) Cartesian() *v3.Matrix {
	ret, _ := v3.FromFlat(C.x.RawVector().Data)
	return ret
}

func (C *Cartesian) ToCartesian() *Cartesian {
	ret := &Cartesian{}
	ret.x = mat.VecDenseCopyOf(C.x)
	if C.g != nil {
		ret.g = mat.VecDenseCopyOf(C.g)
	}
	C.copyHessians(&ret.base)
	return ret
}

func (C *Cartesian) UpdateGradientFromCartesian(g *v3.Matrix) error {
	if g.NVecs()*3 != C.Len() {
		return fmt.Errorf("coords: gradient for %d atoms given, expected %d", g.NVecs(), C.Len()/3)
	}
	C.g = g.VecDense()
	return nil
}

func (C *Cartesian) UpdateHessianFromCartesian(h *mat.SymDense) error {
	if err := checkHessian(h, C.Len()); err != nil {
		return err
	}
	C.h = mat.NewSymDense(C.Len(), nil)
	C.h.CopySym(h)
	C.hinv = nil
	return nil
}

func (C *Cartesian) Add(factor float64, step *mat.VecDense) (Coordinates, error) {
	if step.Len() != C.Len() {
		return nil, fmt.Errorf("coords: step of length %d for %d coordinates", step.Len(), C.Len())
	}
	ret := &Cartesian{}
	ret.x = mat.NewVecDense(C.Len(), nil)
	ret.x.AddScaledVec(C.x, factor, step)
	C.copyHessians(&ret.base)
	return ret, nil
}

func (C *Cartesian) CartesianStep(step *mat.VecDense) (*mat.VecDense, error) {
	if step.Len() != C.Len() {
		return nil, fmt.Errorf("coords: step of length %d for %d coordinates", step.Len(), C.Len())
	}
	return mat.VecDenseCopyOf(step), nil
}
