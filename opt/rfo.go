/*
 * rfo.go, part of gochemopt.
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
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	zeroeigen = 1e-16
	minlast   = 1e-14
)

//ErrRFODegenerate is returned by RFOStep when the selected eigenvector of the
//augmented Hessian has no component along the augmented direction, so no step
//can be obtained from it.
var ErrRFODegenerate = errors.New("opt: RFO step undefined, the eigenvector has no augmented component")

//RFOStep returns the rational function optimization step for the Hessian h and
//the gradient g. The step comes from the eigenvector of the augmented Hessian
//  | h   g |
//  | g^T 0 |
//with the lowest eigenvalue that is not numerically zero, divided by its last element.
func RFOStep(h *mat.SymDense, g *mat.VecDense) (*mat.VecDense, error) {
	n := g.Len()
	if h.SymmetricDim() != n {
		return nil, fmt.Errorf("opt: Hessian of dimension %d for a gradient of length %d", h.SymmetricDim(), n)
	}
	aug := mat.NewSymDense(n+1, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			aug.SetSym(i, j, h.At(i, j))
		}
		aug.SetSym(i, n, g.AtVec(i))
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(aug, true); !ok {
		return nil, fmt.Errorf("opt: eigendecomposition of the augmented Hessian failed")
	}
	vals := eig.Values(nil)
	mode := -1
	for i, v := range vals {
		if math.Abs(v) > zeroeigen {
			mode = i
			break
		}
	}
	if mode < 0 {
		return nil, ErrRFODegenerate
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	last := vecs.At(n, mode)
	if math.Abs(last) < minlast {
		return nil, ErrRFODegenerate
	}
	step := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		step.SetVec(i, vecs.At(i, mode)/last)
	}
	return step, nil
}
