/*
 * trust.go, part of gochemopt.
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

	"github.com/rmera/gochemopt/coords"
	v3 "github.com/rmera/gochemopt/v3"
	"gonum.org/v1/gonum/mat"
)

//TrustTolerance is the relative amount by which a scaled step may exceed
//the trust radius.
const TrustTolerance = 1e-3

//maxScalings is the largest number of times ConstrainStep rescales a step.
const maxScalings = 12

//ConstrainStep applies step to c. If the largest cartesian displacement
//component that results is larger than maxComponent, the step is scaled by
//maxComponent/displacement and applied again, until the displacement is at
//most maxComponent*(1+TrustTolerance). If the full step can't be transformed
//to cartesian coordinates, the first factor is estimated from the linear
//cartesian displacement, and halved for as long as the transformation fails.
//It returns the new coordinates and the factor applied to the step.
//An empty step returns c and 0.
func ConstrainStep(c coords.Coordinates, step *mat.VecDense, maxComponent float64) (coords.Coordinates, float64, error) {
	if step == nil || step.Len() == 0 {
		return c, 0, nil
	}
	x := c.Cartesian()
	factor := 1.0
	next, err := c.Add(1, step)
	if err != nil {
		if !backTransformFailed(err) {
			return nil, 0, err
		}
		factor, err = linearFactor(c, step, maxComponent)
		if err != nil {
			return nil, 0, err
		}
		next = nil
	} else if MaxDisplacement(x, next.Cartesian()) <= maxComponent {
		return next, 1, nil
	}
	for i := 0; i < maxScalings; i++ {
		if next == nil {
			next, err = c.Add(factor, step)
			if err != nil {
				if !backTransformFailed(err) || i == maxScalings-1 {
					return nil, 0, err
				}
				factor *= 0.5
				continue
			}
		}
		max := MaxDisplacement(x, next.Cartesian())
		if max <= maxComponent*(1+TrustTolerance) {
			return next, factor, nil
		}
		factor *= maxComponent / max
		next = nil
	}
	return nil, 0, fmt.Errorf("opt: step can't be brought within the trust radius %g", maxComponent)
}

//linearFactor returns the factor that brings the linear estimate of the
//cartesian displacement for step to maxComponent, never larger than 0.5.
func linearFactor(c coords.Coordinates, step *mat.VecDense, maxComponent float64) (float64, error) {
	dx, err := c.CartesianStep(step)
	if err != nil {
		return 0, err
	}
	est := mat.Norm(dx, math.Inf(1))
	if est <= 0 || math.IsNaN(est) {
		return 0.5, nil
	}
	return math.Min(0.5, maxComponent/est), nil
}

func backTransformFailed(err error) bool {
	var bterr *coords.BackTransformNotConvergedError
	return errors.As(err, &bterr)
}

//MaxDisplacement returns the largest absolute difference between
//the elements of a and b.
func MaxDisplacement(a, b *v3.Matrix) float64 {
	var max float64
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d := math.Abs(a.At(i, j) - b.At(i, j))
			if math.IsNaN(d) {
				return math.Inf(1)
			}
			if d > max {
				max = d
			}
		}
	}
	return max
}
