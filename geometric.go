/*
 * geometric.go, part of gochemopt.
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

package chem

import (
	"math"

	v3 "github.com/rmera/gochemopt/v3"
)

//ReasonableGeometry returns false for geometries that are clearly wrong as
//starting points for an optimization: For more than 3 atoms, those with an
//interatomic distance between 0.1 and 0.7 A, or those with all the atoms
//in the z=0 plane, which is what some embedding programs produce for
//structures they can't handle.
func ReasonableGeometry(coords *v3.Matrix) bool {
	n := coords.NVecs()
	if n <= 3 {
		return true
	}
	flat := true
	for i := 0; i < n; i++ {
		if coords.At(i, 2) != 0 {
			flat = false
		}
		for j := i + 1; j < n; j++ {
			d := coords.Dist(i, j)
			if d > 0.1 && d < 0.7 {
				return false
			}
		}
	}
	return !flat
}

//Angle returns the angle, in radians, formed by the atoms i, j and k
//of coords, with j as the vertex.
func Angle(coords *v3.Matrix, i, j, k int) float64 {
	var dot, n1, n2 float64
	for c := 0; c < 3; c++ {
		a := coords.At(i, c) - coords.At(j, c)
		b := coords.At(k, c) - coords.At(j, c)
		dot += a * b
		n1 += a * a
		n2 += b * b
	}
	cos := dot / math.Sqrt(n1*n2)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}
