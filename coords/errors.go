/*
 * errors.go, part of gochemopt.
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

import "fmt"

//DegenerateGeometryError means that internal coordinates can't be built for
//a geometry: Too few atoms, overlapping atoms, or a singular transformation.
type DegenerateGeometryError struct {
	Reason string
	deco   []string
}

func (E *DegenerateGeometryError) Error() string {
	return "degenerate geometry: " + E.Reason
}

//Decorate adds the caller to the error's decoration slice, and returns it.
func (E *DegenerateGeometryError) Decorate(dec string) []string {
	if dec != "" {
		E.deco = append(E.deco, dec)
	}
	return E.deco
}

//Critical is always true, nothing can be done with a degenerate geometry.
func (E *DegenerateGeometryError) Critical() bool { return true }

//BackTransformNotConvergedError means that the cartesian geometry corresponding
//to a set of internal coordinates could not be found. A smaller step will often work.
type BackTransformNotConvergedError struct {
	Iterations int
	Residual   float64
	deco       []string
}

func (E *BackTransformNotConvergedError) Error() string {
	return fmt.Sprintf("back-transformation to cartesian coordinates not converged after %d iterations (residual %.3e)", E.Iterations, E.Residual)
}

//Decorate adds the caller to the error's decoration slice, and returns it.
func (E *BackTransformNotConvergedError) Decorate(dec string) []string {
	if dec != "" {
		E.deco = append(E.deco, dec)
	}
	return E.deco
}

//Critical is false, the caller is expected to retry with a smaller step.
func (E *BackTransformNotConvergedError) Critical() bool { return false }
