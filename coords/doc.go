/*
 * doc.go, part of gochemopt.
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

/*
Package coords implements the coordinate systems used by the optimizer.

A point is kept either in plain cartesian coordinates or in delocalised internal
coordinates (DIC), together with the energy gradient and Hessian expressed in
the same system. Values are never modified in place: Add returns new coordinates.

The DIC are built from the inverse distances between all pairs of atoms. The
eigenvectors of G=Bp*Bp^T with non-zero eigenvalues define the active space.
Going back to cartesian coordinates requires an iterative procedure, which can
fail for large steps, in which case a *BackTransformNotConvergedError is returned.
*/
package coords
