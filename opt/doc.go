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
Package opt implements the rational function optimization (RFO) of molecular
geometries.

Each iteration updates the Hessian with the first applicable quasi-Newton update,
obtains the RFO step from the augmented Hessian, limits it so no cartesian
coordinate moves more than the trust radius, and asks the oracle for the energy
and gradient at the new point. The initial Hessian is obtained with a low level
method, in its own scratch directory, and made positive definite.

Optimise runs one optimization, OptimiseMany several independent ones concurrently.
*/
package opt
