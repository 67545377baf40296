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

/*Package chem is the main package of the gochemopt library. It provides atom, topology and species
structures, facilities for reading and writing XYZ files, and a few geometric helpers
needed to set up geometry optimizations.



	**gochemopt Capabilities**


    Reads/writes XYZ files.

    Perceives bonds from covalent radii.

    Optimizes molecular geometries to minima with rational function optimization (RFO)
	in delocalized internal coordinates (package opt), with quasi-Newton Hessian updates
	(package hessupd) and a Cartesian trust radius.

    Transforms gradients and Hessians between Cartesian and delocalized internal
	coordinates (package coords).

    Obtains energies, gradients and Hessians from the xtb program (package qm)
	or from an analytic harmonic model (package ff).

    Writes compressed optimization trajectories (package traj) and plots energy profiles
	(package chemplot).


gochemopt uses its own matrix type for coordinates, v3.Matrix, based on gonum.org/v1/gonum/mat.
Each row of a v3.Matrix represents one point in space.*/
package chem
