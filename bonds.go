/*
 * bonds.go, part of gochemopt.
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
	"fmt"
	"sort"

	v3 "github.com/rmera/gochemopt/v3"
)

//constants from DOI:10.1186/1758-2946-3-33
const (
	tooclose = 0.63
	bondtol  = 0.45
)

//Bond joins the atoms with indexes At1 and At2, which are Dist A apart.
type Bond struct {
	At1  int
	At2  int
	Dist float64
}

//Cross returns the index of the atom at the other side of the bond from origin.
func (B *Bond) Cross(origin int) int {
	if origin == B.At1 {
		return B.At2
	}
	if origin == B.At2 {
		return B.At1
	}
	panic("Trying to cross a bond: The origin atom given is not present in the bond!") //I think this got to be a programming error, so a panic is warranted.
}

//AssignBonds returns the bonds in a molecule, based on a simple distance
//criterium, similar to that described in DOI:10.1186/1758-2946-3-33
//Atoms with more bonds than their valence allows lose their longest bonds.
func AssignBonds(coord *v3.Matrix, mol Atomer) ([]*Bond, error) {
	// might get slow for
	//large systems. It's really not thought
	//for proteins or macromolecules.
	tot := mol.Len()
	if coord.NVecs() != tot {
		return nil, CError{fmt.Sprintf("Mismatched atoms (%d) and coordinates (%d)", tot, coord.NVecs()), []string{"AssignBonds"}}
	}
	bonds := make([]*Bond, 0, tot)
	peratom := make([][]*Bond, tot)
	for i := 0; i < tot; i++ {
		at1 := mol.Atom(i)
		cov1 := symbolCovrad[at1.Symbol]
		if cov1 == 0 {
			return nil, CError{fmt.Sprintf("Couldn't find the covalent radii  for %s %d", at1.Symbol, i), []string{"AssignBonds"}}
		}
		for j := i + 1; j < tot; j++ {
			at2 := mol.Atom(j)
			cov2 := symbolCovrad[at2.Symbol]
			if cov2 == 0 {
				return nil, CError{fmt.Sprintf("Couldn't find the covalent radii  for %s %d", at2.Symbol, j), []string{"AssignBonds"}}
			}
			d := coord.Dist(i, j)
			if d < cov1+cov2+bondtol && d > tooclose {
				b := &Bond{At1: i, At2: j, Dist: d}
				peratom[i] = append(peratom[i], b)
				peratom[j] = append(peratom[j], b)
				bonds = append(bonds, b) //just to easily keep track of them.
			}
		}
	}
	//Now we check that no atom has too many bonds.
	removed := make(map[*Bond]bool)
	for i := 0; i < tot; i++ {
		max := symbolMaxBonds[mol.Atom(i).Symbol]
		if max == 0 { //means there is not a specified number of bonds for this atom.
			continue
		}
		atb := make([]*Bond, 0, len(peratom[i]))
		for _, b := range peratom[i] {
			if !removed[b] {
				atb = append(atb, b)
			}
		}
		sort.Slice(atb, func(i, j int) bool { return atb[i].Dist < atb[j].Dist })
		for k := max; k < len(atb); k++ {
			removed[atb[k]] = true //we remove the longest bonds
		}
	}
	ret := make([]*Bond, 0, len(bonds))
	for _, b := range bonds {
		if !removed[b] {
			ret = append(ret, b)
		}
	}
	return ret, nil
}
