/*
 * harmonic.go, part of gochemopt.
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

package ff

import (
	"fmt"

	chem "github.com/rmera/gochemopt"
	"github.com/rmera/gochemopt/qm"
	v3 "github.com/rmera/gochemopt/v3"
	"gonum.org/v1/gonum/mat"
)

//Force constants used by the model Hessian, in Hartree/A^2
const (
	KBond      = 1.0
	K13        = 0.2
	KRestraint = 10.0
)

const code = "harmonic"

//Pair is a harmonic interaction between atoms I and J, with
//force constant K (Hartree/A^2) and equilibrium distance R0 (A)
type Pair struct {
	I, J int
	K    float64
	R0   float64
}

//Harmonic is an oracle for the potential E=sum 1/2 K (r-R0)^2 over a set of
//pairs of atoms. The distance constraints in the Calc given to its methods are
//added as pairs with force constant Restraint.
type Harmonic struct {
	Pairs     []Pair
	Restraint float64
}

//NewHarmonic returns a Harmonic oracle for the given pairs.
func NewHarmonic(pairs ...Pair) *Harmonic {
	return &Harmonic{Pairs: pairs, Restraint: KRestraint}
}

//ModelHessian returns a Harmonic oracle with a minimum at the geometry of
//mol. Bonded atoms interact with force constant KBond, and atoms bonded to a
//common atom, with K13. Its Hessian is a cheap initial Hessian for an optimization.
func ModelHessian(mol *chem.Species) (*Harmonic, error) {
	bonds, err := chem.AssignBonds(mol.Coords, mol)
	if err != nil {
		return nil, err
	}
	n := mol.Len()
	neigh := make([][]int, n)
	bonded := make(map[[2]int]bool, len(bonds))
	H := NewHarmonic()
	for _, b := range bonds {
		i, j := order(b.At1, b.At2)
		if bonded[[2]int{i, j}] {
			continue
		}
		bonded[[2]int{i, j}] = true
		neigh[i] = append(neigh[i], j)
		neigh[j] = append(neigh[j], i)
		H.Pairs = append(H.Pairs, Pair{I: i, J: j, K: KBond, R0: mol.Coords.Dist(i, j)})
	}
	for c := 0; c < n; c++ {
		for a := 0; a < len(neigh[c]); a++ {
			for b := a + 1; b < len(neigh[c]); b++ {
				i, j := order(neigh[c][a], neigh[c][b])
				if bonded[[2]int{i, j}] {
					continue
				}
				bonded[[2]int{i, j}] = true
				H.Pairs = append(H.Pairs, Pair{I: i, J: j, K: K13, R0: mol.Coords.Dist(i, j)})
			}
		}
	}
	return H, nil
}

func order(i, j int) (int, int) {
	if i > j {
		return j, i
	}
	return i, j
}

//pairs returns the pairs of H plus the restraints in Q, checking
//that all the atoms are in range.
func (H *Harmonic) pairs(natoms int, Q *qm.Calc) ([]Pair, error) {
	ret := H.Pairs
	if Q != nil && len(Q.DConstraints) > 0 {
		ret = append(append([]Pair(nil), H.Pairs...), make([]Pair, 0, len(Q.DConstraints))...)
		for _, c := range Q.DConstraints {
			ret = append(ret, Pair{I: c.I, J: c.J, K: H.Restraint, R0: c.Dist})
		}
	}
	for _, p := range ret {
		if p.I < 0 || p.J < 0 || p.I >= natoms || p.J >= natoms || p.I == p.J {
			return nil, qm.NewError(qm.ErrCantInput, code, "", fmt.Sprintf("pair %d-%d for %d atoms", p.I, p.J, natoms), "pairs")
		}
	}
	return ret, nil
}

//EnergyGradient returns the energy and the cartesian gradient for coords.
func (H *Harmonic) EnergyGradient(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *qm.Calc) (float64, *v3.Matrix, error) {
	pairs, err := H.pairs(coords.NVecs(), Q)
	if err != nil {
		return 0, nil, err
	}
	g := v3.Zeros(coords.NVecs())
	var e float64
	var u [3]float64
	for _, p := range pairs {
		r := unit(coords, p.I, p.J, &u)
		dr := r - p.R0
		e += 0.5 * p.K * dr * dr
		for c := 0; c < 3; c++ {
			g.Set(p.I, c, g.At(p.I, c)+p.K*dr*u[c])
			g.Set(p.J, c, g.At(p.J, c)-p.K*dr*u[c])
		}
	}
	return e, g, nil
}

//Hessian returns the analytic cartesian Hessian for coords.
func (H *Harmonic) Hessian(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *qm.Calc) (*mat.SymDense, error) {
	n := coords.NVecs()
	pairs, err := H.pairs(n, Q)
	if err != nil {
		return nil, err
	}
	h := mat.NewSymDense(3*n, nil)
	var u [3]float64
	var K [3][3]float64
	for _, p := range pairs {
		r := unit(coords, p.I, p.J, &u)
		if r == 0 {
			return nil, qm.NewError(qm.ErrNoHessian, code, "", fmt.Sprintf("atoms %d and %d overlap", p.I, p.J), "Hessian")
		}
		f := p.K * (r - p.R0) / r
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				K[a][b] = p.K*u[a]*u[b] - f*u[a]*u[b]
				if a == b {
					K[a][b] += f
				}
			}
		}
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				ia, ib := 3*p.I+a, 3*p.I+b
				ja, jb := 3*p.J+a, 3*p.J+b
				if ia <= ib {
					h.SetSym(ia, ib, h.At(ia, ib)+K[a][b])
				}
				if ja <= jb {
					h.SetSym(ja, jb, h.At(ja, jb)+K[a][b])
				}
				//the off-diagonal block has i!=j, so each element is visited once.
				h.SetSym(ia, jb, h.At(ia, jb)-K[a][b])
			}
		}
	}
	return h, nil
}

//unit puts in u the unit vector from atom j to atom i, and returns the distance.
func unit(coords *v3.Matrix, i, j int, u *[3]float64) float64 {
	r := coords.Dist(i, j)
	for c := 0; c < 3; c++ {
		u[c] = 0
		if r > 0 {
			u[c] = (coords.At(i, c) - coords.At(j, c)) / r
		}
	}
	return r
}
