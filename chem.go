/*
 * chem.go, part of gochemopt.
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

	v3 "github.com/rmera/gochemopt/v3"
)

//Atom contains the atoms read except for the coordinates, which will be in a matrix.
type Atom struct {
	Name   string
	ID     int
	Index  int //The place of the atom in the topology
	Mass   float64
	Charge float64
	Symbol string
}

//Atom methods

//Copy copies the information in A into the receiver.
func (N *Atom) Copy(A *Atom) {
	if A == nil || N == nil {
		panic(ErrNilAtom)
	}
	N.Name = A.Name
	N.ID = A.ID
	N.Index = A.Index
	N.Mass = A.Mass
	N.Charge = A.Charge
	N.Symbol = A.Symbol
}

/*****Topology type***/

//Topology contains information about a molecule which is not expected to change in time
//(i.e. everything except for coordinates)
type Topology struct {
	Atoms  []*Atom
	charge int
	multi  int
}

//NewTopology returns a topology with the given charge and multiplicity,
//and with the atoms in ats, if any.
func NewTopology(charge, multi int, ats ...[]*Atom) *Topology {
	top := new(Topology)
	if len(ats) > 0 && ats[0] != nil {
		top.Atoms = ats[0]
	} else {
		top.Atoms = make([]*Atom, 0, 10)
	}
	top.charge = charge
	top.multi = multi
	if multi <= 0 {
		top.multi = 1
	}
	return top
}

/*Topology methods*/

//Charge gets the total charge of the topology
func (T *Topology) Charge() int {
	return T.charge
}

//Multi returns the multiplicity in the topology
func (T *Topology) Multi() int {
	return T.multi
}

//SetCharge sets the total charge of the topology to i
func (T *Topology) SetCharge(i int) {
	T.charge = i
}

//SetMulti sets the multiplicity in the topology to i
func (T *Topology) SetMulti(i int) {
	T.multi = i
}

//FillIndexes sets the Index of each atom to its position in the topology.
func (T *Topology) FillIndexes() {
	for i, v := range T.Atoms {
		v.Index = i
	}
}

//Atom returns the Atom corresponding to the index i
//of the Atom slice in the Topology. Panics if
//out of range.
func (T *Topology) Atom(i int) *Atom {
	if i >= T.Len() {
		panic(ErrAtomOutOfRange)
	}
	return T.Atoms[i]
}

//AppendAtom appends an atom at the end of the reference
func (T *Topology) AppendAtom(a *Atom) {
	T.Atoms = append(T.Atoms, a)
}

//Len returns the number of atoms in the topology.
func (T *Topology) Len() int {
	return len(T.Atoms)
}

//Masses returns a slice of float64 with the masses of the atoms in the topology, or nil and an error if they have not been calculated
func (T *Topology) Masses() ([]float64, error) {
	mass := make([]float64, T.Len())
	for i := 0; i < T.Len(); i++ {
		thisatom := T.Atom(i)
		if thisatom.Mass == 0 {
			return nil, CError{fmt.Sprintf("Not all the masses have been obtained: %d %v", i, thisatom), []string{"Masses"}}
		}
		mass[i] = thisatom.Mass
	}
	return mass, nil
}

//Copy returns a deep copy of the topology.
func (T *Topology) Copy() *Topology {
	ats := make([]*Atom, len(T.Atoms))
	for i, v := range T.Atoms {
		ats[i] = new(Atom)
		ats[i].Copy(v)
	}
	return NewTopology(T.charge, T.multi, ats)
}

/*****Species type***/

//DistanceConstraint asks for the distance between the atoms I and J (0-based)
//to be kept at Dist A.
type DistanceConstraint struct {
	I    int
	J    int
	Dist float64
}

//Species is the chemical system that is optimized: A topology, a set of
//cartesian coordinates (in A) and, optionally, distance constraints that must be
//respected during the optimization.
type Species struct {
	*Topology
	Name        string
	Coords      *v3.Matrix
	Constraints []*DistanceConstraint
}

//NewSpecies returns a Species from a topology and a set of coordinates. It returns error if
//one of them is nil or if the number of atoms and coordinates doesn't match. The topology and
//the coordinates are not copied.
func NewSpecies(name string, top *Topology, coords *v3.Matrix, cons ...*DistanceConstraint) (*Species, error) {
	if top == nil || coords == nil {
		return nil, CError{"Supplied a nil topology or coordinates", []string{"NewSpecies"}}
	}
	S := &Species{Topology: top, Name: name, Coords: coords, Constraints: cons}
	if err := S.Corrupted(); err != nil {
		return nil, errDecorate(err, "NewSpecies")
	}
	return S, nil
}

//Corrupted checks whether the species has consistent atoms, coordinates and constraints.
func (S *Species) Corrupted() error {
	if S.Coords.NVecs() != S.Len() {
		return CError{fmt.Sprintf("Mismatched number of atoms (%d) and coordinates (%d)", S.Len(), S.Coords.NVecs()), []string{"Corrupted"}}
	}
	for _, c := range S.Constraints {
		if c.I < 0 || c.J < 0 || c.I >= S.Len() || c.J >= S.Len() || c.I == c.J {
			return CError{fmt.Sprintf("Invalid distance constraint between atoms %d and %d", c.I, c.J), []string{"Corrupted"}}
		}
		if c.Dist <= 0 {
			return CError{fmt.Sprintf("Non-positive distance constraint %5.3f", c.Dist), []string{"Corrupted"}}
		}
	}
	return nil
}

//Copy returns a deep copy of the species, so auxiliary calculations can
//change it without disturbing the original.
func (S *Species) Copy() *Species {
	coords := v3.Zeros(S.Coords.NVecs())
	coords.Copy(S.Coords)
	cons := make([]*DistanceConstraint, len(S.Constraints))
	for i, v := range S.Constraints {
		c := *v
		cons[i] = &c
	}
	return &Species{Topology: S.Topology.Copy(), Name: S.Name, Coords: coords, Constraints: cons}
}

//WithCoords returns a shallow copy of the species (the topology and the constraints are
//shared) with the coordinates replaced by coords.
func (S *Species) WithCoords(coords *v3.Matrix) *Species {
	return &Species{Topology: S.Topology, Name: S.Name, Coords: coords, Constraints: S.Constraints}
}
