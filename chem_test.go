/*
 * chem_test.go, part of gochemopt.
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
	"bytes"
	"math"
	"strings"
	"testing"

	v3 "github.com/rmera/gochemopt/v3"
)

func TestXYZIO(Te *testing.T) {
	mol, err := XYZFileRead("test/water.xyz")
	if err != nil {
		Te.Fatal(err)
	}
	if mol.Len() != 3 || mol.Coords.NVecs() != 3 {
		Te.Fatalf("Expected 3 atoms, got %d", mol.Len())
	}
	if mol.Atom(0).Symbol != "O" || mol.Atom(0).Mass != 16.00 {
		Te.Errorf("Wrong first atom %v", mol.Atom(0))
	}
	if mol.Name != "water" {
		Te.Errorf("The comment line should be used as name, got %q", mol.Name)
	}
	var buf bytes.Buffer
	if err := XYZWrite(&buf, mol.Coords, mol, "written"); err != nil {
		Te.Fatal(err)
	}
	mol2, err := XYZRead(&buf)
	if err != nil {
		Te.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(mol.Coords.At(i, j)-mol2.Coords.At(i, j)) > 1e-6 {
				Te.Errorf("Coordinates changed after writing and reading: %v %v", mol.Coords, mol2.Coords)
			}
		}
	}
}

func TestXYZBad(Te *testing.T) {
	bad := []string{
		"",
		"two\n\n",
		"2\ncomment\nH 0 0 0\n",
		"1\ncomment\nH 0 x 0\n",
	}
	for _, v := range bad {
		if _, err := XYZRead(strings.NewReader(v)); err == nil {
			Te.Errorf("Reading %q should have failed", v)
		}
	}
	//no newline at the end of the last line is fine.
	if _, err := XYZRead(strings.NewReader("1\nc\nCL 0 0 0")); err != nil {
		Te.Error(err)
	}
}

func TestBonds(Te *testing.T) {
	mol, err := XYZFileRead("test/ethanol.xyz")
	if err != nil {
		Te.Fatal(err)
	}
	bonds, err := AssignBonds(mol.Coords, mol)
	if err != nil {
		Te.Fatal(err)
	}
	if len(bonds) != 8 {
		Te.Errorf("Ethanol should have 8 bonds, found %d", len(bonds))
	}
	for _, b := range bonds {
		if b.Cross(b.At1) != b.At2 {
			Te.Errorf("Wrong crossing of bond %v", b)
		}
	}
}

func TestSpeciesCopy(Te *testing.T) {
	mol, err := XYZFileRead("test/water.xyz")
	if err != nil {
		Te.Fatal(err)
	}
	mol.SetCharge(-1)
	mol.Constraints = []*DistanceConstraint{{I: 0, J: 1, Dist: 1.0}}
	if err := mol.Corrupted(); err != nil {
		Te.Fatal(err)
	}
	c := mol.Copy()
	c.Coords.Set(0, 0, 5)
	c.Atom(0).Symbol = "S"
	c.Constraints[0].Dist = 2
	if mol.Coords.At(0, 0) == 5 || mol.Atom(0).Symbol != "O" || mol.Constraints[0].Dist != 1.0 {
		Te.Error("Changes in the copy were reflected in the original species")
	}
	if c.Charge() != -1 || c.Multi() != 1 {
		Te.Errorf("Charge and multiplicity not copied: %d %d", c.Charge(), c.Multi())
	}
	mol.Constraints = append(mol.Constraints, &DistanceConstraint{I: 1, J: 1, Dist: 1})
	if err := mol.Corrupted(); err == nil {
		Te.Error("A constraint between an atom and itself should not be accepted")
	}
	if _, err := NewSpecies("bad", mol.Topology, v3.Zeros(2)); err == nil {
		Te.Error("NewSpecies should fail with mismatched atoms and coordinates")
	}
}

func TestReasonableGeometry(Te *testing.T) {
	mol, err := XYZFileRead("test/ethanol.xyz")
	if err != nil {
		Te.Fatal(err)
	}
	if !ReasonableGeometry(mol.Coords) {
		Te.Error("Ethanol should be a reasonable geometry")
	}
	flat := v3.Zeros(4)
	for i := 0; i < 4; i++ {
		flat.Set(i, 0, 1.5*float64(i))
	}
	if ReasonableGeometry(flat) {
		Te.Error("A geometry with all atoms in z=0 should not be reasonable")
	}
	close := v3.Zeros(4)
	close.Copy(mol.Coords)
	close.Set(1, 0, close.At(0, 0)+0.5)
	close.Set(1, 1, close.At(0, 1))
	close.Set(1, 2, close.At(0, 2))
	if ReasonableGeometry(close) {
		Te.Error("A geometry with atoms 0.5 A apart should not be reasonable")
	}
	water, _ := XYZFileRead("test/water.xyz")
	if a := Angle(water.Coords, 1, 0, 2) * 180 / math.Pi; a < 104 || a > 105.5 {
		Te.Errorf("Wrong water angle %5.2f", a)
	}
}
