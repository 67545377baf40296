/*
 * files.go, part of gochemopt.
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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	v3 "github.com/rmera/gochemopt/v3"
)

//XYZFileRead reads an xyz file and returns a Species. Only the first frame is read.
//charge and multiplicity default to 0 and 1, respectively.
func XYZFileRead(xyzname string) (*Species, error) {
	xyzfile, err := os.Open(xyzname)
	if err != nil {
		return nil, CError{err.Error(), []string{"os.Open", "XYZFileRead"}}
	}
	defer xyzfile.Close()
	mol, err := XYZRead(xyzfile)
	if err != nil {
		err = errDecorate(err, "XYZFileRead "+xyzname)
		return nil, err
	}
	if mol.Name == "" {
		mol.Name = strings.TrimSuffix(xyzname, ".xyz")
	}
	return mol, nil
}

//XYZRead reads the first frame of an xyz file from the io.Reader given, and returns a Species.
//The comment line, if not empty, is used as the name of the species.
func XYZRead(xyzp io.Reader) (*Species, error) {
	xyz := bufio.NewReader(xyzp)
	line, err := xyz.ReadString('\n')
	if err != nil {
		return nil, CError{"Empty XYZ file", []string{"XYZRead"}}
	}
	natoms, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || natoms <= 0 {
		return nil, CError{fmt.Sprintf("Ill formatted XYZ file: bad number of atoms %q", strings.TrimSpace(line)), []string{"strconv.Atoi", "XYZRead"}}
	}
	comment, err := xyz.ReadString('\n')
	if err != nil {
		return nil, CError{"Ill formatted XYZ file: no comment line", []string{"XYZRead"}}
	}
	top := NewTopology(0, 1)
	coords := make([]float64, natoms*3)
	for i := 0; i < natoms; i++ {
		line, err = xyz.ReadString('\n')
		if err != nil && !(err == io.EOF && i == natoms-1 && line != "") {
			return nil, CError{fmt.Sprintf("Expected %d atoms, found %d", natoms, i), []string{"XYZRead"}}
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, CError{fmt.Sprintf("Line number %d ill formed", i+3), []string{"XYZRead"}}
		}
		at := new(Atom)
		at.Symbol = symbolFromName(fields[0])
		at.Name = fields[0]
		at.ID = i + 1
		at.Index = i
		at.Mass = symbolMass[at.Symbol]
		top.AppendAtom(at)
		for j := 0; j < 3; j++ {
			coords[i*3+j], err = strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return nil, CError{fmt.Sprintf("Can't parse coordinate in line %d: %s", i+3, err.Error()), []string{"strconv.ParseFloat", "XYZRead"}}
			}
		}
	}
	mcoords, err := v3.NewMatrix(coords)
	if err != nil {
		return nil, errDecorate(err, "XYZRead")
	}
	return &Species{Topology: top, Name: strings.TrimSpace(comment), Coords: mcoords}, nil
}

//symbolFromName capitalizes the atom name read from a file so it
//can be used as a chemical symbol ("CL"->"Cl", "c"->"C").
func symbolFromName(name string) string {
	if len(name) == 0 {
		return name
	}
	if len(name) == 1 {
		return strings.ToUpper(name)
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:2])
}

//XYZFileWrite writes the coordinates in Coords and the atoms in mol in an XYZ file with name xyzname which will
//be created fot that. If the file exist it will be overwriten.
func XYZFileWrite(xyzname string, Coords *v3.Matrix, mol Atomer, comment ...string) error {
	out, err := os.Create(xyzname)
	if err != nil {
		return CError{err.Error(), []string{"os.Create", "XYZFileWrite"}}
	}
	defer out.Close()
	err = XYZWrite(out, Coords, mol, comment...)
	if err != nil {
		return errDecorate(err, "XYZFileWrite")
	}
	return nil
}

//XYZWrite writes the coordinates in Coords and the atoms in mol in the XYZ format
//to the io.Writer given.
func XYZWrite(out io.Writer, Coords *v3.Matrix, mol Atomer, comment ...string) error {
	if Coords.NVecs() != mol.Len() {
		return CError{"Ref and Coords dont have the same number of atoms", []string{"XYZWrite"}}
	}
	c := make([]float64, 3)
	com := ""
	if len(comment) > 0 {
		com = strings.ReplaceAll(comment[0], "\n", " ")
	}
	_, err := fmt.Fprintf(out, "%-4d\n%s\n", mol.Len(), com)
	if err != nil {
		return CError{"Failed to write in io.Writer", []string{"XYZWrite"}}
	}
	for i := 0; i < Coords.NVecs(); i++ {
		c[0], c[1], c[2] = Coords.At(i, 0), Coords.At(i, 1), Coords.At(i, 2)
		_, err := fmt.Fprintf(out, "%-2s  %12.6f%12.6f%12.6f \n", mol.Atom(i).Symbol, c[0], c[1], c[2])
		if err != nil {
			return CError{"Failed to write in io.Writer", []string{"XYZWrite"}}
		}
	}
	return nil
}
