/*
 * xtb.go, part of gochemopt.
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

//In order to use this part of the library you need the xtb program, which must be obtained from Prof. Stefan Grimme's group.
//Please cite the the xtb references if you used the program.

package qm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	chem "github.com/rmera/gochemopt"
	v3 "github.com/rmera/gochemopt/v3"
	"gonum.org/v1/gonum/mat"
)

const xtbcode = "XTB"

//XTB is an oracle that obtains energies, gradients and Hessians
//from the xtb program.
//Note that the default methods vary with each program, and even
//for a given program they are NOT considered part of the API, so they can always change.
type XTB struct {
	Command       string
	Name          string  //used for the input and output files
	ForceConstant float64 //for the distance constraints, in Hartree/Bohr^2
}

//NewXTB returns an XTB oracle with default settings.
func NewXTB() *XTB {
	O := new(XTB)
	O.SetDefaults()
	return O
}

//SetDefaults sets the command to "xtb", the name to "gochem" and
//the constraint force constant to 0.5.
func (O *XTB) SetDefaults() {
	O.Command = "xtb"
	O.Name = "gochem"
	O.ForceConstant = 0.5
}

//BuildInput writes the geometry and the xcontrol file for a calculation in Q.Dir
//and returns the command-line arguments for xtb.
func (O *XTB) BuildInput(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *Calc) ([]string, error) {
	if O.Name == "" {
		O.Name = "gochem"
	}
	if atoms == nil || coords == nil {
		return nil, Error{ErrMissingCharges, xtbcode, O.Name, "", []string{"BuildInput"}, true}
	}
	if Q == nil {
		Q = new(Calc)
	}
	err := chem.XYZFileWrite(Q.path(O.Name+".xyz"), coords, atoms)
	if err != nil {
		return nil, Error{ErrCantInput, xtbcode, O.Name, err.Error(), []string{"chem.XYZFileWrite", "BuildInput"}, true}
	}
	xcontrol, err := os.Create(Q.path(O.Name + ".inp"))
	if err != nil {
		return nil, Error{ErrCantInput, xtbcode, O.Name, err.Error(), []string{"os.Create", "BuildInput"}, true}
	}
	defer xcontrol.Close()
	if err := O.writeConstraints(xcontrol, coords.NVecs(), Q); err != nil {
		return nil, Error{ErrCantInput, xtbcode, O.Name, err.Error(), []string{"writeConstraints", "BuildInput"}, true}
	}
	options := make([]string, 0, 12)
	options = append(options, O.Name+".xyz", "--input", O.Name+".inp")
	options = append(options, "-c", strconv.Itoa(atoms.Charge()))
	options = append(options, "-u", strconv.Itoa(atoms.Multi()-1))
	if Q.NCPU > 1 {
		options = append(options, "-P", strconv.Itoa(Q.NCPU))
	}
	method := strings.ToLower(Q.Method)
	switch {
	case method == "gfnff":
		options = append(options, "--gfnff")
	case isInString([]string{"gfn0", "gfn1", "gfn2"}, method):
		options = append(options, "--gfn", strings.TrimPrefix(method, "gfn"))
	default:
		if method != "" {
			log.Printf("xtb: method %s not available, will use gfn2", Q.Method)
		}
		options = append(options, "--gfn", "2") //default method
	}
	if Q.Dielectric > 0 && method != "gfn0" { //as of the current version, gfn0 doesn't support implicit solvation
		solvent, ok := dielectric2Solvent[int(Q.Dielectric)]
		if ok {
			options = append(options, "--alpb", solvent)
		}
	}
	return options, nil
}

//writeConstraints writes the $constrain and $fix blocks of the xcontrol file.
//xtb uses 1-based indexes.
func (O *XTB) writeConstraints(w io.Writer, natoms int, Q *Calc) error {
	if len(Q.DConstraints) > 0 {
		fmt.Fprintf(w, "$constrain\n force constant=%g\n", O.ForceConstant)
		for _, v := range Q.DConstraints {
			if v.I < 0 || v.J < 0 || v.I >= natoms || v.J >= natoms {
				return fmt.Errorf("distance constraint between atoms %d and %d for %d atoms", v.I, v.J, natoms)
			}
			fmt.Fprintf(w, " distance: %d, %d, %.6f\n", v.I+1, v.J+1, v.Dist)
		}
	}
	if len(Q.CConstraints) > 0 {
		fixed := make([]string, 0, len(Q.CConstraints))
		for _, v := range Q.CConstraints {
			fixed = append(fixed, strconv.Itoa(v+1))
		}
		fmt.Fprintf(w, "$fix\n atoms: %s\n", strings.Join(fixed, ","))
	}
	_, err := fmt.Fprintf(w, "$end\n")
	return err
}

//run runs xtb in Q.Dir with the given options. The output goes to Name.out
func (O *XTB) run(options []string, Q *Calc) error {
	out, err := os.Create(Q.path(O.Name + ".out"))
	if err != nil {
		return Error{ErrNotRunning, xtbcode, O.Name, err.Error(), []string{"os.Create", "run"}, true}
	}
	defer out.Close()
	command := exec.Command(O.Command, options...)
	command.Dir = Q.Dir
	command.Stdout = out
	command.Stderr = out
	if err = command.Run(); err != nil {
		return Error{ErrNotRunning, xtbcode, O.Name, err.Error(), []string{"exec.Run", "run"}, true}
	}
	if !normalTermination(Q.path(O.Name + ".out")) {
		return Error{ErrNotRunning, xtbcode, O.Name, "abnormal termination", []string{"normalTermination", "run"}, true}
	}
	os.Remove(Q.path("xtbrestart"))
	return nil
}

//EnergyGradient runs a gradient calculation and returns the energy, in Hartree,
//and the gradient, in Hartree/A.
func (O *XTB) EnergyGradient(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *Calc) (float64, *v3.Matrix, error) {
	if Q == nil {
		Q = new(Calc)
	}
	options, err := O.BuildInput(coords, atoms, Q)
	if err != nil {
		return 0, nil, err
	}
	os.Remove(Q.path("gradient")) //xtb appends to an existing file
	if err := O.run(append(options, "--grad"), Q); err != nil {
		return 0, nil, err
	}
	f, err := os.Open(Q.path("gradient"))
	if err != nil {
		return 0, nil, Error{ErrNoGradient, xtbcode, O.Name, err.Error(), []string{"os.Open", "EnergyGradient"}, true}
	}
	defer f.Close()
	e, g, err := parseGradient(f, coords.NVecs())
	if err != nil {
		return 0, nil, Error{ErrNoGradient, xtbcode, O.Name, err.Error(), []string{"parseGradient", "EnergyGradient"}, true}
	}
	return e, g, nil
}

//Hessian runs a Hessian calculation and returns the cartesian Hessian in Hartree/A^2.
func (O *XTB) Hessian(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *Calc) (*mat.SymDense, error) {
	if Q == nil {
		Q = new(Calc)
	}
	options, err := O.BuildInput(coords, atoms, Q)
	if err != nil {
		return nil, err
	}
	if err := O.run(append(options, "--hess"), Q); err != nil {
		return nil, err
	}
	f, err := os.Open(Q.path("hessian"))
	if err != nil {
		return nil, Error{ErrNoHessian, xtbcode, O.Name, err.Error(), []string{"os.Open", "Hessian"}, true}
	}
	defer f.Close()
	h, err := parseHessian(f, 3*coords.NVecs())
	if err != nil {
		return nil, Error{ErrNoHessian, xtbcode, O.Name, err.Error(), []string{"parseHessian", "Hessian"}, true}
	}
	return h, nil
}

//parseFloat also accepts the Fortran "D" exponent.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(strings.Replace(s, "D", "E", 1), "d", "e", 1), 64)
}

//parseGradient reads a file in the Turbomole gradient format, and returns the energy
//and gradient for the last cycle in it. The gradient is converted to Hartree/A.
func parseGradient(r io.Reader, natoms int) (float64, *v3.Matrix, error) {
	scanner := bufio.NewScanner(r)
	var energy float64
	var grad *v3.Matrix
	found := false
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "cycle =") {
			continue
		}
		idx := strings.Index(line, "energy =")
		if idx < 0 {
			return 0, nil, fmt.Errorf("malformed cycle line: %q", line)
		}
		fields := strings.Fields(line[idx+len("energy ="):])
		if len(fields) == 0 {
			return 0, nil, fmt.Errorf("malformed cycle line: %q", line)
		}
		e, err := parseFloat(fields[0])
		if err != nil {
			return 0, nil, err
		}
		g := v3.Zeros(natoms)
		//first the coordinates, then the gradient
		for i := 0; i < 2*natoms; i++ {
			if !scanner.Scan() {
				return 0, nil, fmt.Errorf("gradient file ended after %d lines of %d", i, 2*natoms)
			}
			if i < natoms {
				continue
			}
			fields := strings.Fields(scanner.Text())
			if len(fields) != 3 {
				return 0, nil, fmt.Errorf("malformed gradient line: %q", scanner.Text())
			}
			for j, v := range fields {
				f, err := parseFloat(v)
				if err != nil {
					return 0, nil, err
				}
				g.Set(i-natoms, j, f*chem.A2Bohr)
			}
		}
		energy, grad, found = e, g, true
	}
	if err := scanner.Err(); err != nil {
		return 0, nil, err
	}
	if !found {
		return 0, nil, fmt.Errorf("no gradient found")
	}
	return energy, grad, nil
}

//parseHessian reads an nxn Hessian, in atomic units, from a file in the Turbomole
//format, and returns it converted to Hartree/A^2.
func parseHessian(r io.Reader, n int) (*mat.SymDense, error) {
	scanner := bufio.NewScanner(r)
	data := make([]float64, 0, n*n)
	reading := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "$hessian") {
			reading = true
			continue
		}
		if !reading {
			continue
		}
		if strings.HasPrefix(line, "$") {
			break
		}
		for _, v := range strings.Fields(line) {
			f, err := parseFloat(v)
			if err != nil {
				return nil, err
			}
			data = append(data, f*chem.A2Bohr*chem.A2Bohr)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(data) != n*n {
		return nil, fmt.Errorf("%d elements read for a %dx%d Hessian", len(data), n, n)
	}
	h := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			h.SetSym(i, j, 0.5*(data[i*n+j]+data[j*n+i]))
		}
	}
	return h, nil
}

//normalTermination checks that an xtb calculation has terminated normally
func normalTermination(filename string) bool {
	return searchBackwards("abnormal termination of x", filename) == ""
}

//searchBackwards searches a file backwards, i.e., starting from the end, for a string.
//Returns the line that contains the string, or an empty string.
func searchBackwards(str, filename string) string {
	f, err := os.Open(filename)
	if err != nil {
		return ""
	}
	defer f.Close()
	lines := make([]string, 0, 100)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], str) {
			return lines[i]
		}
	}
	return ""
}

var dielectric2Solvent = map[int]string{
	80: "h2o",
	5:  "chcl3",
	9:  "ch2cl2",
	21: "acetone",
	37: "acetonitrile",
	33: "methanol",
	2:  "toluene",
	7:  "thf",
	47: "dmso",
	38: "dmf",
}
