/*
 * qm.go, part of gochemopt.
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

package qm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	chem "github.com/rmera/gochemopt"
	v3 "github.com/rmera/gochemopt/v3"
	"gonum.org/v1/gonum/mat"
)

//DefaultLowLevelMethod is the method used for the initial Hessian
//when no other is given.
const DefaultLowLevelMethod = "gfn2"

//Oracle is anything that can give the energy of a system and its derivatives.
//Energies are in Hartree, gradients in Hartree/A and Hessians in Hartree/A^2.
//All the files needed by the oracle are created in Q.Dir, or in the current
//directory if Q.Dir is empty.
type Oracle interface {
	//EnergyGradient returns the energy and its gradient for the geometry coords
	EnergyGradient(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *Calc) (float64, *v3.Matrix, error)

	//Hessian returns the 3Nx3N cartesian Hessian for the geometry coords
	Hessian(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *Calc) (*mat.SymDense, error)
}

//Calc describes a calculation.
type Calc struct {
	Method       string
	Dielectric   float64
	NCPU         int
	Dir          string                     //working directory
	DConstraints []*chem.DistanceConstraint //distance constraints
	CConstraints []int                      //cartesian contraints
}

//Copy returns a copy of the calculation with the same constraints.
func (Q *Calc) Copy() *Calc {
	ret := *Q
	ret.DConstraints = append([]*chem.DistanceConstraint(nil), Q.DConstraints...)
	ret.CConstraints = append([]int(nil), Q.CConstraints...)
	return &ret
}

//path returns the name of the file in the working directory of the calculation.
func (Q *Calc) path(name string) string {
	if Q == nil || Q.Dir == "" {
		return name
	}
	return filepath.Join(Q.Dir, name)
}

//InScratch creates a new directory, with a name starting with prefix, in root
//(or in the default temporary directory, if root is empty) and runs fn with it.
//The directory is removed when fn returns, or panics, unless keep is true.
func InScratch(root, prefix string, keep bool, fn func(dir string) error) (err error) {
	dir, err := os.MkdirTemp(root, prefix)
	if err != nil {
		return Error{ErrCantInput, "scratch", prefix, err.Error(), []string{"os.MkdirTemp", "InScratch"}, true}
	}
	if !keep {
		defer os.RemoveAll(dir)
	}
	return fn(dir)
}

//Errors

//Error is the error returned by oracles. The message is one of the
//Err* reasons, which can be checked with HasReason.
type Error struct {
	message    string
	code       string //the name of the QM program giving the problem, or empty string if none
	inputname  string //the input file that has problems, or empty string if none.
	additional string
	deco       []string
	critical   bool
}

func (err Error) Error() string {
	ret := fmt.Sprintf("%s (%s/%s)", err.message, err.code, err.inputname)
	if err.additional != "" {
		ret = ret + ": " + err.additional
	}
	return ret
}

//Reason returns the reason for the error, one of the Err* constants.
func (err Error) Reason() string { return err.message }

//Code returns the name of the program that caused the error.
func (err Error) Code() string { return err.code }

//InputName returns the name of the input file which processing caused the error
func (err Error) InputName() string { return err.inputname }

//Decorate will add the dec string to the decoration slice of strings of the error,
//and return the resulting slice.
func (err Error) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

//Critical returns whether the error is critical or it can be ignored
func (err Error) Critical() bool { return err.critical }

//HasReason returns true if err is, or wraps, an Error with the given reason.
func HasReason(err error, reason string) bool {
	var qerr Error
	if errors.As(err, &qerr) {
		return qerr.message == reason
	}
	return false
}

//NewError returns an Error with the given reason for the program code.
//It allows oracles outside this package to use the same errors.
func NewError(reason, code, inputname, additional string, deco ...string) Error {
	return Error{reason, code, inputname, additional, deco, true}
}

const (
	ErrProbableProblem = "Probable problem in calculation" //this is never to be used for something that will cause an error in the execution.
	ErrNoEnergy        = "No energy in output"
	ErrNoGradient      = "No gradient in output"
	ErrNoHessian       = "No Hessian in output"
	ErrNotRunning      = "Command failed to run"
	ErrCantInput       = "Can't build input file"
	ErrMissingCharges  = "Missing charges or coordinates"
)

//isInString returns true if test is in container, false otherwise.
func isInString(container []string, test string) bool {
	for _, i := range container {
		if strings.EqualFold(test, i) {
			return true
		}
	}
	return false
}
