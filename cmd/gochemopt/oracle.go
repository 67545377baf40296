/*
 * oracle.go, part of gochemopt.
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

package main

import (
	"fmt"
	"sync"

	chem "github.com/rmera/gochemopt"
	"github.com/rmera/gochemopt/ff"
	"github.com/rmera/gochemopt/qm"
	v3 "github.com/rmera/gochemopt/v3"
	"gonum.org/v1/gonum/mat"
)

//modelOracle uses, for each species, the harmonic model built at its
//starting geometry. Species are told apart by name.
type modelOracle struct {
	mu     sync.Mutex
	models map[string]*ff.Harmonic
}

func newModelOracle(mols ...*chem.Species) (*modelOracle, error) {
	M := &modelOracle{models: make(map[string]*ff.Harmonic, len(mols))}
	for _, mol := range mols {
		if _, ok := M.models[mol.Name]; ok {
			return nil, fmt.Errorf("two species named %q", mol.Name)
		}
		h, err := ff.ModelHessian(mol)
		if err != nil {
			return nil, err
		}
		M.models[mol.Name] = h
	}
	return M, nil
}

func (M *modelOracle) model(atoms chem.AtomMultiCharger) (*ff.Harmonic, error) {
	mol, ok := atoms.(*chem.Species)
	if !ok {
		return nil, qm.NewError(qm.ErrCantInput, "model", "", "the harmonic model needs a species", "model")
	}
	M.mu.Lock()
	defer M.mu.Unlock()
	h, ok := M.models[mol.Name]
	if !ok {
		return nil, qm.NewError(qm.ErrCantInput, "model", mol.Name, "no harmonic model for the species", "model")
	}
	return h, nil
}

func (M *modelOracle) EnergyGradient(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *qm.Calc) (float64, *v3.Matrix, error) {
	h, err := M.model(atoms)
	if err != nil {
		return 0, nil, err
	}
	return h.EnergyGradient(coords, atoms, Q)
}

func (M *modelOracle) Hessian(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *qm.Calc) (*mat.SymDense, error) {
	h, err := M.model(atoms)
	if err != nil {
		return nil, err
	}
	return h.Hessian(coords, atoms, Q)
}
