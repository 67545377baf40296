/*
 * harmonic_test.go, part of gochemopt.
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
	"math"
	"testing"

	chem "github.com/rmera/gochemopt"
	"github.com/rmera/gochemopt/qm"
	v3 "github.com/rmera/gochemopt/v3"
	"gonum.org/v1/gonum/mat"
)

func bent() *v3.Matrix {
	x, _ := v3.NewMatrix([]float64{
		0.0, 0.0, 0.1,
		1.1, 0.1, 0.0,
		-0.4, 1.0, 0.2,
	})
	return x
}

func TestGradient(Te *testing.T) {
	H := NewHarmonic(Pair{0, 1, 1.0, 1.0}, Pair{0, 2, 0.7, 0.95}, Pair{1, 2, 0.3, 1.6})
	x := bent()
	Q := &qm.Calc{DConstraints: []*chem.DistanceConstraint{{I: 1, J: 2, Dist: 1.5}}}
	_, g, err := H.EnergyGradient(x, nil, Q)
	if err != nil {
		Te.Fatal(err)
	}
	h, err := H.Hessian(x, nil, Q)
	if err != nil {
		Te.Fatal(err)
	}
	const d = 1e-5
	for i := 0; i < 3; i++ {
		for c := 0; c < 3; c++ {
			orig := x.At(i, c)
			x.Set(i, c, orig+d)
			ep, gp, _ := H.EnergyGradient(x, nil, Q)
			x.Set(i, c, orig-d)
			em, gm, _ := H.EnergyGradient(x, nil, Q)
			x.Set(i, c, orig)
			if num := (ep - em) / (2 * d); math.Abs(num-g.At(i, c)) > 1e-6 {
				Te.Errorf("Gradient %d,%d: analytic %g numerical %g", i, c, g.At(i, c), num)
			}
			for j := 0; j < 3; j++ {
				for k := 0; k < 3; k++ {
					num := (gp.At(j, k) - gm.At(j, k)) / (2 * d)
					if math.Abs(num-h.At(3*i+c, 3*j+k)) > 1e-5 {
						Te.Errorf("Hessian %d,%d: analytic %g numerical %g", 3*i+c, 3*j+k, h.At(3*i+c, 3*j+k), num)
					}
				}
			}
		}
	}
}

func TestModelHessian(Te *testing.T) {
	mol, err := chem.XYZFileRead("../test/water.xyz")
	if err != nil {
		Te.Fatal(err)
	}
	H, err := ModelHessian(mol)
	if err != nil {
		Te.Fatal(err)
	}
	if len(H.Pairs) != 3 {
		Te.Fatalf("Water should have 2 bonds and one 1-3 pair, got %v", H.Pairs)
	}
	e, g, err := H.EnergyGradient(mol.Coords, mol, nil)
	if err != nil {
		Te.Fatal(err)
	}
	if e > 1e-14 || g.MaxAbs() > 1e-12 {
		Te.Errorf("The model geometry should be a minimum: E=%g max|g|=%g", e, g.MaxAbs())
	}
	h, err := H.Hessian(mol.Coords, mol, nil)
	if err != nil {
		Te.Fatal(err)
	}
	if h.SymmetricDim() != 9 || h.At(1, 1) <= 0 || h.At(2, 2) <= 0 {
		Te.Fatalf("Wrong model Hessian: %v", mat.Formatted(h))
	}
	//the molecule lies on the yz plane, so the x block is empty.
	if math.Abs(h.At(0, 0)) > 1e-10 {
		Te.Errorf("Out of plane curvature in a planar model: %g", h.At(0, 0))
	}
	var eig mat.EigenSym
	if !eig.Factorize(h, false) {
		Te.Fatal("Can't diagonalize the model Hessian")
	}
	positive := 0
	for _, v := range eig.Values(nil) {
		if v < -1e-10 {
			Te.Errorf("The model Hessian at its minimum has a negative eigenvalue: %g", v)
		}
		if v > 1e-6 {
			positive++
		}
	}
	if positive != 3 {
		Te.Errorf("The model Hessian should have one positive eigenvalue per pair, got %d", positive)
	}
	bad := NewHarmonic(Pair{0, 5, 1, 1})
	if _, _, err := bad.EnergyGradient(mol.Coords, mol, nil); !qm.HasReason(err, qm.ErrCantInput) {
		Te.Errorf("A pair out of range should not be accepted, got %v", err)
	}
}
