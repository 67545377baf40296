/*
 * energy_test.go, part of gochemopt.
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

package chemplot

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestEnergyProfile(Te *testing.T) {
	energies := []float64{-5.01, -5.05, math.NaN(), -5.07, -5.0705}
	for _, ext := range []string{"png", "svg"} {
		name := filepath.Join(Te.TempDir(), "profile."+ext)
		if err := EnergyProfile(energies, "Water", name); err != nil {
			Te.Fatal(err)
		}
		info, err := os.Stat(name)
		if err != nil {
			Te.Fatal(err)
		}
		if info.Size() == 0 {
			Te.Errorf("Empty plot %s", name)
		}
	}
}

func TestEnergyProfileEmpty(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "profile.png")
	if err := EnergyProfile([]float64{math.NaN()}, "Nothing", name); err == nil {
		Te.Errorf("Plotting no energies should fail")
	}
}
