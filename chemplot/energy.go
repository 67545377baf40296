/*
 * energy.go, part of gochemopt.
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
	"fmt"
	"image/color"
	"math"

	chem "github.com/rmera/gochemopt"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

func basicEnergyPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Relative energy (kcal/mol)"
	p.Add(plotter.NewGrid())
	return p
}

//EnergyProfile plots the energies (in Hartree) of the points of an optimization
//relative to the lowest one, and saves the plot to filename. The format is
//taken from the extension of filename (png, svg, pdf, eps...).
//Energies that are not finite are skipped.
func EnergyProfile(energies []float64, title, filename string) error {
	min := math.Inf(1)
	for _, e := range energies {
		if !math.IsNaN(e) && !math.IsInf(e, 0) && e < min {
			min = e
		}
	}
	if math.IsInf(min, 1) {
		return fmt.Errorf("chemplot: no finite energies to plot")
	}
	pts := make(plotter.XYs, 0, len(energies))
	for i, e := range energies {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i), Y: (e - min) * chem.H2Kcal})
	}
	p := basicEnergyPlot(title)
	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	l.LineStyle.Width = vg.Points(1.5)
	l.LineStyle.Color = color.RGBA{B: 200, A: 255}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Color = color.RGBA{R: 200, A: 255}
	p.Add(l, s)
	p.X.Min = 0
	return p.Save(5*vg.Inch, 4*vg.Inch, filename)
}
