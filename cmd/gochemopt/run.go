/*
 * run.go, part of gochemopt.
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
	"io"
	"path/filepath"
	"strings"

	chem "github.com/rmera/gochemopt"
	"github.com/rmera/gochemopt/chemplot"
	"github.com/rmera/gochemopt/opt"
	"github.com/rmera/gochemopt/traj"
	"github.com/spf13/cobra"
)

type runOptions struct {
	optFlags
	out      string
	trajName string
	plot     string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run geometry.xyz",
		Short: "Optimize one geometry",
		Long: `Optimizes the geometry in an xyz file and writes the optimized geometry,
and optionally the trajectory of the optimization and a plot of its energies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimization(cmd, root, o, args[0])
		},
	}
	addOptFlags(cmd, &o.optFlags)
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Output xyz file (default: input name with _opt)")
	cmd.Flags().StringVar(&o.trajName, "traj", "", "Write the optimization trajectory to this file")
	cmd.Flags().StringVar(&o.plot, "plot", "", "Plot the energy profile to this file (png, svg, pdf)")
	return cmd
}

//optName returns the name for the optimized geometry of the xyz file name, in dir,
//or in the same directory as name if dir is empty.
func optName(name, dir string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name)) + "_opt.xyz"
	if dir == "" {
		return base
	}
	return filepath.Join(dir, filepath.Base(base))
}

func runOptimization(cmd *cobra.Command, root *rootOptions, o *runOptions, input string) error {
	logger := root.logger
	mol, err := chem.XYZFileRead(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}
	if err := o.prepare(cmd, mol); err != nil {
		return err
	}
	if !chem.ReasonableGeometry(mol.Coords) {
		logger.Warn("the starting geometry doesn't look reasonable", "file", input)
	}
	cfg, err := o.settings(cmd, logger)
	if err != nil {
		return err
	}
	oracle, err := o.oracles(&cfg, mol)
	if err != nil {
		return err
	}
	if o.trajName != "" {
		header := map[string]string{"name": mol.Name, "method": cfg.Method, "coordinates": cfg.Coordinates}
		w, err := traj.NewWriter(o.trajName, mol.Len(), header)
		if err != nil {
			return err
		}
		defer w.Close()
		cfg.Trajectory = w
	}
	logger.Info("starting optimization", "file", input, "atoms", mol.Len(), "coordinates", cfg.Coordinates, "method", cfg.Method)
	res, err := opt.Optimise(mol, oracle, cfg)
	out := o.out
	if out == "" {
		out = optName(input, "")
	}
	if werr := writeResult(cmd.OutOrStdout(), res, input, out); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	if o.plot != "" && len(res.Energies) > 0 {
		if err := chemplot.EnergyProfile(res.Energies, mol.Name, o.plot); err != nil {
			logger.Warn("couldn't plot the energies", "error", err)
		}
	}
	if !res.Converged {
		return fmt.Errorf("%s: %s", input, res.Reason)
	}
	return nil
}

func comment(res *opt.Result) string {
	return fmt.Sprintf("%s E=%.10f state=%s", res.Species.Name, res.Energy, res.State)
}

//writeResult prints a summary of res to w and, if some point was evaluated,
//writes the reported geometry to out.
func writeResult(w io.Writer, res *opt.Result, input, out string) error {
	fmt.Fprintf(w, "%-30s %-24s %18.10f %5d\n", input, res.State, res.Energy, res.Iterations)
	if len(res.Energies) == 0 {
		return nil
	}
	return chem.XYZFileWrite(out, res.Species.Coords, res.Species, comment(res))
}
