/*
 * batch.go, part of gochemopt.
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
	"os"
	"os/signal"
	"runtime"

	chem "github.com/rmera/gochemopt"
	"github.com/rmera/gochemopt/opt"
	"github.com/spf13/cobra"
)

type batchOptions struct {
	optFlags
	outdir  string
	workers int
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	o := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch geometry.xyz...",
		Short: "Optimize several geometries concurrently",
		Long: `Optimizes independently each of the geometries given, for instance, the conformers
of a molecule, running several optimizations at the same time. Geometries that
don't look reasonable are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, root, o, args)
		},
	}
	addOptFlags(cmd, &o.optFlags)
	cmd.Flags().StringVar(&o.outdir, "outdir", "", "Directory for the optimized geometries (default: next to each input)")
	cmd.Flags().IntVarP(&o.workers, "workers", "w", runtime.NumCPU(), "Optimizations to run at the same time")
	return cmd
}

func runBatch(cmd *cobra.Command, root *rootOptions, o *batchOptions, inputs []string) error {
	logger := root.logger
	var mols []*chem.Species
	var names []string
	failed := 0
	for _, input := range inputs {
		mol, err := chem.XYZFileRead(input)
		if err != nil {
			logger.Error("can't read geometry", "file", input, "error", err)
			failed++
			continue
		}
		//the file name identifies each species.
		mol.Name = input
		if err := o.prepare(cmd, mol); err != nil {
			logger.Error("invalid species", "file", input, "error", err)
			failed++
			continue
		}
		if !chem.ReasonableGeometry(mol.Coords) {
			logger.Warn("skipping unreasonable geometry", "file", input)
			failed++
			continue
		}
		mols = append(mols, mol)
		names = append(names, input)
	}
	if len(mols) == 0 {
		return fmt.Errorf("no geometries to optimize")
	}
	cfg, err := o.settings(cmd, logger)
	if err != nil {
		return err
	}
	oracle, err := o.oracles(&cfg, mols...)
	if err != nil {
		return err
	}
	if o.outdir != "" {
		if err := os.MkdirAll(o.outdir, 0o755); err != nil {
			return err
		}
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	logger.Info("starting optimizations", "species", len(mols), "workers", o.workers)
	results, err := opt.OptimiseMany(ctx, mols, oracle, cfg, o.workers)
	for i, res := range results {
		if werr := writeResult(cmd.OutOrStdout(), res, names[i], optName(names[i], o.outdir)); werr != nil {
			logger.Error("can't write the optimized geometry", "file", names[i], "error", werr)
		}
		if !res.Converged {
			failed++
		}
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d optimizations failed or did not converge", failed, len(inputs))
	}
	return nil
}
