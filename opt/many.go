/*
 * many.go, part of gochemopt.
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

package opt

import (
	"context"
	"math"

	chem "github.com/rmera/gochemopt"
	"github.com/rmera/gochemopt/qm"
	"golang.org/x/sync/errgroup"
)

//OptimiseMany optimises each species independently, running up to workers
//optimizations at the same time. The results are returned in the same order as
//species. Each optimization has its own scratch directory, but they share the
//oracle, which must be safe to use concurrently with different Calc.Dir.
//The Trajectory in cfg is not used. If ctx is cancelled, the optimizations not
//yet started are reported as failed with the context error, which is also returned.
func OptimiseMany(ctx context.Context, species []*chem.Species, oracle qm.Oracle, cfg Config, workers int) ([]*Result, error) {
	if workers <= 0 {
		workers = 1
	}
	cfg.Trajectory = nil
	results := make([]*Result, len(species))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, mol := range species {
		i, mol := i, mol
		if err := ctx.Err(); err != nil {
			results[i] = cancelled(mol, err)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = cancelled(mol, err)
				return nil
			}
			//failures are reported in each result, they don't stop the other runs.
			results[i], _ = Optimise(mol, oracle, cfg)
			return nil
		})
	}
	g.Wait()
	return results, ctx.Err()
}

func cancelled(mol *chem.Species, err error) *Result {
	return &Result{State: Failed, Species: mol, Energy: math.NaN(), Reason: err.Error(), Err: err}
}
