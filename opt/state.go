/*
 * state.go, part of gochemopt.
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

import "fmt"

//State is the state of an optimization. Converged, Failed and
//IterationLimitReached are terminal.
type State int

const (
	Uninitialised State = iota
	Initialising
	Iterating
	Converged
	Failed
	IterationLimitReached
)

func (s State) String() string {
	switch s {
	case Uninitialised:
		return "uninitialised"
	case Initialising:
		return "initialising"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	case IterationLimitReached:
		return "iteration limit reached"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

//Terminal returns true if no further work is done from the state s.
func (s State) Terminal() bool {
	return s == Converged || s == Failed || s == IterationLimitReached
}
