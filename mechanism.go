/*
Copyright © 2018 the Diagen authors.
This file is part of Diagen.

Diagen is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Diagen is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Diagen.  If not, see <http://www.gnu.org/licenses/>.
*/

package diagen

// Mechanism is an interface for sediment reaction mechanisms.
type Mechanism interface {
	// Tracers returns the species tracked by this mechanism, with their
	// kinds, diffusivities, boundary forcings and initial conditions.
	// The column takes ownership of the returned tracers during grid
	// construction.
	Tracers() []*Tracer

	// Reaction returns a function that applies the mechanism's reaction
	// rates at one depth node. It runs after the transport operators
	// have finished and must leave every reactive species non-negative.
	Reaction() CellManipulator

	// Species returns the names of the quantities this mechanism can
	// report through Value, which may include derived sums as well as
	// the tracers themselves.
	Species() []string

	// Value returns the concentration of the given species in the given
	// Cell. It returns an error if given an invalid species name.
	Value(c *Cell, species string) (float64, error)

	// Units returns the units of the given species, or an error if the
	// species name is invalid.
	Units(species string) (string, error)

	// Len returns the number of species in the mechanism.
	Len() int
}
