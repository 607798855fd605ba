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

// BoundaryConditions returns a function that writes the ghost-node
// concentrations from the previous-step interior values and each tracer's
// boundary forcing. It must run once per step, before the transport
// operators read the ghost nodes.
func BoundaryConditions() ColumnManipulator {
	return func(c *Column) error {
		top1 := c.cells[0]
		top2 := c.cells[1]
		mirror := c.cells[len(c.cells)-2]

		for ii, t := range c.tracers {
			switch t.Kind {
			case Solute:
				// Continuity of flux across the diffusive boundary
				// layer sets the near-surface gradient.
				c.surface.Ci[ii] = top2.Ci[ii] +
					(t.BoundaryConc-top1.Ci[ii])*2*top1.Dz*top1.Tort2/c.DBLThickness
			case Solid:
				// Deposition balances burial and mixing at the
				// interface. Without bioturbation the balance is
				// purely advective.
				if top1.Db > 0 {
					c.surface.Ci[ii] = top2.Ci[ii] +
						(t.DepositionFlux/top1.PhiS-top1.W*top1.Ci[ii])*2*top1.Dz/top1.Db
				} else {
					c.surface.Ci[ii] = t.DepositionFlux / (top1.PhiS * top1.W)
				}
			}
			// Zero gradient across the deepest node.
			c.bottom.Ci[ii] = mirror.Ci[ii]
		}
		return nil
	}
}
