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

// The transport operators read previous-step concentrations (Ci, including
// the ghost values written by BoundaryConditions) and accumulate explicit
// Euler increments into Cf. They are only run on interior nodes.

// SoluteAdvection returns a function that advects dissolved tracers with
// the porewater burial velocity using a central-difference gradient. The
// velocity stored in Uadv already includes the porosity and tortuosity
// gradient corrections, so no metric terms appear here.
func SoluteAdvection(m Mechanism) CellManipulator {
	ts := m.Tracers()
	return func(c *Cell, Δt float64) {
		for ii, t := range ts {
			if t.Kind != Solute {
				continue
			}
			grad := (c.below.Ci[ii] - c.above.Ci[ii]) / (2 * c.Dz)
			c.Cf[ii] -= c.Uadv[ii] * grad * Δt
		}
	}
}

// SolidAdvection returns a function that advects particulate tracers with
// the solid burial velocity. The Fiadeiro-Veronis weight σ shifts the
// gradient stencil from central (σ=0) toward fully upwind (σ=1) as the
// cell Peclet number grows, which keeps burial fronts from oscillating
// where bioturbation is weak.
func SolidAdvection(m Mechanism) CellManipulator {
	ts := m.Tracers()
	return func(c *Cell, Δt float64) {
		for ii, t := range ts {
			if t.Kind != Solid {
				continue
			}
			grad := ((1-c.Sigma)*c.below.Ci[ii] + 2*c.Sigma*c.Ci[ii] -
				(1+c.Sigma)*c.above.Ci[ii]) / (2 * c.Dz)
			c.Cf[ii] -= c.Uadv[ii] * grad * Δt
		}
	}
}

// Diffusion returns a function that diffuses all tracers with their
// per-node diffusivities: molecular diffusivity over tortuosity squared
// for solutes, the bioturbation coefficient for solids.
func Diffusion(m Mechanism) CellManipulator {
	nspec := m.Len()
	return func(c *Cell, Δt float64) {
		for ii := 0; ii < nspec; ii++ {
			lap := (c.above.Ci[ii] - 2*c.Ci[ii] + c.below.Ci[ii]) / (c.Dz * c.Dz)
			c.Cf[ii] += c.D[ii] * lap * Δt
		}
	}
}

// Irrigation returns a function that relaxes dissolved tracers toward
// their bottom-water concentrations at the local burrow-flushing exchange
// rate. Solids are not irrigated.
func Irrigation(m Mechanism) CellManipulator {
	ts := m.Tracers()
	return func(c *Cell, Δt float64) {
		for ii, t := range ts {
			if t.Kind != Solute {
				continue
			}
			c.Cf[ii] += c.Alpha * (t.BoundaryConc - c.Ci[ii]) * Δt
		}
	}
}
