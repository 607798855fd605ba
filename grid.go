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

import (
	"fmt"
	"math"
)

// ColumnConfig holds the physical and numerical configuration of a
// sediment column. All values are explicit; there is no process-wide
// default state.
type ColumnConfig struct {
	Depth  float64 // modeled depth below the interface [m]
	DeltaZ float64 // node spacing [m]

	Duration float64 // simulated time [yr]
	DeltaT   float64 // timestep [yr]

	// SaveStride is the number of steps between state snapshots. The
	// final step is always snapshotted regardless of stride.
	SaveStride int

	PhiSurface     float64 // porosity at the sediment-water interface (φ0)
	PhiBottom      float64 // porosity at infinite depth (φ∞)
	PhiAttenuation float64 // porosity attenuation coefficient β [1/m]

	DBLThickness float64 // diffusive boundary layer thickness [m]

	SolidDensity float64 // sediment grain density [kg/m³]
	ClayFlux     float64 // non-organic solid deposition [g/m²/yr]

	Temperature float64 // bottom-water temperature [°C]
	Salinity    float64 // bottom-water practical salinity
	Pressure    float64 // bottom-water pressure [dbar]

	BottomWaterO2  float64 // [μmol/kg]
	BottomWaterDIC float64 // [μmol/kg]
	BottomWaterPO4 float64 // [μmol/kg]; negative if not measured

	POMFlux float64 // particulate organic matter deposition [g/m²/yr]

	// Fast/slow/refractory split of the organic-matter flux. The three
	// fractions are expected to sum to one; a differing sum is reported
	// as a warning and used as given.
	FracFast       float64
	FracSlow       float64
	FracRefractory float64

	FastLambda         float64 // fast-pool degradation length [m]
	SlowLambda         float64 // slow-pool degradation length [m]
	BioturbationLambda float64 // bioturbation attenuation length [m]
	IrrigationLambda   float64 // irrigation attenuation length [m]

	// InitialConc and InitialProfile override the mechanism's default
	// initial conditions for the named tracers [mol/m³].
	InitialConc    map[string]float64
	InitialProfile map[string][]float64
}

// check returns an error for configurations the model cannot run with.
// Recoverable inconsistencies are recorded as warnings on the column
// instead.
func (cfg *ColumnConfig) check(c *Column) error {
	if cfg.DeltaZ <= 0 || cfg.Depth < 2*cfg.DeltaZ {
		// The boundary stencils reach two nodes into the interior.
		return fmt.Errorf("grid spacing %g m and depth %g m leave fewer than three nodes",
			cfg.DeltaZ, cfg.Depth)
	}
	if cfg.DeltaT <= 0 || cfg.Duration < cfg.DeltaT {
		return fmt.Errorf("timestep %g yr and duration %g yr are inconsistent",
			cfg.DeltaT, cfg.Duration)
	}
	if cfg.SaveStride < 1 {
		return fmt.Errorf("save stride must be at least 1, got %d", cfg.SaveStride)
	}
	if !(0 < cfg.PhiBottom && cfg.PhiBottom <= cfg.PhiSurface && cfg.PhiSurface < 1) {
		return fmt.Errorf("porosity bounds must satisfy 0 < φ∞ ≤ φ0 < 1, got φ0=%g, φ∞=%g",
			cfg.PhiSurface, cfg.PhiBottom)
	}
	if cfg.DBLThickness <= 0 {
		return fmt.Errorf("diffusive boundary layer thickness must be positive, got %g",
			cfg.DBLThickness)
	}
	if cfg.SolidDensity <= 0 {
		return fmt.Errorf("solid density must be positive, got %g", cfg.SolidDensity)
	}
	for _, l := range []struct {
		name string
		val  float64
	}{
		{"FastLambda", cfg.FastLambda},
		{"SlowLambda", cfg.SlowLambda},
		{"BioturbationLambda", cfg.BioturbationLambda},
		{"IrrigationLambda", cfg.IrrigationLambda},
	} {
		if l.val <= 0 {
			return fmt.Errorf("%s must be positive, got %g", l.name, l.val)
		}
	}
	if sum := cfg.FracFast + cfg.FracSlow + cfg.FracRefractory; math.Abs(sum-1) > 1.e-10 {
		c.addWarning("organic-matter fractions sum to %g, not 1; proceeding with the given values", sum)
	}
	return nil
}

// NumSteps returns the fixed step count for the configured duration.
func (cfg *ColumnConfig) NumSteps() int {
	return int(math.Round(cfg.Duration / cfg.DeltaT))
}

// saveSchedule returns the 1-based savepoint step indices: every stride-th
// step starting from the first, with the final step appended if the stride
// does not land on it, so it always appears exactly once.
func saveSchedule(nsteps, stride int) []int {
	var s []int
	for i := 1; i <= nsteps; i += stride {
		s = append(s, i)
	}
	if s[len(s)-1] != nsteps {
		s = append(s, nsteps)
	}
	return s
}

// SedimentGrid returns a ColumnManipulator that builds the depth and time
// axes, derives all transport coefficients from cfg, and installs the
// mechanism's tracers with their initial conditions. Interior nodes run
// from the sediment-water interface (z = 0) to cfg.Depth with uniform
// spacing; one ghost node above and one below carry the boundary
// conditions.
func SedimentGrid(cfg *ColumnConfig, m Mechanism) ColumnManipulator {
	return func(c *Column) error {
		if err := cfg.check(c); err != nil {
			return fmt.Errorf("diagen.SedimentGrid: %v", err)
		}
		st, err := Stoichiometry(cfg)
		if err != nil {
			return fmt.Errorf("diagen.SedimentGrid: %v", err)
		}

		pm := PorosityModel{
			Phi0:   cfg.PhiSurface,
			PhiInf: cfg.PhiBottom,
			Beta:   cfg.PhiAttenuation,
		}
		wInf := DeepBurialVelocity(cfg.POMFlux+cfg.ClayFlux,
			cfg.SolidDensity, 1-pm.PhiInf)
		o2w := st.Concentration(cfg.BottomWaterO2)

		n := int(math.Round(cfg.Depth/cfg.DeltaZ)) + 1
		c.cells = make([]*Cell, n)
		for i := 0; i < n; i++ {
			c.cells[i] = newCell(cfg, pm, st, float64(i)*cfg.DeltaZ, wInf, o2w)
		}
		c.surface = newCell(cfg, pm, st, -cfg.DeltaZ, wInf, o2w)
		c.bottom = newCell(cfg, pm, st, cfg.Depth+cfg.DeltaZ, wInf, o2w)
		c.surface.boundary = true
		c.bottom.boundary = true

		c.cells[0].above = c.surface
		c.cells[n-1].below = c.bottom
		c.surface.below = c.cells[0]
		c.bottom.above = c.cells[n-1]
		for i, cell := range c.cells {
			if i > 0 {
				cell.above = c.cells[i-1]
			}
			if i < n-1 {
				cell.below = c.cells[i+1]
			}
		}

		c.Dt = cfg.DeltaT
		c.NSteps = cfg.NumSteps()
		c.DBLThickness = cfg.DBLThickness
		c.savepoints = saveSchedule(c.NSteps, cfg.SaveStride)
		c.saveCursor = 0
		c.step = 0

		tracers := m.Tracers()
		for name, v := range cfg.InitialConc {
			i := tracerIndex(tracers, name)
			if i < 0 {
				return fmt.Errorf("diagen.SedimentGrid: initial condition for unknown tracer %q", name)
			}
			tracers[i].InitialConc = v
			tracers[i].InitialProfile = nil
		}
		for name, p := range cfg.InitialProfile {
			i := tracerIndex(tracers, name)
			if i < 0 {
				return fmt.Errorf("diagen.SedimentGrid: initial profile for unknown tracer %q", name)
			}
			tracers[i].InitialProfile = p
		}
		if err := c.setupTracers(tracers, len(c.savepoints)); err != nil {
			return fmt.Errorf("diagen.SedimentGrid: %v", err)
		}
		for _, cell := range append([]*Cell{c.surface, c.bottom}, c.cells...) {
			cell.setTracerCoefficients(tracers)
		}
		return nil
	}
}

func tracerIndex(ts []*Tracer, name string) int {
	for i, t := range ts {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// newCell derives the transport coefficients at depth z.
func newCell(cfg *ColumnConfig, pm PorosityModel, st *Stoich, z, wInf, o2w float64) *Cell {
	c := &Cell{
		Z:       z,
		Dz:      cfg.DeltaZ,
		Phi:     pm.Phi(z),
		PhiS:    pm.PhiS(z),
		Tort2:   pm.Tort2(z),
		DPhi:    pm.DPhi(z),
		DPhiS:   pm.DPhiS(z),
		DTort2i: pm.DTort2i(z),
	}
	c.Db = Bioturbation(st.CarbonFlux, o2w, z, cfg.BioturbationLambda)
	c.Alpha = IrrigationRate(st.CarbonFlux, o2w, z, cfg.IrrigationLambda)
	// Steady-state compaction: φS·w and φ·u are constant with depth.
	c.W = wInf * (1 - pm.PhiInf) / c.PhiS
	c.U = wInf * pm.PhiInf / c.Phi
	if c.Db == 0 {
		c.Sigma = 1
	} else {
		c.Sigma = AdvectionWeight(c.W * c.Dz / (2 * c.Db))
	}
	return c
}

// setTracerCoefficients fills the per-tracer diffusivity and effective
// advection velocity at this node.
func (c *Cell) setTracerCoefficients(tracers []*Tracer) {
	c.D = make([]float64, len(tracers))
	c.Uadv = make([]float64, len(tracers))
	for i, t := range tracers {
		switch t.Kind {
		case Solute:
			c.D[i] = t.D0 / c.Tort2
			// Porosity and tortuosity gradients shift the apparent
			// porewater velocity.
			c.Uadv[i] = c.U - t.D0*(c.DPhi/(c.Phi*c.Tort2)+c.DTort2i)
		case Solid:
			c.D[i] = c.Db
			c.Uadv[i] = c.W
		}
	}
}
