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

// Package oxic contains a reaction mechanism for aerobic degradation of
// sedimentary organic matter. It tracks dissolved oxygen and inorganic
// carbon together with three particulate organic-carbon pools: a fast and
// a slow pool degrading by first-order kinetics, and a refractory pool
// that only buries.
package oxic

import (
	"fmt"
	"math"

	"github.com/sedimentmodel/diagen"
)

// Indices of the species in the tracer arrays.
const (
	iO2 int = iota
	iDIC
	iFast
	iSlow
	iRef
)

// nspec is the number of species in the mechanism.
const nspec = 5

// Mechanism fulfils the github.com/sedimentmodel/diagen.Mechanism
// interface for oxygen-limited organic-matter degradation.
type Mechanism struct {
	// kFast and kSlow are the first-order degradation rate constants
	// [1/yr] of the two reactive carbon pools.
	kFast, kSlow float64

	tracers []*diagen.Tracer
}

// Free-solution diffusivities [m²/yr] at bottom-water temperature T [°C],
// from the linear fits of Boudreau (1997).
func diffO2(T float64) float64  { return 0.034862 + 0.001409*T }
func diffDIC(T float64) float64 { return 0.015169 + 0.000793*T }

// NewMechanism returns an oxic degradation mechanism configured for the
// given column: bottom-water concentrations converted to mol/m³, the
// organic flux split over the three carbon pools, and degradation rate
// constants derived from the pools' characteristic length scales and the
// deep burial velocity.
func NewMechanism(cfg *diagen.ColumnConfig) (*Mechanism, error) {
	if cfg.BottomWaterO2 < 0 || cfg.BottomWaterDIC < 0 {
		return nil, fmt.Errorf("oxic: bottom-water concentrations must not be negative, got O2=%g, DIC=%g μmol/kg",
			cfg.BottomWaterO2, cfg.BottomWaterDIC)
	}
	if cfg.FracFast < 0 || cfg.FracSlow < 0 || cfg.FracRefractory < 0 {
		return nil, fmt.Errorf("oxic: organic-matter fractions must not be negative, got %g, %g, %g",
			cfg.FracFast, cfg.FracSlow, cfg.FracRefractory)
	}
	st, err := diagen.Stoichiometry(cfg)
	if err != nil {
		return nil, fmt.Errorf("oxic: %v", err)
	}
	wInf := diagen.DeepBurialVelocity(cfg.POMFlux+cfg.ClayFlux,
		cfg.SolidDensity, 1-cfg.PhiBottom)

	o2w := st.Concentration(cfg.BottomWaterO2)
	dicw := st.Concentration(cfg.BottomWaterDIC)

	m := &Mechanism{
		kFast: diagen.DegradationRate(wInf, cfg.FastLambda),
		kSlow: diagen.DegradationRate(wInf, cfg.SlowLambda),
	}
	m.tracers = []*diagen.Tracer{
		iO2: {
			Name:         "O2",
			Units:        "mol/m³ porewater",
			Kind:         diagen.Solute,
			D0:           diffO2(cfg.Temperature),
			BoundaryConc: o2w,
			Reactive:     true,
			InitialConc:  o2w,
		},
		iDIC: {
			Name:         "DIC",
			Units:        "mol/m³ porewater",
			Kind:         diagen.Solute,
			D0:           diffDIC(cfg.Temperature),
			BoundaryConc: dicw,
			Reactive:     true,
			InitialConc:  dicw,
		},
		iFast: {
			Name:           "POCfast",
			Units:          "mol/m³ solids",
			Kind:           diagen.Solid,
			DepositionFlux: cfg.FracFast * st.CarbonFlux,
			Reactive:       true,
		},
		iSlow: {
			Name:           "POCslow",
			Units:          "mol/m³ solids",
			Kind:           diagen.Solid,
			DepositionFlux: cfg.FracSlow * st.CarbonFlux,
			Reactive:       true,
		},
		iRef: {
			Name:           "POCrefractory",
			Units:          "mol/m³ solids",
			Kind:           diagen.Solid,
			DepositionFlux: cfg.FracRefractory * st.CarbonFlux,
		},
	}
	return m, nil
}

// Len returns the number of species in this mechanism (5).
func (m *Mechanism) Len() int {
	return nspec
}

// Tracers returns the species tracked by this mechanism.
func (m *Mechanism) Tracers() []*diagen.Tracer {
	return m.tracers
}

// Reaction returns a function that degrades the fast and slow carbon
// pools by first-order kinetics on their previous-step content, consuming
// oxygen and producing dissolved inorganic carbon mole for mole. The
// per-step consumptions are clamped in a fixed order so that no reactive
// species is driven below zero: first total oxidation is clipped to the
// remaining oxygen and split between the pools in proportion to their
// unclipped rates, then each pool's consumption is clipped to its own
// remaining stock with the oxygen consumption recomputed after each clip.
// The refractory pool never reacts.
func (m *Mechanism) Reaction() diagen.CellManipulator {
	return func(c *diagen.Cell, Δt float64) {
		// Consumed amounts over this step, per pool.
		df := m.kFast * c.Ci[iFast] * Δt
		ds := m.kSlow * c.Ci[iSlow] * Δt
		if df+ds <= 0 {
			return
		}
		conv := c.PhiS / c.Phi // mol/m³ solids to mol/m³ porewater
		dO2 := (df + ds) * conv

		if c.Cf[iO2]-dO2 < 0 {
			fracFast := df / (df + ds)
			dO2 = math.Max(c.Cf[iO2], 0)
			df = dO2 / conv * fracFast
			ds = dO2 / conv * (1 - fracFast)
		}
		if c.Cf[iFast]-df < 0 {
			df = math.Max(c.Cf[iFast], 0)
			dO2 = (df + ds) * conv
		}
		if c.Cf[iSlow]-ds < 0 {
			ds = math.Max(c.Cf[iSlow], 0)
			dO2 = (df + ds) * conv
		}

		c.Cf[iFast] -= df
		c.Cf[iSlow] -= ds
		c.Cf[iO2] -= dO2
		c.Cf[iDIC] += dO2
	}
}

// speciesLabels maps reportable species names to the tracer indices that
// are summed to produce them.
var speciesLabels = map[string][]int{
	"O2":            {iO2},
	"DIC":           {iDIC},
	"POCfast":       {iFast},
	"POCslow":       {iSlow},
	"POCrefractory": {iRef},
	"POCtotal":      {iFast, iSlow, iRef},
}

// Species returns the names of the quantities that this mechanism can
// report, including the total particulate organic carbon over all three
// pools.
func (m *Mechanism) Species() []string {
	return []string{
		"O2",
		"DIC",
		"POCfast",
		"POCslow",
		"POCrefractory",
		"POCtotal",
	}
}

// Value returns the concentration of the given species in the given Cell.
// It returns an error if given an invalid species name.
func (m *Mechanism) Value(c *diagen.Cell, species string) (float64, error) {
	idx, ok := speciesLabels[species]
	if !ok {
		return math.NaN(), fmt.Errorf("oxic: invalid species name %s; valid names are %v",
			species, m.Species())
	}
	var val float64
	for _, i := range idx {
		val += c.Cf[i]
	}
	return val, nil
}

// Units returns the units of the given species, or an error if the
// species name is invalid.
func (m *Mechanism) Units(species string) (string, error) {
	idx, ok := speciesLabels[species]
	if !ok {
		return "", fmt.Errorf("oxic: invalid species name %s; valid names are %v",
			species, m.Species())
	}
	return m.tracers[idx[0]].Units, nil
}
