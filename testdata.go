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

import "fmt"

// ColumnTestData returns a small but physically plausible abyssal-station
// column configuration and an inert two-species mechanism, for use in
// tests here and in other packages.
func ColumnTestData() (*ColumnConfig, Mechanism) {
	cfg := &ColumnConfig{
		Depth:  0.1,
		DeltaZ: 0.01,

		Duration:   0.02,
		DeltaT:     1. / 8760.,
		SaveStride: 40,

		PhiSurface:     0.85,
		PhiBottom:      0.74,
		PhiAttenuation: 33,

		DBLThickness: 1.e-3,

		SolidDensity: 2650,
		ClayFlux:     32.5,

		Temperature: 1.4,
		Salinity:    34.69,
		Pressure:    3855,

		BottomWaterO2:  159.7,
		BottomWaterDIC: 2324,
		BottomWaterPO4: 2.39,

		POMFlux:        36.45,
		FracFast:       0.70,
		FracSlow:       0.25,
		FracRefractory: 0.05,

		FastLambda:         0.0025,
		SlowLambda:         0.01,
		BioturbationLambda: 0.08,
		IrrigationLambda:   0.05,
	}
	m := &inertMechanism{
		tracers: []*Tracer{
			{
				Name:         "tracerW",
				Units:        "mol/m³ porewater",
				Kind:         Solute,
				D0:           0.03,
				BoundaryConc: 0.2,
				InitialConc:  0.2,
			},
			{
				Name:           "tracerS",
				Units:          "mol/m³ solids",
				Kind:           Solid,
				DepositionFlux: 1,
			},
		},
	}
	return cfg, m
}

// inertMechanism tracks one solute and one solid with no chemistry, so
// tests can exercise transport in isolation.
type inertMechanism struct {
	tracers []*Tracer
}

func (m *inertMechanism) Len() int           { return len(m.tracers) }
func (m *inertMechanism) Tracers() []*Tracer { return m.tracers }

func (m *inertMechanism) Reaction() CellManipulator {
	return func(c *Cell, Δt float64) {}
}

func (m *inertMechanism) Species() []string {
	s := make([]string, len(m.tracers))
	for i, t := range m.tracers {
		s[i] = t.Name
	}
	return s
}

func (m *inertMechanism) Value(c *Cell, species string) (float64, error) {
	for i, t := range m.tracers {
		if t.Name == species {
			return c.Cf[i], nil
		}
	}
	return 0, fmt.Errorf("diagen: invalid species name %s; valid names are %v",
		species, m.Species())
}

func (m *inertMechanism) Units(species string) (string, error) {
	for _, t := range m.tracers {
		if t.Name == species {
			return t.Units, nil
		}
	}
	return "", fmt.Errorf("diagen: invalid species name %s; valid names are %v",
		species, m.Species())
}
