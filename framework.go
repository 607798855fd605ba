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

// Package diagen implements a one-dimensional reaction-advection-diffusion
// model of early diagenesis in marine sediments: given bottom-water
// chemistry and a deposition flux of particulate organic matter, it
// simulates depth profiles of oxygen, dissolved inorganic carbon and
// organic-carbon pools through time with explicit finite differences.
package diagen

import (
	"fmt"
	"math"
	"sync"

	"github.com/ctessum/sparse"
)

// Version gives the model version number.
const Version = "0.1.0"

// ColumnManipulator is a function that modifies or reads the state of the
// whole sediment column. Simulations are assembled from lists of
// ColumnManipulators that run during the initialization, run and cleanup
// phases.
type ColumnManipulator func(c *Column) error

// CellManipulator is a function that modifies or reads the state of a
// single depth node, where Δt is the timestep [yr].
type CellManipulator func(c *Cell, Δt float64)

// Kind distinguishes porewater-dissolved tracers from particulate ones.
type Kind int

const (
	// Solute tracers live in the porewater: they feel molecular
	// diffusion, porewater burial and bio-irrigation.
	Solute Kind = iota
	// Solid tracers are particulate: they feel bioturbation mixing and
	// solid burial, and exchange with the water column only through
	// deposition at the interface.
	Solid
)

func (k Kind) String() string {
	switch k {
	case Solute:
		return "solute"
	case Solid:
		return "solid"
	}
	return fmt.Sprintf("unknown kind %d", int(k))
}

// Tracer describes one tracked quantity in the column.
type Tracer struct {
	Name  string
	Units string
	Kind  Kind

	// D0 is the free-solution diffusivity [m²/yr] of a Solute at the
	// bottom-water temperature. Unused for Solids, which mix by
	// bioturbation.
	D0 float64

	// BoundaryConc is the bottom-water concentration [mol/m³] forcing a
	// Solute through the diffusive boundary layer and irrigation.
	BoundaryConc float64

	// DepositionFlux is the deposition rate [mol/m²/yr] forcing a Solid
	// at the sediment-water interface.
	DepositionFlux float64

	// Reactive marks species whose concentrations the reaction step may
	// change; the reaction limiter keeps them non-negative.
	Reactive bool

	// InitialConc seeds a uniform initial profile unless InitialProfile
	// supplies explicit per-node values (interior nodes only).
	InitialConc    float64
	InitialProfile []float64

	// Saved is the write-once output history, indexed
	// [interior node, savepoint].
	Saved *sparse.DenseArray
}

// Cell holds the state and transport coefficients of one depth node.
// Concentration arrays are indexed by tracer and double-buffered: Ci is the
// state at the start of the current step and Cf accumulates the updates that
// become the state at the end of it.
type Cell struct {
	Z  float64 `desc:"Node depth below the sediment-water interface" units:"m"`
	Dz float64 `desc:"Node spacing" units:"m"`

	Phi   float64 `desc:"Porosity" units:"m³ porewater/m³"`
	PhiS  float64 `desc:"Solid volume fraction" units:"m³ solids/m³"`
	Tort2 float64 `desc:"Tortuosity squared" units:"-"`

	DPhi    float64 `desc:"Porosity depth-derivative" units:"1/m"`
	DPhiS   float64 `desc:"Solid fraction depth-derivative" units:"1/m"`
	DTort2i float64 `desc:"Inverse-tortuosity-squared depth-derivative" units:"1/m"`

	Db    float64 `desc:"Bioturbation diffusivity" units:"m²/yr"`
	Alpha float64 `desc:"Bio-irrigation exchange rate" units:"1/yr"`
	W     float64 `desc:"Solid burial velocity" units:"m/yr"`
	U     float64 `desc:"Porewater burial velocity" units:"m/yr"`
	Sigma float64 `desc:"Advection differencing weight" units:"-"`

	// D is the per-tracer diffusivity at this node [m²/yr]: molecular
	// diffusivity over tortuosity squared for solutes, bioturbation for
	// solids. Uadv is the per-tracer effective advection velocity [m/yr].
	D    []float64
	Uadv []float64

	Ci []float64 // per-tracer concentration at step start
	Cf []float64 // per-tracer concentration, step final

	above, below *Cell

	boundary bool

	lock sync.RWMutex // Avoid cell being written by one subroutine and read by another at the same time.
}

// Above returns the neighbor toward the sediment-water interface, which is
// the surface ghost node for the first interior cell.
func (c *Cell) Above() *Cell { return c.above }

// Below returns the neighbor away from the interface, which is the bottom
// ghost node for the last interior cell.
func (c *Cell) Below() *Cell { return c.below }

// Boundary reports whether this is a ghost node.
func (c *Cell) Boundary() bool { return c.boundary }

// Column is a one-dimensional sediment column model. The zero value is not
// usable; a grid-building initialization function such as SedimentGrid must
// run before any RunFuncs.
type Column struct {
	// InitFuncs are run once by Init, before the simulation starts.
	InitFuncs []ColumnManipulator
	// RunFuncs are run repeatedly, in order, by Run until Done is set.
	RunFuncs []ColumnManipulator
	// CleanupFuncs are run once by Cleanup, after the simulation ends.
	CleanupFuncs []ColumnManipulator

	// Dt is the timestep [yr] and NSteps the fixed total number of steps.
	Dt     float64
	NSteps int

	// DBLThickness is the diffusive boundary layer thickness [m] used by
	// the solute surface boundary condition.
	DBLThickness float64

	// Done signals the end of the run loop.
	Done bool

	// StatusChan, if non-nil, receives progress notifications at
	// savepoints. Sends never block; a slow receiver misses updates
	// rather than stalling the integration.
	StatusChan chan SimulationStatus

	// Warnings collects non-fatal configuration findings.
	Warnings []string

	cells           []*Cell // interior nodes, shallow to deep
	surface, bottom *Cell   // ghost nodes
	tracers         []*Tracer

	savepoints []int // 1-based step indices, strictly increasing
	saveCursor int
	step       int // completed steps

	warnLock sync.Mutex // addWarning can be called from the web interface goroutine
}

// Init runs the column initialization functions.
func (c *Column) Init() error {
	for _, f := range c.InitFuncs {
		if err := f(c); err != nil {
			return fmt.Errorf("diagen.Column.Init: %v", err)
		}
	}
	return nil
}

// Run runs the simulation loop until Done is set.
func (c *Column) Run() error {
	for !c.Done {
		for _, f := range c.RunFuncs {
			if err := f(c); err != nil {
				return fmt.Errorf("diagen.Column.Run: %v", err)
			}
		}
	}
	return nil
}

// Cleanup runs the column cleanup functions.
func (c *Column) Cleanup() error {
	for _, f := range c.CleanupFuncs {
		if err := f(c); err != nil {
			return fmt.Errorf("diagen.Column.Cleanup: %v", err)
		}
	}
	return nil
}

// Cells returns the interior depth nodes, shallow to deep. Ghost nodes are
// not included.
func (c *Column) Cells() []*Cell { return c.cells }

// Tracers returns the tracked species table.
func (c *Column) Tracers() []*Tracer { return c.tracers }

// TracerIndex returns the index of the named tracer, or -1.
func (c *Column) TracerIndex(name string) int {
	for i, t := range c.tracers {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// Depths returns the interior node depths [m].
func (c *Column) Depths() []float64 {
	z := make([]float64, len(c.cells))
	for i, cell := range c.cells {
		z[i] = cell.Z
	}
	return z
}

// Savepoints returns the 1-based step indices at which state snapshots are
// recorded. The final step is always present exactly once.
func (c *Column) Savepoints() []int { return c.savepoints }

// SaveTimes returns the simulation times [yr] of the savepoints.
func (c *Column) SaveTimes() []float64 {
	times := make([]float64, len(c.savepoints))
	for i, s := range c.savepoints {
		times[i] = float64(s) * c.Dt
	}
	return times
}

// Step returns the number of completed steps.
func (c *Column) Step() int { return c.step }

// addWarning records a non-fatal configuration finding and forwards it to
// StatusChan without blocking.
func (c *Column) addWarning(format string, args ...interface{}) {
	w := fmt.Sprintf(format, args...)
	c.warnLock.Lock()
	c.Warnings = append(c.Warnings, w)
	c.warnLock.Unlock()
	if c.StatusChan != nil {
		select {
		case c.StatusChan <- SimulationStatus{Warning: w}:
		default:
		}
	}
}

// setupTracers allocates the per-cell concentration arrays and seeds the
// initial conditions. Ghost-node concentrations start as NaN sentinels;
// they are invalid until boundary substitution runs.
func (c *Column) setupTracers(tracers []*Tracer, nsave int) error {
	c.tracers = tracers
	n := len(c.cells)
	for _, t := range tracers {
		if t.InitialProfile != nil && len(t.InitialProfile) != n {
			return fmt.Errorf("tracer %s: initial profile has %d values for %d nodes",
				t.Name, len(t.InitialProfile), n)
		}
		t.Saved = sparse.ZerosDense(n, nsave)
	}
	for i, cell := range c.cells {
		cell.Ci = make([]float64, len(tracers))
		cell.Cf = make([]float64, len(tracers))
		for ii, t := range tracers {
			v := t.InitialConc
			if t.InitialProfile != nil {
				v = t.InitialProfile[i]
			}
			cell.Ci[ii] = v
			cell.Cf[ii] = v
		}
	}
	for _, g := range []*Cell{c.surface, c.bottom} {
		g.Ci = make([]float64, len(tracers))
		g.Cf = make([]float64, len(tracers))
		for ii := range tracers {
			g.Ci[ii] = math.NaN()
			g.Cf[ii] = math.NaN()
		}
	}
	return nil
}
