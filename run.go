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
	"context"
	"fmt"
	"io"
	"math"
	"runtime"
	"sync"
	"time"
)

// AdvanceState returns a function that copies each node's end-of-step
// concentrations into its start-of-step buffer. It must run before the
// boundary substitution and the operators of each step so that they all
// read the same previous-step state.
func AdvanceState() CellManipulator {
	return func(c *Cell, Δt float64) {
		copy(c.Ci, c.Cf)
	}
}

// Calculations returns a function that concurrently runs a series of
// calculations on all of the interior depth nodes. Each Calculations entry
// in RunFuncs is a synchronization point: every calculator finishes on
// every node before the next function in RunFuncs starts.
func Calculations(calculators ...CellManipulator) ColumnManipulator {

	nprocs := runtime.GOMAXPROCS(0) // number of processors
	var wg sync.WaitGroup

	return func(col *Column) error {
		// Concurrently run all of the calculators on all of the cells.
		wg.Add(nprocs)
		for pp := 0; pp < nprocs; pp++ {
			go func(pp int) {
				var c *Cell
				for ii := pp; ii < len(col.cells); ii += nprocs {
					c = col.cells[ii]
					c.lock.Lock() // Lock the cell to avoid race conditions
					for _, f := range calculators {
						f(c, col.Dt)
					}
					c.lock.Unlock() // Unlock the cell: we're done editing it
				}
				wg.Done()
			}(pp)
		}
		wg.Wait()
		return nil
	}
}

// Snapshot returns a function that records the end-of-step concentrations
// of every tracer into its Saved history whenever the step just completed
// is a savepoint. It must run after StepLimit, which advances the step
// counter. Each savepoint column is written exactly once.
func Snapshot() ColumnManipulator {
	return func(c *Column) error {
		if c.saveCursor >= len(c.savepoints) || c.step != c.savepoints[c.saveCursor] {
			return nil
		}
		for ii, t := range c.tracers {
			for i, cell := range c.cells {
				t.Saved.Set(cell.Cf[ii], i, c.saveCursor)
			}
		}
		c.saveCursor++
		if c.StatusChan != nil {
			select {
			case c.StatusChan <- c.status():
			default:
			}
		}
		return nil
	}
}

// StepLimit returns a function that counts completed steps and sets Done
// once the configured number of steps has run.
func StepLimit() ColumnManipulator {
	return func(c *Column) error {
		c.step++
		if c.step >= c.NSteps {
			c.Done = true
		}
		return nil
	}
}

// CheckContext returns a function that stops the simulation with an error
// when ctx is canceled.
func CheckContext(ctx context.Context) ColumnManipulator {
	return func(c *Column) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
}

// StabilityCheck returns a function that inspects the explicit-step
// stability numbers of the configured grid: the von Neumann diffusion
// number D·Δt/Δz² of every tracer at every node, the advective Courant
// number |u|·Δt/Δz, the irrigation number α·Δt, and the boundary layer
// number of every solute at the surface node, where the ghost-node
// substitution amplifies the diffusion stencil by 2·Δz·τ²/δ. Violations
// are reported as warnings; the simulation still runs, since
// near-threshold cases can remain usable.
func StabilityCheck() ColumnManipulator {
	return func(c *Column) error {
		var diff, cour, irr, bl float64
		for _, cell := range c.cells {
			for ii := range c.tracers {
				diff = math.Max(diff, cell.D[ii]*c.Dt/(cell.Dz*cell.Dz))
				cour = math.Max(cour, math.Abs(cell.Uadv[ii])*c.Dt/cell.Dz)
			}
			irr = math.Max(irr, cell.Alpha*c.Dt)
		}
		top := c.cells[0]
		for ii, t := range c.tracers {
			if t.Kind != Solute {
				continue
			}
			r := top.D[ii] * c.Dt / (top.Dz * top.Dz)
			bl = math.Max(bl, r*(2+2*top.Dz*top.Tort2/c.DBLThickness))
		}
		if diff > 0.5 {
			c.addWarning("diffusion number %.3g exceeds 0.5; the explicit solution may be unstable at this timestep", diff)
		}
		if cour > 1 {
			c.addWarning("Courant number %.3g exceeds 1; the explicit solution may be unstable at this timestep", cour)
		}
		if irr > 1 {
			c.addWarning("irrigation number %.3g exceeds 1; the explicit solution may be unstable at this timestep", irr)
		}
		if bl > 1 {
			c.addWarning("boundary layer number %.3g exceeds 1; solute profiles may oscillate at the surface node at this timestep", bl)
		}
		return nil
	}
}

// Log returns a function that writes simulation progress to w. Output is
// rate-limited so that long runs with short steps do not drown their
// terminal; the first and last steps are always reported.
func Log(w io.Writer) ColumnManipulator {
	const logPeriod = 10 * time.Second

	startTime := time.Now()
	timeStepTime := time.Now()

	return func(c *Column) error {
		if c.StatusChan != nil {
			select {
			case c.StatusChan <- c.status():
			default:
			}
		}
		if c.step != 1 && !c.Done && time.Since(timeStepTime) < logPeriod {
			return nil
		}
		fmt.Fprintf(w, "Step %-8d of %d  walltime=%6.3gh  Δwalltime=%4.2gs  "+
			"timestep=%.3gyr  year=%.4g\n",
			c.step, c.NSteps, time.Since(startTime).Hours(),
			time.Since(timeStepTime).Seconds(), c.Dt, float64(c.step)*c.Dt)
		timeStepTime = time.Now()
		return nil
	}
}

// SimulationStatus describes the progress of a running simulation.
type SimulationStatus struct {
	Step       int     // completed steps
	TotalSteps int     // configured total number of steps
	Year       float64 // simulated time [yr]
	Savepoints int     // snapshots recorded so far

	// Warning carries a non-fatal problem report instead of progress.
	Warning string
}

func (s SimulationStatus) String() string {
	if s.Warning != "" {
		return "WARNING: " + s.Warning
	}
	return fmt.Sprintf("step %d of %d (year %g; %d snapshots)",
		s.Step, s.TotalSteps, s.Year, s.Savepoints)
}

func (c *Column) status() SimulationStatus {
	return SimulationStatus{
		Step:       c.step,
		TotalSteps: c.NSteps,
		Year:       float64(c.step) * c.Dt,
		Savepoints: c.saveCursor,
	}
}
