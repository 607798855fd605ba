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
	"encoding/gob"
	"fmt"
	"io"
	"math"

	"github.com/ctessum/sparse"
)

// columnState is the gob payload for Save and Load. The cell neighbor
// links are unexported and therefore not encoded; Load rebuilds them
// from the node order.
type columnState struct {
	Surface *Cell
	Bottom  *Cell
	Cells   []*Cell
	Tracers []*Tracer

	Dt           float64
	NSteps       int
	DBLThickness float64

	Savepoints []int
	SaveCursor int
	Step       int
}

// Save returns a function that saves the column state to w as a gob
// stream (format description at https://golang.org/pkg/encoding/gob/).
func Save(w io.Writer) ColumnManipulator {
	return func(c *Column) error {
		e := gob.NewEncoder(w)
		s := columnState{
			Surface:      c.surface,
			Bottom:       c.bottom,
			Cells:        c.cells,
			Tracers:      c.tracers,
			Dt:           c.Dt,
			NSteps:       c.NSteps,
			DBLThickness: c.DBLThickness,
			Savepoints:   c.savepoints,
			SaveCursor:   c.saveCursor,
			Step:         c.step,
		}
		if err := e.Encode(s); err != nil {
			return fmt.Errorf("diagen.Column.Save: %v", err)
		}
		return nil
	}
}

// Load returns a function that loads a previously Saved state into a
// Column, in place of building a new grid with SedimentGrid. The loaded
// column resumes from the saved step.
func Load(r io.Reader) ColumnManipulator {
	return func(c *Column) error {
		dec := gob.NewDecoder(r)
		var s columnState
		if err := dec.Decode(&s); err != nil {
			return fmt.Errorf("diagen.Column.Load: %v", err)
		}
		if len(s.Cells) == 0 || s.Surface == nil || s.Bottom == nil {
			return fmt.Errorf("diagen.Column.Load: file does not contain a column")
		}
		c.initFromState(&s)
		return nil
	}
}

// ExtendRun returns a function that raises the step limit of a loaded
// column so the simulation continues to duration years of total simulated
// time. Savepoints keep their original phase, recurring every stride steps
// over the added range with the new final step always included, and each
// tracer's saved history grows to hold them. Durations that do not reach
// past the loaded step limit leave the column unchanged.
func ExtendRun(duration float64, stride int) ColumnManipulator {
	return func(c *Column) error {
		if stride < 1 {
			return fmt.Errorf("diagen.ExtendRun: save stride must be at least 1, got %d", stride)
		}
		n := int(math.Round(duration / c.Dt))
		if n <= c.NSteps {
			if n < c.NSteps {
				c.addWarning("duration %g yr is %d steps, within the %d already configured; not extending",
					duration, n, c.NSteps)
			}
			return nil
		}

		nsaved := len(c.savepoints)
		for i := c.NSteps + stride - (c.NSteps-1)%stride; i <= n; i += stride {
			c.savepoints = append(c.savepoints, i)
		}
		if c.savepoints[len(c.savepoints)-1] != n {
			c.savepoints = append(c.savepoints, n)
		}

		for _, t := range c.tracers {
			grown := sparse.ZerosDense(len(c.cells), len(c.savepoints))
			for s := 0; s < nsaved; s++ {
				for i := range c.cells {
					grown.Set(t.Saved.Get(i, s), i, s)
				}
			}
			t.Saved = grown
		}

		c.NSteps = n
		c.Done = c.step >= c.NSteps
		return nil
	}
}

func (c *Column) initFromState(s *columnState) {
	c.cells = s.Cells
	c.surface = s.Surface
	c.bottom = s.Bottom
	c.tracers = s.Tracers
	c.Dt = s.Dt
	c.NSteps = s.NSteps
	c.DBLThickness = s.DBLThickness
	c.savepoints = s.Savepoints
	c.saveCursor = s.SaveCursor
	c.step = s.Step

	c.Done = c.step >= c.NSteps

	// The unexported index bookkeeping in the saved arrays is not
	// transmitted by gob.
	for _, t := range c.tracers {
		if t.Saved != nil {
			t.Saved.Fix()
		}
	}

	n := len(c.cells)
	c.surface.boundary = true
	c.bottom.boundary = true
	c.surface.below = c.cells[0]
	c.bottom.above = c.cells[n-1]
	c.cells[0].above = c.surface
	c.cells[n-1].below = c.bottom
	for i, cell := range c.cells {
		if i > 0 {
			cell.above = c.cells[i-1]
		}
		if i < n-1 {
			cell.below = c.cells[i+1]
		}
	}
}
