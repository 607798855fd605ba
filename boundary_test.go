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

import "testing"

// Test whether the ghost nodes pick up the diffusive-boundary-layer and
// deposition-flux conditions at the surface and the zero-gradient mirror
// at depth.
func TestBoundaryConditions(t *testing.T) {
	const testTolerance = 1.e-8

	cfg, m := ColumnTestData()
	c := &Column{
		InitFuncs: []ColumnManipulator{SedimentGrid(cfg, m)},
	}
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}

	iw := c.TracerIndex("tracerW")
	is := c.TracerIndex("tracerS")
	cells := c.Cells()
	for i, cell := range cells {
		cell.Ci[iw] = 0.1 + 0.01*float64(i)
		cell.Ci[is] = 2 - 0.05*float64(i)
	}

	if err := BoundaryConditions()(c); err != nil {
		t.Fatal(err)
	}

	top1, top2 := cells[0], cells[1]
	surface := top1.Above()
	bottom := cells[len(cells)-1].Below()
	mirror := cells[len(cells)-2]

	cw := m.Tracers()[iw].BoundaryConc
	wantSolute := top2.Ci[iw] +
		(cw-top1.Ci[iw])*2*top1.Dz*top1.Tort2/c.DBLThickness
	if different(surface.Ci[iw], wantSolute, testTolerance) {
		t.Errorf("surface ghost solute is %g but should be %g", surface.Ci[iw], wantSolute)
	}

	flux := m.Tracers()[is].DepositionFlux
	wantSolid := top2.Ci[is] +
		(flux/top1.PhiS-top1.W*top1.Ci[is])*2*top1.Dz/top1.Db
	if different(surface.Ci[is], wantSolid, testTolerance) {
		t.Errorf("surface ghost solid is %g but should be %g", surface.Ci[is], wantSolid)
	}

	if different(bottom.Ci[iw], mirror.Ci[iw], testTolerance) {
		t.Errorf("bottom ghost solute is %g but the zero-gradient mirror is %g",
			bottom.Ci[iw], mirror.Ci[iw])
	}
	if different(bottom.Ci[is], mirror.Ci[is], testTolerance) {
		t.Errorf("bottom ghost solid is %g but the zero-gradient mirror is %g",
			bottom.Ci[is], mirror.Ci[is])
	}
}

// Test whether the solid surface condition falls back to the advective
// balance when bioturbation is zero.
func TestBoundaryConditionsNoMixing(t *testing.T) {
	const testTolerance = 1.e-8

	cfg, m := ColumnTestData()
	cfg.BottomWaterO2 = 0 // no oxygen, no bioturbation
	c := &Column{
		InitFuncs: []ColumnManipulator{SedimentGrid(cfg, m)},
	}
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}

	is := c.TracerIndex("tracerS")
	cells := c.Cells()
	for i, cell := range cells {
		cell.Ci[is] = 2 - 0.05*float64(i)
	}

	if err := BoundaryConditions()(c); err != nil {
		t.Fatal(err)
	}

	top1 := cells[0]
	if top1.Db != 0 {
		t.Fatalf("bioturbation is %g but should be zero without oxygen", top1.Db)
	}
	flux := m.Tracers()[is].DepositionFlux
	want := flux / (top1.PhiS * top1.W)
	if different(top1.Above().Ci[is], want, testTolerance) {
		t.Errorf("surface ghost solid is %g but the advective balance gives %g",
			top1.Above().Ci[is], want)
	}
}
