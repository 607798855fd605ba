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
	"math"
	"os"
	"reflect"
	"sort"
	"testing"
)

const TestOutputFilename = "testOutput.nc"

// runTestColumn initializes and runs a short simulation of the inert
// test column with the full operator sequence.
func runTestColumn(t *testing.T) (*Column, Mechanism) {
	cfg, m := ColumnTestData()
	cfg.Duration = 10 * cfg.DeltaT
	cfg.SaveStride = 4

	c := &Column{
		InitFuncs: []ColumnManipulator{SedimentGrid(cfg, m)},
		RunFuncs: []ColumnManipulator{
			Calculations(AdvanceState()),
			BoundaryConditions(),
			Calculations(
				SoluteAdvection(m),
				SolidAdvection(m),
				Diffusion(m),
				Irrigation(m),
			),
			Calculations(m.Reaction()),
			StepLimit(),
			Snapshot(),
		},
	}
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}
	return c, m
}

// Test whether user-defined output variables are substituted into the
// expressions that reference them, without touching longer names they
// happen to prefix.
func TestNewOutputter(t *testing.T) {
	if _, err := NewOutputter("", nil, nil); err == nil {
		t.Error("an empty output variable map should be rejected")
	}
	if _, err := NewOutputter("", map[string]string{"bad": "log10("}, nil); err == nil {
		t.Error("an unparsable expression should be rejected")
	}

	o, err := NewOutputter("", map[string]string{
		"O2":       "O2",
		"POC":      "O2 * 2",
		"named":    "POC + POCfast",
		"POCtotal": "POCfast + POCslow",
		"burial":   "POCtotal * 2",
		"surplus":  "max(POCtotal - 1, 0)",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	wantExprs := map[string]string{
		"named":   "(O2 * 2) + POCfast",
		"burial":  "(POCfast + POCslow) * 2",
		"surplus": "max((POCfast + POCslow) - 1, 0)",
	}
	for name, want := range wantExprs {
		if got := o.outputVariables[name]; got != want {
			t.Errorf("%s: expression is %q but should be %q", name, got, want)
		}
	}

	sort.Strings(o.modelVariables)
	wantVars := []string{"O2", "POCfast", "POCslow"}
	if !reflect.DeepEqual(o.modelVariables, wantVars) {
		t.Errorf("model variables are %v but should be %v", o.modelVariables, wantVars)
	}
}

func TestCheckOutputNames(t *testing.T) {
	valid := map[string]string{"O2": "O2", "POC_total1": "x"}
	if err := checkOutputNames(valid); err != nil {
		t.Errorf("valid names rejected: %v", err)
	}
	invalid := []map[string]string{
		{"2x": "O2"},
		{"with space": "O2"},
		{"semi;colon": "O2"},
		{"z": "O2"},
		{"time": "O2"},
	}
	for _, vars := range invalid {
		if err := checkOutputNames(vars); err == nil {
			t.Errorf("names %v should be rejected", vars)
		}
	}
}

// Test whether output variables are checked against the tracked tracers.
func TestCheckOutputVars(t *testing.T) {
	cfg, m := ColumnTestData()
	c := &Column{
		InitFuncs: []ColumnManipulator{SedimentGrid(cfg, m)},
	}
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}

	o, err := NewOutputter("", map[string]string{"w": "tracerW"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.CheckOutputVars()(c); err != nil {
		t.Errorf("a tracked tracer was rejected: %v", err)
	}

	o, err = NewOutputter("", map[string]string{"x": "bogus"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.CheckOutputVars()(c); err == nil {
		t.Error("an unknown tracer name should be rejected")
	}
}

// Test whether expressions evaluate over the saved history.
func TestResults(t *testing.T) {
	const testTolerance = 1.e-8

	c, m := runTestColumn(t)
	iw := c.TracerIndex("tracerW")
	cw := m.Tracers()[iw].BoundaryConc

	o, err := NewOutputter("", map[string]string{
		"w":    "tracerW",
		"wx2":  "tracerW * 2",
		"logw": "log10(tracerW)",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.Results(o)
	if err != nil {
		t.Fatal(err)
	}

	wantShape := []int{len(c.Cells()), len(c.Savepoints())}
	for name, data := range r {
		if !reflect.DeepEqual(data.Shape, wantShape) {
			t.Errorf("%s: shape is %v but should be %v", name, data.Shape, wantShape)
		}
	}
	for i := range c.Cells() {
		for s := range c.Savepoints() {
			if different(r["w"].Get(i, s), cw, testTolerance) {
				t.Errorf("w(%d,%d) = %g but should be %g", i, s, r["w"].Get(i, s), cw)
			}
			if different(r["wx2"].Get(i, s), 2*cw, testTolerance) {
				t.Errorf("wx2(%d,%d) = %g but should be %g", i, s, r["wx2"].Get(i, s), 2*cw)
			}
			if different(r["logw"].Get(i, s), math.Log10(cw), testTolerance) {
				t.Errorf("logw(%d,%d) = %g but should be %g", i, s, r["logw"].Get(i, s), math.Log10(cw))
			}
		}
	}
}

// Test whether a saved history survives the trip through a netCDF file.
func TestOutput(t *testing.T) {
	const testTolerance = 1.e-8

	c, _ := runTestColumn(t)

	o, err := NewOutputter(TestOutputFilename, map[string]string{
		"porewater": "tracerW",
		"solids":    "tracerS",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(TestOutputFilename)
	if err := o.Output()(c); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(TestOutputFilename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	results, err := ReadResults(f)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(results.Z, c.Depths()) {
		t.Errorf("depth coordinate is %v but should be %v", results.Z, c.Depths())
	}
	if !reflect.DeepEqual(results.Time, c.SaveTimes()) {
		t.Errorf("time coordinate is %v but should be %v", results.Time, c.SaveTimes())
	}
	if len(results.Data) != 2 {
		t.Fatalf("results hold %d variables but should hold 2", len(results.Data))
	}
	if results.Units["porewater"] != "mol/m³ porewater" {
		t.Errorf("porewater units are %q", results.Units["porewater"])
	}
	if results.Units["solids"] != "mol/m³ solids" {
		t.Errorf("solids units are %q", results.Units["solids"])
	}

	saved := map[string]int{
		"porewater": c.TracerIndex("tracerW"),
		"solids":    c.TracerIndex("tracerS"),
	}
	for name, idx := range saved {
		want := c.Tracers()[idx].Saved
		got, ok := results.Data[name]
		if !ok {
			t.Fatalf("results file has no variable %s", name)
		}
		for i := range c.Cells() {
			for s := range c.Savepoints() {
				if different(got.Get(i, s), want.Get(i, s), testTolerance) {
					t.Errorf("%s(%d,%d) = %g but should be %g",
						name, i, s, got.Get(i, s), want.Get(i, s))
				}
			}
		}
	}
}
