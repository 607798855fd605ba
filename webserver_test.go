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
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestOutputOptions(t *testing.T) {
	_, m := ColumnTestData()
	c := new(Column)

	names, descriptions, units := c.OutputOptions(m)

	wantNames := []string{"tracerS", "tracerW"}
	wantDescriptions := []string{"tracerS concentration", "tracerW concentration"}
	wantUnits := []string{"mol/m³ solids", "mol/m³ porewater"}

	if !reflect.DeepEqual(names, wantNames) {
		t.Errorf("names: want %v, got %v", wantNames, names)
	}
	if !reflect.DeepEqual(descriptions, wantDescriptions) {
		t.Errorf("descriptions: want %v, got %v", wantDescriptions, descriptions)
	}
	if !reflect.DeepEqual(units, wantUnits) {
		t.Errorf("units: want %v, got %v", wantUnits, units)
	}
}

// Test whether Profile retrieves the current concentrations of a species
// over the interior nodes, surface downward.
func TestProfile(t *testing.T) {
	c, m := runTestColumn(t)

	depth, vals, err := c.Profile(m, "tracerW")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(depth, c.Depths()) {
		t.Errorf("depth: want %v, got %v", c.Depths(), depth)
	}
	iw := c.TracerIndex("tracerW")
	for i, cell := range c.Cells() {
		if vals[i] != cell.Cf[iw] {
			t.Errorf("node %d: want %v, got %v", i, cell.Cf[iw], vals[i])
		}
	}

	if _, _, err := c.Profile(m, "tracerX"); err == nil {
		t.Error("an invalid species name should be rejected")
	}
}

func TestParseProfileRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/profile/tracerW", nil)
	name, err := parseProfileRequest("/profile/", r)
	if err != nil {
		t.Fatal(err)
	}
	if name != "tracerW" {
		t.Errorf("species name is %q but should be %q", name, "tracerW")
	}

	r = httptest.NewRequest("GET", "/profile/", nil)
	if _, err := parseProfileRequest("/profile/", r); err == nil {
		t.Error("a request without a species name should be rejected")
	}
}

// Test whether the profile handler renders a PNG image for a valid
// species and rejects an unknown one.
func TestProfileHandler(t *testing.T) {
	c, m := runTestColumn(t)
	handler := c.profileHandler(m)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/profile/tracerW", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status is %d but should be %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type is %q but should be %q", ct, "image/png")
	}
	if !strings.HasPrefix(w.Body.String(), "\x89PNG") {
		t.Error("response body is not a PNG image")
	}

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/profile/tracerX", nil))
	if w.Code == http.StatusOK {
		t.Error("an invalid species name should be rejected")
	}
}
