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
	"net/http"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// OutputOptions returns the species names that can be viewed through the
// web interface, with their descriptions and units.
func (c *Column) OutputOptions(m Mechanism) (names []string, descriptions []string, units []string) {
	names = append(names, m.Species()...)
	sort.Strings(names)
	for _, n := range names {
		descriptions = append(descriptions, n+" concentration")
		u, err := m.Units(n)
		if err != nil {
			u = ""
		}
		units = append(units, u)
	}
	return
}

func parseProfileRequest(base string, r *http.Request) (name string, err error) {
	request := strings.Split(r.URL.Path[len(base):], "/")
	name = request[0]
	if name == "" {
		err = fmt.Errorf("diagen: profile request %s is missing a species name", r.URL.Path)
	}
	return
}

// Profile retrieves the current depth profile of the given species,
// surface downward over the interior nodes.
func (c *Column) Profile(m Mechanism, species string) (depth, vals []float64, err error) {
	depth = make([]float64, len(c.cells))
	vals = make([]float64, len(c.cells))
	i := 0
	for cell := c.surface.below; !cell.boundary; cell = cell.below {
		cell.lock.RLock()
		v, err := m.Value(cell, species)
		cell.lock.RUnlock()
		if err != nil {
			return nil, nil, err
		}
		vals[i] = v
		depth[i] = cell.Z
		i++
	}
	return
}

func (c *Column) profileHandler(m Mechanism) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := parseProfileRequest("/profile/", r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		depth, vals, err := c.Profile(m, name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		units, err := m.Units(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		p, err := plot.New()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		p.Title.Text = fmt.Sprintf("%v profile at year %.4g", name, float64(c.Step())*c.Dt)
		p.X.Label.Text = "Depth (m)"
		p.Y.Label.Text = units
		xy := make(plotter.XYs, len(depth))
		for i, z := range depth {
			xy[i].X = z
			xy[i].Y = vals[i]
		}
		err = plotutil.AddLinePoints(p, xy)
		p.Y.Min = 0.
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		ww, hh := 4.*vg.Inch, 3.*vg.Inch
		wt, err := p.WriterTo(ww, hh, "png")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, err = wt.WriteTo(w)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func (c *Column) optionsHandler(m Mechanism) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, descriptions, units := c.OutputOptions(m)
		fmt.Fprint(w, "<html><head><title>Diagen</title></head><body><h1>Diagen</h1><ul>")
		for i, n := range names {
			fmt.Fprintf(w, "<li><a href=\"/profile/%s\">%s [%s]</a></li>", n, descriptions[i], units[i])
		}
		fmt.Fprint(w, "</ul></body></html>")
	}
}

// HTMLUI returns a function that serves an HTML user interface at address
// showing the evolving species profiles. If address is "", then the
// server won't run. The server runs for the life of the process; failure
// to serve is recorded as a warning rather than stopping the simulation.
func HTMLUI(address string, m Mechanism) ColumnManipulator {
	return func(c *Column) error {
		if address != "" {
			mux := http.NewServeMux()
			mux.HandleFunc("/", c.optionsHandler(m))
			mux.HandleFunc("/profile/", c.profileHandler(m))
			go func() {
				if err := http.ListenAndServe(address, mux); err != nil {
					c.addWarning("web interface: %v", err)
				}
			}()
		}
		return nil
	}
}
