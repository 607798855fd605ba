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

package diagenutil

import (
	"fmt"
	"os"
	"sort"

	"github.com/sedimentmodel/diagen"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// maxPlotLines is the largest number of savepoint profiles drawn per
// species; longer histories are thinned evenly.
const maxPlotLines = 6

// Plot reads a results file and writes a PNG figure with one
// depth-profile panel per species, drawing up to maxPlotLines savepoints
// each. If species is empty, all variables in the results file are
// plotted.
func Plot(resultsFile, plotFile string, species []string) error {
	f, err := os.Open(os.ExpandEnv(resultsFile))
	if err != nil {
		return fmt.Errorf("diagen: problem opening results file: %v", err)
	}
	defer f.Close()
	results, err := diagen.ReadResults(f)
	if err != nil {
		return err
	}

	if len(species) == 0 {
		for v := range results.Data {
			species = append(species, v)
		}
		sort.Strings(species)
	}

	plots := make([]*plot.Plot, len(species))
	for i, sp := range species {
		data, ok := results.Data[sp]
		if !ok {
			return fmt.Errorf("diagen: results file has no variable %s", sp)
		}
		p, err := plot.New()
		if err != nil {
			return err
		}
		p.Title.Text = sp
		p.X.Label.Text = "Depth (m)"
		p.Y.Label.Text = results.Units[sp]

		var args []interface{}
		for _, s := range savepointSubset(len(results.Time), maxPlotLines) {
			xy := make(plotter.XYs, len(results.Z))
			for j := range results.Z {
				xy[j].X = results.Z[j]
				xy[j].Y = data.Get(j, s)
			}
			args = append(args, fmt.Sprintf("%.4g yr", results.Time[s]), xy)
		}
		if err := plotutil.AddLines(p, args...); err != nil {
			return err
		}
		p.Legend.Top = true
		plots[i] = p
	}

	const width, height = 4 * vg.Inch, 3 * vg.Inch
	img := vgimg.NewWith(vgimg.UseWH(width, height*vg.Length(len(species))), vgimg.UseDPI(96))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(species),
		Cols: 1,
		PadX: 2 * vg.Millimeter,
		PadY: 2 * vg.Millimeter,
	}
	for i, p := range plots {
		p.Draw(tiles.At(dc, 0, i))
	}

	w, err := os.Create(os.ExpandEnv(plotFile))
	if err != nil {
		return fmt.Errorf("diagen: problem creating plot file: %v", err)
	}
	defer w.Close()
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return err
	}
	return nil
}

// savepointSubset picks at most max evenly spaced indices out of n,
// always including the first and last.
func savepointSubset(n, max int) []int {
	if n <= max {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, max)
	for i := 0; i < max; i++ {
		out[i] = i * (n - 1) / (max - 1)
	}
	return out
}
