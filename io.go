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
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// DataVersion is the version of the results file format. Files written
// with a different version are rejected on read.
const DataVersion = "1.0.0"

// Outputter is a holder for output parameters.
//
// fileName contains the path where the output will be saved.
//
// outputVariables maps the names of the variables for which data should
// be saved to expressions that define how the requested data should be
// calculated. These expressions can utilize the tracked tracers,
// user-defined variables, and functions.
//
// modelVariables is automatically generated based on the tracers that are
// required to calculate the requested output variables.
//
// Functions are defined in the outputFunctions variable.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	modelVariables  []string
	outputFunctions map[string]govaluate.ExpressionFunction
}

// NewOutputter initializes a new Outputter holder and adds a set of
// default output functions: 'exp(x)', 'log(x)', 'log10(x)', 'sqrt(x)'
// and 'abs(x)' apply the corresponding scalar functions, and
// 'min(x, y)' and 'max(x, y)' select between two values.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	if len(outputVariables) == 0 {
		return nil, fmt.Errorf("diagen: no output variables specified")
	}

	scalarFunc := func(name string, f func(float64) float64) govaluate.ExpressionFunction {
		return func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("diagen: got %d arguments for function '%s', but needs 1", len(arg), name)
			}
			return f(arg[0].(float64)), nil
		}
	}
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp":   scalarFunc("exp", math.Exp),
		"log":   scalarFunc("log", math.Log),
		"log10": scalarFunc("log10", math.Log10),
		"sqrt":  scalarFunc("sqrt", math.Sqrt),
		"abs":   scalarFunc("abs", math.Abs),
		"min": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("diagen: got %d arguments for function 'min', but needs 2", len(arg))
			}
			return math.Min(arg[0].(float64), arg[1].(float64)), nil
		},
		"max": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("diagen: got %d arguments for function 'max', but needs 2", len(arg))
			}
			return math.Max(arg[0].(float64), arg[1].(float64)), nil
		},
	}

	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	o := Outputter{
		fileName:        fileName,
		outputVariables: outputVariables,
		outputFunctions: defaultOutputFuncs,
	}

	err := o.checkForDerivatives()
	return &o, err
}

// removeDuplicates removes all duplicated strings from a slice, returning
// a slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]string)
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = val
		}
	}
	return result
}

func checkPrefix(s string) (bool, error) {
	var isPrefix bool
	var err error
	if string(s) != "" {
		isPrefix, err = regexp.MatchString("[a-zA-Z0-9_]", string(s[0]))
		if err != nil {
			return false, err
		}
	} else {
		isPrefix = false
	}
	return isPrefix, nil
}

func checkSuffix(s string) (bool, error) {
	var isSuffix bool
	var err error
	if string(s) != "" {
		isSuffix, err = regexp.MatchString("[a-zA-Z0-9_]", string(s[len(s)-1]))
		if err != nil {
			return false, err
		}
	} else {
		isSuffix = false
	}
	return isSuffix, nil
}

// checkForDerivatives identifies the unique tracer variables that are
// required to calculate the requested output variables. Any user-defined
// output variable showing up in a subsequent expression is replaced by
// its corresponding user-defined expression, so that every expression
// refers only to tracers in the end.
func (o *Outputter) checkForDerivatives() error {
	o.modelVariables = make([]string, 0, len(o.outputVariables))
	for key, val := range o.outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, o.outputFunctions)
		if err != nil {
			return fmt.Errorf("diagen: output variable %s: %v", key, err)
		}
		uniqueVars := removeDuplicates(expression.Vars())
		o.modelVariables = append(o.modelVariables, uniqueVars...)
		// For each variable name identified in an output variable
		// expression, check if the variable is defined in terms of other
		// variables within a separate expression. If so, any instance of
		// the variable name in the current expression will be replaced by
		// the expression that defines it.
		var isSuffix bool
		var isPrefix bool
		for _, uniqueVar := range uniqueVars {
			if o.outputVariables[uniqueVar] != "" && o.outputVariables[uniqueVar] != uniqueVar {
				// In order to verify that an instance of a variable name
				// is not part of a longer variable name, the text
				// preceding and following the variable name is analyzed.
				// For example, 'POC' is not a standalone variable in an
				// expression if it appears as 'POCfast'.
				splitVal := strings.Split(val, uniqueVar)
				for i := 0; i < len(splitVal)-1; i++ {
					isSuffix, err = checkSuffix(splitVal[i])
					if err != nil {
						return fmt.Errorf("diagen: output variable %s: %v", key, err)
					}
					isPrefix, err = checkPrefix(splitVal[i+1])
					if err != nil {
						return fmt.Errorf("diagen: output variable %s: %v", key, err)
					}
					splitVal[i] = splitVal[i] + uniqueVar
					// For every instance of the variable name that is not
					// part of a longer variable name, replace it by the
					// expression that defines it.
					if !isSuffix && !isPrefix {
						splitVal[i] = strings.Replace(splitVal[i], uniqueVar, "("+o.outputVariables[uniqueVar]+")", -1)
					}
				}
				o.outputVariables[key] = strings.Join(splitVal, "")
				return o.checkForDerivatives()
			}
		}
	}
	o.modelVariables = removeDuplicates(o.modelVariables)
	return nil
}

// checkModelVars checks whether the tracers required to calculate the
// requested output variables are tracked by the column.
func (c *Column) checkModelVars(g ...string) error {
	for _, v := range g {
		if c.TracerIndex(v) < 0 {
			names := make([]string, len(c.tracers))
			for i, t := range c.tracers {
				names[i] = t.Name
			}
			return fmt.Errorf("diagen: undefined tracer name '%s'; tracked tracers are %v", v, names)
		}
	}
	return nil
}

// checkOutputNames checks whether the output variable names are usable as
// netCDF variable names and do not collide with the coordinate variables.
func checkOutputNames(o map[string]string) error {
	for key := range o {
		ok, err := regexp.MatchString("^[A-Za-z]\\w*$", key)
		if err != nil {
			panic(err)
		}
		if !ok {
			return fmt.Errorf("diagen: output variable name '%s' includes unsupported characters", key)
		}
		if key == "z" || key == "time" {
			return fmt.Errorf("diagen: output variable name '%s' is reserved for a coordinate", key)
		}
	}
	return nil
}

// CheckOutputVars returns a function that ensures the output variables
// can be calculated from the tracked tracers. It must run after the grid
// is built.
func (o *Outputter) CheckOutputVars() ColumnManipulator {
	return func(c *Column) error {
		if err := c.checkModelVars(o.modelVariables...); err != nil {
			return err
		}
		return checkOutputNames(o.outputVariables)
	}
}

// Results evaluates the output variable expressions over the saved
// history, returning one array per output variable indexed
// [interior node, savepoint].
func (c *Column) Results(o *Outputter) (map[string]*sparse.DenseArray, error) {
	n := len(c.cells)
	nsave := len(c.savepoints)
	results := make(map[string]*sparse.DenseArray)
	params := make(map[string]interface{}, len(c.tracers))
	for name, expStr := range o.outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(expStr, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("diagen: output variable %s: %v", name, err)
		}
		out := sparse.ZerosDense(n, nsave)
		for i := 0; i < n; i++ {
			for s := 0; s < nsave; s++ {
				for _, t := range c.tracers {
					params[t.Name] = t.Saved.Get(i, s)
				}
				v, err := expression.Evaluate(params)
				if err != nil {
					return nil, fmt.Errorf("diagen: evaluating output variable %s: %v", name, err)
				}
				val, ok := v.(float64)
				if !ok {
					return nil, fmt.Errorf("diagen: output variable %s: result %v is not a number", name, v)
				}
				out.Set(val, i, s)
			}
		}
		results[name] = out
	}
	return results, nil
}

// Output returns a function that writes the saved simulation history to a
// netCDF file: the depth and savepoint-time coordinates, then one
// [z, time] array per output variable.
func (o *Outputter) Output() ColumnManipulator {
	return func(c *Column) error {
		results, err := c.Results(o)
		if err != nil {
			return err
		}

		// Sort the names so they write in the same order every time.
		vars := make([]string, 0, len(results))
		for v := range results {
			vars = append(vars, v)
		}
		sort.Strings(vars)

		h := cdf.NewHeader([]string{"z", "time"},
			[]int{len(c.cells), len(c.savepoints)})
		h.AddAttribute("", "comment", "sediment column early-diagenesis simulation results")
		h.AddAttribute("", "data_version", DataVersion)
		h.AddAttribute("", "dz", []float64{c.cells[0].Dz})
		h.AddAttribute("", "dt", []float64{c.Dt})

		h.AddVariable("z", []string{"z"}, []float64{0})
		h.AddAttribute("z", "units", "m")
		h.AddVariable("time", []string{"time"}, []float64{0})
		h.AddAttribute("time", "units", "yr")
		for _, v := range vars {
			h.AddVariable(v, []string{"z", "time"}, []float64{0})
			h.AddAttribute(v, "units", o.variableUnits(c, v))
			h.AddAttribute(v, "actual_range",
				[]float64{floats.Min(results[v].Elements), floats.Max(results[v].Elements)})
		}
		h.Define()

		ff, err := os.Create(o.fileName)
		if err != nil {
			return fmt.Errorf("diagen: creating output file: %v", err)
		}
		defer ff.Close()
		f, err := cdf.Create(ff, h) // writes the header to ff
		if err != nil {
			return fmt.Errorf("diagen: writing output file header: %v", err)
		}

		if err := writeNCF(f, "z", c.Depths()); err != nil {
			return fmt.Errorf("diagen: writing depth coordinate: %v", err)
		}
		if err := writeNCF(f, "time", c.SaveTimes()); err != nil {
			return fmt.Errorf("diagen: writing time coordinate: %v", err)
		}
		for _, v := range vars {
			if err := writeNCF(f, v, results[v].Elements); err != nil {
				return fmt.Errorf("diagen: writing variable %s to output file: %v", v, err)
			}
		}
		return cdf.UpdateNumRecs(ff)
	}
}

// variableUnits returns the units an output variable inherits from the
// tracers its expression references. An expression that mixes tracers
// with different units gets no units attribute.
func (o *Outputter) variableUnits(c *Column, name string) string {
	expression, err := govaluate.NewEvaluableExpressionWithFunctions(
		o.outputVariables[name], o.outputFunctions)
	if err != nil {
		return ""
	}
	var units string
	for _, v := range removeDuplicates(expression.Vars()) {
		i := c.TracerIndex(v)
		if i < 0 {
			continue
		}
		u := c.tracers[i].Units
		if units == "" {
			units = u
		} else if u != units {
			c.addWarning("output variable %s mixes units %s and %s", name, units, u)
			return ""
		}
	}
	return units
}

// writeNCF writes data to variable Var, which must already be defined in
// the file header with matching dimensions.
func writeNCF(f *cdf.File, Var string, data []float64) error {
	end := f.Header.Lengths(Var)
	n := 1
	for _, v := range end {
		n *= v
	}
	if len(data) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data))
	}
	start := make([]int, len(end))
	w := f.Writer(Var, start, end)
	_, err := w.Write(data)
	return err
}

// SimulationResults holds a saved simulation history read back from a
// results file.
type SimulationResults struct {
	Z    []float64 // interior node depths [m]
	Time []float64 // savepoint times [yr]

	// Data holds the saved output variables, indexed [node, savepoint].
	Data  map[string]*sparse.DenseArray
	Units map[string]string
}

// ReadResults reads a results file written by Outputter.Output.
func ReadResults(r cdf.ReaderWriterAt) (*SimulationResults, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("diagen.ReadResults: %v", err)
	}
	dataVersion, ok := f.Header.GetAttribute("", "data_version").(string)
	if !ok || dataVersion != DataVersion {
		return nil, fmt.Errorf("diagen.ReadResults: data version %v is incompatible "+
			"with the required version %s", dataVersion, DataVersion)
	}

	o := &SimulationResults{
		Data:  make(map[string]*sparse.DenseArray),
		Units: make(map[string]string),
	}
	for _, v := range f.Header.Variables() {
		rr := f.Reader(v, nil, nil)
		buf := rr.Zero(-1)
		if _, err := rr.Read(buf); err != nil {
			return nil, fmt.Errorf("diagen.ReadResults: reading variable %s: %v", v, err)
		}
		vals := buf.([]float64)
		switch v {
		case "z":
			o.Z = vals
		case "time":
			o.Time = vals
		default:
			data := sparse.ZerosDense(f.Header.Lengths(v)...)
			copy(data.Elements, vals)
			o.Data[v] = data
			if u, ok := f.Header.GetAttribute(v, "units").(string); ok {
				o.Units[v] = u
			}
		}
	}
	return o, nil
}
