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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sedimentmodel/diagen"
	"github.com/spf13/cast"
)

// checkOutputVars removes end lines and expands environment
// variables in the output variable expressions.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again.")
	}
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		vars[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return vars, nil
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.nc")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("diagen: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// ColumnConfig unmarshals a viper configuration for a sediment column.
func ColumnConfig(cfg *viper.Viper) (*diagen.ColumnConfig, error) {
	initialConc, err := getStringMapFloat64("Column.InitialConc", cfg)
	if err != nil {
		return nil, fmt.Errorf("Column.InitialConc: %v", err)
	}
	initialProfile, err := getStringMapFloat64Slice("Column.InitialProfile", cfg)
	if err != nil {
		return nil, fmt.Errorf("Column.InitialProfile: %v", err)
	}
	c := diagen.ColumnConfig{
		Depth:              cfg.GetFloat64("Column.Depth"),
		DeltaZ:             cfg.GetFloat64("Column.DeltaZ"),
		Duration:           cfg.GetFloat64("Column.Duration"),
		DeltaT:             cfg.GetFloat64("Column.DeltaT"),
		SaveStride:         cfg.GetInt("Column.SaveStride"),
		PhiSurface:         cfg.GetFloat64("Column.PhiSurface"),
		PhiBottom:          cfg.GetFloat64("Column.PhiBottom"),
		PhiAttenuation:     cfg.GetFloat64("Column.PhiAttenuation"),
		DBLThickness:       cfg.GetFloat64("Column.DBLThickness"),
		SolidDensity:       cfg.GetFloat64("Column.SolidDensity"),
		ClayFlux:           cfg.GetFloat64("Column.ClayFlux"),
		Temperature:        cfg.GetFloat64("Column.Temperature"),
		Salinity:           cfg.GetFloat64("Column.Salinity"),
		Pressure:           cfg.GetFloat64("Column.Pressure"),
		BottomWaterO2:      cfg.GetFloat64("Column.BottomWaterO2"),
		BottomWaterDIC:     cfg.GetFloat64("Column.BottomWaterDIC"),
		BottomWaterPO4:     cfg.GetFloat64("Column.BottomWaterPO4"),
		POMFlux:            cfg.GetFloat64("Column.POMFlux"),
		FracFast:           cfg.GetFloat64("Column.FracFast"),
		FracSlow:           cfg.GetFloat64("Column.FracSlow"),
		FracRefractory:     cfg.GetFloat64("Column.FracRefractory"),
		FastLambda:         cfg.GetFloat64("Column.FastLambda"),
		SlowLambda:         cfg.GetFloat64("Column.SlowLambda"),
		BioturbationLambda: cfg.GetFloat64("Column.BioturbationLambda"),
		IrrigationLambda:   cfg.GetFloat64("Column.IrrigationLambda"),
		InitialConc:        initialConc,
		InitialProfile:     initialProfile,
	}

	vars := []float64{c.Depth, c.DeltaZ, c.Duration, c.DeltaT}
	varNames := []string{"Column.Depth", "Column.DeltaZ", "Column.Duration", "Column.DeltaT"}
	for i, v := range vars {
		if !(v > 0) {
			return nil, fmt.Errorf("parsing column configuration: %s=%g but should be >0", varNames[i], v)
		}
	}
	return &c, nil
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for GetStringMapString variable %s: %#v", varName, i))
	}
}

// getStringMapFloat64 returns a map[string]float64 from a viper
// configuration, accounting for the fact that it might be a json object
// if it was set from a command line argument.
func getStringMapFloat64(varName string, cfg *viper.Viper) (map[string]float64, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return nil, nil
	case map[string]float64:
		return v, nil
	case map[string]interface{}:
		o := make(map[string]float64, len(v))
		for key, val := range v {
			f, err := cast.ToFloat64E(val)
			if err != nil {
				return nil, fmt.Errorf("value for %s: %v", key, err)
			}
			o[key] = f
		}
		return o, nil
	case string:
		if v == "" {
			return nil, nil
		}
		o := make(map[string]float64)
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("invalid type %#v", i)
	}
}

// getStringMapFloat64Slice returns a map[string][]float64 from a viper
// configuration, accounting for the fact that it might be a json object
// if it was set from a command line argument.
func getStringMapFloat64Slice(varName string, cfg *viper.Viper) (map[string][]float64, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return nil, nil
	case map[string][]float64:
		return v, nil
	case map[string]interface{}:
		o := make(map[string][]float64, len(v))
		for key, val := range v {
			s, err := cast.ToSliceE(val)
			if err != nil {
				return nil, fmt.Errorf("value for %s: %v", key, err)
			}
			fs := make([]float64, len(s))
			for j, sv := range s {
				f, err := cast.ToFloat64E(sv)
				if err != nil {
					return nil, fmt.Errorf("value for %s: %v", key, err)
				}
				fs[j] = f
			}
			o[key] = fs
		}
		return o, nil
	case string:
		if v == "" {
			return nil, nil
		}
		o := make(map[string][]float64)
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("invalid type %#v", i)
	}
}
