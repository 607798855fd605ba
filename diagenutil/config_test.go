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
	"reflect"
	"strings"
	"testing"

	"github.com/lnashier/viper"
)

func TestColumnConfig(t *testing.T) {
	cfg := viper.New()
	cfg.SetConfigFile("../cmd/diagen/configExample.toml")
	if err := cfg.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	ccfg, err := ColumnConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if ccfg.Depth != 0.5 {
		t.Errorf("depth is %g but should be 0.5", ccfg.Depth)
	}
	if ccfg.DeltaZ != 0.005 {
		t.Errorf("node spacing is %g but should be 0.005", ccfg.DeltaZ)
	}
	if ccfg.SaveStride != 35040 {
		t.Errorf("save stride is %d but should be 35040", ccfg.SaveStride)
	}
	if got := ccfg.NumSteps(); got != 350400 {
		t.Errorf("step count is %d but should be 350400", got)
	}
	if ccfg.BottomWaterPO4 != 2.39 {
		t.Errorf("bottom-water phosphate is %g but should be 2.39", ccfg.BottomWaterPO4)
	}
	if ccfg.FracFast != 0.70 {
		t.Errorf("fast fraction is %g but should be 0.70", ccfg.FracFast)
	}
	if len(ccfg.InitialConc) != 0 {
		t.Errorf("initial concentrations should be empty, got %v", ccfg.InitialConc)
	}

	cfg.Set("Column.Duration", 0.)
	if _, err := ColumnConfig(cfg); err == nil || !strings.Contains(err.Error(), "should be >0") {
		t.Errorf("a zero duration should be rejected, got %v", err)
	}
}

func TestGetStringMapFloat64(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		cfg := viper.New()
		cfg.Set("Column.InitialConc", `{"O2": 0.15, "POCfast": 20}`)
		m, err := getStringMapFloat64("Column.InitialConc", cfg)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]float64{"O2": 0.15, "POCfast": 20}
		if !reflect.DeepEqual(m, want) {
			t.Errorf("%v != %v", m, want)
		}
	})
	t.Run("toml", func(t *testing.T) {
		f, err := os.Create("tmp_conc.toml")
		if err != nil {
			t.Fatal(err)
		}
		defer os.Remove("tmp_conc.toml")
		fmt.Fprint(f, "[Column.InitialConc]\nO2 = 0.15\nPOCfast = 20.0\n")
		f.Close()
		cfg := viper.New()
		cfg.SetConfigFile("tmp_conc.toml")
		if err := cfg.ReadInConfig(); err != nil {
			t.Fatal(err)
		}
		m, err := getStringMapFloat64("Column.InitialConc", cfg)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]float64{"O2": 0.15, "POCfast": 20}
		if !reflect.DeepEqual(m, want) {
			t.Errorf("%v != %v", m, want)
		}
	})
	t.Run("empty", func(t *testing.T) {
		cfg := viper.New()
		m, err := getStringMapFloat64("Column.InitialConc", cfg)
		if err != nil {
			t.Fatal(err)
		}
		if m != nil {
			t.Errorf("an unset variable should give a nil map, got %v", m)
		}
	})
	t.Run("invalid", func(t *testing.T) {
		cfg := viper.New()
		cfg.Set("Column.InitialConc", `{"O2": "high"}`)
		if _, err := getStringMapFloat64("Column.InitialConc", cfg); err == nil {
			t.Error("a non-numeric concentration should be rejected")
		}
	})
}

func TestGetStringMapFloat64Slice(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		cfg := viper.New()
		cfg.Set("Column.InitialProfile", `{"POCslow": [1, 2.5, 0]}`)
		m, err := getStringMapFloat64Slice("Column.InitialProfile", cfg)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string][]float64{"POCslow": {1, 2.5, 0}}
		if !reflect.DeepEqual(m, want) {
			t.Errorf("%v != %v", m, want)
		}
	})
	t.Run("invalid", func(t *testing.T) {
		cfg := viper.New()
		cfg.Set("Column.InitialProfile", `{"POCslow": 3}`)
		if _, err := getStringMapFloat64Slice("Column.InitialProfile", cfg); err == nil {
			t.Error("a scalar profile should be rejected")
		}
	})
}

func TestCheckOutputVars(t *testing.T) {
	if _, err := checkOutputVars(nil); err == nil {
		t.Error("an empty output variable map should be rejected")
	}
	vars, err := checkOutputVars(map[string]string{"a": "O2 +\nDIC"})
	if err != nil {
		t.Fatal(err)
	}
	if got := vars["a"]; got != "O2 + DIC" {
		t.Errorf("expression is %q but should be %q", got, "O2 + DIC")
	}
}

func TestCheckOutputFile(t *testing.T) {
	if _, err := checkOutputFile(""); err == nil {
		t.Error("an empty output file path should be rejected")
	}
	if _, err := checkOutputFile("definitely/missing/dir/out.nc"); err == nil {
		t.Error("a missing output directory should be rejected")
	}
	f, err := checkOutputFile("tmp_out.nc")
	if err != nil {
		t.Fatal(err)
	}
	if f != "tmp_out.nc" {
		t.Errorf("output file is %q but should be %q", f, "tmp_out.nc")
	}
}

func TestCheckLogFile(t *testing.T) {
	if got := checkLogFile("", "results/out.nc"); got != "results/out.log" {
		t.Errorf("default log file is %q but should be %q", got, "results/out.log")
	}
	if got := checkLogFile("run.log", "results/out.nc"); got != "run.log" {
		t.Errorf("log file is %q but should be %q", got, "run.log")
	}
}
