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
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/gobra"
	"github.com/lnashier/viper"
	"github.com/sedimentmodel/diagen"
	"github.com/sedimentmodel/diagen/science/oxic"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to Diagen.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Column.Depth",
			usage: `
              Column.Depth specifies the modeled sediment depth below the
              sediment-water interface [m].`,
			defaultVal: 0.5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.DeltaZ",
			usage: `
              Column.DeltaZ specifies the uniform depth-node spacing [m].`,
			defaultVal: 0.005,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.Duration",
			usage: `
              Column.Duration specifies the simulated time [yr].`,
			defaultVal: 10.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.DeltaT",
			usage: `
              Column.DeltaT specifies the timestep [yr]. The default is
              a quarter hour, which keeps the default grid inside the
              explicit stability limits.`,
			defaultVal: 1. / 35040.,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.SaveStride",
			usage: `
              Column.SaveStride specifies the number of steps between
              state snapshots. The default is one simulated year of
              steps, and the final step is always snapshotted.`,
			defaultVal: 35040,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.PhiSurface",
			usage: `
              Column.PhiSurface specifies the porosity at the
              sediment-water interface.`,
			defaultVal: 0.85,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.PhiBottom",
			usage: `
              Column.PhiBottom specifies the porosity at infinite depth.`,
			defaultVal: 0.74,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.PhiAttenuation",
			usage: `
              Column.PhiAttenuation specifies the exponential attenuation
              coefficient of the porosity profile [1/m].`,
			defaultVal: 33.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.DBLThickness",
			usage: `
              Column.DBLThickness specifies the thickness of the diffusive
              boundary layer above the sediment-water interface [m].`,
			defaultVal: 1.e-3,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.SolidDensity",
			usage: `
              Column.SolidDensity specifies the sediment grain density
              [kg/m³].`,
			defaultVal: 2650.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.ClayFlux",
			usage: `
              Column.ClayFlux specifies the deposition flux of
              non-organic solids [g/m²/yr].`,
			defaultVal: 32.5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.Temperature",
			usage: `
              Column.Temperature specifies the bottom-water temperature
              [°C].`,
			defaultVal: 1.4,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.Salinity",
			usage: `
              Column.Salinity specifies the bottom-water practical
              salinity.`,
			defaultVal: 34.69,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.Pressure",
			usage: `
              Column.Pressure specifies the bottom-water pressure [dbar].`,
			defaultVal: 3855.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.BottomWaterO2",
			usage: `
              Column.BottomWaterO2 specifies the bottom-water dissolved
              oxygen concentration [μmol/kg].`,
			defaultVal: 159.7,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.BottomWaterDIC",
			usage: `
              Column.BottomWaterDIC specifies the bottom-water dissolved
              inorganic carbon concentration [μmol/kg].`,
			defaultVal: 2324.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.BottomWaterPO4",
			usage: `
              Column.BottomWaterPO4 specifies the bottom-water phosphate
              concentration [μmol/kg]. Set it negative if phosphate was
              not measured; the Redfield carbon:phosphorus ratio is used
              instead of a phosphate-dependent one.`,
			defaultVal: 2.39,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.POMFlux",
			usage: `
              Column.POMFlux specifies the deposition flux of particulate
              organic matter [g/m²/yr].`,
			defaultVal: 36.45,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.FracFast",
			usage: `
              Column.FracFast specifies the fraction of the organic-matter
              flux in the fast-degrading pool.`,
			defaultVal: 0.70,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.FracSlow",
			usage: `
              Column.FracSlow specifies the fraction of the organic-matter
              flux in the slow-degrading pool.`,
			defaultVal: 0.25,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.FracRefractory",
			usage: `
              Column.FracRefractory specifies the fraction of the
              organic-matter flux that does not degrade.`,
			defaultVal: 0.05,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.FastLambda",
			usage: `
              Column.FastLambda specifies the degradation length scale of
              the fast organic-matter pool [m].`,
			defaultVal: 0.0025,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.SlowLambda",
			usage: `
              Column.SlowLambda specifies the degradation length scale of
              the slow organic-matter pool [m].`,
			defaultVal: 0.01,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.BioturbationLambda",
			usage: `
              Column.BioturbationLambda specifies the attenuation length
              scale of bioturbation mixing [m].`,
			defaultVal: 0.08,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.IrrigationLambda",
			usage: `
              Column.IrrigationLambda specifies the attenuation length
              scale of bio-irrigation [m].`,
			defaultVal: 0.05,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.InitialConc",
			usage: `
              Column.InitialConc overrides the default uniform initial
              concentration of the named tracers [mol/m³].`,
			defaultVal: map[string]float64{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "Column.InitialProfile",
			usage: `
              Column.InitialProfile overrides the initial condition of the
              named tracers with a full depth profile, one value per
              interior node [mol/m³].`,
			defaultVal: map[string][]float64{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile specifies the path to the netCDF results file.`,
			defaultVal: "diagen_output.nc",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), plotCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the path to the simulation log file. If
              LogFile is left blank, the log file will be saved in the
              same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which model variables should be
              included in the output file. Each can be an expression over
              the tracer names, for example
              "POCtotal = POCfast + POCslow + POCrefractory".`,
			defaultVal: map[string]string{
				"O2":       "O2",
				"DIC":      "DIC",
				"POCtotal": "POCfast + POCslow + POCrefractory",
			},
			flagsets: []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "CheckpointFile",
			usage: `
              CheckpointFile specifies a path where the final column state
              is saved, so a later invocation can resume from it. If it is
              left blank, no checkpoint is written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "resume",
			usage: `
              resume specifies whether to load the starting column state
              from CheckpointFile instead of building a new column from
              the configuration. The resumed run continues until it
              covers Column.Duration of simulated time.`,
			shorthand:  "r",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "HTTPAddress",
			usage: `
              HTTPAddress specifies the address to serve the profile
              viewer web interface at while the simulation runs (for
              example "localhost:8080"). If it is left blank, the viewer
              won't run.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), templateCmd.Flags()},
		},
		{
			name: "PlotFile",
			usage: `
              PlotFile specifies the path to the profile figure written by
              the plot command.`,
			defaultVal: "diagen_profiles.png",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "species",
			usage: `
              species specifies which output variables to draw. If it is
              empty, all variables in the results file are drawn.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "configs",
			usage: `
              configs specifies the configuration files of the simulations
              to run as a batch.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{batchCmd.Flags()},
		},
		{
			name: "maxjobs",
			usage: `
              maxjobs specifies the largest number of batch simulations
              allowed to run at the same time.`,
			defaultVal: 4,
			flagsets:   []*pflag.FlagSet{batchCmd.Flags()},
		},
		{
			name: "TemplateFile",
			usage: `
              TemplateFile specifies the path where the template command
              writes its configuration file.`,
			defaultVal: "diagen_config.toml",
			flagsets:   []*pflag.FlagSet{templateCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("DIAGEN")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string, map[string]float64, map[string][]float64:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(plotCmd)
	Root.AddCommand(templateCmd)
	Root.AddCommand(batchCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("diagen: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "diagen",
	Short: "A one-dimensional model of early diagenesis in marine sediments.",
	Long: `Diagen simulates the evolution of porewater and solid chemistry in the
upper layer of the seafloor: oxygen, dissolved inorganic carbon and
degrading organic-carbon pools on a one-dimensional depth grid.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'DIAGEN_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of Diagen.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Diagen v%s\n", diagen.Version)
		cmd.Printf("Diagen v%s\n", diagen.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that runs a transient simulation.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run simulates the sediment column over the configured duration,
starting either from the mechanism's initial conditions or from a
previously saved checkpoint, and writes the saved history to a netCDF
results file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFromConfig(context.Background(), cmd, Cfg)
	},
	DisableAutoGenTag: true,
}

// plotCmd is a command that draws profile figures from saved results.
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot simulation results.",
	Long: `plot draws depth profiles of the saved output variables from a results
file written by a previous run, at a subset of the saved times.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Plot(
			Cfg.GetString("OutputFile"),
			Cfg.GetString("PlotFile"),
			expandStringSlice(Cfg.GetStringSlice("species")),
		)
	},
	DisableAutoGenTag: true,
}

// templateCmd is a command that writes out a configuration file.
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write out a configuration file.",
	Long: `template writes a TOML configuration file holding the current
configuration (the defaults merged with any loaded configuration file,
command-line arguments and environment variables), as a starting point
for editing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Template(os.ExpandEnv(Cfg.GetString("TemplateFile")))
	},
	DisableAutoGenTag: true,
}

// batchCmd is a command that runs several simulations concurrently.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a batch of simulations.",
	Long: `batch runs one simulation for each of the given configuration files,
at most maxjobs of them at a time. If one simulation fails, the
remaining ones are cancelled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configs := expandStringSlice(Cfg.GetStringSlice("configs"))
		if len(configs) == 0 {
			return fmt.Errorf("diagen: no configuration files specified for the batch")
		}
		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(Cfg.GetInt("maxjobs"))
		for _, cfile := range configs {
			cfile := cfile
			g.Go(func() error {
				cfg := viper.New()
				for _, option := range options {
					cfg.SetDefault(option.name, option.defaultVal)
				}
				cfg.SetConfigFile(cfile)
				if err := cfg.ReadInConfig(); err != nil {
					return fmt.Errorf("diagen: problem reading configuration file %s: %v", cfile, err)
				}
				return runFromConfig(ctx, cmd, cfg)
			})
		}
		return g.Wait()
	},
	DisableAutoGenTag: true,
}

// runFromConfig assembles a simulation from cfg and runs it.
func runFromConfig(ctx context.Context, cmd *cobra.Command, cfg *viper.Viper) error {
	ccfg, err := ColumnConfig(cfg)
	if err != nil {
		return err
	}
	outputFile, err := checkOutputFile(cfg.GetString("OutputFile"))
	if err != nil {
		return err
	}
	outputVars, err := checkOutputVars(GetStringMapString("OutputVariables", cfg))
	if err != nil {
		return err
	}
	m, err := oxic.NewMechanism(ccfg)
	if err != nil {
		return err
	}
	return Run(ctx, cmd,
		checkLogFile(os.ExpandEnv(cfg.GetString("LogFile")), outputFile),
		outputFile,
		outputVars,
		os.ExpandEnv(cfg.GetString("CheckpointFile")),
		cfg.GetBool("resume"),
		cfg.GetString("HTTPAddress"),
		ccfg, m, nil, nil, nil)
}

// configTemplate is the layout of the file written by the template
// command.
type configTemplate struct {
	OutputFile      string
	LogFile         string
	CheckpointFile  string
	HTTPAddress     string
	OutputVariables map[string]string
	Column          diagen.ColumnConfig
}

// Template writes the current configuration to a TOML file at path.
func Template(path string) error {
	ccfg, err := ColumnConfig(Cfg)
	if err != nil {
		return err
	}
	if ccfg.InitialConc == nil {
		ccfg.InitialConc = map[string]float64{}
	}
	if ccfg.InitialProfile == nil {
		ccfg.InitialProfile = map[string][]float64{}
	}
	t := configTemplate{
		OutputFile:      Cfg.GetString("OutputFile"),
		LogFile:         Cfg.GetString("LogFile"),
		CheckpointFile:  Cfg.GetString("CheckpointFile"),
		HTTPAddress:     Cfg.GetString("HTTPAddress"),
		OutputVariables: GetStringMapString("OutputVariables", Cfg),
		Column:          *ccfg,
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("diagen: problem creating configuration file: %v", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(t); err != nil {
		return fmt.Errorf("diagen: problem writing configuration file: %v", err)
	}
	return nil
}

// StartWebServer starts the web server.
func StartWebServer() {
	setConfig() // Ignore any errors for now.

	http.HandleFunc("/setConfig", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		configFile := r.Form["config"][0]
		Root.Flags().Set("config", configFile)
		err := setConfig()
		if err != nil {
			http.Error(w, err.Error(), 204)
			return
		}
		config := make(map[string]interface{})
		for _, option := range options {
			config[option.name] = Cfg.Get(option.name)
		}
		e := json.NewEncoder(w)
		if err := e.Encode(config); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
	})

	logger.Info("Loading front-end...")

	for _, cmd := range []*cobra.Command{Root, versionCmd, runCmd, plotCmd,
		templateCmd, batchCmd} {
		cmd.SilenceUsage = true // We don't want the usage messages in the GUI.
	}

	const address = "localhost:7272"
	const tmpl = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Diagen</title>
	<style>
		html, body {padding: 0; margin: 2% 0; font-family: sans-serif;}
		.container { max-width: 700px; margin: 0 auto; padding: 10px; }
		div[id^="gobra-"] blockquote { border-left: 3px solid #bbb; margin: .3em; color: #333; padding-left: 5px; font-size: 75%; }
		div[id^="gobra-"] code { font-weight: bold; }
		div[id^="gobra-"] input { font-family: monospace; margin-left: .2em; width: 50%; outline:none; }
	</style>
</head>
<body>
<div class="container">
	<h1>Diagen</h1>
	<p>Configure the simulation below.</p>
	<div>
		{{.}}
	</div>
	<footer>
		© 2018 Diagen Authors
	</footer>
</div>

<script>
// If the configuration file is changed, send the new file path
// to the server and update the fields.

let allFlags = [...document.querySelectorAll('[data-name]')];
let configInput = allFlags.filter(x => x.dataset.name == "config")[0].children[0];
configInput.addEventListener("input", e => {
	fetch("http://` + address + `/setConfig?config="+configInput.value)
		.then( res => {
			if (res.status !== 200) {
				console.log("Error fetching /setConfig: ", res.status);
				return;
			}
			res.json().then( data => {
				for (let key in data)
					for (let f of allFlags)
						if (f.dataset.name == key) {
							let input = f.children[0];
							var newValue = JSON.stringify(data[key]).replace(/^"+|"+$/g,'');
							if (input.value != newValue)
								input.value = newValue;
						}
			})
		})
		.catch( err => {
			console.log("Error fetching /setConfig", err)
		})
})
</script>
</body>
</html>`

	output := template.Must(template.New("").Parse(tmpl))
	server := gobra.Server{Root: Root, ServerAddress: address, AllowCORS: false, HTML: output}
	logger.Info("Server starting... ")
	open.Run("http://" + address)
	fmt.Println("If not opened automatically, please visit http://" + address)
	server.Start()
}
