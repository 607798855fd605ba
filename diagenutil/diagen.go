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
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sedimentmodel/diagen"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logger *logrus.Logger

func init() {
	logger = logrus.StandardLogger()
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	})
}

// Run runs a simulation of the sediment column.
//
// ctx, if non-nil, can be used to cancel the simulation between steps.
//
// CobraCommand is the cobra.Command instance where Run is called from.
//
// LogFile is the path to the desired logfile location. It can include
// environment variables.
//
// OutputFile is the path where the netCDF results file should be written.
// It can include environment variables.
//
// OutputVariables specifies which model variables should be included in
// the output file. Each is an expression over the tracer names.
//
// CheckpointFile, if non-empty, is a path where the final column state is
// saved so a later invocation can resume from it; if resume is true the
// column is loaded from CheckpointFile instead of being built from cfg,
// and the run continues until it covers cfg.Duration of simulated time.
//
// HTTPAddress, if non-empty, is the address to serve the profile-viewer
// web interface at during the simulation.
//
// cfg provides the column geometry, forcing and numerical settings, and
// m the reaction mechanism. addInit, addRun, and addCleanup specify
// functions beyond the default functions to run at initialization,
// runtime, and cleanup, respectively.
func Run(ctx context.Context, CobraCommand *cobra.Command, LogFile, OutputFile string,
	OutputVariables map[string]string, CheckpointFile string, resume bool, HTTPAddress string,
	cfg *diagen.ColumnConfig, m diagen.Mechanism,
	addInit, addRun, addCleanup []diagen.ColumnManipulator) error {

	startTime := time.Now()

	logfile, err := os.Create(LogFile)
	if err != nil {
		return fmt.Errorf("diagen: problem creating log file: %v", err)
	}
	defer logfile.Close()
	mw := io.MultiWriter(CobraCommand.OutOrStdout(), logfile)

	// Each simulation gets its own logger so that concurrent batch runs
	// keep separate log files.
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	})
	log.SetOutput(mw)

	o, err := diagen.NewOutputter(OutputFile, OutputVariables, nil)
	if err != nil {
		return err
	}
	log.Info("Parsing output variable expressions...")

	// Start a function to receive and print warning messages.
	statusChan := make(chan diagen.SimulationStatus)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		for msg := range statusChan {
			if msg.Warning != "" {
				log.Warn(msg.Warning)
			}
		}
		wg.Done()
	}()
	defer func() { // Wait for the logging to finish.
		close(statusChan)
		wg.Wait()
	}()

	var initFuncs []diagen.ColumnManipulator
	if resume {
		var r *os.File
		r, err = os.Open(CheckpointFile)
		if err != nil {
			return fmt.Errorf("diagen: problem opening checkpoint file: %v", err)
		}
		defer r.Close()
		initFuncs = []diagen.ColumnManipulator{
			diagen.Load(r),
			diagen.ExtendRun(cfg.Duration, cfg.SaveStride),
			diagen.StabilityCheck(),
			o.CheckOutputVars(),
			diagen.HTMLUI(HTTPAddress, m),
		}
	} else {
		initFuncs = []diagen.ColumnManipulator{
			diagen.SedimentGrid(cfg, m),
			diagen.StabilityCheck(),
			o.CheckOutputVars(),
			diagen.HTMLUI(HTTPAddress, m),
		}
	}

	runFuncs := []diagen.ColumnManipulator{
		diagen.Calculations(diagen.AdvanceState()),
		diagen.BoundaryConditions(),
		diagen.Calculations(
			diagen.SoluteAdvection(m),
			diagen.SolidAdvection(m),
			diagen.Diffusion(m),
			diagen.Irrigation(m),
		),
		diagen.Calculations(m.Reaction()),
		diagen.StepLimit(),
		diagen.Snapshot(),
		diagen.Log(mw),
	}
	if ctx != nil {
		runFuncs = append(runFuncs, diagen.CheckContext(ctx))
	}

	cleanupFuncs := []diagen.ColumnManipulator{o.Output()}
	if CheckpointFile != "" {
		cleanupFuncs = append(cleanupFuncs, saveCheckpoint(CheckpointFile))
	}

	col := &diagen.Column{
		InitFuncs:    append(initFuncs, addInit...),
		RunFuncs:     append(runFuncs, addRun...),
		CleanupFuncs: append(cleanupFuncs, addCleanup...),
		StatusChan:   statusChan,
	}

	log.Info("Initializing model...")
	if err = col.Init(); err != nil {
		return fmt.Errorf("diagen: problem initializing model: %v", err)
	}

	for _, t := range col.Tracers() {
		if t.DepositionFlux != 0 {
			log.Infof("%s deposition: %g mol/m²/yr", t.Name, t.DepositionFlux)
		}
	}
	log.Infof("Simulating %d steps of %g yr...", col.NSteps, col.Dt)

	if err = col.Run(); err != nil {
		return fmt.Errorf("diagen: problem running simulation: %v", err)
	}

	if err = col.Cleanup(); err != nil {
		return fmt.Errorf("diagen: problem shutting down model: %v", err)
	}

	elapsedTime := time.Since(startTime)
	log.Infof("Elapsed time: %f hours", elapsedTime.Hours())

	return nil
}

// saveCheckpoint writes the column state to path so a later run can
// resume from it.
func saveCheckpoint(path string) diagen.ColumnManipulator {
	return func(c *diagen.Column) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("diagen: problem creating checkpoint file: %v", err)
		}
		defer f.Close()
		return diagen.Save(f)(c)
	}
}
