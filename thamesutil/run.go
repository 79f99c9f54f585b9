/*
Copyright © 2024 the THAMES authors.
This file is part of THAMES.

THAMES is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

THAMES is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with THAMES.  If not, see <http://www.gnu.org/licenses/>.
*/

package thamesutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/thamesmodel/thames"
	"github.com/thamesmodel/thames/science/chem/simplechem"
	"github.com/thamesmodel/thames/science/mech/simplemech"
	"gopkg.in/yaml.v3"
)

// Parameters is the record of a run written to
// <JobRoot>-parameters_used.yaml.
type Parameters struct {
	RunID   string         `yaml:"runid"`
	Version string         `yaml:"version"`
	SimType string         `yaml:"simtype"`
	Started time.Time      `yaml:"started"`
	Files   InputFiles     `yaml:"files"`
	Config  *thames.Config `yaml:"config"`
	// CheckpointInterval is the number of cycles between checkpoints.
	CheckpointInterval int `yaml:"checkpointinterval"`
}

// Run runs a simulation.
//
// CobraCommand is the cobra.Command instance where Run is called from. Log
// messages are written to its output and to files.Log, which defaults to
// <OutputDir>/<JobRoot>.log.
//
// cfg is validated after any missing temperature has been filled in from
// the chemical system. files gives the input files; the kinetics file is
// optional and the mechanics file is only read for sulfate attack.
//
// A checkpoint is saved every checkpointInterval cycles if
// checkpointInterval > 0.
//
// Run returns nil if the simulation completes or stops gracefully. If it
// fails, a description of the failure is written to the command output and
// to standard error and the error is returned.
func Run(CobraCommand *cobra.Command, cfg *thames.Config, files InputFiles, checkpointInterval int) error {
	startTime := time.Now()
	runID := uuid.New().String()

	files.Log = checkLogFile(files.Log, cfg)
	logfile, err := os.Create(files.Log)
	if err != nil {
		return fmt.Errorf("thames: problem creating log file: %v", err)
	}
	defer logfile.Close()
	mw := io.MultiWriter(CobraCommand.OutOrStdout(), logfile)

	log := logrus.New()
	log.Out = mw
	switch {
	case Cfg.GetBool("verbose"):
		log.SetLevel(logrus.DebugLevel)
	case Cfg.GetBool("suppress"):
		log.SetLevel(logrus.WarnLevel)
	}
	rlog := log.WithField("run", runID)

	fail := func(err error) error {
		thames.Report(CobraCommand.OutOrStdout(), err)
		thames.Report(os.Stderr, err)
		return err
	}

	c, err := setup(cfg, files, checkpointInterval, rlog, mw)
	if err != nil {
		return fail(err)
	}

	p := Parameters{
		RunID:              runID,
		Version:            thames.Version,
		SimType:            cfg.SimType.String(),
		Started:            startTime,
		Files:              files,
		Config:             cfg,
		CheckpointInterval: checkpointInterval,
	}
	if err := writeParameters(filepath.Join(cfg.OutputDir, cfg.JobRoot+"-parameters_used.yaml"), &p); err != nil {
		return fail(err)
	}

	rlog.WithFields(logrus.Fields{"simtype": cfg.SimType, "times": len(c.Times())}).Info("starting simulation")
	o := c.Run()

	metricsFile := filepath.Join(cfg.OutputDir, cfg.JobRoot+"_metrics.prom")
	if err := thames.WriteMetrics(metricsFile); err != nil {
		rlog.WithError(err).Warn("writing metrics")
	}

	elapsedTime := time.Since(startTime)
	switch o.Kind {
	case thames.Fatal:
		rlog.WithError(o.Err).Error("simulation failed")
		return fail(o.Err)
	case thames.GracefulStop:
		rlog.WithField("reason", o.Reason).Info("simulation stopped")
	}
	rlog.Infof("Elapsed time: %f hours", elapsedTime.Hours())
	return nil
}

// setup reads the input files and creates the simulation controller.
func setup(cfg *thames.Config, files InputFiles, checkpointInterval int, log logrus.FieldLogger, w io.Writer) (*thames.Controller, error) {
	img, err := thames.ReadImageFile(files.Microstructure)
	if err != nil {
		return nil, err
	}
	chem, err := simplechem.ReadFile(files.Chemistry)
	if err != nil {
		return nil, err
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = chem.Temperature()
	}
	chem.SetTemperature(cfg.Temperature)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var laws []*thames.RateLaw
	if files.Kinetics != "" {
		if laws, err = readRateLaws(files.Kinetics); err != nil {
			return nil, err
		}
	}

	lat, err := thames.NewLattice(cfg, chem, img, log)
	if err != nil {
		return nil, err
	}
	if cfg.SimType == thames.SulfateAttack {
		mech, err := readMechanics(files.Mechanics, lat, chem)
		if err != nil {
			return nil, err
		}
		lat.SetMechanics(mech)
	}

	kin, err := thames.NewKineticController(cfg, chem, lat, laws, log)
	if err != nil {
		return nil, err
	}
	out, err := thames.NewOutputter(cfg.OutputDir, cfg.JobRoot, cfg.OutputVariables, nil)
	if err != nil {
		return nil, err
	}
	c, err := thames.NewController(cfg, lat, kin, chem, out, log)
	if err != nil {
		return nil, err
	}
	c.CycleFuncs = []thames.CycleFunc{
		thames.Log(w),
		thames.SaveCheckpoints(cfg.OutputDir, cfg.JobRoot, checkpointInterval),
	}
	return c, nil
}

func readRateLaws(filename string) ([]*thames.RateLaw, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &thames.FileError{Where: thames.Where{Class: "thamesutil", Function: "readRateLaws"},
			File: filename, Op: "open", Err: err}
	}
	defer f.Close()
	return thames.ReadRateLaws(f)
}

func readMechanics(filename string, lat *thames.Lattice, chem thames.ChemicalSystem) (*simplemech.Solver, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &thames.FileError{Where: thames.Where{Class: "thamesutil", Function: "readMechanics"},
			File: filename, Op: "open", Err: err}
	}
	defer f.Close()
	props, err := simplemech.ReadProperties(f)
	if err != nil {
		return nil, err
	}
	return simplemech.New(lat, chem, props)
}

// writeParameters records the settings of a run in YAML format.
func writeParameters(filename string, p *Parameters) error {
	b, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("thames: encoding run parameters: %v", err)
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		return &thames.FileError{Where: thames.Where{Class: "thamesutil", Function: "writeParameters"},
			File: filename, Op: "write", Err: err}
	}
	return nil
}

// OutputOptions writes the names and descriptions of the variables that
// output expressions can use for the given microstructure and chemical
// system.
func OutputOptions(w io.Writer, files InputFiles) error {
	img, err := thames.ReadImageFile(files.Microstructure)
	if err != nil {
		return err
	}
	chem, err := simplechem.ReadFile(files.Chemistry)
	if err != nil {
		return err
	}
	cfg := thames.DefaultConfig()
	log := logrus.New()
	log.Out = io.Discard
	lat, err := thames.NewLattice(cfg, chem, img, log)
	if err != nil {
		return err
	}
	names, descriptions := lat.OutputOptions()
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for i, n := range names {
		fmt.Fprintf(tw, "%s\t%s\n", n, descriptions[i])
	}
	return tw.Flush()
}
