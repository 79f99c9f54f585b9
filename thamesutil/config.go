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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"
	"github.com/thamesmodel/thames"
)

// InputFiles holds the locations of the input files of a simulation.
type InputFiles struct {
	Microstructure string `yaml:"microstructure"`
	Chemistry      string `yaml:"chemistry"`
	Kinetics       string `yaml:"kinetics,omitempty"`
	Mechanics      string `yaml:"mechanics,omitempty"`
	Log            string `yaml:"log"`
}

// Config unmarshals a viper configuration into a simulation configuration
// for the given simulation type. The temperature is left at zero if it is
// not set, in which case Run takes it from the chemical system.
func Config(cfg *viper.Viper, simType thames.SimType) (*thames.Config, error) {
	calcTimes, err := toFloat64SliceE(cfg.Get("CalcTimes"))
	if err != nil {
		return nil, fmt.Errorf("CalcTimes: %v", err)
	}
	outTimes, err := toFloat64SliceE(cfg.Get("OutTimes"))
	if err != nil {
		return nil, fmt.Errorf("OutTimes: %v", err)
	}
	outputVars, err := GetStringMapString("OutputVariables", cfg)
	if err != nil {
		return nil, fmt.Errorf("OutputVariables: %v", err)
	}
	outDir, err := checkOutputDir(cfg.GetString("outfolder"))
	if err != nil {
		return nil, err
	}
	retries := cfg.GetInt("WriteRetries")
	if retries < 0 {
		return nil, fmt.Errorf("thames: WriteRetries=%d but should be >= 0", retries)
	}

	c := thames.DefaultConfig()
	c.JobRoot = os.ExpandEnv(cfg.GetString("JobRoot"))
	c.OutputDir = outDir
	c.SimType = simType
	c.Seed = cast.ToInt64(cfg.Get("Seed"))
	c.Temperature = cfg.GetFloat64("Temperature")
	c.RelativeHumidity = cfg.GetFloat64("RelativeHumidity")
	c.CalcTimes = calcTimes
	c.OutTimes = outTimes
	c.PorosityThreshold = cfg.GetFloat64("PorosityThreshold")
	c.ElemTimeInterval = cfg.GetFloat64("ElemTimeInterval")
	c.Bisection = thames.Bisection{
		NumGenMax:       cfg.GetInt("Bisection.NumGenMax"),
		FracNum:         cfg.GetInt("Bisection.FracNum"),
		NumMaxIntervals: cfg.GetInt("Bisection.NumMaxIntervals"),
	}
	c.CheckInvariants = cfg.GetBool("CheckInvariants")
	c.XYZ = cfg.GetBool("xyz")
	c.PNGSlice = cfg.GetInt("PNGSlice")
	c.OutputVariables = outputVars
	c.WriteRetries = uint64(retries)

	switch simType {
	case thames.Leaching:
		c.LeachTime = attackTime(cfg.GetFloat64("leachtime"))
	case thames.SulfateAttack:
		c.SulfateAttackTime = attackTime(cfg.GetFloat64("sulfatetime"))
	}
	return c, nil
}

// attackTime returns the start time of a requested leaching or sulfate
// attack simulation.
func attackTime(t float64) float64 {
	if t < 0 {
		return thames.DefaultAttackTime
	}
	return t
}

// inputFiles reads the input file locations from cfg and checks that the
// ones required for simType are given.
func inputFiles(cfg *viper.Viper, simType thames.SimType) (InputFiles, error) {
	f := InputFiles{
		Microstructure: os.ExpandEnv(cfg.GetString("Microstructure")),
		Chemistry:      os.ExpandEnv(cfg.GetString("ChemistryFile")),
		Kinetics:       os.ExpandEnv(cfg.GetString("KineticsFile")),
		Mechanics:      os.ExpandEnv(cfg.GetString("MechanicsFile")),
		Log:            os.ExpandEnv(cfg.GetString("LogFile")),
	}
	if f.Microstructure == "" {
		return f, fmt.Errorf("thames: you need to specify the initial microstructure image in the 'Microstructure' configuration variable")
	}
	if f.Chemistry == "" {
		return f, fmt.Errorf("thames: you need to specify the chemical system in the 'ChemistryFile' configuration variable")
	}
	if simType == thames.SulfateAttack && f.Mechanics == "" {
		return f, fmt.Errorf("thames: sulfate attack simulations need the elastic properties in the 'MechanicsFile' configuration variable")
	}
	return f, nil
}

// checkOutputDir expands any environment variables in the output directory
// and creates it if it doesn't exist.
func checkOutputDir(dir string) (string, error) {
	dir = os.ExpandEnv(dir)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return dir, fmt.Errorf("thames: creating the output directory: %v", err)
	}
	return dir, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile string, cfg *thames.Config) string {
	if logFile == "" {
		logFile = filepath.Join(cfg.OutputDir, cfg.JobRoot+".log")
	}
	return logFile
}

// toFloat64SliceE converts a configuration value to a slice of floats. The
// value can be an array from a configuration file, a string slice from a
// command line flag, or a JSON array or comma-separated list from an
// environment variable.
func toFloat64SliceE(i interface{}) ([]float64, error) {
	switch v := i.(type) {
	case []float64:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "[") {
			var o []float64
			if err := json.Unmarshal([]byte(v), &o); err != nil {
				return nil, err
			}
			return o, nil
		}
		if v == "" {
			return nil, nil
		}
		return toFloat64SliceE(strings.Split(v, ","))
	case []string:
		o := make([]float64, len(v))
		for j, s := range v {
			f, err := cast.ToFloat64E(strings.TrimSpace(s))
			if err != nil {
				return nil, err
			}
			o[j] = f
		}
		return o, nil
	default:
		s, err := cast.ToSliceE(i)
		if err != nil {
			return nil, err
		}
		o := make([]float64, len(s))
		for j, val := range s {
			f, err := cast.ToFloat64E(val)
			if err != nil {
				return nil, err
			}
			o[j] = f
		}
		return o, nil
	}
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument. Environment variables in the keys and
// values are expanded and line breaks in the values are removed.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	var o map[string]string
	switch v := cfg.Get(varName).(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		o = v
	case map[string]interface{}:
		var err error
		if o, err = cast.ToStringMapStringE(v); err != nil {
			return nil, err
		}
	case string:
		o = make(map[string]string)
		if strings.TrimSpace(v) == "" {
			return o, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		if err := d.Decode(&o); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid type for map variable %s: %#v", varName, v)
	}
	vars := make(map[string]string, len(o))
	for k, v := range o {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		vars[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return vars, nil
}
