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

// Package thamesutil contains the command-line interface of THAMES.
package thamesutil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thamesmodel/thames"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to THAMES.
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
			name: "verbose",
			usage: `
              verbose turns on debug-level log messages.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "suppress",
			usage: `
              suppress limits log messages to warnings and errors.`,
			shorthand:  "s",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "xyz",
			usage: `
              xyz appends every written microstructure to an xyz movie
              file.`,
			shorthand:  "x",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "outfolder",
			usage: `
              outfolder is the directory where output files are written.
              It is created if it doesn't exist.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "JobRoot",
			usage: `
              JobRoot is the prefix of all output file names.`,
			defaultVal: "thames",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired log file location. The
              default is <outfolder>/<JobRoot>.log.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Microstructure",
			usage: `
              Microstructure is the path to the initial microstructure
              image.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "ChemistryFile",
			usage: `
              ChemistryFile is the path to the TOML definition of the
              chemical system.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "KineticsFile",
			usage: `
              KineticsFile is the path to the TOML file holding the rate
              laws of the kinetically controlled phases. If it is empty,
              no phase is kinetically controlled.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "MechanicsFile",
			usage: `
              MechanicsFile is the path to the TOML file holding the elastic
              properties of the phases. It is required for sulfate attack.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{sulfateAttackCmd.Flags()},
		},
		{
			name: "CalcTimes",
			usage: `
              CalcTimes are the simulation times [h] at which the
              equilibrium state is calculated.`,
			defaultVal: []string{"0.01", "0.1", "1", "10", "100"},
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "OutTimes",
			usage: `
              OutTimes are the simulation times [h] at which the
              microstructure is written.`,
			defaultVal: []string{"100"},
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Seed",
			usage: `
              Seed initializes the random number generator. It must not be
              zero.`,
			defaultVal: -2807,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Temperature",
			usage: `
              Temperature is the curing temperature [K]. The default of 0
              uses the temperature of the chemical system.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "RelativeHumidity",
			usage: `
              RelativeHumidity is the relative humidity of the curing
              environment, between 0 and 1.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "leachtime",
			usage: `
              leachtime is the time [h] at which leaching starts. A negative
              value uses 2400 h.`,
			defaultVal: -1.0,
			flagsets:   []*pflag.FlagSet{leachingCmd.Flags()},
		},
		{
			name: "sulfatetime",
			usage: `
              sulfatetime is the time [h] at which sulfate attack starts. A
              negative value uses 2400 h.`,
			defaultVal: -1.0,
			flagsets:   []*pflag.FlagSet{sulfateAttackCmd.Flags()},
		},
		{
			name: "PorosityThreshold",
			usage: `
              PorosityThreshold is the probability that a new voxel of a
              porous phase is created without internal porosity.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "ElemTimeInterval",
			usage: `
              ElemTimeInterval is the initial half-width [h] of the window
              searched for a converging time after a failed equilibrium
              calculation.`,
			defaultVal: 1.0e-5,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Bisection.NumGenMax",
			usage: `
              Bisection.NumGenMax is the number of trial times drawn in a
              search window before the window is widened.`,
			defaultVal: 3000,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Bisection.FracNum",
			usage: `
              Bisection.FracNum is the number of offsets into a failed time
              step from which a search is started.`,
			defaultVal: 10,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Bisection.NumMaxIntervals",
			usage: `
              Bisection.NumMaxIntervals is the number of times a search
              window may be widened.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "CheckInvariants",
			usage: `
              CheckInvariants verifies the interface bookkeeping after every
              change of the microstructure. It slows down the simulation.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "PNGSlice",
			usage: `
              PNGSlice is the z index of the slice drawn in PNG images. A
              negative value selects the middle slice.`,
			defaultVal: -1,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies expressions that are evaluated at
              every calculation time and appended to the microstructure time
              series, in the format '{"varName":"expression"}'.
              Expressions can use the phase variables listed by the
              'outputoptions' command.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "CheckpointInterval",
			usage: `
              CheckpointInterval is the number of cycles between saved
              checkpoints. Zero disables checkpoints.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "WriteRetries",
			usage: `
              WriteRetries is the number of times a failed output write is
              retried.`,
			defaultVal: 3,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("THAMES")
	Cfg.AutomaticEnv()

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
			case map[string]string:
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
	runCmd.AddCommand(hydrationCmd)
	runCmd.AddCommand(leachingCmd)
	runCmd.AddCommand(sulfateAttackCmd)
	Root.AddCommand(outputOptionsCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("thames: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "thames",
	Short: "A cement paste microstructure model.",
	Long: `THAMES simulates the 3D microstructure of hydrating cement paste, and its
degradation by leaching and sulfate attack, on a voxel lattice coupled to a
thermodynamic equilibrium model and a set of kinetic rate laws.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'THAMES_var' where 'var' is the
name of the variable to be set. File path variables are additionally
allowed to contain environment variables within them.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of THAMES.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("THAMES v%s\n", thames.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run runs a THAMES simulation. Use the subcommands specified below to
choose a simulation type.`,
	DisableAutoGenTag: true,
}

// hydrationCmd runs a hydration simulation.
var hydrationCmd = &cobra.Command{
	Use:   "hydration",
	Short: "Simulate cement hydration.",
	Long: `hydration simulates the hydration of a cement paste in sealed or
saturated conditions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimType(cmd, thames.Hydration)
	},
	SilenceUsage:      true,
	DisableAutoGenTag: true,
}

// leachingCmd runs a hydration simulation followed by leaching.
var leachingCmd = &cobra.Command{
	Use:   "leaching",
	Short: "Simulate hydration followed by leaching.",
	Long: `leaching simulates hydration until --leachtime and leaching of
the hydrated paste afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimType(cmd, thames.Leaching)
	},
	SilenceUsage:      true,
	DisableAutoGenTag: true,
}

// sulfateAttackCmd runs a hydration simulation followed by sulfate attack.
var sulfateAttackCmd = &cobra.Command{
	Use:   "sulfateattack",
	Short: "Simulate hydration followed by sulfate attack.",
	Long: `sulfateattack simulates hydration until --sulfatetime and external
sulfate attack afterwards, including the damage caused by crystallization
pressure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimType(cmd, thames.SulfateAttack)
	},
	SilenceUsage:      true,
	DisableAutoGenTag: true,
}

func runSimType(cmd *cobra.Command, simType thames.SimType) error {
	cfg, err := Config(Cfg, simType)
	if err != nil {
		return err
	}
	files, err := inputFiles(Cfg, simType)
	if err != nil {
		return err
	}
	return Run(cmd, cfg, files, Cfg.GetInt("CheckpointInterval"))
}

// outputOptionsCmd lists the variables available to output expressions.
var outputOptionsCmd = &cobra.Command{
	Use:   "outputoptions",
	Short: "List the available output variables.",
	Long: `outputoptions lists the phase variables that can be used in
OutputVariables expressions for the microstructure and chemical system given
by the Microstructure and ChemistryFile configuration variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := inputFiles(Cfg, thames.Hydration)
		if err != nil {
			return err
		}
		return OutputOptions(cmd.OutOrStdout(), files)
	},
	DisableAutoGenTag: true,
}

func init() {
	outputOptionsCmd.Flags().AddFlag(runCmd.PersistentFlags().Lookup("Microstructure"))
	outputOptionsCmd.Flags().AddFlag(runCmd.PersistentFlags().Lookup("ChemistryFile"))
}
