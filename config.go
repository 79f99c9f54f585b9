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

package thames

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// NoAttack is the start time [h] used for leaching and sulfate attack when
// they are not simulated.
const NoAttack = 1.0e10

// DefaultAttackTime is the start time [h] of leaching or sulfate attack when
// that simulation type is requested without an explicit start time.
const DefaultAttackTime = 2400.0

// Bisection holds the parameters of the time-step search used when the
// equilibrium calculation fails to converge.
type Bisection struct {
	// NumGenMax is the number of random trial times drawn in a search window
	// before the window is widened.
	NumGenMax int `validate:"gt=0" yaml:"numgenmax"`
	// FracNum is the number of fractional offsets into the failed step at
	// which a search is started.
	FracNum int `validate:"gt=0" yaml:"fracnum"`
	// NumMaxIntervals is the number of times the window may be widened.
	NumMaxIntervals int `validate:"gte=0" yaml:"nummaxintervals"`
}

// Config holds the run-time settings of a simulation. It is set once before
// a run starts and is read-only afterwards.
type Config struct {
	// JobRoot is the prefix of all output file names.
	JobRoot string `validate:"required" yaml:"jobroot"`
	// OutputDir is the directory output files are written to.
	OutputDir string `yaml:"outputdir"`
	SimType   SimType `validate:"gte=0,lte=2" yaml:"simtype"`
	// Seed initializes the random number generator.
	Seed int64 `validate:"ne=0" yaml:"seed"`

	Temperature      float64 `validate:"gt=0" yaml:"temperature"` // K
	RelativeHumidity float64 `validate:"gt=0,lte=1" yaml:"relativehumidity"`

	// CalcTimes are the times [h] at which the state is calculated and
	// OutTimes are the times at which the microstructure is written.
	CalcTimes []float64 `validate:"required,min=1,dive,gte=0" yaml:"calctimes"`
	OutTimes  []float64 `validate:"dive,gte=0" yaml:"outtimes"`

	LeachTime         float64 `validate:"gte=0" yaml:"leachtime"`
	SulfateAttackTime float64 `validate:"gte=0" yaml:"sulfateattacktime"`

	// PorosityThreshold is the probability that a voxel of a porous solid
	// phase is assigned no internal porosity when it is created.
	PorosityThreshold float64 `validate:"gte=0,lte=1" yaml:"porositythreshold"`

	// ElemTimeInterval is the initial half-width [h] of the window searched
	// after a failed equilibrium calculation.
	ElemTimeInterval float64 `validate:"gt=0" yaml:"elemtimeinterval"`
	Bisection        Bisection `yaml:"bisection"`

	// CheckInvariants enables consistency checks of the interface
	// bookkeeping after each microstructure change.
	CheckInvariants bool `yaml:"checkinvariants"`

	// XYZ enables appending the microstructure to an xyz movie file.
	XYZ bool `yaml:"xyz"`

	// PNGSlice is the z index of the slice written to PNG images. A
	// negative value selects the middle slice.
	PNGSlice int `yaml:"pngslice"`

	// OutputVariables are expressions evaluated at each calculation time
	// and appended to the microstructure time series.
	OutputVariables map[string]string `yaml:"outputvariables"`

	// WriteRetries is the number of times a failed output write is retried.
	WriteRetries uint64 `yaml:"writeretries"`
}

// DefaultConfig returns a Config with the default settings for a hydration
// simulation.
func DefaultConfig() *Config {
	return &Config{
		JobRoot:           "thames",
		OutputDir:         ".",
		SimType:           Hydration,
		Seed:              -2807,
		Temperature:       RefTemperature,
		RelativeHumidity:  1.0,
		CalcTimes:         []float64{0.01, 0.1, 1, 10, 100},
		OutTimes:          []float64{100},
		LeachTime:         NoAttack,
		SulfateAttackTime: NoAttack,
		ElemTimeInterval:  1.0e-5,
		Bisection: Bisection{
			NumGenMax:       3000,
			FracNum:         10,
			NumMaxIntervals: 1,
		},
		PNGSlice:     -1,
		WriteRetries: 3,
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("thames: invalid configuration: %v", err)
	}
	return nil
}
