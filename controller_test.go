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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule(t *testing.T) {
	have := Schedule([]float64{10, 1, 0.1, 1 + 1e-7}, []float64{5, 10})
	want := []float64{0.1, 1, 5, 10}
	assert.Equal(t, want, have)
	assert.Empty(t, Schedule(nil, nil))
}

// hydrationSetup returns a controller for a lattice in which A slowly
// turns into B at a rate set by calc.
func hydrationSetup(t *testing.T, cfg *Config) (*Controller, *testChem) {
	c := newTestChem("A", "B")
	l := newTestLattice(t, cfg, c, 10, 10, 10, layered(phaseA, 2, 100))
	c.calc = func(time float64) error {
		c.setVolumeFractions(l, map[int]float64{
			Electrolyte: 0.8,
			phaseA:      0.2 - 0.025*time,
			phaseB:      0.025 * time,
		})
		return nil
	}
	out, err := NewOutputter(cfg.OutputDir, cfg.JobRoot, map[string]string{"AB": "A + B"}, nil)
	require.NoError(t, err)
	ctl, err := NewController(cfg, l, nil, c, out, testLogger())
	require.NoError(t, err)
	return ctl, c
}

func TestControllerRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.CalcTimes = []float64{1, 2}
	cfg.OutTimes = []float64{2}
	cfg.XYZ = true
	ctl, c := hydrationSetup(t, cfg)
	var buf bytes.Buffer
	var cycles []int
	ctl.CycleFuncs = []CycleFunc{
		Log(&buf),
		CheckInvariants(),
		SaveCheckpoints(cfg.OutputDir, cfg.JobRoot, 2),
		func(c *Controller) error { cycles = append(cycles, c.Cycle); return nil },
	}

	o := ctl.Run()
	require.Equal(t, Continue, o.Kind, "%v", o)
	assert.Equal(t, []int{1, 2}, cycles)
	assert.Equal(t, 2, c.calls)
	assert.Equal(t, 2.0, ctl.Time)
	assert.Equal(t, 50, ctl.Changed) // 25 sites of A dissolved and 25 of B grew.

	l := ctl.Lattice()
	assert.Equal(t, 150, l.Count(phaseA))
	assert.Equal(t, 50, l.Count(phaseB))
	assert.True(t, l.SurfaceArea(phaseB) > 0)
	checkConservation(t, l)
	assert.Equal(t, 2, strings.Count(buf.String(), "Cycle "))

	for _, name := range []string{
		"test.0.00h.298K.img", "test.0.00h.298K.png", "test_Colors.csv", "test.xyz",
		"test.2.00h.298K.img", "test.2.00h.298K.png",
		"test_PoreSizeDistribution.2.00h.298K.csv", "test_PoreSizeDistribution.2.00h.298K.png",
		"test_Microstructure.csv", "test_Solution.csv", "test.2.checkpoint",
	} {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, name))
		assert.NoError(t, err, name)
	}
	_, err := os.Stat(filepath.Join(cfg.OutputDir, "test.1.00h.298K.img"))
	assert.True(t, os.IsNotExist(err), "no output at time 1")

	f, err := os.Open(filepath.Join(cfg.OutputDir, "test.2.checkpoint"))
	require.NoError(t, err)
	defer f.Close()
	cp, err := LoadCheckpoint(f)
	require.NoError(t, err)
	assert.Equal(t, l.Checkpoint().Hash(), cp.Hash())
}

func TestControllerBisection(t *testing.T) {
	cfg := testConfig(t)
	cfg.CalcTimes = []float64{1, 2}
	cfg.OutTimes = nil
	cfg.Bisection.NumGenMax = 5
	ctl, c := hydrationSetup(t, cfg)
	calc := c.calc
	c.calc = func(time float64) error {
		if time > 0.999 && time < 1.001 {
			return &GEMError{Where: Where{"testChem", "CalculateState"}, Status: 1}
		}
		return calc(time)
	}

	o := ctl.Run()
	require.Equal(t, Continue, o.Kind, "%v", o)
	// The first time moves to the second offset of a tenth of the step.
	times := ctl.Times()
	assert.InDelta(t, 1.1, times[0], 2*cfg.ElemTimeInterval)
	assert.Equal(t, 2.0, times[1])
	// One failure, five failed samples around 1, one good sample, then 2.
	assert.Equal(t, 8, c.calls)
	assert.Equal(t, 150, ctl.Lattice().Count(phaseA))
}

func TestControllerRetry(t *testing.T) {
	cfg := testConfig(t)
	cfg.CalcTimes = []float64{1, 2}
	cfg.OutTimes = nil
	cfg.Bisection.NumGenMax = 2
	ctl, c := hydrationSetup(t, cfg)
	calc := c.calc
	c.calc = func(time float64) error {
		if time > 0.99 && time < 1.95 {
			return &GEMError{Where: Where{"testChem", "CalculateState"}, Status: 1}
		}
		return calc(time)
	}

	o := ctl.Run()
	require.Equal(t, Continue, o.Kind, "%v", o)
	times := ctl.Times()
	assert.True(t, times[0] >= 1.95 && times[0] < 2, "have %g", times[0])
	assert.Equal(t, 2.0, ctl.Time)
	assert.Equal(t, 150, ctl.Lattice().Count(phaseA))
}

func TestControllerLastTimeFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.CalcTimes = []float64{1}
	cfg.OutTimes = nil
	cfg.Bisection.NumGenMax = 2
	ctl, c := hydrationSetup(t, cfg)
	c.calc = func(float64) error {
		return &GEMError{Where: Where{"testChem", "CalculateState"}, Status: 1}
	}
	o := ctl.Run()
	require.Equal(t, Fatal, o.Kind)
	var gerr *GEMError
	require.True(t, errors.As(o.Err, &gerr))
	assert.Equal(t, -1, gerr.Status)
}

func TestControllerStops(t *testing.T) {
	cfg := testConfig(t)
	cfg.CalcTimes = []float64{1, 2, 3}
	cfg.OutTimes = nil
	ctl, c := hydrationSetup(t, cfg)
	calc := c.calc
	c.calc = func(time float64) error {
		if time > 1.5 {
			return &MicrostructureError{Msg: "out of water"}
		}
		return calc(time)
	}
	o := ctl.Run()
	assert.Equal(t, Stop("out of water"), o)
	assert.Equal(t, 1.0, ctl.Time)
	_, err := os.Stat(filepath.Join(cfg.OutputDir, "test.2.00h.298K.img"))
	assert.NoError(t, err, "final microstructure is written")

	cfg = testConfig(t)
	ctl, c = hydrationSetup(t, cfg)
	boom := errors.New("boom")
	c.calc = func(float64) error { return boom }
	o = ctl.Run()
	assert.Equal(t, Fatal, o.Kind)
	assert.Equal(t, boom, o.Err)
	assert.Equal(t, 1, c.calls, "no bisection for errors other than convergence failures")
}

func TestControllerRecall(t *testing.T) {
	cfg := testConfig(t)
	cfg.CalcTimes = []float64{1}
	cfg.OutTimes = nil
	c := newTestChem("A", "B")
	c.kinetic[phaseA] = true
	// A is buried in B, so none of it can dissolve.
	l := newTestLattice(t, cfg, c, 6, 6, 6, func(id int) int {
		switch z := id / 36; {
		case z == 1:
			return phaseA
		case z < 4:
			return phaseB
		}
		return Electrolyte
	})
	c.setVolumeFractions(l, map[int]float64{Electrolyte: 2.0 / 6, phaseB: 3.0 / 6})
	// The equilibrium amount of A is its lower limit.
	c.calc = func(float64) error {
		c.volume[phaseA] = c.lower[phaseA-1] * c.molarVol[phaseA-1]
		return nil
	}
	ctl, err := NewController(cfg, l, nil, c, nil, testLogger())
	require.NoError(t, err)

	o := ctl.Run()
	require.Equal(t, Continue, o.Kind, "%v", o)
	assert.Equal(t, 2, c.calls)
	assert.Equal(t, 36, l.Count(phaseA))
	// 36 of 216 sites of A at 2.5 g/cm³ per 100 g of solid.
	assert.InDelta(t, 0.25, c.lower[phaseA-1], 1e-12)
	checkConservation(t, l)
}

func TestNewControllerErrors(t *testing.T) {
	cfg := testConfig(t)
	c := newTestChem("A")
	l := newTestLattice(t, cfg, c, 2, 2, 2, all(Electrolyte))
	cfg.CalcTimes, cfg.OutTimes = nil, nil
	_, err := NewController(cfg, l, nil, c, nil, testLogger())
	assert.Error(t, err)

	cfg.CalcTimes = []float64{1}
	out, err := NewOutputter(cfg.OutputDir, cfg.JobRoot, map[string]string{"x": "nothing"}, nil)
	require.NoError(t, err)
	_, err = NewController(cfg, l, nil, c, out, testLogger())
	assert.Error(t, err)
}
