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

package simplechem

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/thamesmodel/thames"
)

const testSystem = `
water = "H2O@"
saturated = true

[[dc]]
name = "H2O@"
molar_mass = 18.0153
molar_volume = 1.8068e-5

[[dc]]
name = "C3S"
molar_mass = 228.317
molar_volume = 7.29e-5

[[dc]]
name = "CSH"
molar_mass = 191.0
molar_volume = 1.0e-4

[[dc]]
name = "Portlandite"
molar_mass = 74.09
molar_volume = 3.306e-5

[[dc]]
name = "OH-"
molar_mass = 17.007
molar_volume = 0.0
activity = 0.05

[[phase]]
name = "Alite"
dc = "C3S"
cement = true
kinetic = true
si = 0.01
k2o = 0.001
templates = ["Alite"]

[[phase]]
name = "CSH"
dc = "CSH"
porosity = 0.25
templates = ["Alite", "CSH"]
crystal_pressure = 5.0

[phase.affinity]
Alite = 10.0
CSH = 5.0

[[phase.pore_size]]
diameter = 1.0
volume_fraction = 0.4

[[phase.pore_size]]
diameter = 5.0
volume_fraction = 0.6

[[phase]]
name = "Portlandite"
dc = "Portlandite"

[[reaction]]
reactant = "C3S"
water = 3.9

[reaction.products]
CSH = 1.0
Portlandite = 1.3

[[transformation]]
grow = "Portlandite"
shrink = ["CSH"]
volume_ratio = [1.5]

[[failure]]
from = 10.0
to = 11.0
`

func newTestSystem(t *testing.T) *System {
	s, err := Read(strings.NewReader(testSystem))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRead(t *testing.T) {
	s := newTestSystem(t)
	if have, want := s.NumMicroPhases(), 5; have != want {
		t.Errorf("have %d phases, want %d", have, want)
	}
	for name, want := range map[string]int{VoidName: thames.Void, ElectrolyteName: thames.Electrolyte, "Alite": 2, "CSH": 3} {
		if have, ok := s.MicroPhaseID(name); !ok || have != want {
			t.Errorf("%s: have id %d, want %d", name, have, want)
		}
	}
	if s.MicroPhaseDC(thames.Electrolyte) != s.WaterDC() {
		t.Error("electrolyte is not made of water")
	}
	if have, want := s.DCActivity(s.WaterDC()), 1.0; have != want {
		t.Errorf("water activity: have %g, want %g", have, want)
	}
	if !s.IsGrowthTemplate(3, 2) || s.IsGrowthTemplate(2, 3) {
		t.Error("templates are not directional")
	}
	if have, want := s.Affinity(3, 2), 10.0; have != want {
		t.Errorf("affinity: have %g, want %g", have, want)
	}
	if have := s.Affinity(2, 3); have != 0 {
		t.Errorf("missing affinity: have %g, want 0", have)
	}
	wantPSD := []thames.PoreBin{{Diameter: 1, VolumeFraction: 0.4}, {Diameter: 5, VolumeFraction: 0.6}}
	if have := s.PoreSizeDistribution(3); !reflect.DeepEqual(have, wantPSD) {
		t.Errorf("have %#v, want %#v", have, wantPSD)
	}
	wantTr := []thames.Transformation{{Grow: 4, Shrink: []int{3}, VolumeRatio: []float64{1.5}}}
	if have := s.Transformations(); !reflect.DeepEqual(have, wantTr) {
		t.Errorf("have %#v, want %#v", have, wantTr)
	}
	if have, want := s.Impurities(2), (thames.Impurity{K2O: 0.001}); have != want {
		t.Errorf("have %#v, want %#v", have, want)
	}
	if s.Temperature() != thames.RefTemperature {
		t.Errorf("default temperature %g", s.Temperature())
	}
}

func TestReadErrors(t *testing.T) {
	for _, test := range []struct {
		name, doc string
	}{
		{name: "no water", doc: `water = "W"`},
		{name: "unknown key", doc: testSystem + "\nbogus = 1\n"},
		{name: "unknown phase dc", doc: `
water = "W"
[[dc]]
name = "W"
molar_mass = 18.0
[[phase]]
name = "A"
dc = "X"
`},
		{name: "unknown template", doc: `
water = "W"
[[dc]]
name = "W"
molar_mass = 18.0
[[phase]]
name = "A"
dc = "W"
templates = ["B"]
`},
		{name: "zero molar mass", doc: `
water = "W"
[[dc]]
name = "W"
`},
	} {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(test.doc)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// Test whether mass is conserved during the reactions.
func TestChemistry(t *testing.T) {
	const testTolerance = 1.e-8
	s := newTestSystem(t)
	c3s, _ := s.DCID("C3S")
	csh, _ := s.DCID("CSH")
	ch, _ := s.DCID("Portlandite")
	w := s.WaterDC()

	s.SetDCMoles(c3s, 1)
	s.SetDCMoles(w, 10)
	s.SetDCLowerLimit(c3s, 0.75)

	if err := s.CalculateState(1, true, 1); err != nil {
		t.Fatal(err)
	}
	want := map[int]float64{c3s: 0.75, csh: 0.25, ch: 0.325, w: 10 - 0.25*3.9}
	for dc, m := range want {
		if math.Abs(s.DCMoles(dc)-m) > testTolerance {
			t.Errorf("%s: have %g mol, want %g", s.DCName(dc), s.DCMoles(dc), m)
		}
	}
	alite, _ := s.MicroPhaseID("Alite")
	if have, want := s.MicroPhaseMass(alite), 0.75*228.317; math.Abs(have-want) > testTolerance {
		t.Errorf("alite mass: have %g, want %g", have, want)
	}
	if have, want := s.MicroPhaseVolume(alite), 0.75*7.29e-5; math.Abs(have-want) > testTolerance {
		t.Errorf("alite volume: have %g, want %g", have, want)
	}
	if have := s.MicroPhaseVolume(thames.Void); have != 0 {
		t.Errorf("void volume: have %g, want 0", have)
	}
	if have := s.MicroPhaseSI(alite); have != 0.01 {
		t.Errorf("alite SI: have %g, want 0.01", have)
	}

	// The reactant is at its limit, so a second calculation changes nothing.
	before := s.DCMoles(w)
	if err := s.CalculateState(2, false, 2); err != nil {
		t.Fatal(err)
	}
	if s.DCMoles(w) != before {
		t.Errorf("water changed from %g to %g", before, s.DCMoles(w))
	}
}

func TestCalculateStateFailures(t *testing.T) {
	s := newTestSystem(t)
	c3s, _ := s.DCID("C3S")
	s.SetDCMoles(c3s, 1)
	s.SetDCMoles(s.WaterDC(), 1)

	var gerr *thames.GEMError
	err := s.CalculateState(10.5, false, 3)
	if !errors.As(err, &gerr) || gerr.Status != StatusScheduled {
		t.Errorf("scheduled failure: have %v", err)
	}

	err = s.CalculateState(12, false, 4)
	if !errors.As(err, &gerr) || gerr.Status != StatusNoWater {
		t.Errorf("water shortage: have %v", err)
	}
	if s.DCMoles(c3s) != 1 {
		t.Error("failed calculation changed the state")
	}

	s.Fail(20, 21)
	s.SetDCMoles(s.WaterDC(), 100)
	if err := s.CalculateState(20, false, 5); err == nil {
		t.Error("added failure window is not used")
	}
	if err := s.CalculateState(21, false, 6); err != nil {
		t.Errorf("failure window end is exclusive: %v", err)
	}
}

func TestCrystalStrain(t *testing.T) {
	s := newTestSystem(t)
	if have, want := s.CrystalStrain(3, 0.5, 1.0e4, 2.0e4), 5.0*0.5/(3*2.0e4); math.Abs(have-want) > 1e-15 {
		t.Errorf("have %g, want %g", have, want)
	}
	if have := s.CrystalStrain(2, 0.5, 1.0e4, 2.0e4); have != 0 {
		t.Errorf("phase without crystallization pressure: have %g, want 0", have)
	}
}
