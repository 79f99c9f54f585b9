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
	"io/ioutil"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
)

// testChem is a ChemicalSystem whose equilibrium state is set directly by
// the tests. DC 0 is water; solid phase p is made of DC p-1. Any extra DCs
// follow.
type testChem struct {
	names     []string
	dcNames   []string
	molarMass []float64
	molarVol  []float64
	activity  []float64

	porosity  []float64
	kinetic   []bool
	cement    []bool
	si        []float64
	psd       [][]PoreBin
	template  [][]bool
	affinity  [][]float64
	impurity  []Impurity
	saturated bool
	trans     []Transformation
	strain    float64

	moles, lower, mass []float64
	// volume, if set for a phase, overrides moles × molar volume.
	volume map[int]float64

	temperature float64
	// calc, if set, is called by CalculateState.
	calc  func(time float64) error
	calls int
}

// newTestChem creates a chemical system with the given solid phases, each
// with a molar mass of 100 g/mol and a density of 2.5 g/cm³.
func newTestChem(solids ...string) *testChem {
	c := &testChem{
		names:       append([]string{"Void", "Electrolyte"}, solids...),
		dcNames:     []string{"H2O@"},
		molarMass:   []float64{18.0153},
		molarVol:    []float64{1.8068e-5},
		activity:    []float64{1},
		volume:      make(map[int]float64),
		temperature: RefTemperature,
	}
	for _, s := range solids {
		c.dcNames = append(c.dcNames, s)
		c.molarMass = append(c.molarMass, 100)
		c.molarVol = append(c.molarVol, 4.0e-5)
		c.activity = append(c.activity, 0)
	}
	np := len(c.names)
	c.porosity = make([]float64, np)
	c.kinetic = make([]bool, np)
	c.cement = make([]bool, np)
	c.si = make([]float64, np)
	c.psd = make([][]PoreBin, np)
	c.impurity = make([]Impurity, np)
	c.template = make([][]bool, np)
	c.affinity = make([][]float64, np)
	for p := range c.template {
		c.template[p] = make([]bool, np)
		c.affinity[p] = make([]float64, np)
	}
	c.mass = make([]float64, np)
	c.resizeDCs()
	return c
}

// addDC adds an aqueous DC and returns its index.
func (c *testChem) addDC(name string, molarMass, activity float64) int {
	c.dcNames = append(c.dcNames, name)
	c.molarMass = append(c.molarMass, molarMass)
	c.molarVol = append(c.molarVol, 0)
	c.activity = append(c.activity, activity)
	c.resizeDCs()
	return len(c.dcNames) - 1
}

func (c *testChem) resizeDCs() {
	for len(c.moles) < len(c.dcNames) {
		c.moles = append(c.moles, 0)
		c.lower = append(c.lower, 0)
	}
}

// setVolumeFractions sets the phase volumes to the given fractions of the
// initial microstructure volume of l.
func (c *testChem) setVolumeFractions(l *Lattice, frac map[int]float64) {
	for p, f := range frac {
		c.volume[p] = f * l.InitialMicrostructureVolume()
	}
}

func (c *testChem) NumMicroPhases() int         { return len(c.names) }
func (c *testChem) MicroPhaseName(p int) string { return c.names[p] }
func (c *testChem) MicroPhaseID(name string) (int, bool) {
	for p, n := range c.names {
		if n == name {
			return p, true
		}
	}
	return 0, false
}
func (c *testChem) MicroPhaseDC(p int) int {
	if p == Void {
		return -1
	}
	return p - 1
}
func (c *testChem) MicroPhaseVolume(p int) float64 {
	if v, ok := c.volume[p]; ok {
		return v
	}
	if p == Void {
		return 0
	}
	dc := c.MicroPhaseDC(p)
	return c.moles[dc] * c.molarVol[dc]
}
func (c *testChem) MicroPhaseMass(p int) float64            { return c.mass[p] }
func (c *testChem) SetMicroPhaseMass(p int, m float64)      { c.mass[p] = m }
func (c *testChem) MicroPhasePorosity(p int) float64        { return c.porosity[p] }
func (c *testChem) MicroPhaseSI(p int) float64              { return c.si[p] }
func (c *testChem) PoreSizeDistribution(p int) []PoreBin    { return c.psd[p] }
func (c *testChem) IsCementComponent(p int) bool            { return c.cement[p] }
func (c *testChem) IsKinetic(p int) bool                    { return c.kinetic[p] }
func (c *testChem) Impurities(p int) Impurity               { return c.impurity[p] }
func (c *testChem) IsGrowthTemplate(p, q int) bool          { return c.template[p][q] }
func (c *testChem) Affinity(p, q int) float64               { return c.affinity[p][q] }
func (c *testChem) IsSaturated() bool                       { return c.saturated }
func (c *testChem) Transformations() []Transformation       { return c.trans }
func (c *testChem) NumDCs() int                             { return len(c.dcNames) }
func (c *testChem) DCName(i int) string                     { return c.dcNames[i] }
func (c *testChem) WaterDC() int                            { return 0 }
func (c *testChem) DCMoles(i int) float64                   { return c.moles[i] }
func (c *testChem) SetDCMoles(i int, moles float64)         { c.moles[i] = moles }
func (c *testChem) DCMolarMass(i int) float64               { return c.molarMass[i] }
func (c *testChem) DCMolarVolume(i int) float64             { return c.molarVol[i] }
func (c *testChem) DCLowerLimit(i int) float64              { return c.lower[i] }
func (c *testChem) SetDCLowerLimit(i int, moles float64)    { c.lower[i] = moles }
func (c *testChem) DCActivity(i int) float64                { return c.activity[i] }
func (c *testChem) Temperature() float64                    { return c.temperature }
func (c *testChem) SetTemperature(kelvin float64)           { c.temperature = kelvin }

func (c *testChem) CrystalStrain(int, float64, float64, float64) float64 { return c.strain }

func (c *testChem) DCID(name string) (int, bool) {
	for i, n := range c.dcNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func (c *testChem) CalculateState(time float64, isFirst bool, cycle int) error {
	c.calls++
	if c.calc != nil {
		return c.calc(time)
	}
	return nil
}

// testConfig returns a configuration that writes into a temporary
// directory and checks the interface invariants.
func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.JobRoot = "test"
	cfg.OutputDir = t.TempDir()
	cfg.CheckInvariants = true
	cfg.WriteRetries = 0
	return cfg
}

// testLogger discards log output.
func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.Out = ioutil.Discard
	return log
}

// newTestLattice creates an x×y×z lattice whose site phases are set by
// phase, at a resolution of 1 µm.
func newTestLattice(t *testing.T, cfg *Config, chem ChemicalSystem, x, y, z int, phase func(id int) int) *Lattice {
	img := &Image{Version: Version, Xdim: x, Ydim: y, Zdim: z, Resolution: 1, Phases: make([]int, x*y*z)}
	for id := range img.Phases {
		img.Phases[id] = phase(id)
	}
	l, err := NewLattice(cfg, chem, img, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func all(p int) func(int) int { return func(int) int { return p } }

func different(a, b, tolerance float64) bool {
	return 2*math.Abs(a-b)/math.Abs(a+b) > tolerance
}
