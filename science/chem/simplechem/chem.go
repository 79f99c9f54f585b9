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

// Package simplechem contains a simplified stoichiometric chemical system.
// Instead of minimizing the Gibbs energy it dissolves each reactant down to
// its lower limit and forms the products of its reaction in fixed
// proportions, consuming water.
package simplechem

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/thamesmodel/thames"
)

// Status codes of failed equilibrium calculations.
const (
	// StatusScheduled is returned for times within a configured failure
	// window.
	StatusScheduled = 2
	// StatusNoWater is returned when the reactions would consume more water
	// than there is.
	StatusNoWater = 3
)

// Names of the reserved microstructure phases.
const (
	VoidName        = "Void"
	ElectrolyteName = "Electrolyte"
)

// DC is a dependent component.
type DC struct {
	Name        string  `toml:"name"`
	MolarMass   float64 `toml:"molar_mass"`   // g/mol
	MolarVolume float64 `toml:"molar_volume"` // m³/mol
	// Activity is the fixed activity of an aqueous DC. It defaults to 1 for
	// water and 0 otherwise.
	Activity float64 `toml:"activity"`
}

// PoreBin is one row of the pore size distribution of a phase.
type PoreBin struct {
	Diameter       float64 `toml:"diameter"` // nm
	VolumeFraction float64 `toml:"volume_fraction"`
}

// Phase is a solid microstructure phase.
type Phase struct {
	Name     string  `toml:"name"`
	DC       string  `toml:"dc"`
	Porosity float64 `toml:"porosity"`
	Cement   bool    `toml:"cement"`
	Kinetic  bool    `toml:"kinetic"`
	// SI is the saturation index of a kinetic phase while water remains.
	SI float64 `toml:"si"`

	K2O  float64 `toml:"k2o"`
	Na2O float64 `toml:"na2o"`
	MgO  float64 `toml:"mgo"`
	SO3  float64 `toml:"so3"`

	// Templates are the phases this phase can grow on.
	Templates []string           `toml:"templates"`
	Affinity  map[string]float64 `toml:"affinity"`
	PoreSize  []PoreBin          `toml:"pore_size"`

	// CrystalPressure [MPa] is the crystallization pressure the phase
	// exerts when it forms in confined pores.
	CrystalPressure float64 `toml:"crystal_pressure"`
}

// Reaction converts each mole of Reactant that dissolves into the
// given moles of Products, consuming Water moles of water.
type Reaction struct {
	Reactant string             `toml:"reactant"`
	Products map[string]float64 `toml:"products"`
	Water    float64            `toml:"water"`
}

// Transformation is a sulfate attack phase transformation.
type Transformation struct {
	Grow        string    `toml:"grow"`
	Shrink      []string  `toml:"shrink"`
	VolumeRatio []float64 `toml:"volume_ratio"`
}

// Failure is a time window [h] in which the equilibrium calculation fails.
type Failure struct {
	From float64 `toml:"from"`
	To   float64 `toml:"to"`
}

// Definition holds the contents of a chemical system file.
type Definition struct {
	// Water is the name of the DC that makes up the electrolyte.
	Water           string           `toml:"water"`
	Saturated       bool             `toml:"saturated"`
	Temperature     float64          `toml:"temperature"` // K
	DCs             []DC             `toml:"dc"`
	Phases          []Phase          `toml:"phase"`
	Reactions       []Reaction       `toml:"reaction"`
	Transformations []Transformation `toml:"transformation"`
	Failures        []Failure        `toml:"failure"`
}

// System fulfils the github.com/thamesmodel/thames.ChemicalSystem
// interface.
type System struct {
	def Definition

	// phases holds Void and Electrolyte followed by the solid phases.
	phases  []Phase
	phaseDC []int
	phaseID map[string]int
	dcID    map[string]int
	water   int

	reactions       []reaction
	transformations []thames.Transformation
	templates       [][]bool

	temperature float64
	moles       []float64
	lower       []float64
	mass        []float64
	noWater     bool
}

var _ thames.ChemicalSystem = (*System)(nil)

type reaction struct {
	reactant int
	products map[int]float64
	water    float64
}

// ReadFile reads a chemical system definition from a TOML file.
func ReadFile(filename string) (*System, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &thames.FileError{Where: thames.Where{Class: "simplechem", Function: "ReadFile"},
			File: filename, Op: "open", Err: err}
	}
	defer f.Close()
	return Read(f)
}

// Read reads a chemical system definition in TOML format from r.
func Read(r io.Reader) (*System, error) {
	var def Definition
	md, err := toml.DecodeReader(r, &def)
	if err != nil {
		return nil, fmt.Errorf("simplechem: reading chemical system: %v", err)
	}
	if u := md.Undecoded(); len(u) > 0 {
		keys := make([]string, len(u))
		for i, k := range u {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("simplechem: unknown keys in chemical system: %s", strings.Join(keys, ", "))
	}
	return New(def)
}

func dataError(variable, format string, a ...interface{}) error {
	return &thames.DataError{Where: thames.Where{Class: "simplechem", Function: "New"},
		Variable: variable, Msg: fmt.Sprintf(format, a...)}
}

// New creates a chemical system from def.
func New(def Definition) (*System, error) {
	s := &System{
		def:         def,
		phaseID:     make(map[string]int),
		dcID:        make(map[string]int),
		temperature: def.Temperature,
	}
	if s.temperature == 0 {
		s.temperature = thames.RefTemperature
	}
	for i, dc := range def.DCs {
		if _, ok := s.dcID[dc.Name]; ok {
			return nil, dataError("dc", "duplicate DC %q", dc.Name)
		}
		if dc.MolarMass <= 0 {
			return nil, dataError("molar_mass", "molar mass of %q must be positive", dc.Name)
		}
		s.dcID[dc.Name] = i
	}
	var ok bool
	if s.water, ok = s.dcID[def.Water]; !ok {
		return nil, dataError("water", "water DC %q is not defined", def.Water)
	}
	if s.def.DCs[s.water].Activity == 0 {
		s.def.DCs[s.water].Activity = 1
	}

	s.phases = append([]Phase{{Name: VoidName}, {Name: ElectrolyteName, DC: def.Water, Porosity: 1}}, def.Phases...)
	s.phaseDC = make([]int, len(s.phases))
	for p, ph := range s.phases {
		if _, ok := s.phaseID[ph.Name]; ok {
			return nil, dataError("phase", "duplicate phase %q", ph.Name)
		}
		s.phaseID[ph.Name] = p
		if p == thames.Void {
			s.phaseDC[p] = -1
			continue
		}
		dc, ok := s.dcID[ph.DC]
		if !ok {
			return nil, dataError("dc", "DC %q of phase %q is not defined", ph.DC, ph.Name)
		}
		s.phaseDC[p] = dc
	}

	s.templates = make([][]bool, len(s.phases))
	for p, ph := range s.phases {
		s.templates[p] = make([]bool, len(s.phases))
		for _, name := range ph.Templates {
			q, ok := s.phaseID[name]
			if !ok {
				return nil, dataError("templates", "template %q of phase %q is not defined", name, ph.Name)
			}
			s.templates[p][q] = true
		}
		for name := range ph.Affinity {
			if _, ok := s.phaseID[name]; !ok {
				return nil, dataError("affinity", "affinity of phase %q for undefined phase %q", ph.Name, name)
			}
		}
	}

	for _, r := range def.Reactions {
		rx := reaction{products: make(map[int]float64), water: r.Water}
		if rx.reactant, ok = s.dcID[r.Reactant]; !ok {
			return nil, dataError("reactant", "reactant %q is not defined", r.Reactant)
		}
		for name, coef := range r.Products {
			dc, ok := s.dcID[name]
			if !ok {
				return nil, dataError("products", "product %q is not defined", name)
			}
			rx.products[dc] = coef
		}
		s.reactions = append(s.reactions, rx)
	}

	for _, t := range def.Transformations {
		if len(t.Shrink) != len(t.VolumeRatio) {
			return nil, dataError("transformation", "%d shrinking phases but %d volume ratios for %q",
				len(t.Shrink), len(t.VolumeRatio), t.Grow)
		}
		tr := thames.Transformation{VolumeRatio: t.VolumeRatio}
		if tr.Grow, ok = s.phaseID[t.Grow]; !ok {
			return nil, dataError("transformation", "phase %q is not defined", t.Grow)
		}
		for _, name := range t.Shrink {
			p, ok := s.phaseID[name]
			if !ok {
				return nil, dataError("transformation", "phase %q is not defined", name)
			}
			tr.Shrink = append(tr.Shrink, p)
		}
		s.transformations = append(s.transformations, tr)
	}

	s.moles = make([]float64, len(s.def.DCs))
	s.lower = make([]float64, len(s.def.DCs))
	s.mass = make([]float64, len(s.phases))
	return s, nil
}

// Fail adds a time window in which the equilibrium calculation fails.
func (s *System) Fail(from, to float64) {
	s.def.Failures = append(s.def.Failures, Failure{From: from, To: to})
}

// CalculateState dissolves each reactant down to its lower limit and forms
// the products of its reaction.
func (s *System) CalculateState(time float64, isFirst bool, cycle int) error {
	where := thames.Where{Class: "simplechem", Function: "CalculateState"}
	for _, f := range s.def.Failures {
		if time >= f.From && time < f.To {
			return &thames.GEMError{Where: where, Status: StatusScheduled,
				Msg: fmt.Sprintf("scheduled failure at %g h in cycle %d", time, cycle)}
		}
	}
	m := append([]float64(nil), s.moles...)
	for _, r := range s.reactions {
		d := m[r.reactant] - math.Max(s.lower[r.reactant], 0)
		if d <= 0 {
			continue
		}
		m[r.reactant] -= d
		for dc, coef := range r.products {
			m[dc] += d * coef
		}
		m[s.water] -= d * r.water
	}
	if m[s.water] < 0 {
		return &thames.GEMError{Where: where, Status: StatusNoWater,
			Msg: fmt.Sprintf("reactions need %g mol more water than is available", -m[s.water])}
	}
	s.moles = m
	s.noWater = m[s.water] == 0
	for p := thames.Electrolyte; p < len(s.phases); p++ {
		dc := s.phaseDC[p]
		s.mass[p] = m[dc] * s.def.DCs[dc].MolarMass
	}
	return nil
}

// NumMicroPhases returns the number of microstructure phases, including
// Void and Electrolyte.
func (s *System) NumMicroPhases() int { return len(s.phases) }

// MicroPhaseName returns the name of phase p.
func (s *System) MicroPhaseName(p int) string { return s.phases[p].Name }

// MicroPhaseID returns the id of the named phase.
func (s *System) MicroPhaseID(name string) (int, bool) {
	p, ok := s.phaseID[name]
	return p, ok
}

// MicroPhaseDC returns the DC of phase p, or -1 for Void.
func (s *System) MicroPhaseDC(p int) int { return s.phaseDC[p] }

// MicroPhaseVolume returns the volume [m³] of phase p.
func (s *System) MicroPhaseVolume(p int) float64 {
	if p == thames.Void {
		return 0
	}
	dc := s.phaseDC[p]
	return s.moles[dc] * s.def.DCs[dc].MolarVolume
}

func (s *System) MicroPhaseMass(p int) float64       { return s.mass[p] }
func (s *System) SetMicroPhaseMass(p int, m float64) { s.mass[p] = m }
func (s *System) MicroPhasePorosity(p int) float64   { return s.phases[p].Porosity }

// MicroPhaseSI returns the saturation index of phase p. Kinetic phases
// have their configured index until the water runs out, after which they
// and all other phases are at saturation.
func (s *System) MicroPhaseSI(p int) float64 {
	if s.phases[p].Kinetic && !s.noWater {
		return s.phases[p].SI
	}
	return 1
}

// PoreSizeDistribution returns the sub-voxel pore size distribution of
// phase p.
func (s *System) PoreSizeDistribution(p int) []thames.PoreBin {
	bins := make([]thames.PoreBin, len(s.phases[p].PoreSize))
	for i, b := range s.phases[p].PoreSize {
		bins[i] = thames.PoreBin{Diameter: b.Diameter, VolumeFraction: b.VolumeFraction}
	}
	return bins
}

func (s *System) IsCementComponent(p int) bool { return s.phases[p].Cement }
func (s *System) IsKinetic(p int) bool         { return s.phases[p].Kinetic }

// Impurities returns the oxide mass fractions of phase p.
func (s *System) Impurities(p int) thames.Impurity {
	ph := s.phases[p]
	return thames.Impurity{K2O: ph.K2O, Na2O: ph.Na2O, MgO: ph.MgO, SO3: ph.SO3}
}

// IsGrowthTemplate reports whether phase p can grow on phase q.
func (s *System) IsGrowthTemplate(p, q int) bool { return s.templates[p][q] }

// Affinity returns the affinity of phase p for phase q.
func (s *System) Affinity(p, q int) float64 { return s.phases[p].Affinity[s.phases[q].Name] }

func (s *System) IsSaturated() bool { return s.def.Saturated }

func (s *System) Transformations() []thames.Transformation { return s.transformations }

func (s *System) NumDCs() int           { return len(s.def.DCs) }
func (s *System) DCName(i int) string   { return s.def.DCs[i].Name }
func (s *System) WaterDC() int          { return s.water }
func (s *System) DCMoles(i int) float64 { return s.moles[i] }

// DCID returns the index of the named DC.
func (s *System) DCID(name string) (int, bool) {
	i, ok := s.dcID[name]
	return i, ok
}

func (s *System) SetDCMoles(i int, moles float64)      { s.moles[i] = moles }
func (s *System) DCMolarMass(i int) float64            { return s.def.DCs[i].MolarMass }
func (s *System) DCMolarVolume(i int) float64          { return s.def.DCs[i].MolarVolume }
func (s *System) DCLowerLimit(i int) float64           { return s.lower[i] }
func (s *System) SetDCLowerLimit(i int, moles float64) { s.lower[i] = moles }
func (s *System) DCActivity(i int) float64             { return s.def.DCs[i].Activity }

func (s *System) Temperature() float64          { return s.temperature }
func (s *System) SetTemperature(kelvin float64) { s.temperature = kelvin }

// CrystalStrain returns the linear strain caused by the crystallization
// pressure of phase p acting on the pore volume fraction of a
// neighborhood with solid bulk modulus solidBulk [MPa].
func (s *System) CrystalStrain(p int, poreVolumeFraction, bulk, solidBulk float64) float64 {
	pc := s.phases[p].CrystalPressure
	if pc <= 0 || solidBulk <= 0 {
		return 0
	}
	return pc * math.Min(poreVolumeFraction, 1) / (3 * solidBulk)
}
