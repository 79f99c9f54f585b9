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

// PoreBin is one bin of a pore size distribution.
type PoreBin struct {
	Diameter       float64 // nm
	VolumeFraction float64
}

// Transformation describes a solid-to-solid phase change driven by sulfate
// attack: Grow forms at the expense of each Shrink phase, occupying
// VolumeRatio[i] times the volume of Shrink[i].
type Transformation struct {
	Grow        int
	Shrink      []int
	VolumeRatio []float64
}

// Impurity holds the mass fractions of the oxides released into solution
// when a clinker phase dissolves.
type Impurity struct {
	K2O, Na2O, MgO, SO3 float64
}

// ChemicalSystem is the thermodynamic model that the lattice is coupled to.
// Microstructure phases are identified by ids 0..NumMicroPhases()-1, where
// the ids Void and Electrolyte are reserved. Dependent components (DCs) are
// the species of the equilibrium calculation; each solid microstructure phase
// is made up of at least one DC, the first of which is returned by
// MicroPhaseDC.
type ChemicalSystem interface {
	NumMicroPhases() int
	MicroPhaseName(p int) string
	MicroPhaseID(name string) (int, bool)
	MicroPhaseDC(p int) int

	// MicroPhaseVolume returns the volume of the phase [m³] at the most
	// recent equilibrium state, on the basis of 100 g of initial solid.
	MicroPhaseVolume(p int) float64
	// MicroPhaseMass returns the mass of the phase per 100 g of initial solid.
	MicroPhaseMass(p int) float64
	SetMicroPhaseMass(p int, m float64)
	MicroPhasePorosity(p int) float64
	MicroPhaseSI(p int) float64
	PoreSizeDistribution(p int) []PoreBin
	IsCementComponent(p int) bool
	IsKinetic(p int) bool
	Impurities(p int) Impurity

	// IsGrowthTemplate reports whether phase q can serve as a template for
	// the growth of phase p.
	IsGrowthTemplate(p, q int) bool
	// Affinity is the affinity of phase p for growing next to phase q.
	Affinity(p, q int) float64

	// IsSaturated reports whether the pore system is kept saturated with
	// water (as opposed to sealed).
	IsSaturated() bool
	Transformations() []Transformation

	NumDCs() int
	DCName(i int) string
	DCID(name string) (int, bool)
	WaterDC() int
	DCMoles(i int) float64
	SetDCMoles(i int, moles float64)
	DCMolarMass(i int) float64   // g/mol
	DCMolarVolume(i int) float64 // m³/mol
	DCLowerLimit(i int) float64
	SetDCLowerLimit(i int, moles float64)
	// DCActivity returns the activity of an aqueous DC at the most recent
	// equilibrium state.
	DCActivity(i int) float64

	Temperature() float64
	SetTemperature(kelvin float64)

	// CalculateState computes the equilibrium state for the current DC
	// inventories. A failure to converge is reported as a *GEMError.
	CalculateState(time float64, isFirst bool, cycle int) error

	// CrystalStrain returns the expansion strain produced by crystallization
	// of phase p in a neighborhood with the given pore volume fraction and
	// bulk moduli [MPa].
	CrystalStrain(p int, poreVolumeFraction, bulk, solidBulk float64) float64
}

// Mechanics is the elastic stress calculation used for sulfate attack
// damage.
type Mechanics interface {
	// BulkModulus returns the effective bulk modulus [GPa] of a neighborhood
	// made up of the given phases.
	BulkModulus(phases []int) float64
	// SetEigenstrain sets the stress-free strain of site. A call with
	// site < 0 clears all eigenstrains.
	SetEigenstrain(site int, strain [3]float64)
	Solve() error
	// Stress returns the normal stress components [MPa] of site.
	Stress(site int) [3]float64
	// TensileStrength returns the tensile strength [MPa] of site.
	TensileStrength(site int) float64
}
