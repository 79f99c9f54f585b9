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
	"io"
	"math"
	"strings"

	"github.com/BurntSushi/toml"
)

// RateLawKind identifies the rate law of a kinetically controlled phase.
type RateLawKind int

// Rate law kinds.
const (
	// ParrotKilloh is the Parrot and Killoh model of clinker hydration,
	// taking the slowest of nucleation and growth, hydration shell and
	// diffusion control.
	ParrotKilloh RateLawKind = iota
	// Pozzolanic is a surface reaction model for pozzolans with
	// alkali and calcium adsorption and diffusion control.
	Pozzolanic
	// Standard is a surface reaction model driven by the saturation index.
	Standard
)

func (k RateLawKind) String() string {
	switch k {
	case ParrotKilloh:
		return "ParrotKilloh"
	case Pozzolanic:
		return "Pozzolanic"
	case Standard:
		return "Standard"
	}
	return fmt.Sprintf("RateLawKind(%d)", int(k))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RateLawKind) UnmarshalText(text []byte) error {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	switch strings.ToLower(r.Replace(string(text))) {
	case "parrotkilloh", "pk":
		*k = ParrotKilloh
	case "pozzolanic":
		*k = Pozzolanic
	case "standard":
		*k = Standard
	default:
		return fmt.Errorf("thames: invalid rate law %q", text)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k RateLawKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// RateLaw holds the kinetic parameters of one kinetically controlled
// microstructure phase. Only the parameters of its Kind are used.
type RateLaw struct {
	Kind  RateLawKind `toml:"kind"`
	Phase string      `toml:"phase"`

	ActivationEnergy       float64 `toml:"activation_energy"` // J/mol
	RefTemperature         float64 `toml:"ref_temperature"`   // K
	SpecificSurfaceArea    float64 `toml:"ssa"`               // m²/kg
	RefSpecificSurfaceArea float64 `toml:"ref_ssa"`           // m²/kg
	LossOnIgnition         float64 `toml:"loi"`               // %

	// Parrot-Killoh rate constants and exponents.
	K1 float64 `toml:"k1"`
	K2 float64 `toml:"k2"`
	K3 float64 `toml:"k3"`
	N1 float64 `toml:"n1"`
	N3 float64 `toml:"n3"`

	// Surface reaction parameters.
	DissolutionRateConst    float64 `toml:"dissolution_rate_const"` // mol/m²/h
	DiffusionRateConstEarly float64 `toml:"diffusion_rate_const_early"`
	SIExp                   float64 `toml:"si_exp"`
	DFExp                   float64 `toml:"df_exp"`
	DissolvedUnits          float64 `toml:"dissolved_units"`
	OHExp                   float64 `toml:"oh_exp"`
	SiO2                    float64 `toml:"sio2"` // mass fraction
	SurfaceAreaMultiplier   float64 `toml:"surface_area_multiplier"`

	phase, dc      int
	initScaledMass float64
	arrhenius      float64
	rhFactor       float64
	ssaFactor      float64
	pfk            float64
	wcRatio        float64
}

// Rate limits [1/h or mol/h] used in place of vanishing or unbounded rates.
const (
	minRate = 1.0e-10
	maxRate = 1.0e9
)

// Adsorption rate and equilibrium constants of the ions that accelerate
// pozzolan dissolution.
var pozzolanAdsorption = []struct {
	dc   string
	k, K float64
}{
	{"Ca+2", 0.00144, 10.0},
	{"Na+", 0.002286, 58.3},
	{"K+", 0.002016, 46.6},
}

// Reference values for the effect of pozzolans on clinker kinetics.
const (
	refLOI     = 0.8
	refSiO2    = 0.94
	minPfk     = 1.0e-5
	refRHLimit = 0.55
)

// ReadRateLaws reads the rate laws of the kinetically controlled phases
// from a TOML document holding an array of [[ratelaw]] tables.
func ReadRateLaws(r io.Reader) ([]*RateLaw, error) {
	var doc struct {
		RateLaw []*RateLaw `toml:"ratelaw"`
	}
	if _, err := toml.DecodeReader(r, &doc); err != nil {
		return nil, fmt.Errorf("thames: reading rate laws: %v", err)
	}
	for _, law := range doc.RateLaw {
		if law.RefTemperature == 0 {
			law.RefTemperature = RefTemperature
		}
		if law.RefSpecificSurfaceArea == 0 {
			law.RefSpecificSurfaceArea = law.SpecificSurfaceArea
		}
		if law.SurfaceAreaMultiplier == 0 {
			law.SurfaceAreaMultiplier = 1
		}
		if law.DissolvedUnits == 0 {
			law.DissolvedUnits = 1
		}
		if law.SIExp == 0 {
			law.SIExp = 1
		}
		if law.DFExp == 0 {
			law.DFExp = 1
		}
	}
	return doc.RateLaw, nil
}

// init resolves the phase of the rate law and sets the factors that are
// constant over a simulation.
func (r *RateLaw) init(chem ChemicalSystem, temperature, rh, wcRatio float64) error {
	p, ok := chem.MicroPhaseID(r.Phase)
	if !ok {
		return &DataError{Where: Where{"RateLaw", "init"}, Variable: "phase",
			Msg: fmt.Sprintf("unknown kinetic phase %q", r.Phase)}
	}
	if !isSolid(p) {
		return &DataError{Where: Where{"RateLaw", "init"}, Variable: "phase",
			Msg: fmt.Sprintf("kinetic phase %q is not a solid", r.Phase)}
	}
	r.phase = p
	r.dc = chem.MicroPhaseDC(p)
	r.initScaledMass = chem.MicroPhaseMass(p)
	r.arrhenius = math.Exp(r.ActivationEnergy / GasConstant * (1/r.RefTemperature - 1/temperature))
	r.ssaFactor = 1
	if r.RefSpecificSurfaceArea > 0 {
		r.ssaFactor = r.SpecificSurfaceArea / r.RefSpecificSurfaceArea
	}
	r.pfk = 1
	r.wcRatio = wcRatio
	switch r.Kind {
	case ParrotKilloh:
		if r.N1 == 0 {
			return &FloatError{Where: Where{"RateLaw", "init"}, Msg: fmt.Sprintf("n1 of %s is 0", r.Phase)}
		}
		r.rhFactor = math.Pow((math.Max(rh, refRHLimit+0.001)-refRHLimit)/(1-refRHLimit), 4)
	default:
		r.rhFactor = rh
	}
	return nil
}

// setPfk sets the factor applied to the Parrot-Killoh rate constants to
// account for the presence of pozzolans.
func (r *RateLaw) setPfk(pfk float64) {
	r.pfk = math.Max(pfk, minPfk)
}

// kineticEnv is the state a rate law reads besides its own mass.
type kineticEnv interface {
	saturationIndex(p int) float64
	activity(dc string) float64
	waterActivity() float64
	surfaceArea(p int) float64
	molarMass(dc int) float64
}

// step advances the scaled mass [g per 100 g of initial solid] of the
// phase by dt [h] and returns the new mass and the mass dissolved, which is
// negative for a phase that grew.
func (r *RateLaw) step(env kineticEnv, dt, scaledMass float64) (newMass, dissolved float64, err error) {
	if r.initScaledMass <= 0 {
		return scaledMass, 0, &FloatError{Where: Where{"RateLaw", "step"},
			Msg: fmt.Sprintf("initial scaled mass of %s is 0", r.Phase)}
	}
	switch r.Kind {
	case ParrotKilloh:
		return r.parrotKilloh(dt, scaledMass)
	case Pozzolanic:
		dissolved = r.pozzolanic(env, dt, scaledMass)
	case Standard:
		dissolved = r.standard(env, dt, scaledMass)
	default:
		return scaledMass, 0, &DataError{Where: Where{"RateLaw", "step"}, Variable: "kind",
			Msg: fmt.Sprintf("invalid rate law %v", r.Kind)}
	}
	newMass = scaledMass - dissolved
	if newMass < 0 {
		dissolved = scaledMass
		newMass = 0
	}
	return newMass, dissolved, nil
}

// parrotKilloh returns the new scaled mass and the mass dissolved.
func (r *RateLaw) parrotKilloh(dt, scaledMass float64) (float64, float64, error) {
	doh := math.Min((r.initScaledMass-scaledMass)/r.initScaledMass, 0.99)
	wcFactor := 1.0
	if doh > 1.333*r.wcRatio {
		wcFactor = math.Pow(1+4.444*r.wcRatio-3.333*doh, 4)
	}
	k1, k2, k3 := r.K1*r.pfk, r.K2*r.pfk, r.K3*r.pfk

	ngrate := k1 / r.N1 * (1 - doh) * math.Pow(-math.Log(1-doh), 1-r.N1) * r.ssaFactor
	if ngrate < minRate || math.IsNaN(ngrate) {
		ngrate = minRate
	}
	hsrate := math.Max(k3*math.Pow(1-doh, r.N3), minRate)
	diffrate := maxRate
	if doh > 0 {
		diffrate = math.Max(k2*math.Pow(1-doh, 2.0/3.0)/(1-math.Pow(1-doh, 1.0/3.0)), minRate)
	}
	rate := math.Min(ngrate, math.Min(hsrate, diffrate))
	rate *= wcFactor * r.rhFactor * r.arrhenius

	newDOH := math.Min(doh+rate*dt, 1)
	return r.initScaledMass * (1 - newDOH), (newDOH - doh) * r.initScaledMass, nil
}

// pozzolanic returns the mass of the phase dissolved in dt.
func (r *RateLaw) pozzolanic(env kineticEnv, dt, scaledMass float64) float64 {
	dor := (r.initScaledMass - scaledMass) / r.initScaledMass
	k := r.DissolutionRateConst
	for _, ion := range pozzolanAdsorption {
		c := env.activity(ion.dc)
		k += ion.k * ion.K * c / (1 + ion.K*c)
	}
	area := env.surfaceArea(r.phase) * r.SurfaceAreaMultiplier
	si := env.saturationIndex(r.phase)
	aw := env.waterActivity()
	base := k * r.rhFactor * math.Pow(env.activity("OH-"), r.OHExp) * area * aw * aw *
		(1 - r.LossOnIgnition/100) * r.SiO2
	surface := base * drivingForce(si, r.SIExp, r.DFExp)

	diff := maxRate
	if dor > 0 {
		diff = r.DiffusionRateConstEarly * math.Abs(math.Pow(si, 1/r.DissolvedUnits)-1)
		diff = math.Max(diff, minRate)
	}
	rate := surface
	if diff < math.Abs(rate) {
		rate = math.Copysign(diff, surface)
	}
	return rate * r.arrhenius * dt * env.molarMass(r.dc)
}

// standard returns the mass of the phase dissolved in dt.
func (r *RateLaw) standard(env kineticEnv, dt, scaledMass float64) float64 {
	area := r.SpecificSurfaceArea / 1000 * scaledMass // m²
	si := env.saturationIndex(r.phase)
	rate := r.DissolutionRateConst * area * drivingForce(si, r.SIExp, r.DFExp)
	return rate * r.rhFactor * r.arrhenius * dt * env.molarMass(r.dc)
}

// drivingForce is positive for an undersaturated phase and negative for a
// supersaturated one.
func drivingForce(si, siExp, dfExp float64) float64 {
	if si < 1 {
		return math.Pow(1-math.Pow(si, siExp), dfExp)
	}
	return -math.Pow(math.Pow(si, siExp)-1, dfExp)
}
