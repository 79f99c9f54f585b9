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
	"math"

	"github.com/sirupsen/logrus"
)

// impurityDCNames are the DCs that the oxide impurities of a dissolving
// clinker phase are released as, in the order K2O, Na2O, MgO, SO3.
var impurityDCNames = [4]string{"K2O", "Na2O", "Per", "SO3"}

func (i Impurity) fractions() [4]float64 { return [4]float64{i.K2O, i.Na2O, i.MgO, i.SO3} }

// KineticController calculates the change in mass of each kinetically
// controlled phase over a time step and stages the result as DC moles and
// DC lower limits for the next equilibrium calculation.
type KineticController struct {
	chem ChemicalSystem
	lat  *Lattice
	log  logrus.FieldLogger

	laws []*RateLaw

	leachTime, sulfateAttackTime float64

	// State at the start of the most recent step, restored on the tweak
	// path.
	scaledMassIni []float64
	dcMolesIni    []float64

	// dcMoles holds the DC moles handed to the equilibrium calculation.
	dcMoles []float64

	// impurity holds the moles of each impurity DC released by each law in
	// the most recent step.
	impurity   [][4]float64
	impurityDC [4]int

	initScaledCementMass float64
}

// NewKineticController creates a controller for the given rate laws. The
// initial masses of the phases are taken from chem, which must already have
// been initialized by NewLattice.
func NewKineticController(cfg *Config, chem ChemicalSystem, lat *Lattice, laws []*RateLaw, log logrus.FieldLogger) (*KineticController, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	k := &KineticController{
		chem:              chem,
		lat:               lat,
		log:               log,
		laws:              laws,
		leachTime:         cfg.LeachTime,
		sulfateAttackTime: cfg.SulfateAttackTime,
		scaledMassIni:     make([]float64, len(laws)),
		dcMolesIni:        make([]float64, chem.NumDCs()),
		dcMoles:           make([]float64, chem.NumDCs()),
		impurity:          make([][4]float64, len(laws)),
	}
	for i, name := range impurityDCNames {
		k.impurityDC[i] = -1
		if id, ok := chem.DCID(name); ok {
			k.impurityDC[i] = id
		}
	}
	seen := make(map[int]bool)
	for _, law := range laws {
		if err := law.init(chem, cfg.Temperature, cfg.RelativeHumidity, lat.WSRatio()); err != nil {
			return nil, err
		}
		if seen[law.phase] {
			return nil, &DataError{Where: Where{"KineticController", "NewKineticController"}, Variable: "phase",
				Msg: fmt.Sprintf("phase %s has more than one rate law", law.Phase)}
		}
		seen[law.phase] = true
	}
	k.initScaledCementMass = k.scaledCementMass()
	k.setPozzEffectOnPK()
	for i := range k.dcMoles {
		k.dcMoles[i] = chem.DCMoles(i)
	}
	return k, nil
}

// setPozzEffectOnPK slows down the clinker phases in proportion to the
// reactivity of the pozzolans present and the largest loss on ignition.
func (k *KineticController) setPozzEffectOnPK() {
	maxLOI := refLOI
	minEffect := 1.0
	for _, law := range k.laws {
		maxLOI = math.Max(maxLOI, law.LossOnIgnition)
		if law.Kind != Pozzolanic {
			continue
		}
		effect := math.Pow(law.SiO2/refSiO2, 2) * law.ssaFactor
		minEffect = math.Min(minEffect, effect)
		k.log.WithFields(logrus.Fields{"phase": law.Phase, "effect": effect}).Debug("pozzolan effect on clinker kinetics")
	}
	minEffect *= refLOI / maxLOI
	for _, law := range k.laws {
		if law.Kind == ParrotKilloh {
			law.setPfk(minEffect)
		}
	}
}

// scaledCementMass returns the total scaled mass of the cement components.
func (k *KineticController) scaledCementMass() float64 {
	var m float64
	for p := FirstSolid; p < k.chem.NumMicroPhases(); p++ {
		if k.chem.IsCementComponent(p) {
			m += k.chem.MicroPhaseMass(p)
		}
	}
	return m
}

// totalDOR returns the overall degree of reaction of the cement.
func (k *KineticController) totalDOR() (float64, error) {
	if k.initScaledCementMass <= 0 {
		for _, law := range k.laws {
			if law.Kind == ParrotKilloh {
				return 0, &FloatError{Where: Where{"KineticController", "CalculateKineticStep"},
					Msg: "initial scaled cement mass is 0"}
			}
		}
		return 0, nil
	}
	dor := (k.initScaledCementMass - k.scaledCementMass()) / k.initScaledCementMass
	if dor < -1.0e-12 {
		return 0, &DataError{Where: Where{"KineticController", "CalculateKineticStep"}, Variable: "totalDOR",
			Msg: fmt.Sprintf("negative degree of reaction %g", dor)}
	}
	return math.Max(dor, 0), nil
}

// CalculateKineticStep advances the kinetically controlled phases by dt [h]
// to time [h]. If tweak is true the previous step failed to equilibrate and
// is repeated from the state saved at its start. Kinetic control stops once
// leaching or sulfate attack begins.
func (k *KineticController) CalculateKineticStep(time, dt float64, cycle int, tweak bool) error {
	if tweak {
		for i, law := range k.laws {
			k.chem.SetMicroPhaseMass(law.phase, k.scaledMassIni[i])
		}
		copy(k.dcMoles, k.dcMolesIni)
	} else {
		for i, law := range k.laws {
			k.scaledMassIni[i] = k.chem.MicroPhaseMass(law.phase)
		}
		for i := range k.dcMoles {
			k.dcMoles[i] = k.chem.DCMoles(i)
		}
		copy(k.dcMolesIni, k.dcMoles)
	}

	if time < k.leachTime && time < k.sulfateAttackTime {
		dor, err := k.totalDOR()
		if err != nil {
			return err
		}
		k.log.WithFields(logrus.Fields{"cycle": cycle, "time": time, "dt": dt, "totalDOR": dor, "tweak": tweak}).
			Debug("kinetic step")
		for i, law := range k.laws {
			mass := k.scaledMassIni[i]
			if mass == 0 && law.Kind == ParrotKilloh {
				continue
			}
			newMass, dissolved, err := law.step(k, dt, mass)
			if err != nil {
				return err
			}
			k.chem.SetMicroPhaseMass(law.phase, newMass)
			k.stageDissolution(i, dissolved, false)
		}
	}
	for i, m := range k.dcMoles {
		k.chem.SetDCMoles(i, m)
	}
	return nil
}

// stageDissolution adds the impurities released by dissolving mass [g per
// 100 g of solid] of the phase of law i to the DC moles and sets the lower
// limit of the phase DC to the moles that must remain. If replace is true
// the impurities of the previous staging for the law are removed first.
func (k *KineticController) stageDissolution(i int, dissolved float64, replace bool) {
	law := k.laws[i]
	frac := k.chem.Impurities(law.phase).fractions()
	var impurityMass float64
	for j, dc := range k.impurityDC {
		if dc < 0 {
			continue
		}
		if replace {
			k.dcMoles[dc] -= k.impurity[i][j]
		}
		m := dissolved * frac[j]
		impurityMass += m
		k.impurity[i][j] = m / k.chem.DCMolarMass(dc)
		k.dcMoles[dc] += k.impurity[i][j]
	}
	keep := k.dcMoles[law.dc] - (dissolved-impurityMass)/k.chem.DCMolarMass(law.dc)
	k.chem.SetDCLowerLimit(law.dc, keep)
}

// UpdateKineticStep repeats the most recent step for phase p alone, with its
// scaled mass fixed to scaledMass, and returns the mass dissolved. It is used
// when the lattice could not dissolve as much of p as the step required.
func (k *KineticController) UpdateKineticStep(cycle, p int, scaledMass float64) (float64, error) {
	idx := -1
	for i, law := range k.laws {
		if law.phase == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, &DataError{Where: Where{"KineticController", "UpdateKineticStep"}, Variable: "phase",
			Msg: fmt.Sprintf("phase %d is not kinetically controlled", p)}
	}
	dissolved := k.scaledMassIni[idx] - scaledMass
	k.chem.SetMicroPhaseMass(p, scaledMass)
	k.stageDissolution(idx, dissolved, true)
	for i, m := range k.dcMoles {
		k.chem.SetDCMoles(i, m)
	}
	k.log.WithFields(logrus.Fields{"cycle": cycle, "phase": k.laws[idx].Phase, "dissolved": dissolved}).
		Debug("updated kinetic step")
	return dissolved, nil
}

// RateLaws returns the rate laws of the controller.
func (k *KineticController) RateLaws() []*RateLaw { return k.laws }

func (k *KineticController) saturationIndex(p int) float64 { return k.chem.MicroPhaseSI(p) }

func (k *KineticController) activity(name string) float64 {
	if id, ok := k.chem.DCID(name); ok {
		return k.chem.DCActivity(id)
	}
	return 0
}

func (k *KineticController) waterActivity() float64 { return k.chem.DCActivity(k.chem.WaterDC()) }

func (k *KineticController) surfaceArea(p int) float64 { return k.lat.SurfaceArea(p) }

func (k *KineticController) molarMass(dc int) float64 { return k.chem.DCMolarMass(dc) }
