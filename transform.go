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
	"github.com/sirupsen/logrus"
)

// TransformResult is the outcome of a call to TransformPhase.
type TransformResult struct {
	// Left holds, for each shrinking phase, the number of sites that could
	// not be transformed.
	Left []int

	// Grown is the number of sites converted to the growing phase,
	// including the sites converted from electrolyte.
	Grown int

	// Short is the index into the shrinking phases of a phase whose
	// dissolution interface ran out before its quota was met, or -1.
	Short int
}

// transformObserver keeps the uniform selection vector of a transformation
// pass in step with the dissolution interfaces of the shrinking phases.
type transformObserver struct {
	vec     *weightedSet
	shrinks map[int]int // phase -> index into the shrinking phases
}

func (o *transformObserver) dissolutionChanged(id, p int, added bool) {
	if added {
		return
	}
	if _, ok := o.shrinks[p]; ok {
		o.vec.remove(id)
	}
}

func (o *transformObserver) growthChanged(int, int, bool) {}

func (o *transformObserver) affinityChanged(int, int, float64) {}

func (o *transformObserver) wmcChanged(int) {}

// TransformPhase converts sites of the shrinking phases directly into the
// growing phase grow, as happens when monosulfate converts to ettringite
// during sulfate attack. shrink[i] loses at most n[i] sites and grow gains
// at most netGrow sites.
//
// Each transformed site takes with it enough neighboring electrolyte sites
// to account for the volume ratio ratio[i] of the reaction. If the site has
// too few electrolyte neighbors to accommodate the new volume, the
// crystallization strain computed by the chemical system is applied to its
// neighborhood.
func (l *Lattice) TransformPhase(mech Mechanics, grow, netGrow int, shrink, n []int, ratio []float64) TransformResult {
	res := TransformResult{Left: append([]int(nil), n...), Short: -1}
	o := &transformObserver{shrinks: make(map[int]int, len(shrink))}
	total := 0
	size := 0
	for i, p := range shrink {
		o.shrinks[p] = i
		total += n[i]
		size += l.interfaces[p].Dissolution.len()
	}
	o.vec = newWeightedSet(size)
	for _, p := range shrink {
		for _, is := range l.interfaces[p].Dissolution {
			o.vec.add(is.ID, 1)
		}
	}

	l.obs = o
	defer func() { l.obs = nil }()

	var strained int
	for total > 0 && o.vec.len() > 0 && res.Grown < netGrow {
		id := o.vec.pick(l.rng.Float64())
		i := o.shrinks[l.sites[id].Phase]
		vr := ratio[i]
		max := int(vr)

		var water []int
		for _, nb := range l.neighbors(id, NumNearest) {
			if l.sites[nb].Phase == Electrolyte {
				water = append(water, nb)
			}
		}

		// Sites of grow still wanted besides id itself.
		room := netGrow - res.Grown - 1

		if len(water)+1 <= max {
			if l.strainNeighborhood(mech, id, grow, vr) {
				strained++
			}
			l.setPhase(id, grow)
			if len(water) > room {
				water = water[:room]
			}
			for _, w := range water {
				l.setPhase(w, grow)
				res.Grown++
			}
		} else {
			l.setPhase(id, grow)
			k := max - 1
			if l.rng.Float64() < vr-float64(max) {
				k = max
			}
			if k > room {
				k = room
			}
			for ; k > 0 && len(water) > 0; k-- {
				j := l.rng.Intn(len(water))
				l.setPhase(water[j], grow)
				water[j] = water[len(water)-1]
				water = water[:len(water)-1]
				res.Grown++
			}
		}
		res.Left[i]--
		res.Grown++
		total--
		if res.Left[i] == 0 {
			for _, is := range l.interfaces[shrink[i]].Dissolution {
				o.vec.remove(is.ID)
			}
		}
	}
	if total > 0 && res.Grown < netGrow {
		for i, k := range res.Left {
			if k > 0 {
				res.Short = i
				break
			}
		}
	}
	l.log.WithFields(logrus.Fields{
		"phase":    l.chem.MicroPhaseName(grow),
		"grown":    res.Grown,
		"strained": strained,
	}).Debug("transformed phase")
	return res
}

// strainNeighborhood computes the crystallization strain of phase grow
// forming at site id and applies it to the 27-site neighborhood of id if it
// is positive.
func (l *Lattice) strainNeighborhood(mech Mechanics, id, grow int, volumeRatio float64) bool {
	nh := l.Neighborhood(id)
	phases := make([]int, len(nh))
	var numWater, totalPorosity float64
	for j, s := range nh {
		phases[j] = l.sites[s].Phase
		if phases[j] == Electrolyte {
			numWater++
		}
		totalPorosity += l.sites[s].Wmc0
	}
	bulk := mech.BulkModulus(phases) * 1.0e3 // GPa to MPa
	w := numWater / NumNeighborhood
	solidBulk := bulk * (1 + w) / (1 - w)
	poreVolFrac := 1.0
	if totalPorosity > 0 {
		poreVolFrac = volumeRatio / totalPorosity
	}
	strain := l.chem.CrystalStrain(grow, poreVolFrac, bulk, solidBulk)
	if strain <= 0 {
		return false
	}
	l.applyExpansion(nh, strain)
	return true
}

// applyExpansion sets the expansion strain of each of the sites to strain
// unless the site is already more strained.
func (l *Lattice) applyExpansion(sites []int, strain float64) {
	for _, id := range sites {
		if e, ok := l.expansion[id]; ok && e[0] >= strain {
			continue
		}
		l.expansion[id] = [3]float64{strain, strain, strain}
		x, y, z := l.coords(id)
		l.expansionCoordin[id] = [3]int{x, y, z}
	}
}

// Expansion returns the expansion strain of site id and whether it has one.
func (l *Lattice) Expansion(id int) ([3]float64, bool) {
	e, ok := l.expansion[id]
	return e, ok
}

// SetExpansion sets the expansion strain of site id.
func (l *Lattice) SetExpansion(id int, e [3]float64) {
	l.expansion[id] = e
	x, y, z := l.coords(id)
	l.expansionCoordin[id] = [3]int{x, y, z}
}

// NumExpansionSites returns the number of sites with an expansion strain.
func (l *Lattice) NumExpansionSites() int { return len(l.expansion) }

const (
	// damagePore is the Wmc added to a site, and to each of its neighbors,
	// when it is strained or damaged.
	damagePore = 0.5

	// damagePoreIncrease is the additional volume strain (summed over the
	// three directions) of a damaged site under tensile stress.
	damagePoreIncrease = 0.2

	// damageStress is the stress [MPa] in any direction above which an
	// already damaged site keeps expanding.
	damageStress = 1.0
)

// ApplyDamage passes the expansion strains of the lattice to the mechanics
// solver as eigenstrains, solves for the stress field, and marks solid sites
// whose stress exceeds their tensile strength as damaged. Damaged sites gain
// porosity, which lets their neighbors dissolve. It returns the number of
// damaged sites.
func (l *Lattice) ApplyDamage(mech Mechanics) (int, error) {
	mech.SetEigenstrain(-1, [3]float64{})
	for id, e := range l.expansion {
		mech.SetEigenstrain(id, e)
		l.addDamagePorosity(id, numNeighbors)
	}
	if err := mech.Solve(); err != nil {
		return 0, err
	}

	count := 0
	for id := range l.sites {
		s := &l.sites[id]
		stress := mech.Stress(id)
		if s.Damage {
			count++
			if exceeds(stress, damageStress) {
				e := l.expansion[id]
				for k := range e {
					e[k] += damagePoreIncrease / 3
				}
				l.SetExpansion(id, e)
				l.waterChange += damagePoreIncrease
			}
		}
		if !isSolid(s.Phase) || s.Damage {
			continue
		}
		if exceeds(stress, mech.TensileStrength(id)) {
			s.Damage = true
			count++
			l.addDamagePorosity(id, numNeighbors)
		}
	}
	l.damageCount = count
	l.log.WithFields(logrus.Fields{"damaged": count, "expanded": len(l.expansion)}).Info("calculated damage")
	return count, nil
}

// addDamagePorosity adds damagePore to the Wmc of site id and its first n
// neighbors and lets any solid site that has thereby come into contact with
// porosity dissolve.
func (l *Lattice) addDamagePorosity(id, n int) {
	l.dWmc(id, damagePore)
	if isSolid(l.sites[id].Phase) && l.sites[id].Wmc > wmcTol {
		l.addDissolutionSite(id, l.sites[id].Phase)
	}
	for _, nb := range l.neighbors(id, n) {
		l.dWmc(nb, damagePore)
		if isSolid(l.sites[nb].Phase) && l.sites[nb].Wmc > wmcTol {
			l.addDissolutionSite(nb, l.sites[nb].Phase)
		}
	}
}

func exceeds(stress [3]float64, limit float64) bool {
	return stress[0] >= limit || stress[1] >= limit || stress[2] >= limit
}
