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

import "github.com/sirupsen/logrus"

// dissolveObserver keeps the selection vector of a dissolution pass in step
// with the dissolution interfaces.
type dissolveObserver struct {
	l    *Lattice
	vec  *weightedSet
	left []int // indexed by phase
}

func (o *dissolveObserver) dissolutionChanged(id, p int, added bool) {
	if !added {
		o.vec.remove(id)
		return
	}
	if o.left[p] > 0 {
		o.vec.add(id, o.l.sites[id].Wmc)
	}
}

func (o *dissolveObserver) growthChanged(int, int, bool) {}

func (o *dissolveObserver) affinityChanged(int, int, float64) {}

func (o *dissolveObserver) wmcChanged(id int) {
	if o.vec.has(id) {
		o.vec.set(id, o.l.sites[id].Wmc)
	}
}

// DissolvePhase converts n[i] sites of phase phases[i] to electrolyte. Sites
// are drawn without replacement from the dissolution interfaces with
// probability proportional to their Wmc. If an interface runs out of sites
// before its quota is met the remainder is returned rather than treated as
// an error: left[i] is the number of sites of phases[i] that could not be
// dissolved.
func (l *Lattice) DissolvePhase(phases, n []int) (left []int) {
	o := &dissolveObserver{l: l, left: make([]int, l.numPhases)}
	total := 0
	for i, p := range phases {
		o.left[p] += n[i]
		total += n[i]
	}
	size := 0
	for p, k := range o.left {
		if k > 0 {
			size += l.interfaces[p].Dissolution.len()
		}
	}
	o.vec = newWeightedSet(size)
	for p, k := range o.left {
		if k <= 0 {
			continue
		}
		for _, is := range l.interfaces[p].Dissolution {
			o.vec.add(is.ID, l.sites[is.ID].Wmc)
		}
	}

	l.obs = o
	defer func() { l.obs = nil }()

	dissolved := 0
	for total > 0 && o.vec.len() > 0 {
		id := o.vec.pick(l.rng.Float64())
		p := l.sites[id].Phase
		l.setPhase(id, Electrolyte)
		o.left[p]--
		total--
		dissolved++
		if o.left[p] == 0 {
			for _, is := range l.interfaces[p].Dissolution {
				o.vec.remove(is.ID)
			}
		}
	}
	voxelsDissolved.Add(float64(dissolved))

	left = make([]int, len(phases))
	for i, p := range phases {
		if o.left[p] > 0 {
			// Assign the shortfall to the first entry for a phase.
			left[i] = o.left[p]
			o.left[p] = 0
		}
	}
	if total > 0 {
		l.log.WithFields(logrus.Fields{"requested": total + dissolved, "dissolved": dissolved}).
			Debug("dissolution interface exhausted")
	}
	return left
}
