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

// growObserver keeps the selection vector of a growth pass in step with the
// growth interfaces. Keys combine a site id and a phase.
type growObserver struct {
	l    *Lattice
	vec  *weightedSet
	left []int // indexed by phase
}

func (o *growObserver) key(id, p int) int { return id*o.l.numPhases + p }

func (o *growObserver) dissolutionChanged(int, int, bool) {}

func (o *growObserver) growthChanged(id, p int, added bool) {
	if !added {
		o.vec.remove(o.key(id, p))
		return
	}
	if o.left[p] > 0 {
		o.vec.add(o.key(id, p), o.l.growthAffinityOf(id, p))
	}
}

func (o *growObserver) affinityChanged(id, p int, affinity float64) {
	o.vec.set(o.key(id, p), affinity)
}

func (o *growObserver) wmcChanged(int) {}

// purge removes all entries of phase p from the selection vector.
func (o *growObserver) purge(p int) {
	for _, is := range o.l.interfaces[p].Growth {
		o.vec.remove(o.key(is.ID, p))
	}
}

// GrowPhase converts n[i] electrolyte sites to phase phases[i]. Sites are
// drawn from the growth interfaces with probability proportional to their
// affinity, or uniformly when all affinities are zero. A phase whose growth
// interface is empty is nucleated at random electrolyte sites instead.
//
// grown[i] is the number of sites converted to phases[i]. nucShort is true
// if there were not enough sites available for nucleation, in which case
// the simulation cannot continue.
func (l *Lattice) GrowPhase(phases, n []int) (grown []int, nucShort bool) {
	o := &growObserver{l: l, left: make([]int, l.numPhases)}
	total := 0
	for i, p := range phases {
		o.left[p] += n[i]
		total += n[i]
	}
	grownBy := make([]int, l.numPhases)
	size := 0
	for p, k := range o.left {
		if k > 0 {
			size += l.interfaces[p].Growth.len()
		}
	}
	o.vec = newWeightedSet(size)
	for p, k := range o.left {
		if k <= 0 {
			continue
		}
		for _, is := range l.interfaces[p].Growth {
			o.vec.add(o.key(is.ID, p), is.Affinity)
		}
	}

	l.obs = o
	defer func() { l.obs = nil }()

	for total > 0 {
		for _, p := range phases {
			if o.left[p] <= 0 || l.interfaces[p].Growth.len() > 0 {
				continue
			}
			want := o.left[p]
			k := l.NucleatePhaseRnd(p, want)
			o.left[p] -= k
			grownBy[p] += k
			total -= k
			if k < want {
				nucShort = true
			}
			if o.left[p] == 0 {
				o.purge(p)
			}
		}
		if nucShort || total <= 0 {
			break
		}
		key := o.vec.pick(l.rng.Float64())
		if key < 0 {
			nucShort = true
			break
		}
		id, p := key/l.numPhases, key%l.numPhases
		l.setPhase(id, p)
		o.left[p]--
		grownBy[p]++
		total--
		if o.left[p] == 0 {
			o.purge(p)
		}
	}

	grown = make([]int, len(phases))
	sum := 0
	for i, p := range phases {
		grown[i] = grownBy[p]
		grownBy[p] = 0
		sum += grown[i]
	}
	voxelsGrown.Add(float64(sum))
	if nucShort {
		l.log.WithFields(logrus.Fields{"remaining": total}).Warn("not enough sites to nucleate")
	}
	return grown, nucShort
}
