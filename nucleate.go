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

// isPorousSolid reports whether site id is a solid with internal porosity
// that is partly, but not completely, open.
func (l *Lattice) isPorousSolid(id int) bool {
	s := &l.sites[id]
	return isSolid(s.Phase) && s.Wmc0 > 1.0e-9 && s.Wmc0 < 0.99999
}

// nucleationCandidates returns the sites where a new phase may nucleate: all
// electrolyte sites and, when there are fewer than n of those, void sites
// next to a porous solid.
func (l *Lattice) nucleationCandidates(n int) []int {
	cand := make([]int, 0, l.count[Electrolyte])
	for id := range l.sites {
		if l.sites[id].Phase == Electrolyte {
			cand = append(cand, id)
		}
	}
	if len(cand) >= n {
		return cand
	}
	for id := range l.sites {
		if l.sites[id].Phase != Void {
			continue
		}
		for _, nb := range l.neighbors(id, NumNearest) {
			if l.isPorousSolid(nb) {
				cand = append(cand, id)
				break
			}
		}
	}
	return cand
}

// NucleatePhaseRnd converts up to n sites chosen uniformly at random from
// the nucleation candidates to phase p. It returns the number converted,
// which is less than n only when there are not enough candidates.
func (l *Lattice) NucleatePhaseRnd(p, n int) int {
	if n <= 0 {
		return 0
	}
	cand := l.nucleationCandidates(n)
	k := 0
	for k < n && len(cand) > 0 {
		i := l.rng.Intn(len(cand))
		id := cand[i]
		last := len(cand) - 1
		cand[i] = cand[last]
		cand = cand[:last]
		l.setPhase(id, p)
		k++
	}
	voxelsNucleated.Add(float64(k))
	return k
}

// NucleatePhaseAff is like NucleatePhaseRnd but chooses sites with
// probability proportional to the summed affinity of p for the phases
// around them: the 18 nearest and edge neighbors of an electrolyte site or
// the 6 face neighbors of a void site.
func (l *Lattice) NucleatePhaseAff(p, n int) int {
	if n <= 0 {
		return 0
	}
	cand := l.nucleationCandidates(n)
	vec := newWeightedSet(len(cand))
	for _, id := range cand {
		vec.add(id, l.nucleationAffinity(id, p))
	}
	k := 0
	for k < n && vec.len() > 0 {
		id := vec.pick(l.rng.Float64())
		vec.remove(id)
		l.setPhase(id, p)
		k++
		// The affinities around the new nucleus have changed.
		for _, nb := range l.neighbors(id, NumNearestEdge) {
			if vec.has(nb) {
				vec.set(nb, l.nucleationAffinity(nb, p))
			}
		}
	}
	voxelsNucleated.Add(float64(k))
	return k
}

func (l *Lattice) nucleationAffinity(id, p int) float64 {
	n := NumNearestEdge
	if l.sites[id].Phase == Void {
		n = NumNearest
	}
	var a float64
	for _, nb := range l.neighbors(id, n) {
		a += l.affinity[p][l.sites[nb].Phase]
	}
	return a
}
