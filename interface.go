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

// Interface holds the sites where a phase can grow and the sites where it
// can dissolve.
type Interface struct {
	Phase       int
	Growth      isiteList
	Dissolution isiteList
}

// observer is notified of interface changes while a dissolution or growth
// pass is maintaining its own selection vector.
type observer interface {
	dissolutionChanged(id, p int, added bool)
	growthChanged(id, p int, added bool)
	affinityChanged(id, p int, affinity float64)
	wmcChanged(id int)
}

// FindInterfaces builds the growth and dissolution interfaces of every solid
// phase from scratch.
//
// A site of phase p with a positive Wmc is a dissolution site of p. An
// electrolyte site is a growth site of p if any of its 18 nearest and edge
// neighbors is of phase p, or if any of its 6 face neighbors is a growth
// template for p.
func (l *Lattice) FindInterfaces() {
	for p := range l.interfaces {
		l.interfaces[p].Growth = l.interfaces[p].Growth[:0]
		l.interfaces[p].Dissolution = l.interfaces[p].Dissolution[:0]
	}
	for i := range l.sites {
		s := &l.sites[i]
		s.DissPos = -1
		s.Growth = s.Growth[:0]
		for p := range s.GrowthPos {
			s.GrowthPos[p] = -1
		}
	}

	growth := make([][]int, l.numPhases)
	for id := range l.sites {
		s := &l.sites[id]
		if !isSolid(s.Phase) {
			continue
		}
		p := s.Phase
		if s.Wmc > wmcTol {
			l.addDissolutionSite(id, p)
		}
		for j, nb := range l.neighbors(id, NumNearestEdge) {
			if l.sites[nb].Phase != Electrolyte {
				continue
			}
			growth[p] = append(growth[p], nb)
			if j < NumNearest {
				for _, q := range l.templatesOf[p] {
					growth[q] = append(growth[q], nb)
				}
			}
		}
	}
	for p := FirstSolid; p < l.numPhases; p++ {
		for _, id := range sortUnique(growth[p]) {
			l.addGrowthSite(id, p)
		}
	}
}

// growthAffinity returns the affinity of phase p for electrolyte site id:
// the sum of the affinities of p for the phases of the 18 nearest and edge
// neighbors of id.
func (l *Lattice) growthAffinity(id, p int) float64 {
	var a float64
	aff := l.affinity[p]
	for _, nb := range l.neighbors(id, NumNearestEdge) {
		a += aff[l.sites[nb].Phase]
	}
	return a
}

// addDissolutionSite adds site id to the dissolution interface of phase p.
// It returns false if the site was already there.
func (l *Lattice) addDissolutionSite(id, p int) bool {
	s := &l.sites[id]
	if s.DissPos >= 0 {
		return false
	}
	s.DissPos = l.interfaces[p].Dissolution.add(Isite{ID: id})
	if l.obs != nil {
		l.obs.dissolutionChanged(id, p, true)
	}
	return true
}

// removeDissolutionSite removes site id from the dissolution interface of
// its phase. It returns false if the site was not there.
func (l *Lattice) removeDissolutionSite(id int) bool {
	s := &l.sites[id]
	if s.DissPos < 0 {
		return false
	}
	p := s.Phase
	intf := &l.interfaces[p]
	if moved := intf.Dissolution.remove(s.DissPos); moved >= 0 {
		l.sites[moved].DissPos = s.DissPos
	}
	s.DissPos = -1
	if l.obs != nil {
		l.obs.dissolutionChanged(id, p, false)
	}
	return true
}

// addGrowthSite adds electrolyte site id to the growth interface of phase p.
// It returns false if the site was already there.
func (l *Lattice) addGrowthSite(id, p int) bool {
	s := &l.sites[id]
	if s.GrowthPos[p] >= 0 {
		return false
	}
	s.GrowthPos[p] = l.interfaces[p].Growth.add(Isite{ID: id, Affinity: l.growthAffinity(id, p)})
	s.Growth = append(s.Growth, p)
	if l.obs != nil {
		l.obs.growthChanged(id, p, true)
	}
	return true
}

// removeGrowthSite removes site id from the growth interface of phase p. It
// returns false if the site was not there.
func (l *Lattice) removeGrowthSite(id, p int) bool {
	s := &l.sites[id]
	pos := s.GrowthPos[p]
	if pos < 0 {
		return false
	}
	if moved := l.interfaces[p].Growth.remove(pos); moved >= 0 {
		l.sites[moved].GrowthPos[p] = pos
	}
	s.GrowthPos[p] = -1
	s.removeGrowthPhase(p)
	if l.obs != nil {
		l.obs.growthChanged(id, p, false)
	}
	return true
}

// removeAllGrowth removes site id from every growth interface.
func (l *Lattice) removeAllGrowth(id int) {
	s := &l.sites[id]
	for len(s.Growth) > 0 {
		l.removeGrowthSite(id, s.Growth[len(s.Growth)-1])
	}
}

// growthAffinityOf returns the affinity stored for site id in the growth
// interface of p.
func (l *Lattice) growthAffinityOf(id, p int) float64 {
	pos := l.sites[id].GrowthPos[p]
	if pos < 0 {
		return 0
	}
	return l.interfaces[p].Growth[pos].Affinity
}

// isGrowthSupported reports whether phase p may grow at electrolyte site id.
func (l *Lattice) isGrowthSupported(id, p int) bool {
	for _, nb := range l.neighbors(id, NumNearestEdge) {
		if l.sites[nb].Phase == p {
			return true
		}
	}
	for _, nb := range l.neighbors(id, NumNearest) {
		if l.template[p][l.sites[nb].Phase] {
			return true
		}
	}
	return false
}

// addGrowthSites adds electrolyte site id to the growth interfaces of every
// phase its neighbors support.
func (l *Lattice) addGrowthSites(id int) {
	for j, nb := range l.neighbors(id, NumNearestEdge) {
		q := l.sites[nb].Phase
		if !isSolid(q) {
			continue
		}
		l.addGrowthSite(id, q)
		if j < NumNearest {
			for _, p := range l.templatesOf[q] {
				l.addGrowthSite(id, p)
			}
		}
	}
}

// pruneGrowth removes electrolyte site id from the growth interfaces of
// phases that its neighbors no longer support.
func (l *Lattice) pruneGrowth(id int) {
	s := &l.sites[id]
	for i := len(s.Growth) - 1; i >= 0; i-- {
		p := s.Growth[i]
		if !l.isGrowthSupported(id, p) {
			l.removeGrowthSite(id, p)
		}
	}
}

// dWmc adds dw to the Wmc of site id.
func (l *Lattice) dWmc(id int, dw float64) {
	l.sites[id].dWmc(dw)
	if l.obs != nil {
		l.obs.wmcChanged(id)
	}
}

// setPhase changes the phase of site id to p and updates the Wmc of the site
// and its neighbors, the site counts, and every interface affected by the
// change.
func (l *Lattice) setPhase(id, p int) {
	s := &l.sites[id]
	old := s.Phase
	if old == p {
		return
	}
	if isSolid(old) {
		l.removeDissolutionSite(id)
	}
	if old == Electrolyte {
		l.removeAllGrowth(id)
	}
	l.count[old]--
	l.count[p]++
	s.Phase = p

	w0 := l.newWmc0(p)
	dw := w0 - s.Wmc0
	s.Wmc0 = w0
	if dw != 0 {
		l.dWmc(id, dw)
		for _, nb := range l.neighbors(id, NumNearestEdge) {
			l.dWmc(nb, dw)
		}
	}
	if isSolid(p) && s.Wmc > wmcTol {
		l.addDissolutionSite(id, p)
	}
	if p == Electrolyte {
		l.addGrowthSites(id)
	}

	for j, nb := range l.neighbors(id, NumNearestEdge) {
		n := &l.sites[nb]
		switch {
		case n.Phase == Electrolyte:
			l.shiftAffinities(nb, old, p)
			if isSolid(p) {
				l.addGrowthSite(nb, p)
				if j < NumNearest {
					for _, q := range l.templatesOf[p] {
						l.addGrowthSite(nb, q)
					}
				}
			}
			if isSolid(old) {
				l.pruneGrowth(nb)
			}
		case isSolid(n.Phase):
			if n.Wmc > wmcTol {
				l.addDissolutionSite(nb, n.Phase)
			} else {
				l.removeDissolutionSite(nb)
			}
		}
	}
}

// shiftAffinities updates the growth affinities of electrolyte site id after
// one of its neighbors changed from phase old to phase p.
func (l *Lattice) shiftAffinities(id, old, p int) {
	s := &l.sites[id]
	for _, k := range s.Growth {
		d := l.affinity[k][p] - l.affinity[k][old]
		if d == 0 {
			continue
		}
		pos := s.GrowthPos[k]
		l.interfaces[k].Growth[pos].Affinity += d
		if l.obs != nil {
			l.obs.affinityChanged(id, k, l.interfaces[k].Growth[pos].Affinity)
		}
	}
}

// InterfaceSize returns the number of growth and dissolution sites of
// phase p.
func (l *Lattice) InterfaceSize(p int) (growth, dissolution int) {
	return l.interfaces[p].Growth.len(), l.interfaces[p].Dissolution.len()
}
