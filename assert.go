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
)

// CheckInterfaces verifies the consistency of the site counts and of the
// growth and dissolution interfaces with the phases of the sites. It is
// expensive and is meant for testing and debugging.
func (l *Lattice) CheckInterfaces() error {
	fail := func(format string, a ...interface{}) error {
		return &MicrostructureError{Where: Where{"Lattice", "CheckInterfaces"}, IsError: true,
			Msg: fmt.Sprintf(format, a...)}
	}
	count := make([]int, l.numPhases)
	for id := range l.sites {
		count[l.sites[id].Phase]++
	}
	total := 0
	for p, c := range count {
		if c != l.count[p] {
			return fail("phase %d has %d sites but its count is %d", p, c, l.count[p])
		}
		total += c
	}
	if total != l.numSites {
		return fail("counts add up to %d instead of %d", total, l.numSites)
	}

	for p := range l.interfaces {
		for pos, is := range l.interfaces[p].Dissolution {
			s := &l.sites[is.ID]
			if s.Phase != p || s.DissPos != pos {
				return fail("dissolution site %d of phase %d has phase %d and position %d, not %d",
					is.ID, p, s.Phase, s.DissPos, pos)
			}
		}
		for pos, is := range l.interfaces[p].Growth {
			s := &l.sites[is.ID]
			if s.Phase != Electrolyte || s.GrowthPos[p] != pos {
				return fail("growth site %d of phase %d has phase %d and position %d, not %d",
					is.ID, p, s.Phase, s.GrowthPos[p], pos)
			}
			if a := l.growthAffinity(is.ID, p); math.Abs(a-is.Affinity) > 1.0e-9*math.Max(1, math.Abs(a)) {
				return fail("growth site %d of phase %d has affinity %g, want %g", is.ID, p, is.Affinity, a)
			}
		}
	}

	for id := range l.sites {
		s := &l.sites[id]
		inDiss := s.DissPos >= 0
		if isSolid(s.Phase) {
			if want := s.Wmc > wmcTol; inDiss != want {
				return fail("site %d of phase %d with Wmc %g: in dissolution interface %v", id, s.Phase, s.Wmc, inDiss)
			}
		} else if inDiss {
			return fail("site %d of phase %d is in a dissolution interface", id, s.Phase)
		}
		for p := FirstSolid; p < l.numPhases; p++ {
			want := s.Phase == Electrolyte && l.isGrowthSupported(id, p)
			if s.inGrowth(p) != want {
				return fail("site %d of phase %d: in growth interface of %d %v, want %v", id, s.Phase, p, s.inGrowth(p), want)
			}
		}
		for p := 0; p < FirstSolid; p++ {
			if s.inGrowth(p) {
				return fail("site %d is in the growth interface of phase %d", id, p)
			}
		}
		if len(s.Growth) != countGrowth(s) {
			return fail("site %d lists %d growth phases but is in %d growth interfaces", id, len(s.Growth), countGrowth(s))
		}
	}
	return nil
}

func countGrowth(s *Site) int {
	n := 0
	for _, pos := range s.GrowthPos {
		if pos >= 0 {
			n++
		}
	}
	return n
}
