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

// Site is a single voxel of the lattice.
type Site struct {
	ID    int
	Phase int

	// Wmc0 is the porosity the site itself contributes (1 for electrolyte,
	// 0 for void, the phase porosity or 0 for solids) and Wmc is Wmc0 plus
	// the contributions of the 18 nearest and edge neighbors. A solid site
	// can only dissolve if its Wmc is positive.
	Wmc0, Wmc float64

	// Growth lists the phases that may grow at this site.
	Growth []int

	// GrowthPos holds the position of the site in the growth interface of
	// each phase, or -1. DissPos is the position of the site in the
	// dissolution interface of its own phase, or -1.
	GrowthPos []int
	DissPos   int

	Damage bool
}

func newSite(id, phase, numPhases int) Site {
	s := Site{ID: id, Phase: phase, DissPos: -1, GrowthPos: make([]int, numPhases)}
	for i := range s.GrowthPos {
		s.GrowthPos[i] = -1
	}
	return s
}

// inGrowth reports whether phase p may grow at s.
func (s *Site) inGrowth(p int) bool { return s.GrowthPos[p] >= 0 }

// dWmc adds dw to Wmc, which is not allowed to become negative.
func (s *Site) dWmc(dw float64) {
	s.Wmc += dw
	if s.Wmc < 0 {
		s.Wmc = 0
	}
}

// removeGrowthPhase removes p from s.Growth.
func (s *Site) removeGrowthPhase(p int) {
	for i, q := range s.Growth {
		if q == p {
			last := len(s.Growth) - 1
			s.Growth[i] = s.Growth[last]
			s.Growth = s.Growth[:last]
			return
		}
	}
}

// clone returns a deep copy of s.
func (s *Site) clone() Site {
	o := *s
	o.Growth = append([]int(nil), s.Growth...)
	o.GrowthPos = append([]int(nil), s.GrowthPos...)
	return o
}
