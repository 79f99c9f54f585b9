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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phaseC = FirstSolid + 2

func TestGrowPhaseMulti(t *testing.T) {
	chem := newTestChem("A", "B", "C")
	chem.template[phaseB][phaseA] = true
	chem.template[phaseC][phaseA] = true
	chem.affinity[phaseC][phaseA] = 2
	chem.affinity[phaseC][phaseB] = 1
	l := newTestLattice(t, testConfig(t), chem, 10, 10, 10, layered(phaseA, 2, 100))

	grown, short := l.GrowPhase([]int{phaseA, phaseB, phaseC}, []int{20, 30, 25})
	require.False(t, short)
	assert.Equal(t, []int{20, 30, 25}, grown)
	assert.Equal(t, 220, l.Count(phaseA))
	assert.Equal(t, 30, l.Count(phaseB))
	assert.Equal(t, 25, l.Count(phaseC))
	assert.Equal(t, 725, l.Count(Electrolyte))
	checkConservation(t, l)

	// Changing the neighbor of a growth site of C shifts its affinity by
	// the affinity of C for the new phase.
	id, nb := -1, -1
	for _, is := range l.interfaces[phaseC].Growth {
		for _, n := range l.neighbors(is.ID, NumNearestEdge) {
			if l.sites[n].Phase == Electrolyte {
				id, nb = is.ID, n
				break
			}
		}
		if id >= 0 {
			break
		}
	}
	require.True(t, id >= 0, "no growth site of C has an electrolyte neighbor")
	before := l.growthAffinityOf(id, phaseC)
	l.setPhase(nb, phaseB)
	assert.InDelta(t, before+1, l.growthAffinityOf(id, phaseC), 1e-12)
	assert.InDelta(t, l.growthAffinity(id, phaseC), l.growthAffinityOf(id, phaseC), 1e-12)
	checkConservation(t, l)
}
