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
)

func poreTestLattice(t *testing.T, saturated bool) (*Lattice, *testChem) {
	c := newTestChem("A")
	const a = FirstSolid
	c.porosity[a] = 0.5
	c.saturated = saturated
	c.psd[a] = []PoreBin{{Diameter: 2.5, VolumeFraction: 0.4}, {Diameter: 5, VolumeFraction: 0.6}}
	l := newTestLattice(t, testConfig(t), c, 10, 10, 10, func(id int) int {
		if id < 500 {
			return a
		}
		return Electrolyte
	})
	c.setVolumeFractions(l, map[int]float64{Electrolyte: 0.2})
	return l, c
}

func TestPoreSizeDiameters(t *testing.T) {
	l, _ := poreTestLattice(t, true)
	d := l.psDiameters()
	assert.InDelta(t, 1.9953, d[0], 1e-4)
	assert.Equal(t, 1000.0, d[len(d)-1])
	for i := 1; i < len(d); i++ {
		if d[i] <= d[i-1] {
			t.Errorf("diameters not increasing at %d: %v", i, d)
		}
	}
	assert.True(t, d[len(d)-2] < 1000)
}

func TestPoreSizeDistributionSealed(t *testing.T) {
	l, _ := poreTestLattice(t, false)
	l.CalculatePoreSizeDistribution()
	bins := l.PoreSizeDistribution()

	// Phase A holds 0.5×0.5 = 0.25 of the volume as pores.
	assert.InDelta(t, 0.1, bins[2].VolumeFraction, 1e-12)
	assert.InDelta(t, 0.15, bins[8].VolumeFraction, 1e-12)
	assert.InDelta(t, 0.5, bins[len(bins)-1].VolumeFraction, 1e-12)

	// The smallest pores fill first.
	assert.InDelta(t, 1, bins[2].FractionSaturated, 1e-12)
	assert.InDelta(t, 2.0/3, bins[8].FractionSaturated, 1e-12)
	assert.Equal(t, 0.0, bins[len(bins)-1].FractionSaturated)
	assert.Equal(t, 0.0, bins[0].FractionSaturated)

	sub, vox, subSat, voxSat := l.PoreVolumeFractions()
	assert.InDelta(t, 0.25, sub, 1e-12)
	assert.InDelta(t, 0.5, vox, 1e-12)
	assert.InDelta(t, 0.2, subSat, 1e-12)
	assert.InDelta(t, 0, voxSat, 1e-12)
	assert.InDelta(t, 0.2, l.subvoxelWater(), 1e-12)
	assert.Len(t, l.subvoxelBins(), len(bins)-1)
}

func TestPoreSizeDistributionSaturated(t *testing.T) {
	l, _ := poreTestLattice(t, true)
	l.CalculatePoreSizeDistribution()
	for _, b := range l.PoreSizeDistribution() {
		if b.FractionSaturated != 1 {
			t.Errorf("bin %g: have saturation %g, want 1", b.Diameter, b.FractionSaturated)
		}
	}
	_, vox, _, voxSat := l.PoreVolumeFractions()
	assert.InDelta(t, vox, voxSat, 1e-12)
}

func TestPoreSizeOverflow(t *testing.T) {
	l, c := poreTestLattice(t, true)
	c.psd[FirstSolid] = []PoreBin{{Diameter: 5000, VolumeFraction: 1}}
	l.CalculatePoreSizeDistribution()
	bins := l.PoreSizeDistribution()
	assert.InDelta(t, 0.75, bins[len(bins)-1].VolumeFraction, 1e-12)
}
