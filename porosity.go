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

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

const (
	// emptySearchSize and fillSearchSize are the edge lengths of the boxes
	// used to measure pore domain sizes when emptying and filling voxels.
	emptySearchSize = 3
	fillSearchSize  = 10
)

// ChangeSaturationState empties (frac > 0) or fills (frac < 0) a volume
// fraction |frac| of the pore space without changing any solid. It returns
// the volume fraction actually emptied, which is negative for filling.
// The returned error is a non-fatal *MicrostructureError if there were
// not enough void voxels left to fill.
func (l *Lattice) ChangeSaturationState(frac float64) (float64, error) {
	switch {
	case frac > 0:
		return l.emptyPorosity(frac), nil
	case frac < 0:
		filled, err := l.fillPorosity(-frac)
		return -filled, err
	}
	return 0, nil
}

// emptyPorosity removes electrolyte from the largest voxel-scale pores
// first and then, if that was not enough, from the largest sub-voxel pores.
func (l *Lattice) emptyPorosity(frac float64) float64 {
	n := int(frac*float64(l.numSites) + 0.5)
	emptied := float64(l.emptyVoxelPorosity(n)) / float64(l.numSites)
	if rest := frac - emptied; rest > 0 {
		l.CalculatePoreSizeDistribution()
		emptied += l.emptySubVoxelPorosity(rest)
	}
	return emptied
}

// fillPorosity adds electrolyte to the smallest sub-voxel pores first and
// then to the smallest voxel-scale pores.
func (l *Lattice) fillPorosity(frac float64) (float64, error) {
	l.CalculatePoreSizeDistribution()
	filled := l.fillSubVoxelPorosity(frac)
	if rest := frac - filled; rest > 0 {
		n := int(rest*float64(l.numSites) + 0.5)
		k, err := l.fillVoxelPorosity(n)
		filled += float64(k) / float64(l.numSites)
		if err != nil {
			return filled, err
		}
	}
	return filled, nil
}

// emptySubVoxelPorosity removes up to frac of saturated sub-voxel pore
// volume, starting with the largest pores.
func (l *Lattice) emptySubVoxelPorosity(frac float64) float64 {
	bins := l.subvoxelBins()
	var emptied float64
	for i := len(bins) - 1; i >= 0 && frac > 0; i-- {
		b := &bins[i]
		if b.VolumeFraction <= 0 {
			continue
		}
		full := b.VolumeFraction * b.FractionSaturated
		left := full - frac
		if left < 0 {
			left = 0
		}
		b.FractionSaturated = left / b.VolumeFraction
		emptied += full - left
		frac -= full - left
	}
	return emptied
}

// fillSubVoxelPorosity fills up to frac of empty sub-voxel pore volume,
// starting with the smallest pores.
func (l *Lattice) fillSubVoxelPorosity(frac float64) float64 {
	bins := l.subvoxelBins()
	var filled float64
	for i := 0; i < len(bins) && frac > 0; i++ {
		b := &bins[i]
		if b.VolumeFraction <= 0 {
			continue
		}
		empty := b.VolumeFraction * (1 - b.FractionSaturated)
		left := empty - frac
		if left < 0 {
			left = 0
		}
		b.FractionSaturated = 1 - left/b.VolumeFraction
		filled += empty - left
		frac -= empty - left
	}
	return filled
}

// emptyVoxelPorosity converts up to n electrolyte voxels to void, choosing
// the voxels in the largest electrolyte domains first. It returns the number
// converted.
func (l *Lattice) emptyVoxelPorosity(n int) int {
	sel := l.domainSizeSelection(Electrolyte, n, emptySearchSize, true)
	for _, id := range sel {
		l.setPhase(id, Void)
	}
	return len(sel)
}

// fillVoxelPorosity converts n void voxels to electrolyte, choosing the
// voxels in the smallest void domains first. If there are fewer than n void
// voxels none is converted and a non-fatal *MicrostructureError is returned.
func (l *Lattice) fillVoxelPorosity(n int) (int, error) {
	sel := l.domainSizeSelection(Void, n, fillSearchSize, false)
	if len(sel) < n {
		return 0, &MicrostructureError{
			Where: Where{"Lattice", "fillVoxelPorosity"},
			Msg:   fmt.Sprintf("not enough void voxels to fill: %d < %d", len(sel), n),
		}
	}
	for _, id := range sel {
		l.setPhase(id, Electrolyte)
	}
	return len(sel), nil
}

// domainSizeSelection returns up to n sites of phase p ordered by the size
// of the domain of p around them, measured in a box of edge maxsize.
// Whole size classes are taken in order, largest or smallest first; within
// the last class needed, sites are chosen at random.
func (l *Lattice) domainSizeSelection(p, n, maxsize int, largestFirst bool) []int {
	if n <= 0 {
		return nil
	}
	edge := 2*(maxsize/2) + 1
	classes := make([][]int, edge*edge*edge+1)
	var sizes []float64
	for id := range l.sites {
		if l.sites[id].Phase != p {
			continue
		}
		d := l.domainSize(id, maxsize)
		classes[d] = append(classes[d], id)
		sizes = append(sizes, float64(d))
	}

	sel := make([]int, 0, n)
	take := func(c []int) {
		if need := n - len(sel); len(c) <= need {
			sel = append(sel, c...)
			return
		}
		for len(sel) < n {
			i := l.rng.Intn(len(c))
			sel = append(sel, c[i])
			c[i] = c[len(c)-1]
			c = c[:len(c)-1]
		}
	}
	if largestFirst {
		for d := len(classes) - 1; d > 0 && len(sel) < n; d-- {
			take(classes[d])
		}
	} else {
		for d := 1; d < len(classes) && len(sel) < n; d++ {
			take(classes[d])
		}
	}

	if len(sizes) > 0 {
		mean, std := stat.MeanStdDev(sizes, nil)
		op := "fill"
		if largestFirst {
			op = "empty"
		}
		poreDomainSize.WithLabelValues(op).Set(mean)
		l.log.WithFields(logrus.Fields{
			"phase": p, "candidates": len(sizes), "selected": len(sel),
			"mean domain": mean, "std domain": std,
		}).Debug("selected sites by domain size")
	}
	return sel
}
