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
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// PoreSizeBin is one bin of the pore size distribution of the
// microstructure.
type PoreSizeBin struct {
	// Diameter is the upper diameter of the bin [nm].
	Diameter float64

	// VolumeFraction is the volume of pores in the bin as a fraction of the
	// microstructure volume.
	VolumeFraction float64

	// FractionSaturated is the fraction of the pore volume in the bin that
	// is filled with electrolyte.
	FractionSaturated float64
}

// poreFractions summarizes the pore size distribution as fractions of the
// microstructure volume.
type poreFractions struct {
	subvoxel, voxel                   float64
	subvoxelSaturated, voxelSaturated float64
}

// voxelDiameter returns the edge length of a voxel [nm], which is the
// diameter assigned to voxel-scale pores.
func (l *Lattice) voxelDiameter() float64 { return l.resolution * 1000 }

// psDiameters returns the bin diameters [nm] of the pore size histogram:
// logarithmically spaced from 10^0.3 in steps of 10^0.05 up to, and ending
// with, the voxel diameter.
func (l *Lattice) psDiameters() []float64 {
	upper := l.voxelDiameter()
	var d []float64
	for i := 0; ; i++ {
		v := math.Pow(10, 0.3+0.05*float64(i))
		if v >= upper {
			break
		}
		d = append(d, v)
	}
	return append(d, upper)
}

// CalculatePoreSizeDistribution combines the pore size distributions of all
// phases, weighted by their volume fractions and porosities, with the
// voxel-scale pores into a single histogram and then distributes the
// electrolyte among the bins. In a sealed system the smallest pores fill
// first; in a saturated system every pore is full.
func (l *Lattice) CalculatePoreSizeDistribution() {
	diam := l.psDiameters()
	bins := make([]PoreSizeBin, len(diam))
	for i, d := range diam {
		bins[i] = PoreSizeBin{Diameter: d, FractionSaturated: 1}
	}
	last := len(bins) - 1
	bins[last].VolumeFraction = l.volumeFraction[Void] + l.volumeFraction[Electrolyte]
	for p := FirstSolid; p < l.numPhases; p++ {
		phi := l.volumeFraction[p] * l.porosity[p]
		if phi <= 0 {
			continue
		}
		for _, row := range l.chem.PoreSizeDistribution(p) {
			k := sort.SearchFloat64s(diam, row.Diameter)
			if k > last {
				k = last
			}
			bins[k].VolumeFraction += row.VolumeFraction * phi
		}
	}

	water := 0.0
	if l.initialMicrostructureVolume > 0 {
		water = l.chem.MicroPhaseVolume(Electrolyte) / l.initialMicrostructureVolume
	}
	saturated := l.chem.IsSaturated()
	var pf poreFractions
	vd := l.voxelDiameter()
	for i := range bins {
		b := &bins[i]
		switch {
		case saturated:
			b.FractionSaturated = 1
		case b.VolumeFraction > 0:
			b.FractionSaturated = math.Min(water/b.VolumeFraction, 1)
			water = math.Max(water-b.VolumeFraction, 0)
		default:
			b.FractionSaturated = 0
		}
		if b.Diameter >= vd {
			pf.voxel += b.VolumeFraction
			pf.voxelSaturated += b.VolumeFraction * b.FractionSaturated
		} else {
			pf.subvoxel += b.VolumeFraction
			pf.subvoxelSaturated += b.VolumeFraction * b.FractionSaturated
		}
	}
	l.poreSizeDist = bins
	l.psd = pf
}

// PoreSizeDistribution returns the pore size histogram calculated by the
// most recent call to CalculatePoreSizeDistribution.
func (l *Lattice) PoreSizeDistribution() []PoreSizeBin {
	return append([]PoreSizeBin(nil), l.poreSizeDist...)
}

// PoreVolumeFractions returns the sub-voxel and voxel-scale pore volume
// fractions and the saturated part of each.
func (l *Lattice) PoreVolumeFractions() (subvoxel, voxel, subvoxelSaturated, voxelSaturated float64) {
	return l.psd.subvoxel, l.psd.voxel, l.psd.subvoxelSaturated, l.psd.voxelSaturated
}

// subvoxelBins returns the sub-voxel part of the pore size histogram.
func (l *Lattice) subvoxelBins() []PoreSizeBin {
	vd := l.voxelDiameter()
	n := sort.Search(len(l.poreSizeDist), func(i int) bool { return l.poreSizeDist[i].Diameter >= vd })
	return l.poreSizeDist[:n]
}

// subvoxelWater returns the volume fraction of electrolyte held in
// sub-voxel pores.
func (l *Lattice) subvoxelWater() float64 {
	bins := l.subvoxelBins()
	w := make([]float64, len(bins))
	for i, b := range bins {
		w[i] = b.VolumeFraction * b.FractionSaturated
	}
	return floats.Sum(w)
}
