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

// facePorosity returns the fraction of a face shared with a site of phase
// p that is exposed to pore space.
func (l *Lattice) facePorosity(p int) float64 {
	if p == Void || p == Electrolyte {
		return 1
	}
	return l.porosity[p]
}

// CalcSurfaceAreas calculates the surface area [m² per 100 g of initial
// solid] of every phase from the faces its sites share with porosity, and
// the specific surface area [m²/kg] of every phase with a positive mass.
func (l *Lattice) CalcSurfaceAreas() error {
	if l.initSolidMass <= 0 {
		return &FloatError{Where: Where{"Lattice", "CalcSurfaceAreas"}, Msg: "divide by zero: initial solid mass is 0"}
	}
	res := l.resolution * 1.0e-6 // m
	areaPerFace := res * res
	volumePerVoxel := res * res * res
	// m² per face per cm³ of microstructure, then per 100 g of solid.
	faceArea := areaPerFace / float64(l.numSites) / volumePerVoxel * 1.0e-6
	faceArea = 100 * faceArea / l.initSolidMass

	for p := range l.surfaceArea {
		l.surfaceArea[p] = 0
		l.specificSurfaceArea[p] = 0
	}
	for id := range l.sites {
		p := l.sites[id].Phase
		if !isSolid(p) {
			continue
		}
		for _, nb := range l.neighbors(id, NumNearest) {
			l.surfaceArea[p] += l.facePorosity(l.sites[nb].Phase)
		}
	}
	for p := FirstSolid; p < l.numPhases; p++ {
		l.surfaceArea[p] *= faceArea
		if m := l.chem.MicroPhaseMass(p); m > 0 {
			l.specificSurfaceArea[p] = 1000 * l.surfaceArea[p] / m
		}
	}
	return nil
}

// SurfaceArea returns the surface area of phase p [m² per 100 g of initial
// solid] at the most recent call to CalcSurfaceAreas.
func (l *Lattice) SurfaceArea(p int) float64 { return l.surfaceArea[p] }

// SpecificSurfaceArea returns the specific surface area of phase p [m²/kg]
// at the most recent call to CalcSurfaceAreas.
func (l *Lattice) SpecificSurfaceArea(p int) float64 { return l.specificSurfaceArea[p] }
