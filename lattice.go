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

	"github.com/golang/groupcache/lru"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// wmcTol is the smallest Wmc at which a solid site is considered to be in
// contact with porosity.
const wmcTol = 1.0e-9

// Lattice is a three-dimensional periodic voxel representation of a
// microstructure.
type Lattice struct {
	cfg  *Config
	chem ChemicalSystem
	mech Mechanics
	log  logrus.FieldLogger
	rng  *RNG

	version          string
	xdim, ydim, zdim int
	resolution       float64 // µm
	numSites         int
	numPhases        int

	sites      []Site
	nb         []int
	interfaces []Interface
	count      []int

	volumeFraction []float64

	// Phase property tables.
	affinity    [][]float64
	template    [][]bool // template[p][q]: q is a growth template for p
	templatesOf [][]int  // templatesOf[q]: phases that q is a template for
	porosity    []float64

	obs           observer
	neighborhoods *lru.Cache

	time float64

	initSolidMass    float64 // g per cm³ of paste
	wsRatio, wcRatio float64

	// initialMicrostructureVolume is the total volume [m³] of the
	// microstructure at the start of the simulation, which all volume
	// fractions are normalized against.
	initialMicrostructureVolume float64
	volumes                     Volumes

	poreSizeDist []PoreSizeBin
	psd          poreFractions

	surfaceArea, specificSurfaceArea []float64

	expansion        map[int][3]float64
	expansionCoordin map[int][3]int
	waterChange      float64
	damageCount      int
}

// Volumes holds the volume bookkeeping [m³] of the most recent
// microstructure change.
type Volumes struct {
	SolidWithPores float64
	SubvoxelPore   float64
	Solid          float64
	NonSolid       float64
	VoxelPore      float64
	Water          float64
	VoxelWater     float64
	SubvoxelWater  float64
	Void           float64
	VoxelVoid      float64
}

// NewLattice creates a lattice from img. The masses and DC moles in chem are
// initialized from the phase volume fractions of the image and scaled to
// 100 g of solid.
func NewLattice(cfg *Config, chem ChemicalSystem, img *Image, log logrus.FieldLogger) (*Lattice, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if img.Xdim <= 0 || img.Ydim <= 0 || img.Zdim <= 0 {
		return nil, &DataError{Where: Where{"Lattice", "NewLattice"}, Variable: "dimensions",
			Msg: fmt.Sprintf("invalid lattice dimensions %d×%d×%d", img.Xdim, img.Ydim, img.Zdim)}
	}
	n := img.Xdim * img.Ydim * img.Zdim
	if len(img.Phases) != n {
		return nil, &DataError{Where: Where{"Lattice", "NewLattice"}, Variable: "phases",
			Msg: fmt.Sprintf("image has %d voxels but dimensions require %d", len(img.Phases), n)}
	}
	np := chem.NumMicroPhases()
	l := &Lattice{
		cfg:              cfg,
		chem:             chem,
		log:              log,
		rng:              NewRNG(cfg.Seed),
		version:          img.Version,
		xdim:             img.Xdim,
		ydim:             img.Ydim,
		zdim:             img.Zdim,
		resolution:       img.Resolution,
		numSites:         n,
		numPhases:        np,
		sites:            make([]Site, n),
		count:            make([]int, np),
		volumeFraction:   make([]float64, np),
		interfaces:       make([]Interface, np),
		neighborhoods:    lru.New(4096),
		expansion:        make(map[int][3]float64),
		expansionCoordin: make(map[int][3]int),
	}
	for id, p := range img.Phases {
		if p < 0 || p >= np {
			return nil, &EOBError{Where: Where{"Lattice", "NewLattice"}, Container: "microstructure phases",
				Index: p, Size: np}
		}
		l.sites[id] = newSite(id, p, np)
		l.count[p]++
	}
	for p := range l.interfaces {
		l.interfaces[p].Phase = p
	}
	l.setNeighbors()
	l.setPhaseTables()

	if err := l.normalizePhaseMasses(); err != nil {
		return nil, err
	}
	l.initWmc()
	l.FindInterfaces()
	l.surfaceArea = make([]float64, np)
	l.specificSurfaceArea = make([]float64, np)
	if l.initSolidMass > 0 {
		if err := l.CalcSurfaceAreas(); err != nil {
			return nil, err
		}
	}
	l.log.WithFields(logrus.Fields{
		"x": l.xdim, "y": l.ydim, "z": l.zdim,
		"resolution": l.resolution, "w/s": l.wsRatio, "w/c": l.wcRatio,
	}).Info("created lattice")
	return l, nil
}

// setPhaseTables copies the phase properties out of the chemical system.
// Affinities are shifted so that the smallest one is zero, which keeps the
// growth weights non-negative.
func (l *Lattice) setPhaseTables() {
	np := l.numPhases
	l.affinity = make([][]float64, np)
	l.template = make([][]bool, np)
	l.templatesOf = make([][]int, np)
	l.porosity = make([]float64, np)
	minAff := math.Inf(1)
	for p := 0; p < np; p++ {
		l.affinity[p] = make([]float64, np)
		l.template[p] = make([]bool, np)
		for q := 0; q < np; q++ {
			l.affinity[p][q] = l.chem.Affinity(p, q)
			if isSolid(p) {
				minAff = math.Min(minAff, l.affinity[p][q])
			}
			if isSolid(p) && isSolid(q) && l.chem.IsGrowthTemplate(p, q) {
				l.template[p][q] = true
				l.templatesOf[q] = append(l.templatesOf[q], p)
			}
		}
		l.porosity[p] = l.chem.MicroPhasePorosity(p)
	}
	if minAff < 0 {
		for p := FirstSolid; p < np; p++ {
			for q := range l.affinity[p] {
				l.affinity[p][q] -= minAff
			}
		}
	}
	l.porosity[Void] = 0
	l.porosity[Electrolyte] = 1
}

// normalizePhaseMasses converts the image volume fractions into masses
// scaled to 100 g of solid and sets the corresponding DC moles.
func (l *Lattice) normalizePhaseMasses() error {
	mass := make([]float64, l.numPhases)
	var solidMass, cementMass float64
	for p := 0; p < l.numPhases; p++ {
		vfrac := float64(l.count[p]) / float64(l.numSites)
		l.volumeFraction[p] = vfrac
		if p == Void || vfrac == 0 {
			continue
		}
		dc := l.phaseDC(p)
		var density float64 // g/cm³
		if vm := l.chem.DCMolarVolume(dc); vm > 1.0e-12 {
			density = l.chem.DCMolarMass(dc) / vm / 1.0e6
		}
		mass[p] = vfrac * density
		if isSolid(p) {
			solidMass += mass[p]
			if l.chem.IsCementComponent(p) {
				cementMass += mass[p]
			}
		}
	}
	norm := solidMass
	if solidMass > 0 {
		l.wsRatio = mass[Electrolyte] / solidMass
	} else {
		// Masses are left per cm³ of microstructure.
		l.log.Warn("the microstructure contains no solid")
		norm = 100
	}
	l.initSolidMass = solidMass
	if cementMass > 0 {
		l.wcRatio = mass[Electrolyte] / cementMass
	}

	for i := 0; i < l.chem.NumDCs(); i++ {
		l.chem.SetDCMoles(i, 0)
		l.chem.SetDCLowerLimit(i, 0)
	}
	var vol float64
	for p := Electrolyte; p < l.numPhases; p++ {
		scaled := mass[p] * 100 / norm
		dc := l.phaseDC(p)
		l.chem.SetMicroPhaseMass(p, scaled)
		moles := scaled / l.chem.DCMolarMass(dc)
		l.chem.SetDCMoles(dc, l.chem.DCMoles(dc)+moles)
		vol += moles * l.chem.DCMolarVolume(dc)
	}
	l.initialMicrostructureVolume = vol
	if vol <= 0 {
		return &FloatError{Where: Where{"Lattice", "normalizePhaseMasses"}, Msg: "initial microstructure volume is zero"}
	}
	return nil
}

// phaseDC returns the DC making up phase p.
func (l *Lattice) phaseDC(p int) int {
	if p == Electrolyte {
		return l.chem.WaterDC()
	}
	return l.chem.MicroPhaseDC(p)
}

// newWmc0 returns the Wmc0 of a site that has just become phase p.
func (l *Lattice) newWmc0(p int) float64 {
	switch {
	case p == Electrolyte:
		return 1
	case p == Void:
		return 0
	}
	por := l.porosity[p]
	if por <= 0 {
		return 0
	}
	if l.cfg.PorosityThreshold > 0 && l.rng.Float64() < l.cfg.PorosityThreshold {
		return 0
	}
	return por
}

// initWmc sets the initial Wmc0 and Wmc of every site.
func (l *Lattice) initWmc() {
	for i := range l.sites {
		l.sites[i].Wmc0 = l.newWmc0(l.sites[i].Phase)
	}
	for i := range l.sites {
		w := l.sites[i].Wmc0
		for _, nb := range l.neighbors(i, NumNearestEdge) {
			w += l.sites[nb].Wmc0
		}
		l.sites[i].Wmc = w
	}
}

// SetMechanics sets the stress solver used for sulfate attack. It must be
// set before a sulfate attack simulation passes its attack time.
func (l *Lattice) SetMechanics(m Mechanics) { l.mech = m }

// NumSites returns the number of sites in the lattice.
func (l *Lattice) NumSites() int { return l.numSites }

// Dims returns the dimensions of the lattice.
func (l *Lattice) Dims() (x, y, z int) { return l.xdim, l.ydim, l.zdim }

// Resolution returns the edge length of a voxel [µm].
func (l *Lattice) Resolution() float64 { return l.resolution }

// Site returns site id.
func (l *Lattice) Site(id int) *Site { return &l.sites[id] }

// Count returns the number of sites of phase p.
func (l *Lattice) Count(p int) int { return l.count[p] }

// Counts returns a copy of the number of sites of each phase.
func (l *Lattice) Counts() []int { return append([]int(nil), l.count...) }

// VolumeFraction returns the volume fraction of phase p at the most
// recent microstructure change.
func (l *Lattice) VolumeFraction(p int) float64 { return l.volumeFraction[p] }

// InitialMicrostructureVolume returns the reference volume [m³] that volume
// fractions are normalized against.
func (l *Lattice) InitialMicrostructureVolume() float64 { return l.initialMicrostructureVolume }

// InitSolidMass returns the initial mass of solid [g per cm³ of paste].
func (l *Lattice) InitSolidMass() float64 { return l.initSolidMass }

// WSRatio returns the initial water to solid mass ratio.
func (l *Lattice) WSRatio() float64 { return l.wsRatio }

// WCRatio returns the initial water to cement mass ratio.
func (l *Lattice) WCRatio() float64 { return l.wcRatio }

// Volumes returns the volume bookkeeping of the most recent change.
func (l *Lattice) Volumes() Volumes { return l.volumes }

// Time returns the time [h] of the most recent microstructure change.
func (l *Lattice) Time() float64 { return l.time }

// RNG returns the random number generator of the lattice, which is shared
// by all stochastic parts of the simulation.
func (l *Lattice) RNG() *RNG { return l.rng }

// Interface returns the interface of phase p.
func (l *Lattice) Interface(p int) *Interface { return &l.interfaces[p] }

// WaterChange returns the accumulated volume of water [voxels] added to
// accommodate damage.
func (l *Lattice) WaterChange() float64 { return l.waterChange }

// DamageCount returns the number of damaged sites at the most recent
// damage calculation.
func (l *Lattice) DamageCount() int { return l.damageCount }

// volumeFractionSum returns the sum of the volume fractions.
func (l *Lattice) volumeFractionSum() float64 { return floats.Sum(l.volumeFraction) }

// updateVolumeFractions sets the volume fractions from the site counts.
func (l *Lattice) updateVolumeFractions() {
	for p, c := range l.count {
		l.volumeFraction[p] = float64(c) / float64(l.numSites)
	}
}
