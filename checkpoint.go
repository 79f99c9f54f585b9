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
	"encoding/gob"
	"fmt"
	"io"
	"sort"

	"github.com/thamesmodel/thames/internal/hash"
)

// ExpansionSite is the expansion strain of one site.
type ExpansionSite struct {
	ID     int
	Strain [3]float64
	Coord  [3]int
}

// Checkpoint is a deep copy of the state of a lattice and of the DC
// inventories of its chemical system, taken before a microstructure change
// so that the change can be undone.
type Checkpoint struct {
	Dims       [3]int
	Time       float64
	Sites      []Site
	Interfaces []Interface
	Count      []int

	VolumeFraction []float64
	Volumes        Volumes
	PoreSizeDist   []PoreSizeBin
	PoreFractions  [4]float64

	// Expansion is sorted by site id.
	Expansion   []ExpansionSite
	WaterChange float64
	DamageCount int

	RNG RNGState

	Chem ChemState
}

// ChemState holds the DC inventories and phase masses of a chemical system.
type ChemState struct {
	DCMoles       []float64
	DCLowerLimits []float64
	PhaseMasses   []float64
}

// CaptureChemState returns the current inventories of chem.
func CaptureChemState(chem ChemicalSystem) ChemState {
	ndc := chem.NumDCs()
	s := ChemState{
		DCMoles:       make([]float64, ndc),
		DCLowerLimits: make([]float64, ndc),
		PhaseMasses:   make([]float64, chem.NumMicroPhases()),
	}
	for i := 0; i < ndc; i++ {
		s.DCMoles[i] = chem.DCMoles(i)
		s.DCLowerLimits[i] = chem.DCLowerLimit(i)
	}
	for p := range s.PhaseMasses {
		s.PhaseMasses[p] = chem.MicroPhaseMass(p)
	}
	return s
}

// Apply sets the inventories of chem to s.
func (s ChemState) Apply(chem ChemicalSystem) {
	for i, m := range s.DCMoles {
		chem.SetDCMoles(i, m)
		chem.SetDCLowerLimit(i, s.DCLowerLimits[i])
	}
	for p, m := range s.PhaseMasses {
		chem.SetMicroPhaseMass(p, m)
	}
}

// Checkpoint returns a snapshot of the current state.
func (l *Lattice) Checkpoint() *Checkpoint {
	cp := &Checkpoint{
		Dims:           [3]int{l.xdim, l.ydim, l.zdim},
		Time:           l.time,
		Sites:          make([]Site, len(l.sites)),
		Interfaces:     make([]Interface, len(l.interfaces)),
		Count:          append([]int(nil), l.count...),
		VolumeFraction: append([]float64(nil), l.volumeFraction...),
		Volumes:        l.volumes,
		PoreSizeDist:   append([]PoreSizeBin(nil), l.poreSizeDist...),
		PoreFractions:  [4]float64{l.psd.subvoxel, l.psd.voxel, l.psd.subvoxelSaturated, l.psd.voxelSaturated},
		WaterChange:    l.waterChange,
		DamageCount:    l.damageCount,
		RNG:            l.rng.State(),
	}
	for i := range l.sites {
		cp.Sites[i] = l.sites[i].clone()
	}
	for p, in := range l.interfaces {
		cp.Interfaces[p] = Interface{Phase: in.Phase, Growth: in.Growth.clone(), Dissolution: in.Dissolution.clone()}
	}
	for id, e := range l.expansion {
		cp.Expansion = append(cp.Expansion, ExpansionSite{ID: id, Strain: e, Coord: l.expansionCoordin[id]})
	}
	sort.Slice(cp.Expansion, func(i, j int) bool { return cp.Expansion[i].ID < cp.Expansion[j].ID })
	cp.Chem = CaptureChemState(l.chem)
	return cp
}

// Restore returns the lattice and its chemical system to the state in cp.
// The random number generator is reseeded and replayed to the recorded
// position.
func (l *Lattice) Restore(cp *Checkpoint) error {
	if cp.Dims != [3]int{l.xdim, l.ydim, l.zdim} || len(cp.Count) != l.numPhases {
		return &DataError{Where: Where{"Lattice", "Restore"}, Variable: "checkpoint",
			Msg: fmt.Sprintf("checkpoint of a %v lattice with %d phases does not match", cp.Dims, len(cp.Count))}
	}
	if len(cp.Chem.DCMoles) != l.chem.NumDCs() {
		return &DataError{Where: Where{"Lattice", "Restore"}, Variable: "checkpoint",
			Msg: fmt.Sprintf("checkpoint has %d DCs, want %d", len(cp.Chem.DCMoles), l.chem.NumDCs())}
	}
	l.time = cp.Time
	for i := range cp.Sites {
		l.sites[i] = cp.Sites[i].clone()
	}
	for p, in := range cp.Interfaces {
		l.interfaces[p] = Interface{Phase: in.Phase, Growth: in.Growth.clone(), Dissolution: in.Dissolution.clone()}
	}
	copy(l.count, cp.Count)
	copy(l.volumeFraction, cp.VolumeFraction)
	l.volumes = cp.Volumes
	l.poreSizeDist = append([]PoreSizeBin(nil), cp.PoreSizeDist...)
	l.psd = poreFractions{cp.PoreFractions[0], cp.PoreFractions[1], cp.PoreFractions[2], cp.PoreFractions[3]}
	l.expansion = make(map[int][3]float64, len(cp.Expansion))
	l.expansionCoordin = make(map[int][3]int, len(cp.Expansion))
	for _, e := range cp.Expansion {
		l.expansion[e.ID] = e.Strain
		l.expansionCoordin[e.ID] = e.Coord
	}
	l.waterChange = cp.WaterChange
	l.damageCount = cp.DamageCount

	cp.Chem.Apply(l.chem)
	return l.rng.Reset(cp.RNG)
}

// Hash returns a fingerprint of the checkpoint.
func (cp *Checkpoint) Hash() string { return hash.Sum(cp) }

// Save writes cp to w.
func (cp *Checkpoint) Save(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(cp); err != nil {
		return fmt.Errorf("thames: saving checkpoint: %v", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint written by Save.
func LoadCheckpoint(r io.Reader) (*Checkpoint, error) {
	cp := new(Checkpoint)
	if err := gob.NewDecoder(r).Decode(cp); err != nil {
		return nil, fmt.Errorf("thames: loading checkpoint: %v", err)
	}
	return cp, nil
}
