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

// Package simplemech provides a local linear-elastic stress estimate for
// sulfate attack damage. The stress of a site is proportional to the
// difference between the mean eigenstrain of its neighborhood and its own
// eigenstrain, so an expanding site is compressed and its neighbors are put
// in tension.
package simplemech

import (
	"fmt"
	"io"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/thamesmodel/thames"
	"gonum.org/v1/gonum/floats"
)

// Property holds the elastic properties of a microstructure phase.
type Property struct {
	Phase           string  `toml:"phase"`
	BulkModulus     float64 `toml:"bulk_modulus"`     // GPa
	TensileStrength float64 `toml:"tensile_strength"` // MPa
}

// Lattice is the part of a microstructure that the solver reads.
type Lattice interface {
	NumSites() int
	Site(id int) *thames.Site
	Neighborhood(id int) []int
}

// Solver fulfils the github.com/thamesmodel/thames.Mechanics interface.
type Solver struct {
	lat      Lattice
	bulk     []float64 // GPa, by phase id
	strength []float64 // MPa, by phase id

	eigen  map[int][3]float64
	stress [][3]float64
}

var _ thames.Mechanics = (*Solver)(nil)

// ReadProperties reads an array of [[property]] tables from r.
func ReadProperties(r io.Reader) ([]Property, error) {
	var doc struct {
		Property []Property `toml:"property"`
	}
	if _, err := toml.DecodeReader(r, &doc); err != nil {
		return nil, fmt.Errorf("simplemech: reading elastic properties: %v", err)
	}
	return doc.Property, nil
}

// New creates a solver for lat. Phases without properties have zero
// stiffness and cannot fail.
func New(lat Lattice, chem thames.ChemicalSystem, props []Property) (*Solver, error) {
	s := &Solver{
		lat:      lat,
		bulk:     make([]float64, chem.NumMicroPhases()),
		strength: make([]float64, chem.NumMicroPhases()),
		eigen:    make(map[int][3]float64),
	}
	for i := range s.strength {
		s.strength[i] = math.Inf(1)
	}
	for _, p := range props {
		id, ok := chem.MicroPhaseID(p.Phase)
		if !ok {
			return nil, &thames.DataError{Where: thames.Where{Class: "simplemech", Function: "New"},
				Variable: "phase", Msg: fmt.Sprintf("unknown phase %q", p.Phase)}
		}
		s.bulk[id] = p.BulkModulus
		s.strength[id] = p.TensileStrength
	}
	return s, nil
}

// BulkModulus returns the volume-averaged bulk modulus [GPa] of the phases.
func (s *Solver) BulkModulus(phases []int) float64 {
	if len(phases) == 0 {
		return 0
	}
	k := make([]float64, len(phases))
	for i, p := range phases {
		k[i] = s.bulk[p]
	}
	return floats.Sum(k) / float64(len(k))
}

// SetEigenstrain sets the eigenstrain of site, or clears all eigenstrains
// if site < 0.
func (s *Solver) SetEigenstrain(site int, strain [3]float64) {
	if site < 0 {
		s.eigen = make(map[int][3]float64)
		return
	}
	s.eigen[site] = strain
}

// Solve calculates the stress of every site.
func (s *Solver) Solve() error {
	n := s.lat.NumSites()
	s.stress = make([][3]float64, n)
	for id := 0; id < n; id++ {
		nh := s.lat.Neighborhood(id)
		var mean [3]float64
		touched := false
		for _, j := range nh[1:] {
			if e, ok := s.eigen[j]; ok {
				touched = true
				for k := range mean {
					mean[k] += e[k]
				}
			}
		}
		own, ok := s.eigen[id]
		if !touched && !ok {
			continue
		}
		k := 3 * s.bulk[s.lat.Site(id).Phase] * 1.0e3 // MPa
		for c := range mean {
			s.stress[id][c] = k * (mean[c]/float64(len(nh)-1) - own[c])
		}
	}
	return nil
}

// Stress returns the normal stresses [MPa] of site from the most recent
// call to Solve. Tension is positive.
func (s *Solver) Stress(site int) [3]float64 {
	if s.stress == nil {
		return [3]float64{}
	}
	return s.stress[site]
}

// TensileStrength returns the tensile strength [MPa] of the phase at site.
func (s *Solver) TensileStrength(site int) float64 {
	return s.strength[s.lat.Site(site).Phase]
}
