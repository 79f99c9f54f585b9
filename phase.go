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

// Package thames is a voxel-based model of cement paste microstructure
// development. A Lattice of Sites evolves by dissolution, growth and
// nucleation events whose extent is set by a kinetic model and an external
// thermodynamic equilibrium calculation; a Controller steps the coupled system
// through time.
package thames

import (
	"fmt"
	"strings"
)

// Version gives the version number.
const Version = "0.4.0"

// Reserved microstructure phase ids. Every id >= FirstSolid is a solid phase.
const (
	Void        = 0
	Electrolyte = 1
	FirstSolid  = 2
)

// Neighbor counts. The first NumNearest entries of a site's neighbor list are
// the face neighbors, the next 12 are the edge neighbors.
const (
	NumNearest      = 6
	NumNearestEdge  = 18
	NumNeighborhood = 27
)

// Reference conditions.
const (
	RefTemperature = 298.15 // K
	RefResolution  = 4.0    // µm
	GasConstant    = 8.314  // J/mol/K
)

// isSolid reports whether phase id p is a solid phase.
func isSolid(p int) bool { return p >= FirstSolid }

// SimType is the kind of simulation being run.
type SimType int

// Simulation types.
const (
	Hydration SimType = iota
	Leaching
	SulfateAttack
)

func (s SimType) String() string {
	switch s {
	case Hydration:
		return "hydration"
	case Leaching:
		return "leaching"
	case SulfateAttack:
		return "sulfateattack"
	default:
		return fmt.Sprintf("SimType(%d)", int(s))
	}
}

// ParseSimType converts a name such as "hydration" or "sulfate attack"
// into a SimType.
func ParseSimType(s string) (SimType, error) {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	switch strings.ToLower(r.Replace(s)) {
	case "hydration", "0":
		return Hydration, nil
	case "leaching", "1":
		return Leaching, nil
	case "sulfateattack", "sulfate", "2":
		return SulfateAttack, nil
	}
	return Hydration, fmt.Errorf("thames: invalid simulation type %q; valid options are hydration, leaching, and sulfateattack", s)
}
