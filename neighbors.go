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

// numNeighbors is the number of neighbors stored for each site: the 6 face
// neighbors, then the 12 edge neighbors, then the 8 corner neighbors.
const numNeighbors = NumNeighborhood - 1

// neighborOffsets are the (dx, dy, dz) offsets of the neighbors of a site,
// in storage order.
var neighborOffsets = [numNeighbors][3]int{
	// faces: west, east, south, north, down, up
	{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1},
	// edges
	{-1, -1, 0}, {-1, 1, 0}, {1, -1, 0}, {1, 1, 0},
	{-1, 0, -1}, {-1, 0, 1}, {1, 0, -1}, {1, 0, 1},
	{0, -1, -1}, {0, -1, 1}, {0, 1, -1}, {0, 1, 1},
	// corners
	{-1, -1, -1}, {-1, -1, 1}, {-1, 1, -1}, {-1, 1, 1},
	{1, -1, -1}, {1, -1, 1}, {1, 1, -1}, {1, 1, 1},
}

// wrap maps i onto [0,n) with periodic boundaries.
func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// index returns the id of the site at (x, y, z). Coordinates outside of the
// lattice wrap around periodically.
func (l *Lattice) index(x, y, z int) int {
	return wrap(x, l.xdim) + l.xdim*wrap(y, l.ydim) + l.xdim*l.ydim*wrap(z, l.zdim)
}

// coords returns the coordinates of site id.
func (l *Lattice) coords(id int) (x, y, z int) {
	x = id % l.xdim
	y = (id / l.xdim) % l.ydim
	z = id / (l.xdim * l.ydim)
	return
}

// setNeighbors fills in the neighbor table.
func (l *Lattice) setNeighbors() {
	l.nb = make([]int, l.numSites*numNeighbors)
	for id := 0; id < l.numSites; id++ {
		x, y, z := l.coords(id)
		for j, o := range neighborOffsets {
			l.nb[id*numNeighbors+j] = l.index(x+o[0], y+o[1], z+o[2])
		}
	}
}

// neighbors returns the first n neighbors of site id. n should be
// NumNearest, NumNearestEdge or numNeighbors. The returned slice must not be
// modified.
func (l *Lattice) neighbors(id, n int) []int {
	i := id * numNeighbors
	return l.nb[i : i+n]
}

// Neighborhood returns the ids of the 27 sites in the 3×3×3 cube centered on
// site id, including id itself.
func (l *Lattice) Neighborhood(id int) []int {
	if v, ok := l.neighborhoods.Get(id); ok {
		return v.([]int)
	}
	o := make([]int, 0, NumNeighborhood)
	o = append(o, id)
	o = append(o, l.neighbors(id, numNeighbors)...)
	l.neighborhoods.Add(id, o)
	return o
}

// domainSize returns the number of sites in the cube of edge 2*(maxsize/2)+1
// centered on site id that have the same phase as id.
func (l *Lattice) domainSize(id, maxsize int) int {
	half := maxsize / 2
	phase := l.sites[id].Phase
	x, y, z := l.coords(id)
	n := 0
	for ix := x - half; ix <= x+half; ix++ {
		for iy := y - half; iy <= y+half; iy++ {
			for iz := z - half; iz <= z+half; iz++ {
				if l.sites[l.index(ix, iy, iz)].Phase == phase {
					n++
				}
			}
		}
	}
	return n
}
