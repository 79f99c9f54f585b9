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
	"sort"
)

// Isite is a member of an interface: a site id and the score used to
// weight its selection. For growth sites the score is the affinity of the
// phase for the site; for dissolution sites it is unused.
type Isite struct {
	ID       int
	Affinity float64
}

// isiteList is an unordered list of interface sites. Positions are not
// stable across removals, so the owner of the list mirrors each entry's
// position in a back-reference and must update it whenever remove reports
// that an entry moved.
type isiteList []Isite

func (l *isiteList) len() int {
	return len(*l)
}

// add appends s to the list and returns its position.
func (l *isiteList) add(s Isite) int {
	*l = append(*l, s)
	return len(*l) - 1
}

// remove deletes the entry at pos by moving the last entry into its place.
// It returns the id of the entry that moved into pos, or -1 if nothing moved
// because pos was the last position.
func (l *isiteList) remove(pos int) (moved int) {
	last := len(*l) - 1
	if pos < 0 || pos > last {
		panic(fmt.Errorf("isiteList: position %d out of range [0,%d]", pos, last))
	}
	moved = -1
	if pos != last {
		(*l)[pos] = (*l)[last]
		moved = (*l)[pos].ID
	}
	*l = (*l)[:last]
	return moved
}

// ids returns the sorted ids of the sites in the list.
func (l *isiteList) ids() []int {
	o := make([]int, len(*l))
	for i, s := range *l {
		o[i] = s.ID
	}
	sort.Ints(o)
	return o
}

// clone returns a copy of the list.
func (l isiteList) clone() isiteList {
	if l == nil {
		return nil
	}
	o := make(isiteList, len(l))
	copy(o, l)
	return o
}

func (l *isiteList) String() string {
	s := ""
	for i, c := range *l {
		if i != 0 {
			s += "\n"
		}
		s += fmt.Sprintf("%d:%g", c.ID, c.Affinity)
	}
	return s
}

// sortUnique sorts ids and removes duplicates in place.
func sortUnique(ids []int) []int {
	if len(ids) < 2 {
		return ids
	}
	sort.Ints(ids)
	j := 1
	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[j-1] {
			ids[j] = ids[i]
			j++
		}
	}
	return ids[:j]
}
