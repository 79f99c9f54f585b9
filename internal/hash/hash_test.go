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

package hash

import "testing"

type state struct {
	Phases []int
	Moles  []float64
}

func TestSum(t *testing.T) {
	a := state{Phases: []int{1, 2, 2, 0}, Moles: []float64{0.5, 1.25}}
	b := state{Phases: []int{1, 2, 2, 0}, Moles: []float64{0.5, 1.25}}
	c := state{Phases: []int{1, 2, 0, 2}, Moles: []float64{0.5, 1.25}}

	if Sum(a) != Sum(b) {
		t.Errorf("equal states hash differently: %s != %s", Sum(a), Sum(b))
	}
	if Sum(a) == Sum(c) {
		t.Errorf("different states hash the same: %s", Sum(a))
	}
	if Sum(a, 1) == Sum(a, 2) {
		t.Error("extra objects do not change the hash")
	}
	if len(Sum(a)) != 32 {
		t.Errorf("have hash length %d, want 32", len(Sum(a)))
	}
}

func TestSumFallback(t *testing.T) {
	// Functions cannot be gob encoded.
	f := struct{ F func() }{}
	if h := Sum(f); h != Sum(f) || len(h) != 32 {
		t.Errorf("fallback hash %q is not stable", h)
	}
}
