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

import "testing"

func TestWeightedSet(t *testing.T) {
	s := newWeightedSet(2)
	s.add(5, 1)
	s.add(7, 0)
	s.add(9, 3)
	if s.len() != 3 || !s.has(7) || s.has(6) {
		t.Fatalf("have len %d", s.len())
	}
	if have := s.total(); have != 4 {
		t.Errorf("total: have %g, want 4", have)
	}
	for _, test := range []struct {
		r    float64
		want int
	}{
		{r: 0, want: 5},
		{r: 0.2, want: 5},
		{r: 0.3, want: 9},
		{r: 0.999, want: 9},
	} {
		if have := s.pick(test.r); have != test.want {
			t.Errorf("pick(%g): have %d, want %d", test.r, have, test.want)
		}
	}

	s.set(7, 4)
	if have := s.pick(0.3); have != 7 {
		t.Errorf("after set: have %d, want 7", have)
	}
	s.remove(5)
	if s.has(5) || s.total() != 7 || s.weight(9) != 3 {
		t.Errorf("after remove: total %g", s.total())
	}

	// Growing past the initial capacity keeps the weights.
	for k := 100; k < 140; k++ {
		s.add(k, 0.5)
	}
	if have, want := s.total(), 7+40*0.5; have != want {
		t.Errorf("after grow: have total %g, want %g", have, want)
	}

	s2 := newWeightedSet(4)
	if have := s2.pick(0.5); have != -1 {
		t.Errorf("empty set: have %d, want -1", have)
	}
	s2.add(1, 0)
	s2.add(2, 0)
	if have := s2.pick(0.75); have != 2 {
		t.Errorf("zero weights pick uniformly: have %d, want 2", have)
	}
}

func TestWeightedSetFrequencies(t *testing.T) {
	s := newWeightedSet(16)
	s.add(0, 1)
	s.add(1, 3)
	r := NewRNG(-1)
	var n1 int
	for i := 0; i < 10000; i++ {
		if s.pick(r.Float64()) == 1 {
			n1++
		}
	}
	if n1 < 7200 || n1 > 7800 {
		t.Errorf("heavy key picked %d of 10000 times, want about 7500", n1)
	}
}
