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
	"testing"
)

func TestRNG(t *testing.T) {
	r := NewRNG(-2807)
	seen := make(map[float64]bool)
	for i := 0; i < 1000; i++ {
		v := r.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("value %g out of range", v)
		}
		seen[v] = true
	}
	if len(seen) < 990 {
		t.Errorf("only %d distinct values in 1000 draws", len(seen))
	}
	if s := r.State(); s.Calls != 1000 || s.Seed != -2807 {
		t.Errorf("have state %+v", s)
	}

	// The same seed gives the same stream.
	a, b := NewRNG(12345), NewRNG(12345)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d: %g != %g", i, x, y)
		}
	}
}

func TestRNGReset(t *testing.T) {
	r := NewRNG(-2807)
	for i := 0; i < 57; i++ {
		r.Float64()
	}
	s := r.State()
	want := []float64{r.Float64(), r.Float64(), r.Float64()}

	r2 := NewRNG(1)
	r2.Float64()
	if err := r2.Reset(s); err != nil {
		t.Fatal(err)
	}
	for i, w := range want {
		if have := r2.Float64(); have != w {
			t.Errorf("draw %d after reset: have %g, want %g", i, have, w)
		}
	}

	bad := s
	bad.Last = math.Nextafter(s.Last, 2)
	if err := r2.Reset(bad); err == nil {
		t.Error("reset with a wrong last value should fail")
	}
}

func TestRNGIntn(t *testing.T) {
	r := NewRNG(7)
	counts := make([]int, 4)
	for i := 0; i < 4000; i++ {
		counts[r.Intn(4)]++
	}
	for i, c := range counts {
		if c < 800 || c > 1200 {
			t.Errorf("value %d drawn %d times out of 4000", i, c)
		}
	}
	defer func() {
		if recover() == nil {
			t.Error("Intn(0) should panic")
		}
	}()
	r.Intn(0)
}
