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

import "fmt"

const (
	rngMBig  = 1000000000
	rngMSeed = 161803398
	rngFac   = 1.0 / rngMBig
)

// RNG is a subtractive (Knuth) uniform generator on [0,1). Its state is
// fully determined by the seed and the number of values drawn, which is what
// allows a checkpoint to store only RNGState.
type RNG struct {
	ma            [56]int64
	inext, inextp int
	seed          int64
	calls         uint64
	last          float64
}

// RNGState identifies a point in the random number stream.
type RNGState struct {
	Seed  int64
	Calls uint64
	Last  float64
}

// NewRNG returns a generator initialized with seed.
func NewRNG(seed int64) *RNG {
	r := new(RNG)
	r.init(seed)
	return r
}

func (r *RNG) init(seed int64) {
	r.seed = seed
	r.calls = 0
	r.last = 0
	if seed < 0 {
		seed = -seed
	}
	mj := rngMSeed - seed
	if mj < 0 {
		mj = -mj
	}
	mj %= rngMBig
	r.ma[55] = mj
	mk := int64(1)
	for i := 1; i <= 54; i++ {
		ii := (21 * i) % 55
		r.ma[ii] = mk
		mk = mj - mk
		if mk < 0 {
			mk += rngMBig
		}
		mj = r.ma[ii]
	}
	for k := 0; k < 4; k++ {
		for i := 1; i <= 55; i++ {
			r.ma[i] -= r.ma[1+(i+30)%55]
			if r.ma[i] < 0 {
				r.ma[i] += rngMBig
			}
		}
	}
	r.inext = 0
	r.inextp = 31
}

// Float64 returns the next value in [0,1).
func (r *RNG) Float64() float64 {
	r.inext++
	if r.inext == 56 {
		r.inext = 1
	}
	r.inextp++
	if r.inextp == 56 {
		r.inextp = 1
	}
	mj := r.ma[r.inext] - r.ma[r.inextp]
	if mj < 0 {
		mj += rngMBig
	}
	r.ma[r.inext] = mj
	r.calls++
	r.last = float64(mj) * rngFac
	return r.last
}

// Intn returns a value in [0,n). It panics if n <= 0.
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		panic("thames: RNG.Intn called with n <= 0")
	}
	i := int(r.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// State returns the current position in the stream.
func (r *RNG) State() RNGState {
	return RNGState{Seed: r.seed, Calls: r.calls, Last: r.last}
}

// Reset reseeds the generator and replays s.Calls draws so that the next value
// is the one that followed s when it was recorded.
func (r *RNG) Reset(s RNGState) error {
	r.init(s.Seed)
	for r.calls < s.Calls {
		r.Float64()
	}
	if r.last != s.Last {
		return &DataError{Where: Where{"RNG", "Reset"}, Variable: "last",
			Msg: fmt.Sprintf("replayed value %g does not match recorded value %g after %d calls",
				r.last, s.Last, s.Calls)}
	}
	return nil
}
