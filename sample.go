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

// weightedSet is a set of integer keys with non-negative weights that
// supports weighted random selection without replacement. Weights are
// kept in a Fenwick tree so that updates and selections are O(log n).
type weightedSet struct {
	keys []int
	w    []float64
	tree []float64 // 1-based
	pos  map[int]int
}

func newWeightedSet(capacity int) *weightedSet {
	if capacity < 16 {
		capacity = 16
	}
	return &weightedSet{
		keys: make([]int, 0, capacity),
		w:    make([]float64, 0, capacity),
		tree: make([]float64, capacity+1),
		pos:  make(map[int]int, capacity),
	}
}

func (s *weightedSet) len() int { return len(s.keys) }

func (s *weightedSet) has(k int) bool {
	_, ok := s.pos[k]
	return ok
}

func (s *weightedSet) cap() int { return len(s.tree) - 1 }

func (s *weightedSet) update(i int, delta float64) {
	for i++; i < len(s.tree); i += i & -i {
		s.tree[i] += delta
	}
}

func (s *weightedSet) grow() {
	n := 2 * s.cap()
	s.tree = make([]float64, n+1)
	for i, w := range s.w {
		s.update(i, w)
	}
}

// add inserts k with weight w, or sets the weight of k if it is
// already present.
func (s *weightedSet) add(k int, w float64) {
	if w < 0 {
		w = 0
	}
	if _, ok := s.pos[k]; ok {
		s.set(k, w)
		return
	}
	if len(s.keys) == s.cap() {
		s.grow()
	}
	s.pos[k] = len(s.keys)
	s.keys = append(s.keys, k)
	s.w = append(s.w, w)
	s.update(len(s.keys)-1, w)
}

// set changes the weight of k. It does nothing if k is not in the set.
func (s *weightedSet) set(k int, w float64) {
	i, ok := s.pos[k]
	if !ok {
		return
	}
	if w < 0 {
		w = 0
	}
	s.update(i, w-s.w[i])
	s.w[i] = w
}

// weight returns the weight of k.
func (s *weightedSet) weight(k int) float64 {
	if i, ok := s.pos[k]; ok {
		return s.w[i]
	}
	return 0
}

// remove deletes k from the set if it is present.
func (s *weightedSet) remove(k int) {
	i, ok := s.pos[k]
	if !ok {
		return
	}
	last := len(s.keys) - 1
	if i != last {
		s.update(i, s.w[last]-s.w[i])
		s.keys[i] = s.keys[last]
		s.w[i] = s.w[last]
		s.pos[s.keys[i]] = i
	}
	s.update(last, -s.w[last])
	s.keys = s.keys[:last]
	s.w = s.w[:last]
	delete(s.pos, k)
}

// total returns the sum of the weights.
func (s *weightedSet) total() float64 {
	var sum float64
	for i := len(s.keys); i > 0; i -= i & -i {
		sum += s.tree[i]
	}
	return sum
}

// pick returns a key chosen with probability proportional to its weight,
// using r in [0,1). If all weights are zero the choice is uniform. It
// returns -1 if the set is empty.
func (s *weightedSet) pick(r float64) int {
	n := len(s.keys)
	if n == 0 {
		return -1
	}
	total := s.total()
	if total <= 0 {
		i := int(r * float64(n))
		if i >= n {
			i = n - 1
		}
		return s.keys[i]
	}
	target := r * total
	idx := 0
	bit := 1
	for bit*2 <= s.cap() {
		bit *= 2
	}
	for ; bit > 0; bit >>= 1 {
		next := idx + bit
		if next <= s.cap() && s.tree[next] <= target {
			idx = next
			target -= s.tree[next]
		}
	}
	if idx >= n {
		idx = n - 1
	}
	// Rounding can land on a trailing zero-weight entry.
	for idx > 0 && s.w[idx] == 0 {
		idx--
	}
	return s.keys[idx]
}
