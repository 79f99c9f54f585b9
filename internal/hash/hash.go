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

// Package hash computes fingerprints of simulation state, so that two
// states can be compared without keeping both in memory.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// Sum returns a hexadecimal fingerprint of the given objects. Objects are
// gob encoded in order; map keys are not sorted by gob, so objects that
// should hash identically must not contain maps.
func Sum(objects ...interface{}) string {
	h := fnv.New128a()
	e := gob.NewEncoder(h)
	for _, o := range objects {
		if err := e.Encode(o); err != nil {
			return spewSum(objects...)
		}
	}
	return hexSum(h)
}

// spewSum is the fallback for objects that gob cannot encode. It prints
// the objects with sorted map keys and no pointer addresses.
func spewSum(objects ...interface{}) string {
	h := fnv.New128a()
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		SpewKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	for _, o := range objects {
		printer.Fprintf(h, "%#v", o)
	}
	return hexSum(h)
}

func hexSum(h hash.Hash) string {
	return fmt.Sprintf("%x", h.Sum(nil)[:h.Size()])
}
