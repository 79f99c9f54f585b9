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
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestReport(t *testing.T) {
	for _, test := range []struct {
		err  error
		want string
	}{
		{
			err: &GEMError{Where: Where{"ChemicalSystem", "CalculateState"}, Status: 2, Msg: "no convergence"},
			want: "GEM exception thrown:\n    Class: ChemicalSystem\n    Function: CalculateState\n" +
				"    Description: thames: ChemicalSystem.CalculateState: equilibrium calculation failed with status 2: no convergence\n",
		},
		{
			err: fmt.Errorf("cycle 3: %w", &EOBError{Where: Where{"Lattice", "NewLattice"}, Container: "phases", Index: 9, Size: 4}),
			want: "EOB exception thrown:\n    Class: Lattice\n    Function: NewLattice\n" +
				"    Description: cycle 3: thames: Lattice.NewLattice: index 9 out of bounds for phases of size 4\n",
		},
		{
			err:  errors.New("plain"),
			want: "Error exception thrown:\n    Class: thames\n    Function: \n    Description: plain\n",
		},
	} {
		var buf bytes.Buffer
		Report(&buf, test.err)
		if have := buf.String(); have != test.want {
			t.Errorf("have %q, want %q", have, test.want)
		}
	}

	var buf bytes.Buffer
	Report(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("nil error reported as %q", buf.String())
	}
}

func TestFileErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := &FileError{Where: Where{Class: "Lattice"}, File: "x.img", Op: "write", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("FileError does not unwrap")
	}
	if have, want := err.Error(), "thames: Lattice: write x.img: disk full"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
}

func TestOutcome(t *testing.T) {
	o := Fail(&MicrostructureError{Msg: "no water left"})
	if o.Kind != GracefulStop || o.Reason != "no water left" {
		t.Errorf("have %v", o)
	}
	o = Fail(&MicrostructureError{Msg: "lost sites", IsError: true})
	if o.Kind != Fatal {
		t.Errorf("have %v", o)
	}
	if have, want := Stop("done").String(), "graceful stop: done"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
	if have, want := (Outcome{}).String(), "continue"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
}
