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
	"io/ioutil"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/Knetic/govaluate"
)

func TestCheckForDerivatives(t *testing.T) {
	o, err := NewOutputter("", "test", map[string]string{
		"hyd":     "time*2",
		"x":       "hyd + hyd_mass",
		"doubled": "A_mass*2",
		"y":       "doubled + 1",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"hyd":     "time*2",
		"x":       "(time*2) + hyd_mass",
		"doubled": "A_mass*2",
		"y":       "(A_mass*2) + 1",
	}
	if !reflect.DeepEqual(o.outputVariables, want) {
		t.Errorf("have %#v, want %#v", o.outputVariables, want)
	}
	model := append([]string(nil), o.modelVariables...)
	sort.Strings(model)
	if wantModel := []string{"A_mass", "hyd_mass", "time"}; !reflect.DeepEqual(model, wantModel) {
		t.Errorf("have %v, want %v", model, wantModel)
	}
}

func TestNewOutputterErrors(t *testing.T) {
	for name, vars := range map[string]map[string]string{
		"circular":   {"a": "b", "b": "a"},
		"bad name":   {"1x": "time"},
		"space":      {"a b": "time"},
		"bad syntax": {"x": "time +"},
	} {
		if _, err := NewOutputter("", "test", vars, nil); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestOutputter(t *testing.T) {
	cfg := testConfig(t)
	c := newTestChem("A")
	l := newTestLattice(t, cfg, c, 4, 4, 4, func(id int) int { return Electrolyte + id%2 })
	o, err := NewOutputter(cfg.OutputDir, cfg.JobRoot, map[string]string{
		"doubled": "A*2",
		"r":       "ratio(A_mass, 0)",
		"s":       "sum(A, Electrolyte, Void)",
		"triple":  "thrice(A)",
	}, map[string]govaluate.ExpressionFunction{
		"thrice": func(arg ...interface{}) (interface{}, error) { return arg[0].(float64) * 3, nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := o.CheckOutputVars(l); err != nil {
		t.Fatal(err)
	}
	if err := o.Output(l, 1); err != nil {
		t.Fatal(err)
	}
	if err := o.Output(l, 2.5); err != nil {
		t.Fatal(err)
	}

	b, err := ioutil.ReadFile(filepath.Join(cfg.OutputDir, "test_Microstructure.csv"))
	if err != nil {
		t.Fatal(err)
	}
	want := "Time (h),Void,Electrolyte,A,doubled,r,s,triple\n" +
		"1,0,0.5,0.5,1,0,1,1.5\n" +
		"2.5,0,0.5,0.5,1,0,1,1.5\n"
	if string(b) != want {
		t.Errorf("have %q, want %q", b, want)
	}

	b, err = ioutil.ReadFile(filepath.Join(cfg.OutputDir, "test_Solution.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 3 || lines[0] != "Time (h),H2O@,A" {
		t.Errorf("have %q", lines)
	}

	bad, err := NewOutputter(cfg.OutputDir, cfg.JobRoot, map[string]string{"x": "B*2"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := bad.CheckOutputVars(l); err == nil {
		t.Error("undefined variable B is not detected")
	}
}

func TestOutputOptions(t *testing.T) {
	c := newTestChem("C-S-H(gel)")
	l := newTestLattice(t, testConfig(t), c, 2, 2, 2, all(Electrolyte))
	names, desc := l.OutputOptions()
	if len(names) != len(desc) {
		t.Fatalf("%d names but %d descriptions", len(names), len(desc))
	}
	vals := l.outputValues(0)
	for _, n := range names {
		if _, ok := vals[n]; !ok {
			t.Errorf("no value for %s", n)
		}
	}
	if _, ok := vals["C_S_H_gel__mass"]; !ok {
		t.Error("phase names are not converted to variable names")
	}
	if have := variableName("3CaO"); have != "_3CaO" {
		t.Errorf("have %q, want _3CaO", have)
	}
}
