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
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"gonum.org/v1/gonum/floats"
)

// Outputter writes the microstructure and solution time series of a
// simulation.
//
// outputVariables maps the names of extra microstructure columns to
// expressions that define how they are calculated. These expressions can
// use the model variables listed by Lattice.OutputOptions, other
// user-defined variables, and functions.
//
// modelVariables is automatically generated based on the model variables that
// are required to calculate the requested output variables.
type Outputter struct {
	microFile, solutionFile string
	outputVariables         map[string]string
	names                   []string
	modelVariables          []string
	outputFunctions         map[string]govaluate.ExpressionFunction
	expressions             map[string]*govaluate.EvaluableExpression
	started                 bool
}

// NewOutputter initializes a new Outputter that writes to
// <dir>/<jobRoot>_Microstructure.csv and <dir>/<jobRoot>_Solution.csv and
// adds a set of default output functions:
//
// 'exp(x)' and 'log(x)', the exponential and natural logarithm.
//
// 'sum(x, ...)', which sums its arguments.
//
// 'ratio(a, b)', which is a/b, or 0 when b is 0.
func NewOutputter(dir, jobRoot string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("thames: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return math.Exp(arg[0].(float64)), nil
		},
		"log": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("thames: got %d arguments for function 'log', but needs 1", len(arg))
			}
			return math.Log(arg[0].(float64)), nil
		},
		"sum": func(arg ...interface{}) (interface{}, error) {
			v := make([]float64, len(arg))
			for i, a := range arg {
				v[i] = a.(float64)
			}
			return floats.Sum(v), nil
		},
		"ratio": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("thames: got %d arguments for function 'ratio', but needs 2", len(arg))
			}
			if b := arg[1].(float64); b != 0 {
				return arg[0].(float64) / b, nil
			}
			return 0.0, nil
		},
	}
	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	o := &Outputter{
		microFile:       filepath.Join(dir, jobRoot+"_Microstructure.csv"),
		solutionFile:    filepath.Join(dir, jobRoot+"_Solution.csv"),
		outputVariables: make(map[string]string, len(outputVariables)),
		outputFunctions: defaultOutputFuncs,
	}
	for k, v := range outputVariables {
		o.outputVariables[k] = v
	}
	if err := checkOutputNames(o.outputVariables); err != nil {
		return nil, err
	}
	if err := o.checkForDerivatives(); err != nil {
		return nil, err
	}
	o.expressions = make(map[string]*govaluate.EvaluableExpression, len(o.outputVariables))
	for k, v := range o.outputVariables {
		o.names = append(o.names, k)
		e, err := govaluate.NewEvaluableExpressionWithFunctions(v, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("thames: output variable %s: %v", k, err)
		}
		o.expressions[k] = e
	}
	sort.Strings(o.names)
	return o, nil
}

// removeDuplicates removes all duplicated strings from a slice, returning a
// slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]struct{})
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

var identChar = regexp.MustCompile("[a-zA-Z0-9_]")

// continuesIdent reports whether the last (suffix) or first (prefix)
// character of s could be part of a variable name.
func continuesIdent(s string, suffix bool) bool {
	if s == "" {
		return false
	}
	if suffix {
		return identChar.MatchString(s[len(s)-1:])
	}
	return identChar.MatchString(s[:1])
}

// checkForDerivatives replaces every user-defined variable that appears in
// the expression of another variable by its own expression, and sets
// modelVariables to the unique model variables that remain.
func (o *Outputter) checkForDerivatives() error {
	for depth := 0; ; depth++ {
		if depth > len(o.outputVariables) {
			return fmt.Errorf("thames: output variables are defined in terms of each other")
		}
		o.modelVariables = o.modelVariables[:0]
		changed := false
		for _, key := range sortedKeys(o.outputVariables) {
			val := o.outputVariables[key]
			expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, o.outputFunctions)
			if err != nil {
				return fmt.Errorf("thames: output variable %s: %v", key, err)
			}
			for _, v := range removeDuplicates(expression.Vars()) {
				def, ok := o.outputVariables[v]
				if !ok || v == key {
					o.modelVariables = append(o.modelVariables, v)
					continue
				}
				// A name is only replaced where it is not part of a longer
				// name: "Alite" in "Alite_mass" is left alone.
				parts := strings.Split(val, v)
				for i := 0; i < len(parts)-1; i++ {
					if !continuesIdent(parts[i], true) && !continuesIdent(parts[i+1], false) {
						parts[i] += "(" + def + ")"
					} else {
						parts[i] += v
					}
				}
				val = strings.Join(parts, "")
				changed = true
			}
			o.outputVariables[key] = val
		}
		if !changed {
			o.modelVariables = removeDuplicates(o.modelVariables)
			return nil
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var outputNameRE = regexp.MustCompile(`^[A-Za-z]\w*$`)

// checkOutputNames checks that output variable names are usable as
// expression variables and CSV column names.
func checkOutputNames(o map[string]string) error {
	for key := range o {
		if !outputNameRE.MatchString(key) {
			return fmt.Errorf("thames: output variable name '%s' includes unsupported characters", key)
		}
	}
	return nil
}

// variableName converts a phase or DC name into an expression variable
// name.
func variableName(name string) string {
	v := strings.Map(func(r rune) rune {
		if r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			return r
		}
		return '_'
	}, name)
	if v == "" || ('0' <= v[0] && v[0] <= '9') {
		v = "_" + v
	}
	return v
}

// OutputOptions returns the names and descriptions of the model variables
// that output expressions can use.
func (l *Lattice) OutputOptions() (names, descriptions []string) {
	add := func(n, d string) {
		names = append(names, n)
		descriptions = append(descriptions, d)
	}
	add("time", "Simulation time (h)")
	add("wsratio", "Initial water to solid mass ratio")
	add("wcratio", "Initial water to cement mass ratio")
	add("damage", "Number of damaged sites")
	add("expansion", "Number of sites with expansion strain")
	add("capillary_pores", "Voxel-scale pore volume fraction")
	add("subvoxel_pores", "Sub-voxel pore volume fraction")
	for p := 0; p < l.numPhases; p++ {
		n := variableName(l.chem.MicroPhaseName(p))
		add(n, "Volume fraction of "+l.chem.MicroPhaseName(p))
		add(n+"_mass", "Mass of "+l.chem.MicroPhaseName(p)+" (g/100 g solid)")
		add(n+"_SA", "Surface area of "+l.chem.MicroPhaseName(p)+" (m²/100 g solid)")
	}
	return names, descriptions
}

// outputValues returns the values of the model variables at time t.
func (l *Lattice) outputValues(t float64) map[string]interface{} {
	subvoxel, voxel, _, _ := l.PoreVolumeFractions()
	v := map[string]interface{}{
		"time":            t,
		"wsratio":         l.wsRatio,
		"wcratio":         l.wcRatio,
		"damage":          float64(l.damageCount),
		"expansion":       float64(len(l.expansion)),
		"capillary_pores": voxel,
		"subvoxel_pores":  subvoxel,
	}
	for p := 0; p < l.numPhases; p++ {
		n := variableName(l.chem.MicroPhaseName(p))
		v[n] = l.volumeFraction[p]
		v[n+"_mass"] = l.chem.MicroPhaseMass(p)
		v[n+"_SA"] = l.surfaceArea[p]
	}
	return v
}

// CheckOutputVars ensures the output variables can be calculated.
func (o *Outputter) CheckOutputVars(l *Lattice) error {
	names, _ := l.OutputOptions()
	have := make(map[string]struct{}, len(names))
	for _, n := range names {
		have[n] = struct{}{}
	}
	for _, v := range o.modelVariables {
		if _, ok := have[v]; !ok {
			return fmt.Errorf("thames: undefined variable name '%s'", v)
		}
	}
	return nil
}

// Output appends the state of l at time t [h] to the time series files.
// The files are created, with headers, on the first call.
func (o *Outputter) Output(l *Lattice, t float64) error {
	flag := os.O_CREATE | os.O_APPEND | os.O_WRONLY
	if !o.started {
		flag = os.O_CREATE | os.O_TRUNC | os.O_WRONLY
	}
	vals := l.outputValues(t)
	err := writeFileRetry(o.microFile, l.cfg.WriteRetries, l.log, flag, func(w io.Writer) error {
		if !o.started {
			cols := []string{"Time (h)"}
			for p := 0; p < l.numPhases; p++ {
				cols = append(cols, l.chem.MicroPhaseName(p))
			}
			cols = append(cols, o.names...)
			fmt.Fprintln(w, strings.Join(cols, ","))
		}
		row := []string{fmt.Sprint(t)}
		for p := 0; p < l.numPhases; p++ {
			row = append(row, fmt.Sprint(l.volumeFraction[p]))
		}
		for _, n := range o.names {
			r, err := o.expressions[n].Evaluate(vals)
			if err != nil {
				return fmt.Errorf("thames: evaluating %s: %v", n, err)
			}
			row = append(row, fmt.Sprint(r))
		}
		_, err := fmt.Fprintln(w, strings.Join(row, ","))
		return err
	})
	if err != nil {
		return err
	}
	err = writeFileRetry(o.solutionFile, l.cfg.WriteRetries, l.log, flag, func(w io.Writer) error {
		ndc := l.chem.NumDCs()
		if !o.started {
			cols := []string{"Time (h)"}
			for i := 0; i < ndc; i++ {
				cols = append(cols, l.chem.DCName(i))
			}
			fmt.Fprintln(w, strings.Join(cols, ","))
		}
		row := []string{fmt.Sprint(t)}
		for i := 0; i < ndc; i++ {
			row = append(row, fmt.Sprint(l.chem.DCMoles(i)))
		}
		_, err := fmt.Fprintln(w, strings.Join(row, ","))
		return err
	})
	if err != nil {
		return err
	}
	o.started = true
	return nil
}
