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
	"errors"
	"fmt"
	"io"
)

// Where identifies the component and function that raised a failure.
type Where struct {
	Class, Function string
}

func (w Where) String() string {
	if w.Function == "" {
		return w.Class
	}
	return w.Class + "." + w.Function
}

// EOBError is returned when an index falls outside of a container.
type EOBError struct {
	Where
	Container   string
	Index, Size int
}

func (e *EOBError) Error() string {
	return fmt.Sprintf("thames: %v: index %d out of bounds for %s of size %d",
		e.Where, e.Index, e.Container, e.Size)
}

// FileError is returned when a file cannot be opened, read or written.
type FileError struct {
	Where
	File string
	Op   string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("thames: %v: %s %s: %v", e.Where, e.Op, e.File, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// FloatError is returned when a floating point calculation produces an
// invalid result.
type FloatError struct {
	Where
	Msg string
}

func (e *FloatError) Error() string {
	return fmt.Sprintf("thames: %v: floating point error: %s", e.Where, e.Msg)
}

// DataError is returned when input or derived data are inconsistent.
type DataError struct {
	Where
	Variable string
	Msg      string
}

func (e *DataError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("thames: %v: %s", e.Where, e.Msg)
	}
	return fmt.Sprintf("thames: %v: %s: %s", e.Where, e.Variable, e.Msg)
}

// GEMError is returned when the equilibrium calculation does not converge.
type GEMError struct {
	Where
	Status int
	Msg    string
}

func (e *GEMError) Error() string {
	return fmt.Sprintf("thames: %v: equilibrium calculation failed with status %d: %s",
		e.Where, e.Status, e.Msg)
}

// MicrostructureError is returned when the lattice cannot be brought into
// agreement with the requested phase volumes. If IsError is false the
// condition is an expected end of the simulation (for example, no more
// water to remove) rather than a failure.
type MicrostructureError struct {
	Where
	Msg     string
	IsError bool
}

func (e *MicrostructureError) Error() string {
	return fmt.Sprintf("thames: %v: %s", e.Where, e.Msg)
}

// Report writes a structured description of err to w.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	var (
		eob   *EOBError
		ferr  *FileError
		flerr *FloatError
		derr  *DataError
		gerr  *GEMError
		merr  *MicrostructureError
	)
	kind, where := "Error", Where{Class: "thames"}
	switch {
	case errors.As(err, &eob):
		kind, where = "EOB", eob.Where
	case errors.As(err, &ferr):
		kind, where = "File", ferr.Where
	case errors.As(err, &flerr):
		kind, where = "Floating point", flerr.Where
	case errors.As(err, &derr):
		kind, where = "Data", derr.Where
	case errors.As(err, &gerr):
		kind, where = "GEM", gerr.Where
	case errors.As(err, &merr):
		kind, where = "Microstructure", merr.Where
	}
	fmt.Fprintf(w, "%s exception thrown:\n    Class: %s\n    Function: %s\n    Description: %v\n",
		kind, where.Class, where.Function, err)
}

// OutcomeKind classifies the result of a simulation step.
type OutcomeKind int

// Outcome kinds.
const (
	Continue OutcomeKind = iota
	GracefulStop
	Fatal
)

func (k OutcomeKind) String() string {
	switch k {
	case Continue:
		return "continue"
	case GracefulStop:
		return "graceful stop"
	case Fatal:
		return "fatal"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the result of a simulation step. Reason is set for graceful
// stops and Err is set for fatal outcomes.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
}

// Stop returns a GracefulStop outcome.
func Stop(reason string) Outcome { return Outcome{Kind: GracefulStop, Reason: reason} }

// Fail returns a Fatal outcome, unless err is a non-error
// MicrostructureError, in which case the outcome is a GracefulStop.
func Fail(err error) Outcome {
	var merr *MicrostructureError
	if errors.As(err, &merr) && !merr.IsError {
		return Outcome{Kind: GracefulStop, Reason: merr.Msg}
	}
	return Outcome{Kind: Fatal, Err: err}
}

func (o Outcome) String() string {
	switch o.Kind {
	case GracefulStop:
		return fmt.Sprintf("%v: %s", o.Kind, o.Reason)
	case Fatal:
		return fmt.Sprintf("%v: %v", o.Kind, o.Err)
	}
	return o.Kind.String()
}
