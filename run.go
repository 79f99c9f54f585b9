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
	"os"
	"path/filepath"
	"time"
)

// Log writes simulation status messages to w.
func Log(w io.Writer) CycleFunc {
	startTime := time.Now()
	cycleTime := time.Now()

	return func(c *Controller) error {
		fmt.Fprintf(w, "Cycle %-5d  time=%8.4gh  walltime=%6.3gh  Δwalltime=%4.2gs  changed=%d\n",
			c.Cycle, c.Time, time.Since(startTime).Hours(),
			time.Since(cycleTime).Seconds(), c.Changed)
		cycleTime = time.Now()
		return nil
	}
}

// SaveCheckpoints writes the lattice state to
// <dir>/<jobRoot>.<cycle>.checkpoint after every nth cycle. The chemical
// inventories in the saved state are those after the equilibrium
// calculation of the cycle.
func SaveCheckpoints(dir, jobRoot string, n int) CycleFunc {
	return func(c *Controller) error {
		if n <= 0 || c.Cycle%n != 0 {
			return nil
		}
		name := filepath.Join(dir, fmt.Sprintf("%s.%d.checkpoint", jobRoot, c.Cycle))
		f, err := os.Create(name)
		if err != nil {
			return &FileError{Where: Where{"Controller", "SaveCheckpoints"}, File: name, Op: "create", Err: err}
		}
		if err := c.lat.Checkpoint().Save(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return &FileError{Where: Where{"Controller", "SaveCheckpoints"}, File: name, Op: "close", Err: err}
		}
		return nil
	}
}

// CheckInvariants verifies the interface bookkeeping of the lattice after
// every cycle, regardless of whether Config.CheckInvariants is set.
func CheckInvariants() CycleFunc {
	return func(c *Controller) error {
		return c.lat.CheckInterfaces()
	}
}
