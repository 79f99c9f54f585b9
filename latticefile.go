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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

// Header keys of a microstructure image file.
const (
	versionKey    = "#THAMES:Version:"
	xSizeKey      = "#THAMES:X_Size:"
	ySizeKey      = "#THAMES:Y_Size:"
	zSizeKey      = "#THAMES:Z_Size:"
	resolutionKey = "#THAMES:Image_Resolution:"
)

// Image is a voxel microstructure image: the phase id of every voxel, with
// x varying fastest, then y, then z.
type Image struct {
	Version          string
	Xdim, Ydim, Zdim int
	Resolution       float64 // µm
	Phases           []int
}

// ReadImage reads a microstructure image. Images without a header are
// assumed to be 100×100×100 voxels at a resolution of 1 µm.
func ReadImage(r io.Reader) (*Image, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}
	dataErr := func(v, msg string) error {
		return &DataError{Where: Where{"Image", "ReadImage"}, Variable: v, Msg: msg}
	}

	img := &Image{Version: "2.0", Xdim: 100, Ydim: 100, Zdim: 100, Resolution: 1}
	tok, ok := next()
	if !ok {
		return nil, dataErr("header", "empty image")
	}
	if tok == versionKey {
		var err error
		fields := []struct {
			key string
			set func(string) error
		}{
			{"", func(s string) error { img.Version = s; return nil }},
			{xSizeKey, func(s string) (err error) { img.Xdim, err = strconv.Atoi(s); return }},
			{ySizeKey, func(s string) (err error) { img.Ydim, err = strconv.Atoi(s); return }},
			{zSizeKey, func(s string) (err error) { img.Zdim, err = strconv.Atoi(s); return }},
			{resolutionKey, func(s string) (err error) { img.Resolution, err = strconv.ParseFloat(s, 64); return }},
		}
		for _, f := range fields {
			if f.key != "" {
				if k, _ := next(); k != f.key {
					return nil, dataErr("header", fmt.Sprintf("have %q, want %q", k, f.key))
				}
			}
			v, ok := next()
			if !ok {
				return nil, dataErr("header", "truncated header")
			}
			if err = f.set(v); err != nil {
				return nil, dataErr(f.key, err.Error())
			}
		}
		if tok, ok = next(); !ok {
			return nil, dataErr("phases", "image has no voxels")
		}
	}
	if img.Xdim <= 0 || img.Ydim <= 0 || img.Zdim <= 0 {
		return nil, dataErr("dimensions", fmt.Sprintf("invalid dimensions %d×%d×%d", img.Xdim, img.Ydim, img.Zdim))
	}
	if img.Resolution <= 0 {
		return nil, dataErr("resolution", fmt.Sprintf("invalid resolution %g", img.Resolution))
	}

	n := img.Xdim * img.Ydim * img.Zdim
	img.Phases = make([]int, 0, n)
	for {
		p, err := strconv.Atoi(tok)
		if err != nil {
			return nil, dataErr("phases", err.Error())
		}
		img.Phases = append(img.Phases, p)
		if tok, ok = next(); !ok {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &FileError{Where: Where{"Image", "ReadImage"}, Op: "read", Err: err}
	}
	if len(img.Phases) != n {
		return nil, dataErr("phases", fmt.Sprintf("image has %d voxels; want %d", len(img.Phases), n))
	}
	return img, nil
}

// ReadImageFile reads the microstructure image in the named file.
func ReadImageFile(filename string) (*Image, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &FileError{Where: Where{"Image", "ReadImageFile"}, File: filename, Op: "open", Err: err}
	}
	defer f.Close()
	img, err := ReadImage(f)
	if err != nil {
		return nil, fmt.Errorf("thames: reading %s: %v", filename, err)
	}
	return img, nil
}

// Write writes img in the format read by ReadImage.
func (img *Image) Write(w io.Writer) error {
	b := bufio.NewWriter(w)
	fmt.Fprintf(b, "%s %s\n", versionKey, img.Version)
	fmt.Fprintf(b, "%s %d\n", xSizeKey, img.Xdim)
	fmt.Fprintf(b, "%s %d\n", ySizeKey, img.Ydim)
	fmt.Fprintf(b, "%s %d\n", zSizeKey, img.Zdim)
	fmt.Fprintf(b, "%s %g\n", resolutionKey, img.Resolution)
	for _, p := range img.Phases {
		b.WriteString(strconv.Itoa(p))
		b.WriteByte('\n')
	}
	return b.Flush()
}

// Image returns the current microstructure of the lattice.
func (l *Lattice) Image() *Image {
	img := &Image{Version: Version, Xdim: l.xdim, Ydim: l.ydim, Zdim: l.zdim, Resolution: l.resolution,
		Phases: make([]int, l.numSites)}
	for i := range l.sites {
		img.Phases[i] = l.sites[i].Phase
	}
	return img
}

// damageImage returns an image in which damaged sites have phase 1 and all
// other sites phase 0.
func (l *Lattice) damageImage() *Image {
	img := &Image{Version: Version, Xdim: l.xdim, Ydim: l.ydim, Zdim: l.zdim, Resolution: l.resolution,
		Phases: make([]int, l.numSites)}
	for i := range l.sites {
		if l.sites[i].Damage {
			img.Phases[i] = 1
		}
	}
	return img
}

// timeString formats a simulation time [h] for use in file names.
func timeString(t float64) string { return strconv.FormatFloat(t, 'f', 2, 64) + "h" }

// outputName returns the path of an output file with the given suffix
// stamped with the simulation time and temperature.
func (l *Lattice) outputName(root string, t float64, ext string) string {
	name := fmt.Sprintf("%s.%s.%.3gK.%s", root, timeString(t), l.chem.Temperature(), ext)
	return filepath.Join(l.cfg.OutputDir, name)
}

// writeFile creates the named file and writes to it with fn, retrying on
// failure up to cfg.WriteRetries times.
func (l *Lattice) writeFile(name string, fn func(io.Writer) error) error {
	return writeFileRetry(name, l.cfg.WriteRetries, l.log, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fn)
}

func writeFileRetry(name string, retries uint64, log logrus.FieldLogger, flag int, fn func(io.Writer) error) error {
	op := func() error {
		f, err := os.OpenFile(name, flag, 0644)
		if err != nil {
			return &FileError{Where: Where{"Lattice", "writeFile"}, File: name, Op: "create", Err: err}
		}
		w := bufio.NewWriter(f)
		if err = fn(w); err == nil {
			err = w.Flush()
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return &FileError{Where: Where{"Lattice", "writeFile"}, File: name, Op: "write", Err: err}
		}
		return nil
	}
	return backoff.RetryNotify(op,
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries),
		func(err error, d time.Duration) {
			log.WithError(err).Warnf("retrying in %v", d)
		},
	)
}

// WriteLattice writes the microstructure at time t [h].
func (l *Lattice) WriteLattice(t float64) error {
	return l.writeFile(l.outputName(l.cfg.JobRoot, t, "img"), l.Image().Write)
}

// WriteDamageLattice writes the damaged sites at time t [h].
func (l *Lattice) WriteDamageLattice(t float64) error {
	return l.writeFile(l.outputName(l.cfg.JobRoot+".damage", t, "img"), l.damageImage().Write)
}

// WriteMicroColors writes the id, name and display color of every phase.
func (l *Lattice) WriteMicroColors() error {
	name := filepath.Join(l.cfg.OutputDir, l.cfg.JobRoot+"_Colors.csv")
	return l.writeFile(name, func(w io.Writer) error {
		fmt.Fprintf(w, "%d\n", l.numPhases)
		for p := 0; p < l.numPhases; p++ {
			c := l.phaseColor(p)
			if _, err := fmt.Fprintf(w, "%d %s %d %d %d\n", p, l.chem.MicroPhaseName(p), c.R, c.G, c.B); err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendXYZ appends the microstructure at time t [h] to the xyz movie file
// of the run, which is created at time 0.
func (l *Lattice) AppendXYZ(t float64) error {
	name := filepath.Join(l.cfg.OutputDir, l.cfg.JobRoot+".xyz")
	flag := os.O_CREATE | os.O_APPEND | os.O_WRONLY
	if t < 1.0e-8 {
		flag = os.O_CREATE | os.O_TRUNC | os.O_WRONLY
	}
	return writeFileRetry(name, l.cfg.WriteRetries, l.log, flag, func(w io.Writer) error {
		fmt.Fprintf(w, "%d\n", l.numSites)
		fmt.Fprintf(w, "Lattice=\"%d.0 0.0 0.0 0.0 %d.0 0.0 0.0 0.0 %d.0\" ", l.xdim, l.ydim, l.zdim)
		fmt.Fprintf(w, "Properties=pos:R:3:color:R:3:transparency:R:1 Time=%g\n", t)
		for id := range l.sites {
			x, y, z := l.coords(id)
			p := l.sites[id].Phase
			c := l.phaseColor(p)
			transparency := 0.0
			if !isSolid(p) {
				transparency = 0.7
			}
			if _, err := fmt.Fprintf(w, "%d\t%d\t%d\t%.4f\t%.4f\t%.4f\t%g\n", x, y, z,
				float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, transparency); err != nil {
				return err
			}
		}
		return nil
	})
}

// WritePoreSizeDistribution writes the pore size histogram at time t [h].
func (l *Lattice) WritePoreSizeDistribution(t float64) error {
	name := l.outputName(l.cfg.JobRoot+"_PoreSizeDistribution", t, "csv")
	return l.writeFile(name, func(w io.Writer) error {
		subvoxel, voxel, subSat, voxSat := l.PoreVolumeFractions()
		fmt.Fprintf(w, "Time (h),%g\n", t)
		fmt.Fprintf(w, "Sub-voxel pore volume fraction,%g\n", subvoxel)
		fmt.Fprintf(w, "Saturated sub-voxel pore volume fraction,%g\n", subSat)
		fmt.Fprintf(w, "Voxel pore volume fraction,%g\n", voxel)
		fmt.Fprintf(w, "Saturated voxel pore volume fraction,%g\n", voxSat)
		fmt.Fprintln(w, strings.Join([]string{"Diameter (nm)", "Volume Fraction", "Fraction Saturated"}, ","))
		for _, b := range l.poreSizeDist {
			if _, err := fmt.Fprintf(w, "%g,%g,%g\n", b.Diameter, b.VolumeFraction, b.FractionSaturated); err != nil {
				return err
			}
		}
		return nil
	})
}
