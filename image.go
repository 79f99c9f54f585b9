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
	"image"
	"image/color"
	"image/draw"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// pixelsPerVoxel is the edge length of a voxel in PNG slice images.
const pixelsPerVoxel = 4

var (
	voidColor        = color.NRGBA{A: 255}
	electrolyteColor = color.NRGBA{R: 25, G: 25, B: 112, A: 255}
	damageColor      = color.NRGBA{R: 255, G: 40, B: 0, A: 255}
	intactColor      = color.NRGBA{R: 235, G: 235, B: 235, A: 255}
)

// phaseColor returns the display color of phase p. Solid phases are spread
// along a diverging color map.
func (l *Lattice) phaseColor(p int) color.NRGBA {
	switch p {
	case Void:
		return voidColor
	case Electrolyte:
		return electrolyteColor
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(float64(FirstSolid))
	cm.SetMax(float64(l.numPhases - 1))
	if l.numPhases-1 <= FirstSolid {
		cm.SetMax(float64(FirstSolid) + 1)
	}
	c, err := cm.At(float64(p))
	if err != nil {
		return intactColor
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

// pngSlice returns the z index of the slice drawn in PNG images.
func (l *Lattice) pngSlice() int {
	if l.cfg.PNGSlice < 0 || l.cfg.PNGSlice >= l.zdim {
		return l.zdim / 2
	}
	return l.cfg.PNGSlice
}

// drawSlice draws one z slice of the lattice, coloring each voxel with fill,
// and writes it to w as a PNG image.
func (l *Lattice) drawSlice(w io.Writer, fill func(id int) color.Color) error {
	img := draw.Image(image.NewRGBA(image.Rect(0, 0, l.xdim*pixelsPerVoxel, l.ydim*pixelsPerVoxel)))
	c := vgimg.NewWith(vgimg.UseImage(img))
	dc := vgdraw.New(c)

	dx := (dc.Max.X - dc.Min.X) / vg.Length(l.xdim)
	dy := (dc.Max.Y - dc.Min.Y) / vg.Length(l.ydim)
	z := l.pngSlice()
	for y := 0; y < l.ydim; y++ {
		for x := 0; x < l.xdim; x++ {
			x0 := dc.Min.X + vg.Length(x)*dx
			y0 := dc.Min.Y + vg.Length(y)*dy
			dc.FillPolygon(fill(l.index(x, y, z)), []vg.Point{
				{X: x0, Y: y0}, {X: x0 + dx, Y: y0},
				{X: x0 + dx, Y: y0 + dy}, {X: x0, Y: y0 + dy},
			})
		}
	}
	_, err := vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	return err
}

// WriteLatticePNG writes an image of a slice of the microstructure at
// time t [h].
func (l *Lattice) WriteLatticePNG(t float64) error {
	return l.writeFile(l.outputName(l.cfg.JobRoot, t, "png"), func(w io.Writer) error {
		return l.drawSlice(w, func(id int) color.Color { return l.phaseColor(l.sites[id].Phase) })
	})
}

// WriteDamageLatticePNG writes an image of the damaged sites in a slice of
// the microstructure at time t [h].
func (l *Lattice) WriteDamageLatticePNG(t float64) error {
	return l.writeFile(l.outputName(l.cfg.JobRoot+".damage", t, "png"), func(w io.Writer) error {
		return l.drawSlice(w, func(id int) color.Color {
			if l.sites[id].Damage {
				return damageColor
			}
			return intactColor
		})
	})
}

// WritePoreSizePlot writes a plot of the cumulative pore volume and its
// saturated part against pore diameter at time t [h].
func (l *Lattice) WritePoreSizePlot(t float64) error {
	if len(l.poreSizeDist) == 0 {
		return nil
	}
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = fmt.Sprintf("Pore size distribution at %s", timeString(t))
	p.X.Label.Text = "Pore diameter (nm)"
	p.Y.Label.Text = "Cumulative volume fraction"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{}

	total := make(plotter.XYs, len(l.poreSizeDist))
	saturated := make(plotter.XYs, len(l.poreSizeDist))
	var sumV, sumS float64
	for i, b := range l.poreSizeDist {
		sumV += b.VolumeFraction
		sumS += b.VolumeFraction * b.FractionSaturated
		total[i].X, total[i].Y = b.Diameter, sumV
		saturated[i].X, saturated[i].Y = b.Diameter, sumS
	}
	lt, err := plotter.NewLine(total)
	if err != nil {
		return err
	}
	lt.Color = color.Black
	ls, err := plotter.NewLine(saturated)
	if err != nil {
		return err
	}
	ls.Color = electrolyteColor
	p.Add(lt, ls)
	p.Legend.Add("pores", lt)
	p.Legend.Add("saturated", ls)
	p.Legend.Top = true
	p.Legend.Left = true
	p.Y.Min = 0

	wt, err := p.WriterTo(4*vg.Inch, 3*vg.Inch, "png")
	if err != nil {
		return err
	}
	name := l.outputName(l.cfg.JobRoot+"_PoreSizeDistribution", t, "png")
	return l.writeFile(name, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}
