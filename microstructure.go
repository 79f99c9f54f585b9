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
	"math"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Shortfall reports a phase that could not be dissolved as far as the
// equilibrium calculation required. Count is the number of sites of the
// phase that remained after all of its dissolution sites were used up.
type Shortfall struct {
	Phase int
	Name  string
	Count int
}

// AdjustMicrostructureVolumes reconciles the phase volumes [m³] calculated
// by the chemical system with the fixed volume of the microstructure. Solid
// volumes are kept. The volume not taken by solids is split between voxel
// and sub-voxel pores, and any volume not filled by electrolyte becomes
// voxel-scale void. The returned slice holds the adjusted volumes, with the
// electrolyte entry holding only the voxel-scale electrolyte.
func (l *Lattice) AdjustMicrostructureVolumes(vol []float64) ([]float64, error) {
	var v Volumes
	solids := make([]float64, 0, len(vol))
	pores := make([]float64, 0, len(vol))
	for p := FirstSolid; p < len(vol); p++ {
		solids = append(solids, vol[p])
		pores = append(pores, vol[p]*l.porosity[p])
	}
	v.SolidWithPores = floats.Sum(solids)
	v.SubvoxelPore = floats.Sum(pores)
	if v.SolidWithPores <= 0 {
		return nil, &DataError{Where: Where{"Lattice", "AdjustMicrostructureVolumes"},
			Variable: "solid volume", Msg: "total solid volume is not positive"}
	}
	initV := l.initialMicrostructureVolume
	v.Solid = v.SolidWithPores - v.SubvoxelPore
	v.NonSolid = initV - v.Solid
	v.VoxelPore = initV - v.SolidWithPores
	v.Water = vol[Electrolyte]
	v.Void = v.NonSolid - v.Water
	if v.Void < 0 {
		// There is more water than room for it.
		v.Water = v.NonSolid
	}

	v.VoxelWater = v.Water - v.SubvoxelPore
	if v.VoxelWater < 0 {
		v.SubvoxelWater = v.Water
		v.VoxelWater = 0
	} else {
		v.SubvoxelWater = v.SubvoxelPore
	}
	v.VoxelVoid = math.Max(v.VoxelPore-v.VoxelWater, 0)
	if l.chem.IsSaturated() {
		v.VoxelVoid = 0
		v.VoxelWater = math.Max(v.Water-v.SubvoxelPore, 0)
		v.SubvoxelWater = v.SubvoxelPore
	}
	v.VoxelPore = v.VoxelVoid + v.VoxelWater
	l.volumes = v

	out := append([]float64(nil), vol...)
	out[Electrolyte] = v.VoxelWater
	out[Void] = v.VoxelVoid
	return out, nil
}

// ChangeMicrostructure brings the lattice into agreement with the phase
// volumes of the most recent equilibrium state at the given time [h].
// Solid phases that have lost volume are dissolved first and phases that
// have gained volume are then grown or nucleated, after which electrolyte
// voxels are emptied or void voxels are filled to match the new water
// volume.
//
// If a phase could not dissolve as far as required the change is abandoned
// part way and the shortfalls are returned so that the caller can restore
// the lattice and repeat the equilibrium calculation with corrected
// bounds. recall holds the shortfalls of the previous attempt, which fix the
// target site counts of kinetically controlled phases.
func (l *Lattice) ChangeMicrostructure(time float64, simType SimType, recall []Shortfall, cycle int) (Outcome, []Shortfall) {
	l.time = time
	l.waterChange = 0
	n := float64(l.numSites)

	vol := make([]float64, l.numPhases)
	for p := range vol {
		vol[p] = l.chem.MicroPhaseVolume(p)
	}
	vol, err := l.AdjustMicrostructureVolumes(vol)
	if err != nil {
		return Fail(err), nil
	}
	target := append([]float64(nil), vol...)
	floats.Scale(1/l.initialMicrostructureVolume, target)

	fixed := make(map[int]int, len(recall))
	for _, s := range recall {
		if l.chem.IsKinetic(s.Phase) {
			fixed[s.Phase] = s.Count
		}
	}
	net := make([]int, l.numPhases)
	for p := FirstSolid; p < l.numPhases; p++ {
		if target[p] < 0 {
			return Fail(&MicrostructureError{Where: Where{"Lattice", "ChangeMicrostructure"}, IsError: true,
				Msg: fmt.Sprintf("negative volume fraction %g of %s", target[p], l.chem.MicroPhaseName(p))}), nil
		}
		want := int(math.Round(n * target[p]))
		if c, ok := fixed[p]; ok {
			want = c
		}
		net[p] = want - l.count[p]
	}

	if simType == SulfateAttack && time > l.cfg.SulfateAttackTime {
		if short := l.transformPhases(net); short != nil {
			return Outcome{Kind: Continue}, short
		}
	}

	var dissPhases, dissN, growPhases, growN []int
	var toDissolve, toGrow int
	for p := FirstSolid; p < l.numPhases; p++ {
		switch {
		case net[p] < 0:
			dissPhases = append(dissPhases, p)
			dissN = append(dissN, -net[p])
			toDissolve -= net[p]
		case net[p] > 0:
			growPhases = append(growPhases, p)
			growN = append(growN, net[p])
			toGrow += net[p]
		}
	}

	dissolved := 0
	if len(dissPhases) > 0 {
		left := l.DissolvePhase(dissPhases, dissN)
		var short []Shortfall
		for i, k := range left {
			dissolved += dissN[i] - k
			if k > 0 {
				p := dissPhases[i]
				short = append(short, Shortfall{Phase: p, Name: l.chem.MicroPhaseName(p), Count: l.count[p]})
			}
		}
		if short != nil {
			recalls.Inc()
			l.log.WithFields(logrus.Fields{"cycle": cycle, "phases": len(short)}).
				Info("dissolution interface exhausted; equilibrium must be recalculated")
			return Outcome{Kind: Continue}, short
		}
	}

	grown, nucShort := 0, false
	if len(growPhases) > 0 {
		var g []int
		g, nucShort = l.GrowPhase(growPhases, growN)
		grown = int(floats.Sum(intsToFloats(g)))
	}
	if dissolved != toDissolve || (grown < toGrow && !nucShort) {
		return Fail(&MicrostructureError{Where: Where{"Lattice", "ChangeMicrostructure"}, IsError: true,
			Msg: fmt.Sprintf("dissolved %d of %d and grew %d of %d sites", dissolved, toDissolve, grown, toGrow)}), nil
	}
	if nucShort {
		l.updateVolumeFractions()
		return Stop("not enough sites left to nucleate new phases"), nil
	}

	curVoid := l.count[Void]
	newVoid := int(math.Round(n * target[Void]))
	frac := float64(newVoid-curVoid) / n
	emptied, err := l.ChangeSaturationState(frac)
	if err != nil {
		l.updateVolumeFractions()
		return Fail(err), nil
	}

	if err := l.checkCounts(); err != nil {
		return Fail(err), nil
	}
	l.logAgreement(target, cycle)
	if l.cfg.CheckInvariants {
		if err := l.CheckInterfaces(); err != nil {
			return Fail(err), nil
		}
	}
	// Sub-voxel filling can leave the voxel count up to half a voxel off.
	if math.Abs(emptied-frac) > 0.5/n+1.0e-8 {
		l.log.WithFields(logrus.Fields{"requested": frac, "emptied": emptied}).Info("ran out of water")
		return Stop("no more water in the system"), nil
	}
	if l.volumeFraction[Electrolyte] <= 0 {
		l.log.WithField("cycle", cycle).Warn("no voxel-scale electrolyte left")
	}
	return Outcome{Kind: Continue}, nil
}

// transformPhases carries out the sulfate attack transformations of the
// chemical system and adjusts net, the net change in the site count of each
// phase, to account for the sites already changed.
func (l *Lattice) transformPhases(net []int) []Shortfall {
	for _, tr := range l.chem.Transformations() {
		if net[tr.Grow] <= 0 {
			continue
		}
		var shrink, n []int
		var ratio []float64
		for i, p := range tr.Shrink {
			if net[p] < 0 {
				shrink = append(shrink, p)
				n = append(n, -net[p])
				ratio = append(ratio, tr.VolumeRatio[i])
			}
		}
		if len(shrink) == 0 {
			continue
		}
		if l.mech == nil {
			l.log.Warn("no mechanics solver set; sulfate attack transformations skipped")
			return nil
		}
		res := l.TransformPhase(l.mech, tr.Grow, net[tr.Grow], shrink, n, ratio)
		if res.Short >= 0 {
			p := shrink[res.Short]
			recalls.Inc()
			return []Shortfall{{Phase: p, Name: l.chem.MicroPhaseName(p), Count: l.count[p]}}
		}
		for i, p := range shrink {
			net[p] = -res.Left[i]
		}
		net[tr.Grow] -= res.Grown
	}
	return nil
}

// checkCounts updates the volume fractions and checks that every site
// belongs to exactly one phase.
func (l *Lattice) checkCounts() error {
	l.updateVolumeFractions()
	total := 0
	for p, c := range l.count {
		if c < 0 {
			return &MicrostructureError{Where: Where{"Lattice", "ChangeMicrostructure"}, IsError: true,
				Msg: fmt.Sprintf("negative site count %d for %s", c, l.chem.MicroPhaseName(p))}
		}
		total += c
	}
	if total != l.numSites {
		return &MicrostructureError{Where: Where{"Lattice", "ChangeMicrostructure"}, IsError: true,
			Msg: fmt.Sprintf("site counts add up to %d, not %d", total, l.numSites)}
	}
	return nil
}

// logAgreement logs and records how well the volume fractions of the
// lattice agree with the target fractions.
func (l *Lattice) logAgreement(target []float64, cycle int) {
	if len(target) < 3 {
		return
	}
	slope, intercept, r2, _, _, _ := stats.LinearRegression(target, l.volumeFraction)
	volumeFractionR2.Set(r2)
	l.log.WithFields(logrus.Fields{
		"cycle": cycle, "slope": slope, "intercept": intercept, "r2": r2,
		"fraction sum": l.volumeFractionSum(),
	}).Debug("lattice agreement with target volume fractions")
}

func intsToFloats(v []int) []float64 {
	o := make([]float64, len(v))
	for i, x := range v {
		o[i] = float64(x)
	}
	return o
}
