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
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// scheduleTol is the separation [h] below which two scheduled times are
// considered the same.
const scheduleTol = 1.0e-6

// outputTimeTol is how far [h] before an output time a calculation time
// may fall and still trigger the output.
const outputTimeTol = 1.0 / 60

// lowWaterVolume is the electrolyte volume [m³] below which hydration is
// considered to be starved of water.
const lowWaterVolume = 2.0e-18

// maxRecalls bounds the number of equilibrium recalculations made to
// reconcile dissolution shortfalls within one cycle.
const maxRecalls = 1000

// CycleFunc is a function that is run after each completed cycle.
type CycleFunc func(c *Controller) error

// Controller steps a lattice and its kinetic and thermodynamic models
// through the calculation times of a simulation.
type Controller struct {
	cfg  *Config
	lat  *Lattice
	kin  *KineticController
	chem ChemicalSystem
	log  logrus.FieldLogger
	out  *Outputter

	// CycleFuncs are run, in order, at the end of every cycle that
	// changes the microstructure.
	CycleFuncs []CycleFunc

	times    []float64
	outTimes []float64
	outIdx   int

	// Cycle is the number of the current cycle, counting failed ones.
	Cycle int
	// Time is the simulation time [h] of the most recently completed cycle.
	Time float64
	// Changed is the number of sites whose phase changed in the most
	// recent completed cycle.
	Changed int

	lastGoodTime float64
	solveFailed  bool
	// input holds the chemical inventories handed to the most recent
	// equilibrium calculation.
	input ChemState
}

// NewController creates a controller. out may be nil, in which case no
// time series are written.
func NewController(cfg *Config, lat *Lattice, kin *KineticController, chem ChemicalSystem, out *Outputter, log logrus.FieldLogger) (*Controller, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Controller{
		cfg:      cfg,
		lat:      lat,
		kin:      kin,
		chem:     chem,
		log:      log,
		out:      out,
		times:    Schedule(cfg.CalcTimes, cfg.OutTimes),
		outTimes: append([]float64(nil), cfg.OutTimes...),
	}
	sort.Float64s(c.outTimes)
	if len(c.times) == 0 {
		return nil, &DataError{Where: Where{"Controller", "NewController"}, Variable: "times",
			Msg: "at least one calculation or output time is required"}
	}
	if out != nil {
		if err := out.CheckOutputVars(lat); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Schedule merges the calculation and output times into one sorted list in
// which no two times are within 1e-6 h of each other.
func Schedule(calc, out []float64) []float64 {
	all := append(append([]float64(nil), calc...), out...)
	sort.Float64s(all)
	var s []float64
	for _, t := range all {
		if len(s) == 0 || math.Abs(t-s[len(s)-1]) > scheduleTol {
			s = append(s, t)
		}
	}
	return s
}

// Times returns the calculation schedule. Times move later when an
// equilibrium calculation cannot be made to converge.
func (c *Controller) Times() []float64 { return append([]float64(nil), c.times...) }

// Lattice returns the lattice of the controller.
func (c *Controller) Lattice() *Lattice { return c.lat }

// Run writes the initial state and steps through all calculation times.
// It stops early when a cycle ends the simulation gracefully or fails.
func (c *Controller) Run() Outcome {
	if err := c.writeInitial(); err != nil {
		return Fail(err)
	}
	for i := 0; i < len(c.times); i++ {
		o, retry := c.DoCycle(i)
		switch o.Kind {
		case GracefulStop:
			c.log.WithField("time", c.times[i]).Infof("simulation ended: %s", o.Reason)
			if err := c.writeLatticeFiles(c.times[i]); err != nil {
				return Fail(err)
			}
			return o
		case Fatal:
			// Write the state that led to the failure for diagnosis.
			if err := c.writeLatticeFiles(c.times[i]); err != nil {
				c.log.WithError(err).Error("writing final microstructure")
			}
			return o
		}
		if retry {
			if i+1 >= len(c.times) {
				return Fail(&GEMError{Where: Where{"Controller", "Run"}, Status: -1,
					Msg: fmt.Sprintf("no converging time found near the last calculation time in cycle %d", c.Cycle)})
			}
			// Move the failed time a tenth of the way to the next one.
			c.times[i] += 0.1 * (c.times[i+1] - c.times[i])
			i--
		}
	}
	return Outcome{Kind: Continue}
}

// writeInitial writes the outputs for time 0.
func (c *Controller) writeInitial() error {
	var g errgroup.Group
	g.Go(c.lat.WriteMicroColors)
	g.Go(func() error { return c.lat.WriteLattice(0) })
	g.Go(func() error { return c.lat.WriteLatticePNG(0) })
	if c.cfg.XYZ {
		g.Go(func() error { return c.lat.AppendXYZ(0) })
	}
	return g.Wait()
}

// writeLatticeFiles writes the microstructure image, its PNG slice and, if
// requested, a frame of the xyz movie.
func (c *Controller) writeLatticeFiles(t float64) error {
	var g errgroup.Group
	g.Go(func() error { return c.lat.WriteLattice(t) })
	g.Go(func() error { return c.lat.WriteLatticePNG(t) })
	if c.cfg.XYZ {
		g.Go(func() error { return c.lat.AppendXYZ(t) })
	}
	return g.Wait()
}

// solve runs the kinetic step for the time step from the last good time to
// t and then the equilibrium calculation.
func (c *Controller) solve(t float64, isFirst bool) error {
	for i := 0; i < c.chem.NumDCs(); i++ {
		c.chem.SetDCLowerLimit(i, 0)
	}
	if c.kin != nil {
		if err := c.kin.CalculateKineticStep(t, t-c.lastGoodTime, c.Cycle, c.solveFailed); err != nil {
			return err
		}
	}
	c.input = CaptureChemState(c.chem)
	err := c.chem.CalculateState(t, isFirst, c.Cycle)
	c.solveFailed = err != nil
	if err != nil {
		solverFailures.Inc()
	}
	return err
}

// isGEMError reports whether err is a failure of the equilibrium
// calculation to converge, as opposed to an error in the kinetic step.
func isGEMError(err error) bool {
	var gerr *GEMError
	return errors.As(err, &gerr)
}

// bisect searches for a time near c.times[i] at which the equilibrium
// calculation converges. Trial times are drawn at random from a window
// around each of FracNum offsets into the next time step; the window is
// widened tenfold after every NumGenMax failed trials, up to
// NumMaxIntervals times. It reports whether a converging time was found,
// in which case c.times[i] is set to it.
func (c *Controller) bisect(i int, isFirst bool) (bool, error) {
	b := c.cfg.Bisection
	next := c.cfg.ElemTimeInterval * float64(b.FracNum)
	if i+1 < len(c.times) {
		next = c.times[i+1] - c.times[i]
	}
	frac := next / float64(b.FracNum)
	delta0 := 2 * c.cfg.ElemTimeInterval
	samples := 0
	for k := 0; k < b.FracNum; k++ {
		t0 := c.times[i] + float64(k)*frac
		minTime := t0 - c.cfg.ElemTimeInterval
		delta := delta0
		intervals := 0
		for n := 0; ; n++ {
			if n%b.NumGenMax == 0 && n > 0 {
				intervals++
				delta *= 10
				minTime = t0 - delta/2
			}
			if intervals == b.NumMaxIntervals {
				break
			}
			t := minTime + c.lat.rng.Float64()*delta
			samples++
			bisectionSamples.Inc()
			err := c.solve(t, isFirst)
			if err == nil {
				c.log.WithFields(logrus.Fields{"cycle": c.Cycle, "time": t, "samples": samples}).
					Info("equilibrium calculation converged at shifted time")
				c.times[i] = t
				return true, nil
			}
			if !isGEMError(err) {
				return false, err
			}
		}
	}
	c.log.WithFields(logrus.Fields{"cycle": c.Cycle, "time": c.times[i], "samples": samples}).
		Warn("no converging time found near calculation time")
	return false, nil
}

// DoCycle carries out the calculation for c.times[i]. If retry is true the
// equilibrium calculation could not be brought to converge near the time
// or the lattice could not be reconciled with it, and the caller should
// try again at a later time.
func (c *Controller) DoCycle(i int) (o Outcome, retry bool) {
	c.Cycle++
	cycles.Inc()
	start := time.Now()
	defer func() { cycleDuration.Observe(time.Since(start).Seconds()) }()

	t := c.times[i]
	isFirst := i == 0
	attack := math.Min(c.cfg.LeachTime, c.cfg.SulfateAttackTime)
	if i > 0 {
		c.lastGoodTime = c.times[i-1]
	}

	if err := c.solve(t, isFirst); err != nil {
		if !isGEMError(err) {
			return Fail(err), false
		}
		if t >= attack {
			return Fail(err), false
		}
		ok, err := c.bisect(i, isFirst)
		if err != nil {
			return Fail(err), false
		}
		if !ok {
			return Outcome{Kind: Continue}, true
		}
		t = c.times[i]
	}

	cp := c.lat.Checkpoint()
	cp.Chem = c.input
	before := append([]int(nil), c.lat.count...)
	o, short := c.lat.ChangeMicrostructure(t, c.cfg.SimType, nil, c.Cycle)
	for n := 0; short != nil && o.Kind == Continue; n++ {
		if n == maxRecalls {
			return Fail(&MicrostructureError{Where: Where{"Controller", "DoCycle"}, IsError: true,
				Msg: fmt.Sprintf("dissolution shortfalls not reconciled after %d recalculations", n)}), false
		}
		var ok bool
		var err error
		short, ok, err = c.recall(cp, t, isFirst, short)
		if err != nil {
			return Fail(err), false
		}
		if !ok {
			// Leave the lattice as it was and try again later.
			if err := c.lat.Restore(cp); err != nil {
				return Fail(err), false
			}
			c.solveFailed = true
			return Outcome{Kind: Continue}, true
		}
		o, short = c.lat.ChangeMicrostructure(t, c.cfg.SimType, short, c.Cycle)
	}
	if o.Kind != Continue {
		return o, false
	}

	c.Changed = 0
	for p, n := range c.lat.count {
		c.Changed += abs(n - before[p])
	}
	c.Time = t
	if c.lat.initSolidMass > 0 {
		if err := c.lat.CalcSurfaceAreas(); err != nil {
			return Fail(err), false
		}
	}
	if err := c.writeCycleOutputs(t); err != nil {
		return Fail(err), false
	}
	if err := c.damage(t); err != nil {
		return Fail(err), false
	}
	for _, f := range c.CycleFuncs {
		if err := f(c); err != nil {
			return Fail(err), false
		}
	}
	return Outcome{Kind: Continue}, false
}

// recall restores the state in cp, corrects the DC lower limits of the
// phases in short so that the equilibrium state leaves Count sites of each
// of them, and repeats the equilibrium calculation. If the calculation
// fails the number of sites kept is increased by one for the first phase
// that allows it and the calculation is repeated. It returns the corrected
// shortfalls, and false if no correction led to a converging calculation.
func (c *Controller) recall(cp *Checkpoint, t float64, isFirst bool, short []Shortfall) ([]Shortfall, bool, error) {
	short = append([]Shortfall(nil), short...)
	for {
		if err := c.lat.Restore(cp); err != nil {
			return nil, false, err
		}
		for _, s := range short {
			if err := c.keepSites(s); err != nil {
				return nil, false, err
			}
		}
		err := c.chem.CalculateState(t, isFirst, c.Cycle)
		if err == nil {
			c.solveFailed = false
			return short, true, nil
		}
		solverFailures.Inc()
		if !isGEMError(err) {
			return nil, false, err
		}
		adjusted := false
		for j := range short {
			if c.lat.count[short[j].Phase] > short[j].Count {
				short[j].Count++
				adjusted = true
				break
			}
		}
		if !adjusted {
			c.log.WithField("cycle", c.Cycle).Warn("equilibrium recalculation failed for every correction")
			return nil, false, nil
		}
	}
}

// keepSites sets the chemical system so that the equilibrium amount of the
// phase of s does not fall below the volume of s.Count sites.
func (c *Controller) keepSites(s Shortfall) error {
	dc := c.chem.MicroPhaseDC(s.Phase)
	vm := c.chem.DCMolarVolume(dc)
	mm := c.chem.DCMolarMass(dc)
	if vm <= 0 || c.lat.initSolidMass <= 0 {
		return &FloatError{Where: Where{"Controller", "keepSites"},
			Msg: fmt.Sprintf("cannot convert sites of %s to mass", s.Name)}
	}
	vfrac := float64(s.Count) / float64(c.lat.numSites)
	mass := vfrac * mm / vm / 1.0e6 * 100 / c.lat.initSolidMass // g per 100 g solid
	c.log.WithFields(logrus.Fields{"cycle": c.Cycle, "phase": s.Name, "sites": s.Count, "mass": mass}).
		Debug("recalculating equilibrium with kept sites")
	if c.chem.IsKinetic(s.Phase) && c.kin != nil {
		_, err := c.kin.UpdateKineticStep(c.Cycle, s.Phase, mass)
		return err
	}
	c.chem.SetDCLowerLimit(dc, mass/mm)
	return nil
}

// writeCycleOutputs writes the time series and, at output times, the
// microstructure files.
func (c *Controller) writeCycleOutputs(t float64) error {
	if c.out != nil {
		if err := c.out.Output(c.lat, t); err != nil {
			return err
		}
	}
	c.lat.CalculatePoreSizeDistribution()
	if c.chem.MicroPhaseVolume(Electrolyte) < lowWaterVolume {
		c.log.WithFields(logrus.Fields{"cycle": c.Cycle, "time": t}).
			Warn("almost no capillary water is left; further hydration is unlikely")
	}
	if c.outIdx >= len(c.outTimes) || t < c.outTimes[c.outIdx]-outputTimeTol {
		return nil
	}
	for c.outIdx < len(c.outTimes) && t >= c.outTimes[c.outIdx]-outputTimeTol {
		c.outIdx++
	}
	var g errgroup.Group
	g.Go(func() error { return c.writeLatticeFiles(t) })
	g.Go(func() error { return c.lat.WritePoreSizeDistribution(t) })
	g.Go(func() error { return c.lat.WritePoreSizePlot(t) })
	return g.Wait()
}

// damage calculates sulfate attack damage once the attack has started and
// crystallization has produced expansion.
func (c *Controller) damage(t float64) error {
	if c.cfg.SimType != SulfateAttack || t < c.cfg.SulfateAttackTime || c.lat.NumExpansionSites() <= 1 {
		return nil
	}
	if c.lat.mech == nil {
		return &DataError{Where: Where{"Controller", "damage"}, Variable: "mechanics",
			Msg: "sulfate attack requires a mechanics solver"}
	}
	if err := c.writeLatticeFiles(t); err != nil {
		return err
	}
	n, err := c.lat.ApplyDamage(c.lat.mech)
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{"cycle": c.Cycle, "time": t, "damaged": n}).Info("applied damage")
	var g errgroup.Group
	g.Go(func() error { return c.lat.WriteDamageLattice(t) })
	g.Go(func() error { return c.lat.WriteDamageLatticePNG(t) })
	return g.Wait()
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
