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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cycles counts completed calculation times.
	cycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thames_cycles_total",
		Help: "Total number of completed calculation cycles",
	})

	// solverFailures counts failed equilibrium calculations.
	solverFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thames_solver_failures_total",
		Help: "Total number of equilibrium calculations that did not converge",
	})

	bisectionSamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thames_bisection_samples_total",
		Help: "Total number of trial times tried after failed equilibrium calculations",
	})

	// recalls counts microstructure changes abandoned because a phase
	// could not dissolve.
	recalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thames_recalls_total",
		Help: "Total number of equilibrium recalculations due to dissolution shortfalls",
	})

	voxelsDissolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thames_voxels_dissolved_total",
		Help: "Total number of voxels dissolved",
	})
	voxelsGrown = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thames_voxels_grown_total",
		Help: "Total number of voxels grown, including nucleated voxels",
	})
	voxelsNucleated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thames_voxels_nucleated_total",
		Help: "Total number of voxels nucleated",
	})

	// volumeFractionR2 is the coefficient of determination of the lattice
	// volume fractions against the target fractions.
	volumeFractionR2 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "thames_volume_fraction_r2",
		Help: "R² of the lattice volume fractions against the target fractions in the last cycle",
	})

	poreDomainSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "thames_pore_domain_size_mean",
		Help: "Mean domain size of the candidate voxels in the last emptying or filling of pores",
	}, []string{"operation"})

	// cycleDuration tracks the wall time of a calculation cycle.
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "thames_cycle_duration_seconds",
		Help:    "Wall time of a calculation cycle in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	})
)

// WriteMetrics writes the simulation metrics to filename in the Prometheus
// text exposition format.
func WriteMetrics(filename string) error {
	if err := prometheus.WriteToTextfile(filename, prometheus.DefaultGatherer); err != nil {
		return &FileError{Where: Where{"thames", "WriteMetrics"}, File: filename, Op: "write", Err: err}
	}
	return nil
}
