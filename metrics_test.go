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
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gaugeValue returns the value of the gauge called name whose labels
// include the value label, or of its only series if label is empty.
func gaugeValue(t *testing.T, name, label string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if label == "" {
				return m.GetGauge().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("no gauge %s{%s}", name, label)
	return 0
}

func TestLatticeMetrics(t *testing.T) {
	chem := newTestChem("A", "B")
	l := newTestLattice(t, testConfig(t), chem, 10, 10, 10, layered(phaseA, 2, 100))
	chem.setVolumeFractions(l, map[int]float64{Electrolyte: 0.8, phaseA: 0.15, phaseB: 0.05})
	o, _ := l.ChangeMicrostructure(1, Hydration, nil, 1)
	require.Equal(t, Continue, o.Kind, "%v", o)
	assert.InDelta(t, 1, gaugeValue(t, "thames_volume_fraction_r2", ""), 1e-9)

	_, err := l.ChangeSaturationState(0.1)
	require.NoError(t, err)
	assert.True(t, gaugeValue(t, "thames_pore_domain_size_mean", "empty") > 0)

	name := filepath.Join(t.TempDir(), "test_metrics.prom")
	require.NoError(t, WriteMetrics(name))
	b, err := os.ReadFile(name)
	require.NoError(t, err)
	for _, m := range []string{"thames_volume_fraction_r2", "thames_pore_domain_size_mean", "thames_voxels_grown_total"} {
		assert.Contains(t, string(b), m)
	}
}
