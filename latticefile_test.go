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
	"bytes"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageReadWrite(t *testing.T) {
	img := &Image{Version: Version, Xdim: 2, Ydim: 3, Zdim: 1, Resolution: 0.5, Phases: []int{0, 1, 2, 2, 1, 3}}
	var buf bytes.Buffer
	require.NoError(t, img.Write(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "#THAMES:Version: "+Version+"\n#THAMES:X_Size: 2\n"))

	have, err := ReadImage(&buf)
	require.NoError(t, err)
	assert.Equal(t, img, have)
}

func TestReadImageLegacy(t *testing.T) {
	have, err := ReadImage(strings.NewReader(strings.Repeat("1\n", 100*100*100)))
	require.NoError(t, err)
	assert.Equal(t, 100, have.Xdim)
	assert.Equal(t, 1.0, have.Resolution)
	assert.Len(t, have.Phases, 1000000)
}

func TestReadImageErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":          "",
		"legacy count":   "1 1 1",
		"bad key":        "#THAMES:Version: 5.0\n#THAMES:Y_Size: 1\n",
		"bad size":       "#THAMES:Version: 5.0\n#THAMES:X_Size: x\n",
		"zero size":      "#THAMES:Version: 5.0\n#THAMES:X_Size: 0\n#THAMES:Y_Size: 1\n#THAMES:Z_Size: 1\n#THAMES:Image_Resolution: 1\n1\n",
		"bad resolution": "#THAMES:Version: 5.0\n#THAMES:X_Size: 1\n#THAMES:Y_Size: 1\n#THAMES:Z_Size: 1\n#THAMES:Image_Resolution: -1\n1\n",
		"no voxels":      "#THAMES:Version: 5.0\n#THAMES:X_Size: 1\n#THAMES:Y_Size: 1\n#THAMES:Z_Size: 1\n#THAMES:Image_Resolution: 1\n",
		"too many":       "#THAMES:Version: 5.0\n#THAMES:X_Size: 1\n#THAMES:Y_Size: 1\n#THAMES:Z_Size: 1\n#THAMES:Image_Resolution: 1\n1 1\n",
		"not a number":   "#THAMES:Version: 5.0\n#THAMES:X_Size: 1\n#THAMES:Y_Size: 1\n#THAMES:Z_Size: 1\n#THAMES:Image_Resolution: 1\nA\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadImage(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
	_, err := ReadImageFile(filepath.Join(t.TempDir(), "missing.img"))
	var ferr *FileError
	assert.ErrorAs(t, err, &ferr)
}

func TestLatticeOutputFiles(t *testing.T) {
	cfg := testConfig(t)
	c := newTestChem("A")
	l := newTestLattice(t, cfg, c, 4, 4, 4, func(id int) int {
		if id%2 == 0 {
			return FirstSolid
		}
		return Electrolyte
	})
	l.sites[3].Damage = true

	require.NoError(t, l.WriteLattice(1.5))
	require.NoError(t, l.WriteLatticePNG(1.5))
	require.NoError(t, l.WriteDamageLattice(1.5))
	require.NoError(t, l.WriteDamageLatticePNG(1.5))
	require.NoError(t, l.WriteMicroColors())
	require.NoError(t, l.AppendXYZ(0))
	require.NoError(t, l.AppendXYZ(1.5))
	l.CalculatePoreSizeDistribution()
	require.NoError(t, l.WritePoreSizeDistribution(1.5))
	require.NoError(t, l.WritePoreSizePlot(1.5))

	img, err := ReadImageFile(filepath.Join(cfg.OutputDir, "test.1.50h.298K.img"))
	require.NoError(t, err)
	assert.Equal(t, l.Image(), img)

	dmg, err := ReadImageFile(filepath.Join(cfg.OutputDir, "test.damage.1.50h.298K.img"))
	require.NoError(t, err)
	assert.Equal(t, 1, dmg.Phases[3])
	assert.Equal(t, 0, dmg.Phases[4])

	f, err := os.Open(filepath.Join(cfg.OutputDir, "test.1.50h.298K.png"))
	require.NoError(t, err)
	defer f.Close()
	pic, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 4*pixelsPerVoxel, pic.Bounds().Dx())

	colors, err := ioutil.ReadFile(filepath.Join(cfg.OutputDir, "test_Colors.csv"))
	require.NoError(t, err)
	assert.Equal(t, "3\n0 Void 0 0 0\n1 Electrolyte 25 25 112\n", string(colors[:strings.Index(string(colors), "2 A")]))

	xyz, err := ioutil.ReadFile(filepath.Join(cfg.OutputDir, "test.xyz"))
	require.NoError(t, err)
	assert.Equal(t, 2*(l.NumSites()+2), strings.Count(string(xyz), "\n"))

	psd, err := ioutil.ReadFile(filepath.Join(cfg.OutputDir, "test_PoreSizeDistribution.1.50h.298K.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(psd), "Diameter (nm),Volume Fraction,Fraction Saturated\n")
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "test_PoreSizeDistribution.1.50h.298K.png"))
	assert.NoError(t, err)
}

func TestWriteFileError(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputDir = filepath.Join(cfg.OutputDir, "missing")
	l := newTestLattice(t, cfg, newTestChem(), 2, 2, 2, all(Electrolyte))
	err := l.WriteLattice(0)
	var ferr *FileError
	if assert.ErrorAs(t, err, &ferr) {
		assert.Equal(t, "create", ferr.Op)
	}
}
