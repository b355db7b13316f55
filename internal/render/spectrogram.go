// SPDX-License-Identifier: MIT
package render

import (
	"image"
	"image/color"
	"math"

	"vampeyer/internal/analysis"
	"vampeyer/internal/vamp"
	"vampeyer/internal/vis"
	"vampeyer/pkg/bitint"
)

const (
	DefaultSpectrogramBlock = 1024

	// Magnitudes at or below floorDB paint as the coldest colour.
	floorDB = -80.0
)

// Spectrogram paints the magnitude spectrum as a heatmap: time runs left to
// right and frequency bottom to top on a linear axis.
type Spectrogram struct {
	block int
}

// NewSpectrogram analyses with block frames per column, rounded up to a
// power of two.
func NewSpectrogram(block int) *Spectrogram {
	return &Spectrogram{block: bitint.NextPowerOfTwo(max(block, 64))}
}

func (*Spectrogram) Name() string { return "spectrogram" }

func (s *Spectrogram) BlockSize() int { return s.block }

func (s *Spectrogram) Outputs() []vis.OutputRef {
	return []vis.OutputRef{{
		Config: vamp.AnalysisConfig{Key: analysis.Key("spectrum"), BlockSize: s.block},
		Output: "magnitudes",
	}}
}

func (s *Spectrogram) Render(dst *image.RGBA, results vis.ResultSet, _ int) error {
	if err := checkResults(s.Name(), results, 1); err != nil {
		return err
	}
	canvas(dst, heatPalette.at(0))

	frames := results[0]
	if len(frames) == 0 {
		return nil
	}
	b := dst.Bounds()
	width, height := b.Dx(), b.Dy()

	for x := 0; x < width; x++ {
		col := frames[x*len(frames)/width].Values
		if len(col) == 0 {
			continue
		}
		for y := 0; y < height; y++ {
			// row 0 is the top, so it shows the highest bin
			bin := (height - 1 - y) * len(col) / height
			r, g, bl := heatPalette.at(level(col[bin])).rgba8()
			dst.SetRGBA(b.Min.X+x, b.Min.Y+y, color.RGBA{r, g, bl, 255})
		}
	}
	return nil
}

// level maps a linear magnitude onto [0, 1] between floorDB and 0 dB.
func level(m float32) float64 {
	if m <= 0 {
		return 0
	}
	db := 20 * math.Log10(float64(m))
	return (max(db, floorDB) - floorDB) / -floorDB
}
