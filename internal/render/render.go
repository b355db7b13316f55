// SPDX-License-Identifier: MIT
/*
Package render holds the built-in rendering plugins.

	waveform     peak envelope on a light background
	amplitude    filled amplitude envelope
	freesound    peak envelope coloured by spectral centroid
	spectrogram  magnitude spectrum heatmap in dB
	silence      RMS envelope over columns shaded by distance from silence
	mfcc         cepstral coefficients as a grey heatmap
	ampmfcc      amplitude envelope over the cepstral heatmap
	speccont     centred bars sized by peak level, coloured by centroid

Every renderer scales its drawing to whatever canvas it is handed, so the
same feature data can be painted at any size.
*/
package render

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"

	"vampeyer/internal/vis"
)

// ErrMissingResults is returned when a renderer receives fewer feature
// streams than it asked for.
var ErrMissingResults = errors.New("missing feature streams")

// Register adds every built-in renderer to r.
func Register(r *vis.Registry) {
	r.Register("waveform", func() vis.Renderer { return NewWaveform() })
	r.Register("amplitude", func() vis.Renderer { return NewAmplitude() })
	r.Register("freesound", func() vis.Renderer { return NewFreeSound() })
	r.Register("spectrogram", func() vis.Renderer { return NewSpectrogram(DefaultSpectrogramBlock) })
	r.Register("silence", func() vis.Renderer { return NewSilence() })
	r.Register("mfcc", func() vis.Renderer { return NewMFCC() })
	r.Register("ampmfcc", func() vis.Renderer { return NewAmpMFCC() })
	r.Register("speccont", func() vis.Renderer { return NewSpecCont() })
}

func checkResults(name string, results vis.ResultSet, want int) error {
	if len(results) < want {
		return fmt.Errorf("%w: %s needs %d, got %d", ErrMissingResults, name, want, len(results))
	}
	return nil
}

// canvas wraps dst in a drawing context cleared to the given colour.
func canvas(dst *image.RGBA, bg rgb) *gg.Context {
	dc := gg.NewContextForRGBA(dst)
	dc.SetRGB(bg.r, bg.g, bg.b)
	dc.Clear()
	return dc
}

type rgb struct{ r, g, b float64 }

// gradient maps values in [0, 1] onto evenly spaced colour stops.
type gradient []rgb

// freesoundPalette runs from purple through cyan and yellow to orange.
var freesoundPalette = gradient{
	{0.196, 0, 0.784},
	{0, 0.863, 0.314},
	{1, 0.878, 0},
	{1, 0.274, 0},
}

// heatPalette runs from black through red and yellow to white.
var heatPalette = gradient{
	{0, 0, 0},
	{0.5, 0, 0.1},
	{1, 0.45, 0},
	{1, 0.95, 0.3},
	{1, 1, 1},
}

// at interpolates the colour at v. Values outside [0, 1] are clamped.
func (g gradient) at(v float64) rgb {
	if len(g) == 1 {
		return g[0]
	}
	if math.IsNaN(v) {
		v = 0
	}
	v = min(max(v, 0), 1)
	pos := v * float64(len(g)-1)
	i := min(int(pos), len(g)-2)
	w := pos - float64(i)
	a, b := g[i], g[i+1]
	return rgb{
		r: a.r + (b.r-a.r)*w,
		g: a.g + (b.g-a.g)*w,
		b: a.b + (b.b-a.b)*w,
	}
}

func (c rgb) rgba8() (r, g, b uint8) {
	return uint8(math.Round(c.r * 255)), uint8(math.Round(c.g * 255)), uint8(math.Round(c.b * 255))
}

// logScale maps f onto [0, 1] between lo and hi on a log axis.
func logScale(f, lo, hi float64) float64 {
	f = min(max(f, lo), hi)
	return (math.Log10(f) - math.Log10(lo)) / (math.Log10(hi) - math.Log10(lo))
}
