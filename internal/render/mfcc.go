// SPDX-License-Identifier: MIT
package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"vampeyer/internal/analysis"
	"vampeyer/internal/vamp"
	"vampeyer/internal/vis"
)

// Coefficients are clamped to this range before mapping onto grey.
const (
	coeffMin = -5.0
	coeffMax = 1.0
)

// MFCC paints cepstral coefficients as a grey heatmap: time left to right,
// one row band per coefficient with the lowest at the top.
type MFCC struct{}

func NewMFCC() *MFCC { return &MFCC{} }

func (*MFCC) Name() string { return "mfcc" }

func (*MFCC) Outputs() []vis.OutputRef {
	return []vis.OutputRef{vis.Ref(analysis.Key("mfcc"), "coefficients")}
}

func (m *MFCC) Render(dst *image.RGBA, results vis.ResultSet, _ int) error {
	if err := checkResults(m.Name(), results, 1); err != nil {
		return err
	}
	canvas(dst, rgb{1, 1, 1})
	paintCoefficients(dst, results[0])
	return nil
}

// AmpMFCC lays the filled amplitude envelope over the MFCC heatmap.
type AmpMFCC struct{}

func NewAmpMFCC() *AmpMFCC { return &AmpMFCC{} }

func (*AmpMFCC) Name() string { return "ampmfcc" }

func (*AmpMFCC) Outputs() []vis.OutputRef {
	return []vis.OutputRef{
		vis.Ref(analysis.Key("mfcc"), "coefficients"),
		vis.Ref(analysis.Key("amplitude"), "amplitude"),
	}
}

func (a *AmpMFCC) Render(dst *image.RGBA, results vis.ResultSet, _ int) error {
	if err := checkResults(a.Name(), results, 2); err != nil {
		return err
	}
	canvas(dst, rgb{1, 1, 1})
	paintCoefficients(dst, results[0])
	fillEnvelope(gg.NewContextForRGBA(dst), results[1])
	return nil
}

// coeffGrey maps a coefficient onto a grey level, black at coeffMin.
func coeffGrey(v float32) uint8 {
	g := (min(max(float64(v), coeffMin), coeffMax) - coeffMin) / (coeffMax - coeffMin)
	c, _, _ := rgb{g, g, g}.rgba8()
	return c
}

func paintCoefficients(dst *image.RGBA, frames vamp.FeatureList) {
	var coeffs int
	for _, f := range frames {
		if len(f.Values) > 0 {
			coeffs = len(f.Values)
			break
		}
	}
	if coeffs == 0 {
		return
	}
	b := dst.Bounds()
	width, height := b.Dx(), b.Dy()

	for x := 0; x < width; x++ {
		col := frames[x*len(frames)/width].Values
		if len(col) < coeffs {
			continue
		}
		for y := 0; y < height; y++ {
			g := coeffGrey(col[y*coeffs/height])
			dst.SetRGBA(b.Min.X+x, b.Min.Y+y, color.RGBA{g, g, g, 255})
		}
	}
}
