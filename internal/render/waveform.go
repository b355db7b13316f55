// SPDX-License-Identifier: MIT
package render

import (
	"image"

	"github.com/fogleman/gg"

	"vampeyer/internal/analysis"
	"vampeyer/internal/vamp"
	"vampeyer/internal/vis"
)

var (
	waveformBackground = rgb{0.866, 0.874, 0.882}
	waveformColour     = rgb{0.38, 0.423, 1}
)

// Waveform draws one vertical stroke per peaks frame, from its minimum to
// its maximum, centred on the middle of the canvas.
type Waveform struct{}

func NewWaveform() *Waveform { return &Waveform{} }

func (*Waveform) Name() string { return "waveform" }

func (*Waveform) Outputs() []vis.OutputRef {
	return []vis.OutputRef{vis.Ref(analysis.Key("peaks"), "peaks")}
}

func (w *Waveform) Render(dst *image.RGBA, results vis.ResultSet, _ int) error {
	if err := checkResults(w.Name(), results, 1); err != nil {
		return err
	}
	dc := canvas(dst, waveformBackground)
	width, height := float64(dc.Width()), float64(dc.Height())

	dc.SetRGB(waveformColour.r, waveformColour.g, waveformColour.b)
	dc.SetLineWidth(1)

	peaks := results[0]
	for i, f := range peaks {
		if len(f.Values) < 2 {
			continue
		}
		x := float64(i) / float64(len(peaks)) * width
		lo := height * (0.5 - float64(f.Values[0])*0.5)
		hi := height * (0.5 - float64(f.Values[1])*0.5)
		dc.DrawLine(x, lo, x, hi)
		dc.Stroke()
	}
	return nil
}

// Amplitude fills the area under the amplitude envelope in black.
type Amplitude struct{}

func NewAmplitude() *Amplitude { return &Amplitude{} }

func (*Amplitude) Name() string { return "amplitude" }

func (*Amplitude) Outputs() []vis.OutputRef {
	return []vis.OutputRef{vis.Ref(analysis.Key("amplitude"), "amplitude")}
}

func (a *Amplitude) Render(dst *image.RGBA, results vis.ResultSet, _ int) error {
	if err := checkResults(a.Name(), results, 1); err != nil {
		return err
	}
	dc := canvas(dst, rgb{1, 1, 1})
	fillEnvelope(dc, results[0])
	return nil
}

// fillEnvelope fills the area between the bottom edge and env in black.
// Levels above 1 are clipped.
func fillEnvelope(dc *gg.Context, env vamp.FeatureList) {
	if len(env) == 0 {
		return
	}
	width, height := float64(dc.Width()), float64(dc.Height())

	dc.SetRGB(0, 0, 0)
	dc.MoveTo(0, height)
	for i, f := range env {
		var amp float64
		if len(f.Values) > 0 {
			amp = min(float64(f.Values[0]), 1)
		}
		dc.LineTo(float64(i)/float64(len(env))*width, height*(1-amp))
	}
	dc.LineTo(width, height)
	dc.ClosePath()
	dc.Fill()
}
