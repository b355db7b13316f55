// SPDX-License-Identifier: MIT
package render

import (
	"image"
	"math"

	"vampeyer/internal/analysis"
	"vampeyer/internal/vis"
)

const (
	centroidMinHz = 100
	centroidMaxHz = 22050
)

// FreeSound draws the peak envelope on black, colouring every stroke by the
// spectral centroid at that point on a log frequency axis.
type FreeSound struct{}

func NewFreeSound() *FreeSound { return &FreeSound{} }

func (*FreeSound) Name() string { return "freesound" }

func (*FreeSound) Outputs() []vis.OutputRef {
	return []vis.OutputRef{
		vis.Ref(analysis.Key("peaks"), "peaks"),
		vis.Ref(analysis.Key("spectrum"), "centroid"),
	}
}

func (fs *FreeSound) Render(dst *image.RGBA, results vis.ResultSet, sampleRate int) error {
	if err := checkResults(fs.Name(), results, 2); err != nil {
		return err
	}
	dc := canvas(dst, rgb{0, 0, 0})
	width, height := float64(dc.Width()), float64(dc.Height())

	peaks, centroids := results[0], results[1]
	if len(centroids) == 0 {
		return nil
	}
	hi := float64(centroidMaxHz)
	if sampleRate > 0 {
		hi = min(hi, float64(sampleRate)/2)
	}
	scale := float64(len(centroids)) / float64(len(peaks))

	dc.SetLineWidth(1)
	for i, f := range peaks {
		if len(f.Values) < 2 {
			continue
		}
		c := centroids[min(int(math.Floor(scale*float64(i))), len(centroids)-1)]
		var hz float64
		if len(c.Values) > 0 {
			hz = float64(c.Values[0])
		}
		col := freesoundPalette.at(logScale(hz, centroidMinHz, hi))
		dc.SetRGB(col.r, col.g, col.b)

		x := float64(i) / float64(len(peaks)) * width
		dc.DrawLine(x, height*(0.5-float64(f.Values[0])*0.5), x, height*(0.5-float64(f.Values[1])*0.5))
		dc.Stroke()
	}
	return nil
}
