// SPDX-License-Identifier: MIT
package render

import (
	"image"
	"math"

	"github.com/fogleman/gg"

	"vampeyer/internal/analysis"
	"vampeyer/internal/vamp"
	"vampeyer/internal/vis"
)

// Levels at or below contourFloorDB draw nothing.
const contourFloorDB = -45.0

// SpecCont draws the spectral contour: one bar per frame, centred on the
// middle of the canvas, as tall as the loudest bin is loud. Bars are coloured
// by the spectral centroid and the quietest bin shows as a black core.
type SpecCont struct{}

func NewSpecCont() *SpecCont { return &SpecCont{} }

func (*SpecCont) Name() string { return "speccont" }

func (*SpecCont) Outputs() []vis.OutputRef {
	spectrum := analysis.Key("spectrum")
	return []vis.OutputRef{
		vis.Ref(spectrum, "highest"),
		vis.Ref(spectrum, "lowest"),
		vis.Ref(spectrum, "centroid"),
	}
}

func (s *SpecCont) Render(dst *image.RGBA, results vis.ResultSet, sampleRate int) error {
	if err := checkResults(s.Name(), results, 3); err != nil {
		return err
	}
	dc := canvas(dst, rgb{1, 1, 1})

	highest, lowest, centroids := results[0], results[1], results[2]
	if len(highest) == 0 {
		return nil
	}
	hi := float64(centroidMaxHz)
	if sampleRate > 0 {
		hi = min(hi, float64(sampleRate)/2)
	}
	frames := float64(len(highest))

	for i, f := range highest {
		col := freesoundPalette.at(0)
		if i < len(centroids) {
			col = freesoundPalette.at(logScale(firstValue(centroids[i]), centroidMinHz, hi))
		}
		dc.SetRGB(col.r, col.g, col.b)
		contourBar(dc, float64(i)/frames, 1/frames, firstValue(f))

		if i < len(lowest) {
			dc.SetRGB(0, 0, 0)
			contourBar(dc, float64(i)/frames, 1/frames, firstValue(lowest[i]))
		}
	}
	return nil
}

func firstValue(f vamp.Feature) float64 {
	if len(f.Values) == 0 {
		return 0
	}
	return float64(f.Values[0])
}

// contourBar fills a bar at x with width w, both as fractions of the canvas
// width, whose height grows from nothing at contourFloorDB to the full
// canvas at 0 dB.
func contourBar(dc *gg.Context, x, w, magnitude float64) {
	db := contourFloorDB
	if magnitude > 0 {
		db = min(max(20*math.Log10(magnitude), contourFloorDB), 0)
	}
	span := (db - contourFloorDB) / -contourFloorDB
	if span <= 0 {
		return
	}
	width, height := float64(dc.Width()), float64(dc.Height())
	dc.DrawRectangle(x*width, height*(1-span)/2, w*width, height*span)
	dc.Fill()
}
