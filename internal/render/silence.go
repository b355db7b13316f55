// SPDX-License-Identifier: MIT
package render

import (
	"image"
	"math"
	"time"

	"vampeyer/internal/analysis"
	"vampeyer/internal/vamp"
	"vampeyer/internal/vis"
)

const (
	silenceStep = 256
	// -40 dBFS
	silenceGate = 0.01
)

// Silence shades every column by how far it is from the nearest silent
// region, black inside silence and white a second or more away, and draws
// the RMS envelope over it. Both streams come from one energy analysis.
type Silence struct{}

func NewSilence() *Silence { return &Silence{} }

func (*Silence) Name() string { return "silence" }

func (*Silence) Outputs() []vis.OutputRef {
	cfg := vamp.AnalysisConfig{
		Key:        analysis.Key("energy"),
		BlockSize:  silenceStep,
		StepSize:   silenceStep,
		Parameters: []vamp.Parameter{{Name: "gate", Value: silenceGate}},
	}
	return []vis.OutputRef{
		{Config: cfg, Output: "rms"},
		{Config: cfg, Output: "silence"},
	}
}

type region struct{ start, end time.Duration }

func silentRegions(list vamp.FeatureList) []region {
	regions := make([]region, 0, len(list))
	for _, f := range list {
		regions = append(regions, region{f.Timestamp, f.Timestamp + f.Duration})
	}
	return regions
}

// distance returns how far t lies from the closest region edge, in seconds,
// capped at one. Times inside a region are at distance zero.
func distance(t time.Duration, regions []region) float64 {
	nearest := math.Inf(1)
	for _, r := range regions {
		if t >= r.start && t < r.end {
			return 0
		}
		nearest = min(nearest, math.Abs((t - r.start).Seconds()), math.Abs((t - r.end).Seconds()))
	}
	return min(nearest, 1)
}

func (s *Silence) Render(dst *image.RGBA, results vis.ResultSet, _ int) error {
	if err := checkResults(s.Name(), results, 2); err != nil {
		return err
	}
	dc := canvas(dst, rgb{1, 1, 1})
	width, height := float64(dc.Width()), float64(dc.Height())

	rms := results[0]
	if len(rms) == 0 {
		return nil
	}
	regions := silentRegions(results[1])
	colWidth := width / float64(len(rms))

	for i, f := range rms {
		d := distance(f.Timestamp, regions)
		dc.SetRGB(d, d, d)
		dc.DrawRectangle(float64(i)*colWidth, 0, math.Ceil(colWidth), height)
		dc.Fill()
	}

	dc.SetRGB(freesoundPalette[0].r, freesoundPalette[0].g, freesoundPalette[0].b)
	dc.SetLineWidth(1)
	for i, f := range rms {
		if len(f.Values) == 0 {
			continue
		}
		v := min(float64(f.Values[0]), 1)
		x := (float64(i) + 0.5) * colWidth
		dc.DrawLine(x, height*(0.5-v*0.5), x, height*(0.5+v*0.5))
		dc.Stroke()
	}
	return nil
}
