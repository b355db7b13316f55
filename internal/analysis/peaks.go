// SPDX-License-Identifier: MIT
package analysis

import (
	"time"

	"vampeyer/internal/vamp"
)

// Peaks reports the smallest and largest sample of each step.
type Peaks struct {
	base
}

var _ vamp.Plugin = (*Peaks)(nil)

func NewPeaks(sampleRate int) *Peaks {
	p := &Peaks{base: newBase("peaks", "Peaks", "Minimum and maximum sample value per step", sampleRate)}
	p.maxChannels = 1
	p.outputs = []vamp.OutputDescriptor{{
		Identifier:       "peaks",
		Name:             "Peaks",
		Description:      "Minimum and maximum of the mono signal over each step",
		HasFixedBinCount: true,
		BinCount:         2,
		HasKnownExtents:  true,
		MinValue:         -1,
		MaxValue:         1,
		SampleType:       vamp.OneSamplePerStep,
	}}
	return p
}

func (p *Peaks) Initialise(channels, stepSize, blockSize int) error {
	return p.initialise(channels, stepSize, blockSize)
}

func (p *Peaks) Process(input [][]float32, _ time.Duration) vamp.FeatureSet {
	samples := input[0][:min(p.stepSize, len(input[0]))]
	var lo, hi float32
	for i, v := range samples {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	return vamp.FeatureSet{0: {feature(lo, hi)}}
}

func (p *Peaks) RemainingFeatures() vamp.FeatureSet { return nil }
