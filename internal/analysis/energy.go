// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"time"

	"vampeyer/internal/vamp"
)

// Output indices of Energy.
const (
	EnergyRMS = iota
	EnergyMean
	EnergyOnsets
	EnergySilence
)

// Energy measures signal level per step and derives two sparse outputs from
// it: onsets, where the level jumps by more than a ratio, and silent regions,
// where it stays under a gate threshold.
type Energy struct {
	base
	lastRMS      float32
	inSilence    bool
	silenceStart time.Duration
	lastEnd      time.Duration
}

var _ vamp.Plugin = (*Energy)(nil)

func NewEnergy(sampleRate int) *Energy {
	e := &Energy{base: newBase("energy", "Energy", "RMS level, onsets and silent regions", sampleRate)}
	e.maxChannels = 1
	e.outputs = []vamp.OutputDescriptor{
		{
			Identifier:       "rms",
			Name:             "RMS level",
			HasFixedBinCount: true,
			BinCount:         1,
			HasKnownExtents:  true,
			MaxValue:         1,
			SampleType:       vamp.OneSamplePerStep,
		},
		{
			Identifier:       "mean",
			Name:             "Mean absolute level",
			HasFixedBinCount: true,
			BinCount:         1,
			HasKnownExtents:  true,
			MaxValue:         1,
			SampleType:       vamp.OneSamplePerStep,
		},
		{
			Identifier:       "onsets",
			Name:             "Onsets",
			Description:      "Steps where the level rises above the threshold by more than the ratio",
			HasFixedBinCount: true,
			BinCount:         1,
			SampleType:       vamp.VariableSampleRate,
		},
		{
			Identifier:       "silence",
			Name:             "Silent regions",
			Description:      "Regions quieter than the gate, value is the length in seconds",
			HasFixedBinCount: true,
			BinCount:         1,
			SampleType:       vamp.VariableSampleRate,
			HasDuration:      true,
		},
	}
	e.addParam(vamp.ParameterDescriptor{
		Identifier:   "threshold",
		Name:         "Onset threshold",
		MinValue:     0,
		MaxValue:     1,
		DefaultValue: 0.1,
	})
	e.addParam(vamp.ParameterDescriptor{
		Identifier:   "ratio",
		Name:         "Onset ratio",
		Description:  "Minimum level increase over the previous step",
		MinValue:     1,
		MaxValue:     10,
		DefaultValue: 1.5,
	})
	// 0 never gates, 1 always does.
	e.addParam(vamp.ParameterDescriptor{
		Identifier:   "gate",
		Name:         "Silence gate",
		MinValue:     0,
		MaxValue:     1,
		DefaultValue: 0.01,
	})
	return e
}

func (e *Energy) Initialise(channels, stepSize, blockSize int) error {
	if err := e.initialise(channels, stepSize, blockSize); err != nil {
		return err
	}
	e.lastRMS = 0
	e.inSilence = false
	e.silenceStart, e.lastEnd = 0, 0
	return nil
}

// calculateRMS returns the root mean square and mean absolute value of
// samples.
func calculateRMS(samples []float32) (rms, mean float32) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sumSquare, sumAbs float64
	for _, s := range samples {
		v := float64(s)
		sumSquare += v * v
		sumAbs += math.Abs(v)
	}
	n := float64(len(samples))
	return float32(math.Sqrt(sumSquare / n)), float32(sumAbs / n)
}

func (e *Energy) Process(input [][]float32, ts time.Duration) vamp.FeatureSet {
	rms, mean := calculateRMS(input[0][:min(e.stepSize, len(input[0]))])
	fs := vamp.FeatureSet{
		EnergyRMS:  {feature(rms)},
		EnergyMean: {feature(mean)},
	}

	threshold, ratio := e.param("threshold"), e.param("ratio")
	if rms > threshold && (e.lastRMS == 0 || rms/e.lastRMS > ratio) {
		onset := timedFeature(ts, rms)
		onset.Label = "onset"
		fs[EnergyOnsets] = vamp.FeatureList{onset}
	}
	e.lastRMS = rms

	quiet := rms < e.param("gate")
	switch {
	case quiet && !e.inSilence:
		e.inSilence = true
		e.silenceStart = ts
	case !quiet && e.inSilence:
		e.inSilence = false
		fs[EnergySilence] = vamp.FeatureList{e.silentRegion(ts)}
	}
	e.lastEnd = ts + e.stepDuration()

	return fs
}

func (e *Energy) silentRegion(end time.Duration) vamp.Feature {
	f := timedFeature(e.silenceStart, float32((end - e.silenceStart).Seconds()))
	f.HasDuration = true
	f.Duration = end - e.silenceStart
	f.Label = "silence"
	return f
}

// RemainingFeatures closes a silent region still open at the end of the
// stream.
func (e *Energy) RemainingFeatures() vamp.FeatureSet {
	if !e.inSilence {
		return nil
	}
	e.inSilence = false
	return vamp.FeatureSet{EnergySilence: {e.silentRegion(e.lastEnd)}}
}
