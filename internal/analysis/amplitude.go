// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"time"

	"vampeyer/internal/vamp"
)

// AmplitudeFollower tracks the envelope of the signal with separate attack
// and release times and reports its level at the end of each step.
type AmplitudeFollower struct {
	base
	attackCoef  float32
	releaseCoef float32
	level       float32
}

var _ vamp.Plugin = (*AmplitudeFollower)(nil)

func NewAmplitudeFollower(sampleRate int) *AmplitudeFollower {
	a := &AmplitudeFollower{base: newBase("amplitude", "Amplitude Follower",
		"Envelope follower with attack and release", sampleRate)}
	a.maxChannels = 1
	a.outputs = []vamp.OutputDescriptor{{
		Identifier:       "amplitude",
		Name:             "Amplitude",
		Description:      "Envelope level of the mono signal",
		HasFixedBinCount: true,
		BinCount:         1,
		HasKnownExtents:  true,
		MinValue:         0,
		MaxValue:         1,
		SampleType:       vamp.OneSamplePerStep,
	}}
	a.addParam(vamp.ParameterDescriptor{
		Identifier:   "attack",
		Name:         "Attack time",
		Unit:         "s",
		MinValue:     0,
		MaxValue:     1,
		DefaultValue: 0.01,
	})
	a.addParam(vamp.ParameterDescriptor{
		Identifier:   "release",
		Name:         "Release time",
		Unit:         "s",
		MinValue:     0,
		MaxValue:     1,
		DefaultValue: 0.01,
	})
	return a
}

// coefficient gives the per-sample smoothing factor that settles to 10% of
// a step within seconds.
func coefficient(seconds float32, sampleRate int) float32 {
	if seconds <= 0 {
		return 0
	}
	return float32(math.Exp(math.Log(0.1) / (float64(seconds) * float64(sampleRate))))
}

func (a *AmplitudeFollower) Initialise(channels, stepSize, blockSize int) error {
	if err := a.initialise(channels, stepSize, blockSize); err != nil {
		return err
	}
	a.attackCoef = coefficient(a.param("attack"), a.sampleRate)
	a.releaseCoef = coefficient(a.param("release"), a.sampleRate)
	a.level = 0
	return nil
}

func (a *AmplitudeFollower) Process(input [][]float32, _ time.Duration) vamp.FeatureSet {
	samples := input[0][:min(a.stepSize, len(input[0]))]
	for _, v := range samples {
		v = float32(math.Abs(float64(v)))
		if v < a.level {
			a.level = v + (a.level-v)*a.releaseCoef
		} else {
			a.level = v + (a.level-v)*a.attackCoef
		}
	}
	return vamp.FeatureSet{0: {feature(a.level)}}
}

func (a *AmplitudeFollower) RemainingFeatures() vamp.FeatureSet { return nil }
