// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"time"

	"vampeyer/internal/vamp"
)

// Library is the library name the built-in plugins register under.
const Library = "vampeyer"

// base carries what every built-in plugin shares: identity, sizing
// preferences, outputs and a parameter table. Plugins embed it and supply
// Initialise, Process and RemainingFeatures.
type base struct {
	id          string
	name        string
	description string
	domain      vamp.InputDomain
	prefBlock   int
	prefStep    int
	maxChannels int // 0 means any
	outputs     []vamp.OutputDescriptor
	params      []vamp.ParameterDescriptor
	values      map[string]float32

	sampleRate int
	channels   int
	stepSize   int
	blockSize  int
}

func newBase(id, name, description string, sampleRate int) base {
	return base{
		id:          id,
		name:        name,
		description: description,
		sampleRate:  sampleRate,
		values:      make(map[string]float32),
	}
}

// addParam declares a parameter and sets it to its default.
func (b *base) addParam(pd vamp.ParameterDescriptor) {
	b.params = append(b.params, pd)
	b.values[pd.Identifier] = pd.DefaultValue
}

func (b *base) Identifier() string                               { return b.id }
func (b *base) Name() string                                     { return b.name }
func (b *base) Description() string                              { return b.description }
func (b *base) InputDomain() vamp.InputDomain                    { return b.domain }
func (b *base) PreferredBlockSize() int                          { return b.prefBlock }
func (b *base) PreferredStepSize() int                           { return b.prefStep }
func (b *base) OutputDescriptors() []vamp.OutputDescriptor       { return b.outputs }
func (b *base) ParameterDescriptors() []vamp.ParameterDescriptor { return b.params }
func (b *base) MinChannelCount() int                             { return 1 }
func (b *base) MaxChannelCount() int                             { return b.maxChannels }

// SetParameter clamps value into the declared range. Unknown names are
// ignored.
func (b *base) SetParameter(name string, value float32) {
	for _, pd := range b.params {
		if pd.Identifier == name {
			b.values[name] = max(pd.MinValue, min(pd.MaxValue, value))
			return
		}
	}
}

// param returns the current value of a declared parameter.
func (b *base) param(name string) float32 { return b.values[name] }

// initialise records the block geometry shared by every plugin.
func (b *base) initialise(channels, stepSize, blockSize int) error {
	if channels < 1 || (b.maxChannels > 0 && channels > b.maxChannels) {
		return fmt.Errorf("%s accepts 1 to %d channels, got %d", b.id, b.maxChannels, channels)
	}
	if stepSize <= 0 || blockSize <= 0 {
		return fmt.Errorf("%s needs positive step and block sizes, got %d and %d", b.id, stepSize, blockSize)
	}
	b.channels, b.stepSize, b.blockSize = channels, stepSize, blockSize
	return nil
}

// stepDuration is the time covered by one step.
func (b *base) stepDuration() time.Duration {
	return vamp.FrameToRealTime(int64(b.stepSize), b.sampleRate)
}

func feature(values ...float32) vamp.Feature {
	return vamp.Feature{Values: values}
}

func timedFeature(ts time.Duration, values ...float32) vamp.Feature {
	return vamp.Feature{HasTimestamp: true, Timestamp: ts, Values: values}
}
