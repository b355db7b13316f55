// SPDX-License-Identifier: MIT
package vamp

import (
	"fmt"
	"time"
)

// Plugin is the capability set every analysis plugin provides.
//
// A plugin is created for one sample rate, configured with SetParameter,
// initialised once, then fed blocks through Process. RemainingFeatures is
// called once after the last block. Frequency-domain plugins receive, per
// channel, block/2+1 interleaved (re, im) pairs instead of samples.
type Plugin interface {
	Identifier() string
	InputDomain() InputDomain
	// PreferredBlockSize returns 0 when the plugin has no preference.
	PreferredBlockSize() int
	// PreferredStepSize returns 0 when the plugin has no preference.
	PreferredStepSize() int
	OutputDescriptors() []OutputDescriptor
	ParameterDescriptors() []ParameterDescriptor
	SetParameter(name string, value float32)
	Initialise(channels, stepSize, blockSize int) error
	Process(input [][]float32, timestamp time.Duration) FeatureSet
	RemainingFeatures() FeatureSet
}

// ChannelRange is implemented by plugins that accept a limited number of
// input channels. Plugins without it accept any count.
type ChannelRange interface {
	MinChannelCount() int
	MaxChannelCount() int
}

// WindowPreference is implemented by frequency-domain plugins that want a
// window other than Hann applied before the transform.
type WindowPreference interface {
	Window() WindowFunc
}

// Describer is implemented by plugins that carry a human-readable name.
type Describer interface {
	Name() string
	Description() string
}

// wrapper is implemented by the adapters so callers can reach the plugin
// they wrap.
type wrapper interface {
	Unwrap() Plugin
}

// Unwrap strips every adapter around p and returns the native plugin.
func Unwrap(p Plugin) Plugin {
	for {
		w, ok := p.(wrapper)
		if !ok {
			return p
		}
		p = w.Unwrap()
	}
}

// FindOutput returns the index of the output named identifier. The first
// match wins.
func FindOutput(p Plugin, identifier string) (int, error) {
	for i, od := range p.OutputDescriptors() {
		if od.Identifier == identifier {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q has no output %q", ErrOutputNotFound, p.Identifier(), identifier)
}

func hasParameter(p Plugin, name string) bool {
	for _, pd := range p.ParameterDescriptors() {
		if pd.Identifier == name {
			return true
		}
	}
	return false
}
