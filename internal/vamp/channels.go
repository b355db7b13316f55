// SPDX-License-Identifier: MIT
package vamp

import (
	"fmt"
	"time"

	applog "vampeyer/internal/log"
)

// ChannelAdapter matches the stream's channel count to what the wrapped
// plugin accepts. A mono-only plugin gets a mix-down of all channels; a
// plugin taking fewer channels than the stream gets the first ones; a plugin
// needing more gets channel 0 repeated.
type ChannelAdapter struct {
	Plugin
	streamChannels int
	pluginChannels int
	mixdown        bool
	buf            [][]float32
}

var _ Plugin = (*ChannelAdapter)(nil)

func NewChannelAdapter(p Plugin) *ChannelAdapter {
	return &ChannelAdapter{Plugin: p}
}

func (a *ChannelAdapter) Unwrap() Plugin { return a.Plugin }

// channelRange returns the channel limits of the native plugin. Zero max
// means unbounded.
func channelRange(p Plugin) (lo, hi int) {
	if cr, ok := Unwrap(p).(ChannelRange); ok {
		return cr.MinChannelCount(), cr.MaxChannelCount()
	}
	return 1, 0
}

// Initialise records the stream's channel count and initialises the wrapped
// plugin with the count it will actually be fed.
func (a *ChannelAdapter) Initialise(channels, stepSize, blockSize int) error {
	if channels <= 0 {
		return fmt.Errorf("%w: %d input channels", ErrInitialise, channels)
	}
	lo, hi := channelRange(a.Plugin)

	a.streamChannels = channels
	a.pluginChannels = channels
	a.mixdown = false
	switch {
	case hi > 0 && channels > hi:
		a.pluginChannels = hi
		a.mixdown = hi == 1
	case channels < lo:
		a.pluginChannels = lo
	}

	if a.pluginChannels != channels {
		how := "first channels"
		switch {
		case a.mixdown:
			how = "mix-down"
		case a.pluginChannels > channels:
			how = "duplicated channel 0"
		}
		applog.Debugf("Channel adaptation for %s: %d -> %d (%s)", a.Identifier(), channels, a.pluginChannels, how)
	}

	a.buf = make([][]float32, a.pluginChannels)
	if a.mixdown {
		a.buf[0] = make([]float32, blockSize)
	}
	return a.Plugin.Initialise(a.pluginChannels, stepSize, blockSize)
}

// Process reshapes input to the wrapped plugin's channel count.
func (a *ChannelAdapter) Process(input [][]float32, timestamp time.Duration) FeatureSet {
	if a.pluginChannels == a.streamChannels || len(input) == 0 {
		return a.Plugin.Process(input, timestamp)
	}

	switch {
	case a.mixdown:
		mix := a.buf[0]
		if len(mix) < len(input[0]) {
			mix = make([]float32, len(input[0]))
			a.buf[0] = mix
		}
		mix = mix[:len(input[0])]
		clear(mix)
		scale := 1 / float32(len(input))
		for _, ch := range input {
			for i, v := range ch[:len(mix)] {
				mix[i] += v * scale
			}
		}
		a.buf[0] = mix
	case a.pluginChannels < len(input):
		copy(a.buf, input[:a.pluginChannels])
	default:
		n := copy(a.buf, input)
		for c := n; c < a.pluginChannels; c++ {
			a.buf[c] = input[0]
		}
	}
	return a.Plugin.Process(a.buf, timestamp)
}
