// SPDX-License-Identifier: MIT
package vamp

import (
	"errors"
	"fmt"
	"io"
	"time"

	"vampeyer/internal/audio"
	applog "vampeyer/internal/log"
)

// DefaultBlockSize is used when neither the caller nor the plugin picks one.
const DefaultBlockSize = 1024

// Host runs one analysis plugin instance over a Frame Source.
//
// A Host owns its plugin and buffers; it is single use. Create it with
// NewHost, apply parameters, call Run once, then Close.
type Host struct {
	src        audio.Source
	native     Plugin // as loaded
	plugin     Plugin // native wrapped in the input adapters
	config     AnalysisConfig
	sampleRate int
	channels   int
	blockSize  int
	stepSize   int

	filebuf []float32   // interleaved, blockSize*channels
	plugbuf [][]float32 // per channel, blockSize+2
	views   [][]float32 // plugbuf trimmed to blockSize

	calls   int
	readErr error
	closed  bool
}

// NewHost loads the plugin named by cfg at the source's sample rate and
// resolves the block and step sizes it will be driven with.
func NewHost(src audio.Source, loader Loader, cfg AnalysisConfig) (*Host, error) {
	if cfg.BlockSize < 0 || cfg.StepSize < 0 {
		return nil, fmt.Errorf("%w: %s has a negative block or step size", ErrConfig, cfg.Key)
	}

	rate := src.SampleRate()
	channels := src.Channels()

	native, err := loader.Load(cfg.Key, rate)
	if err != nil {
		if !errors.Is(err, ErrLoad) {
			err = fmt.Errorf("%w: %s: %w", ErrLoad, cfg.Key, err)
		}
		return nil, err
	}
	if native == nil {
		return nil, fmt.Errorf("%w: %s: loader returned no plugin", ErrLoad, cfg.Key)
	}

	if len(native.OutputDescriptors()) == 0 {
		closePlugin(native)
		return nil, fmt.Errorf("%w: %s", ErrNoOutputs, cfg.Key)
	}

	block, step := resolveSizes(native, cfg.BlockSize, cfg.StepSize)

	wrapped := native
	if native.InputDomain() == FrequencyDomain {
		wrapped = NewDomainAdapter(wrapped, rate)
	}
	wrapped = NewChannelAdapter(wrapped)

	h := &Host{
		src:        src,
		native:     native,
		plugin:     wrapped,
		config:     cfg,
		sampleRate: rate,
		channels:   channels,
		blockSize:  block,
		stepSize:   step,
		filebuf:    make([]float32, block*channels),
		plugbuf:    make([][]float32, channels),
		views:      make([][]float32, channels),
	}
	for c := range h.plugbuf {
		h.plugbuf[c] = make([]float32, block+2)
		h.views[c] = h.plugbuf[c][:block]
	}

	applog.Debugf("Host for %s: %d channels at %d Hz, block %d, step %d, %s domain",
		cfg.Key, channels, rate, block, step, native.InputDomain())

	return h, nil
}

// resolveSizes picks the block and step sizes for p. A step larger than the
// block is corrected by growing the block.
func resolveSizes(p Plugin, block, step int) (int, int) {
	freq := p.InputDomain() == FrequencyDomain

	if block == 0 {
		block = p.PreferredBlockSize()
		if block <= 0 {
			block = DefaultBlockSize
		}
	}
	if step == 0 {
		step = p.PreferredStepSize()
		if step <= 0 {
			if freq {
				step = max(1, block/2)
			} else {
				step = block
			}
		}
	}

	if step > block {
		corrected := step
		if freq {
			corrected = 2 * step
		}
		applog.Warnf("Step size %d exceeds block size %d for %s, using block size %d",
			step, block, p.Identifier(), corrected)
		block = corrected
	}
	return block, step
}

func closePlugin(p Plugin) {
	if c, ok := p.(io.Closer); ok {
		if err := c.Close(); err != nil {
			applog.Warnf("Failed to release analysis plugin %s: %v", p.Identifier(), err)
		}
	}
}

// Config returns the configuration the host was created with.
func (h *Host) Config() AnalysisConfig { return h.config }

// BlockSize returns the resolved block size in frames.
func (h *Host) BlockSize() int { return h.blockSize }

// StepSize returns the resolved step size in frames.
func (h *Host) StepSize() int { return h.stepSize }

// Channels returns the channel count of the source.
func (h *Host) Channels() int { return h.channels }

// Plugin returns the plugin as loaded, without input adapters.
func (h *Host) Plugin() Plugin { return h.native }

// Outputs returns the plugin's output descriptors.
func (h *Host) Outputs() []OutputDescriptor { return h.native.OutputDescriptors() }

// FindOutputNumber returns the index of the output named name.
func (h *Host) FindOutputNumber(name string) (int, error) {
	return FindOutput(h.native, name)
}

// SetParameter forwards to the plugin, warning when it does not declare a
// parameter with that name.
func (h *Host) SetParameter(name string, value float32) {
	if !hasParameter(h.native, name) {
		applog.Warnf("Analysis plugin %s has no parameter %q", h.config.Key, name)
	}
	h.native.SetParameter(name, value)
}

// ApplyParameters sets every parameter of the host's configuration in order.
func (h *Host) ApplyParameters() {
	for _, p := range h.config.Parameters {
		h.SetParameter(p.Name, p.Value)
	}
}

// ReadErr returns the source error that ended the last Run early, if any.
func (h *Host) ReadErr() error { return h.readErr }

// Calls returns the number of Process calls made by Run.
func (h *Host) Calls() int { return h.calls }

// Run feeds the whole source through the plugin and returns everything it
// produced, including the output of the final flush.
//
// A read error ends the feed early; the features gathered up to that point
// are still returned, and the error is available from ReadErr.
func (h *Host) Run() (FeatureSet, error) {
	if h.closed {
		return nil, fmt.Errorf("%w: host for %s is closed", ErrConfig, h.config.Key)
	}
	if err := h.plugin.Initialise(h.channels, h.stepSize, h.blockSize); err != nil {
		if !errors.Is(err, ErrInitialise) {
			err = fmt.Errorf("%w: %s (channels %d, step %d, block %d): %w",
				ErrInitialise, h.config.Key, h.channels, h.stepSize, h.blockSize, err)
		}
		return nil, err
	}

	var (
		block   = h.blockSize
		step    = h.stepSize
		ch      = h.channels
		overlap = block - step
		results = make(FeatureSet)
	)

	// Number of steps still owed after the source first comes up short, so
	// the last real sample has passed through every window that covers it.
	// A block that is not a whole number of steps needs the extra step.
	finalStepsRemaining := max(1, (block+step-1)/step-1)
	currentStep := int64(0)
	h.calls = 0
	h.readErr = nil

	for {
		var count int
		if step == block || currentStep == 0 {
			n, err := h.src.ReadFrames(h.filebuf, block)
			if err != nil {
				h.readFailed(err, currentStep)
				break
			}
			if n != block {
				finalStepsRemaining--
			}
			count = n
		} else {
			copy(h.filebuf, h.filebuf[step*ch:])
			n, err := h.src.ReadFrames(h.filebuf[overlap*ch:], step)
			if err != nil {
				h.readFailed(err, currentStep)
				break
			}
			if n != step {
				finalStepsRemaining--
			}
			count = overlap + n
		}
		// Frames past count are silence from here on, including when they
		// are shifted into the overlap on the next step.
		clear(h.filebuf[count*ch:])

		h.deinterleave(count)

		// The first call is stamped at frame zero.
		ts := FrameToRealTime(currentStep*int64(step), h.sampleRate)
		fs := h.plugin.Process(h.views, ts)
		stamp(fs, ts)
		results.Append(fs)
		h.calls++

		currentStep++
		if finalStepsRemaining <= 0 {
			break
		}
	}

	ts := FrameToRealTime(currentStep*int64(step), h.sampleRate)
	rest := h.plugin.RemainingFeatures()
	stamp(rest, ts)
	results.Append(rest)

	applog.Debugf("Host for %s: %d process calls, %d outputs populated", h.config.Key, h.calls, len(results))

	return results, nil
}

func (h *Host) readFailed(err error, step int64) {
	h.readErr = fmt.Errorf("failed to read frames at step %d: %w", step, err)
	applog.Warnf("Analysis of %s stopped early: %v", h.config.Key, h.readErr)
}

// deinterleave copies count frames into the per-channel buffers and zero
// pads them to the block size.
func (h *Host) deinterleave(count int) {
	ch := h.channels
	for c, buf := range h.views {
		j := 0
		for ; j < count; j++ {
			buf[j] = h.filebuf[j*ch+c]
		}
		clear(buf[j:])
	}
}

// stamp gives every untimed feature the time of the call that produced it.
func stamp(fs FeatureSet, ts time.Duration) {
	for _, list := range fs {
		for i := range list {
			if !list[i].HasTimestamp {
				list[i].Timestamp = ts
				list[i].HasTimestamp = true
			}
		}
	}
}

// Close releases the plugin and the host's buffers.
func (h *Host) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.filebuf, h.plugbuf, h.views = nil, nil, nil
	if c, ok := h.native.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to release analysis plugin %s: %w", h.config.Key, err)
		}
	}
	return nil
}
