// SPDX-License-Identifier: MIT
/*
Package audio provides the frame sources that feed the analysis host.

A Source delivers interleaved float32 sample frames in the range [-1, 1]
and can be rewound to its first frame. Reads are sequential; a short read
(fewer frames than requested, including zero) signals the end of the
stream. TotalFrames is informational only, the analysis host never relies
on it to terminate.
*/
package audio

import (
	"errors"
	"fmt"
)

// ErrInvalidFormat is returned for streams the sources cannot decode.
var ErrInvalidFormat = errors.New("invalid audio format")

// Source is a rewindable, sequential reader of interleaved sample frames.
type Source interface {
	// SampleRate returns the stream's sample rate in Hz.
	SampleRate() int
	// Channels returns the number of interleaved channels per frame.
	Channels() int
	// TotalFrames returns the number of frames in the stream, or -1 when
	// it is not known.
	TotalFrames() int64
	// ReadFrames reads up to maxFrames frames into buf, which must hold at
	// least maxFrames*Channels() samples, and returns the number of frames
	// read. A short count marks the end of the stream.
	ReadFrames(buf []float32, maxFrames int) (int, error)
	// SeekToStart rewinds the stream to its first frame.
	SeekToStart() error
}

// MemorySource is a Source over an in-memory interleaved sample slice.
type MemorySource struct {
	samples    []float32
	channels   int
	sampleRate int
	pos        int // read cursor, in frames
}

// Compile-time check for interface implementation.
var _ Source = (*MemorySource)(nil)

// NewMemorySource wraps interleaved samples. Trailing samples that do not
// form a whole frame are ignored.
func NewMemorySource(samples []float32, channels, sampleRate int) (*MemorySource, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidFormat, channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidFormat, sampleRate)
	}
	frames := len(samples) / channels
	return &MemorySource{
		samples:    samples[:frames*channels],
		channels:   channels,
		sampleRate: sampleRate,
	}, nil
}

func (m *MemorySource) SampleRate() int    { return m.sampleRate }
func (m *MemorySource) Channels() int      { return m.channels }
func (m *MemorySource) TotalFrames() int64 { return int64(len(m.samples) / m.channels) }

// ReadFrames copies the next frames into buf.
func (m *MemorySource) ReadFrames(buf []float32, maxFrames int) (int, error) {
	if maxFrames <= 0 {
		return 0, nil
	}
	if len(buf) < maxFrames*m.channels {
		return 0, fmt.Errorf("buffer holds %d samples, need %d", len(buf), maxFrames*m.channels)
	}
	remaining := len(m.samples)/m.channels - m.pos
	n := min(maxFrames, remaining)
	copy(buf, m.samples[m.pos*m.channels:(m.pos+n)*m.channels])
	m.pos += n
	return n, nil
}

// SeekToStart resets the read cursor.
func (m *MemorySource) SeekToStart() error {
	m.pos = 0
	return nil
}

// Clone returns an independent source over the same samples with its own
// cursor positioned at the start.
func (m *MemorySource) Clone() *MemorySource {
	return &MemorySource{
		samples:    m.samples,
		channels:   m.channels,
		sampleRate: m.sampleRate,
	}
}
