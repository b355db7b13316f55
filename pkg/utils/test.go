// Package utils holds signal generators and fakes shared by tests.
package utils

import (
	"math"
	"sync"
)

// MockTransport records everything sent through it instead of transmitting.
type MockTransport struct {
	mu     sync.Mutex
	Sent   []any
	Closed bool
	Err    error // returned from Send when set
}

// Send stores msg for later inspection.
func (m *MockTransport) Send(msg any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *MockTransport) Messages() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// Sine returns frames samples of a sine wave at frequency Hz.
func Sine(frequency float64, sampleRate int, amplitude float64, frames int) []float32 {
	buf := make([]float32, frames)
	for i := range buf {
		t := float64(i) / float64(sampleRate)
		buf[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return buf
}

// ComplexWave returns a 440Hz fundamental with two harmonics, peaking just
// under full scale.
func ComplexWave(sampleRate int, frames int) []float32 {
	buf := make([]float32, frames)
	for i := range buf {
		tm := float64(i) / float64(sampleRate)
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buf[i] = float32(signal * 0.9)
	}
	return buf
}

// Ramp returns 1, 2, 3, ... so that any zero in a processed block is
// padding.
func Ramp(frames int) []float32 {
	buf := make([]float32, frames)
	for i := range buf {
		buf[i] = float32(i + 1)
	}
	return buf
}

// Interleave merges equal-length channels into one frame-ordered slice.
func Interleave(channels ...[]float32) []float32 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels[0])
	out := make([]float32, n*len(channels))
	for c, ch := range channels {
		for i := 0; i < n; i++ {
			out[i*len(channels)+c] = ch[i]
		}
	}
	return out
}

// FindPeakBin returns the index of the largest value in [startBin, endBin].
func FindPeakBin(values []float32, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(values) {
		endBin = len(values) - 1
	}

	peakBin := startBin
	peakValue := values[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > peakValue {
			peakValue = values[bin]
			peakBin = bin
		}
	}

	return peakBin
}
