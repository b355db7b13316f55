// SPDX-License-Identifier: MIT
package vamp

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

	applog "vampeyer/internal/log"
	"vampeyer/pkg/bitint"
)

// fftWorkspace holds the per-block buffers for the forward transform.
type fftWorkspace struct {
	input  []float64    // windowed samples of one channel
	coeffs []complex128 // block/2+1 transform bins
	window []float64
	out    [][]float32 // per-channel packed (re, im) pairs, block+2 long
}

// DomainAdapter presents a frequency-domain plugin as a time-domain one. Each
// channel of every block is windowed and transformed before it reaches the
// plugin, and the timestamp is moved to the centre of the block.
type DomainAdapter struct {
	Plugin
	sampleRate int
	blockSize  int
	fft        *fourier.FFT
	workspace  fftWorkspace
	shift      time.Duration
}

var _ Plugin = (*DomainAdapter)(nil)

// NewDomainAdapter wraps p, which must be a frequency-domain plugin.
func NewDomainAdapter(p Plugin, sampleRate int) *DomainAdapter {
	return &DomainAdapter{Plugin: p, sampleRate: sampleRate}
}

func (a *DomainAdapter) Unwrap() Plugin { return a.Plugin }

func (a *DomainAdapter) InputDomain() InputDomain { return TimeDomain }

// Initialise prepares the transform for blockSize, which must be a power of
// two, then initialises the wrapped plugin.
func (a *DomainAdapter) Initialise(channels, stepSize, blockSize int) error {
	if !bitint.IsPowerOfTwo(blockSize) {
		return fmt.Errorf("%w: %s needs a power-of-two block size for frequency-domain input, got %d",
			ErrInitialise, a.Identifier(), blockSize)
	}

	win := Hann
	if wp, ok := a.Plugin.(WindowPreference); ok {
		win = wp.Window()
	}

	a.blockSize = blockSize
	a.fft = fourier.NewFFT(blockSize)
	a.workspace = fftWorkspace{
		input:  make([]float64, blockSize),
		coeffs: make([]complex128, blockSize/2+1),
		window: windowCoefficients(blockSize, win),
		out:    make([][]float32, channels),
	}
	for c := range a.workspace.out {
		a.workspace.out[c] = make([]float32, blockSize+2)
	}
	a.shift = FrameToRealTime(int64(blockSize/2), a.sampleRate)

	applog.Debugf("Frequency-domain input for %s: %d-point FFT, %s window", a.Identifier(), blockSize, win)

	return a.Plugin.Initialise(channels, stepSize, blockSize)
}

// Process transforms every channel of input and forwards the spectra.
func (a *DomainAdapter) Process(input [][]float32, timestamp time.Duration) FeatureSet {
	ws := &a.workspace
	for c, samples := range input {
		if c >= len(ws.out) {
			break
		}
		for i := 0; i < a.blockSize; i++ {
			if i < len(samples) {
				ws.input[i] = float64(samples[i]) * ws.window[i]
			} else {
				ws.input[i] = 0
			}
		}
		a.fft.Coefficients(ws.coeffs, ws.input)
		out := ws.out[c]
		for i, v := range ws.coeffs {
			out[2*i] = float32(real(v))
			out[2*i+1] = float32(imag(v))
		}
	}
	return a.Plugin.Process(ws.out[:min(len(input), len(ws.out))], timestamp+a.shift)
}

// TimestampAdjustment is the offset added to the timestamps passed to the
// wrapped plugin.
func (a *DomainAdapter) TimestampAdjustment() time.Duration { return a.shift }
