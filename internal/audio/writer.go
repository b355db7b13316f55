// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes interleaved float samples as a 16-bit PCM WAV file.
// Samples outside [-1, 1] are clipped.
func WriteWAV(path string, samples []float32, sampleRate, channels int) (err error) {
	if channels <= 0 || sampleRate <= 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidFormat, channels, sampleRate)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)-len(samples)%channels),
	}
	for i := range buf.Data {
		v := max(-1, min(1, float64(samples[i])))
		buf.Data[i] = int(math.Round(v * math.MaxInt16))
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalise %q: %w", path, err)
	}
	return nil
}
