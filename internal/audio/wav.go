// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "vampeyer/internal/log"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAVSource streams frames from a PCM WAV file.
type WAVSource struct {
	path        string
	file        *os.File
	decoder     *wav.Decoder
	intBuf      *audio.IntBuffer
	channels    int
	sampleRate  int
	bitDepth    int
	totalFrames int64
	scale       float32
	offset      int // unsigned 8-bit samples are centred on 128
}

var _ Source = (*WAVSource)(nil)

// OpenWAV opens path and positions the decoder at the first PCM frame.
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file %q: %w", path, err)
	}

	s := &WAVSource{path: path, file: f}
	if err := s.reset(); err != nil {
		f.Close()
		return nil, err
	}

	d := s.decoder
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		f.Close()
		return nil, fmt.Errorf("%w: %q uses WAV format tag %#x, only integer PCM is supported",
			ErrInvalidFormat, path, d.WavAudioFormat)
	}

	s.channels = int(d.NumChans)
	s.sampleRate = int(d.SampleRate)
	s.bitDepth = int(d.SampleBitDepth())
	if s.channels <= 0 || s.sampleRate <= 0 || s.bitDepth <= 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %q reports %d channels at %d Hz, %d bits",
			ErrInvalidFormat, path, s.channels, s.sampleRate, s.bitDepth)
	}

	bytesPerSample := (s.bitDepth-1)/8 + 1
	s.totalFrames = d.PCMLen() / int64(bytesPerSample*s.channels)
	s.scale = float32(1 / math.Pow(2, float64(s.bitDepth-1)))
	if s.bitDepth == 8 {
		s.offset = 128
	}

	applog.Debugf("Opened %s: %d Hz, %d channels, %d-bit, %d frames",
		path, s.sampleRate, s.channels, s.bitDepth, s.totalFrames)

	return s, nil
}

// reset seeks to the start of the file and rebuilds the decoder.
func (s *WAVSource) reset() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind %q: %w", s.path, err)
	}
	d := wav.NewDecoder(s.file)
	if !d.IsValidFile() {
		return fmt.Errorf("%w: %q is not a valid WAV file", ErrInvalidFormat, s.path)
	}
	if err := d.FwdToPCM(); err != nil {
		return fmt.Errorf("failed to locate PCM data in %q: %w", s.path, err)
	}
	s.decoder = d
	return nil
}

func (s *WAVSource) SampleRate() int    { return s.sampleRate }
func (s *WAVSource) Channels() int      { return s.channels }
func (s *WAVSource) TotalFrames() int64 { return s.totalFrames }
func (s *WAVSource) Path() string       { return s.path }

// ReadFrames decodes up to maxFrames frames and scales them into [-1, 1).
func (s *WAVSource) ReadFrames(buf []float32, maxFrames int) (int, error) {
	if maxFrames <= 0 {
		return 0, nil
	}
	want := maxFrames * s.channels
	if len(buf) < want {
		return 0, fmt.Errorf("buffer holds %d samples, need %d", len(buf), want)
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < want {
		s.intBuf = &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: s.channels,
				SampleRate:  s.sampleRate,
			},
			SourceBitDepth: s.bitDepth,
			Data:           make([]int, want),
		}
	}

	got := 0
	for got < want {
		s.intBuf.Data = s.intBuf.Data[:want-got]
		n, err := s.decoder.PCMBuffer(s.intBuf)
		for i := 0; i < n; i++ {
			buf[got+i] = float32(s.intBuf.Data[i]-s.offset) * s.scale
		}
		got += n
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return got / s.channels, fmt.Errorf("failed to decode %q: %w", s.path, err)
		}
		if n == 0 {
			break
		}
	}
	s.intBuf.Data = s.intBuf.Data[:cap(s.intBuf.Data)]

	// A trailing partial frame is dropped.
	return got / s.channels, nil
}

// SeekToStart rewinds to the first PCM frame.
func (s *WAVSource) SeekToStart() error {
	return s.reset()
}

// Close releases the underlying file.
func (s *WAVSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
