// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestMemorySourceRead(t *testing.T) {
	samples := []float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10} // 5 stereo frames plus a stray sample
	src, err := NewMemorySource(samples, 2, 8000)
	if err != nil {
		t.Fatalf("NewMemorySource: %v", err)
	}
	if got := src.TotalFrames(); got != 5 {
		t.Fatalf("TotalFrames() = %d, want 5", got)
	}

	buf := make([]float32, 6)
	n, err := src.ReadFrames(buf, 3)
	if err != nil || n != 3 {
		t.Fatalf("first read = (%d, %v), want (3, nil)", n, err)
	}
	if buf[5] != 5 {
		t.Errorf("buf[5] = %v, want 5", buf[5])
	}

	n, _ = src.ReadFrames(buf, 3)
	if n != 2 {
		t.Fatalf("second read = %d frames, want short read of 2", n)
	}
	if buf[0] != 6 || buf[3] != 9 {
		t.Errorf("unexpected samples after short read: %v", buf[:4])
	}

	n, _ = src.ReadFrames(buf, 3)
	if n != 0 {
		t.Errorf("read past end = %d, want 0", n)
	}

	if err := src.SeekToStart(); err != nil {
		t.Fatalf("SeekToStart: %v", err)
	}
	n, _ = src.ReadFrames(buf, 1)
	if n != 1 || buf[0] != 0 || buf[1] != 1 {
		t.Errorf("after rewind got (%d, %v), want first frame", n, buf[:2])
	}
}

func TestMemorySourceRejectsBadFormat(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		rate     int
	}{
		{"zero channels", 0, 44100},
		{"negative rate", 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMemorySource(nil, tt.channels, tt.rate)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("err = %v, want ErrInvalidFormat", err)
			}
		})
	}
}

func TestMemorySourceBufferTooSmall(t *testing.T) {
	src, _ := NewMemorySource(make([]float32, 8), 2, 8000)
	if _, err := src.ReadFrames(make([]float32, 3), 2); err == nil {
		t.Error("expected an error for an undersized buffer")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	const (
		rate     = 8000
		channels = 2
		frames   = 1000
	)
	samples := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		v := float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/rate))
		samples[i*channels] = v
		samples[i*channels+1] = -v
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWAV(path, samples, rate, channels); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	src, err := OpenWAV(path)
	if err != nil {
		t.Fatalf("OpenWAV: %v", err)
	}
	defer src.Close()

	if src.SampleRate() != rate || src.Channels() != channels {
		t.Fatalf("format = %d Hz x %d, want %d Hz x %d", src.SampleRate(), src.Channels(), rate, channels)
	}
	if src.TotalFrames() != frames {
		t.Errorf("TotalFrames() = %d, want %d", src.TotalFrames(), frames)
	}

	buf := make([]float32, 256*channels)
	var read []float32
	for {
		n, err := src.ReadFrames(buf, 256)
		if err != nil {
			t.Fatalf("ReadFrames: %v", err)
		}
		read = append(read, buf[:n*channels]...)
		if n < 256 {
			break
		}
	}
	if len(read) != len(samples) {
		t.Fatalf("read %d samples, want %d", len(read), len(samples))
	}

	const tolerance = 1.0 / 16384
	for i := range samples {
		if d := math.Abs(float64(read[i] - samples[i])); d > tolerance {
			t.Fatalf("sample %d = %v, want %v (diff %v)", i, read[i], samples[i], d)
		}
	}

	if err := src.SeekToStart(); err != nil {
		t.Fatalf("SeekToStart: %v", err)
	}
	n, err := src.ReadFrames(buf, 1)
	if err != nil || n != 1 {
		t.Fatalf("read after rewind = (%d, %v)", n, err)
	}
	if buf[0] != read[0] || buf[1] != read[1] {
		t.Errorf("first frame after rewind = %v, want %v", buf[:2], read[:2])
	}
}

func TestWriteWAVClips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := WriteWAV(path, []float32{2, -2}, 8000, 1); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	src, err := OpenWAV(path)
	if err != nil {
		t.Fatalf("OpenWAV: %v", err)
	}
	defer src.Close()

	buf := make([]float32, 2)
	if n, _ := src.ReadFrames(buf, 2); n != 2 {
		t.Fatalf("read %d frames, want 2", n)
	}
	if buf[0] > 1 || buf[1] < -1 {
		t.Errorf("samples not clipped: %v", buf)
	}
}

func TestOpenWAVErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := OpenWAV(filepath.Join(dir, "missing.wav")); err == nil {
		t.Error("expected an error for a missing file")
	}

	bogus := filepath.Join(dir, "bogus.wav")
	if err := os.WriteFile(bogus, []byte("definitely not a riff header"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenWAV(bogus); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("OpenWAV(bogus) err = %v, want ErrInvalidFormat", err)
	}
}
