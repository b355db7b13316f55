package config

import (
	"errors"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"600x200", 600, 200, false},
		{"1920X1080", 1920, 1080, false},
		{" 32x32 ", 32, 32, false},
		{"600", 0, 0, true},
		{"x200", 0, 0, true},
		{"600x", 0, 0, true},
		{"0x200", 0, 0, true},
		{"-5x10", 0, 0, true},
		{"axb", 0, 0, true},
		{"20000x10", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, h, err := ParseSize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
			if w != tt.w || h != tt.h {
				t.Errorf("ParseSize(%q) = %dx%d, want %dx%d", tt.in, w, h, tt.w, tt.h)
			}
		})
	}
}

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()
	if c.Width != DefaultWidth || c.Height != DefaultHeight {
		t.Errorf("size = %dx%d", c.Width, c.Height)
	}
	if c.Analysis.Workers != DefaultWorkers || c.LogLevel != DefaultLogLevel {
		t.Errorf("analysis/log defaults wrong: %+v", c)
	}
	if c.Transport.UDPSendInterval != DefaultUDPInterval {
		t.Errorf("udp interval = %v", c.Transport.UDPSendInterval)
	}
}
