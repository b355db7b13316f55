// SPDX-License-Identifier: MIT
/*
Package vamp hosts analysis plugins over a Frame Source.

An analysis plugin consumes fixed-size, possibly overlapping blocks of audio
and emits named streams of timestamped features. The Host drives one plugin
instance over an entire stream with a block size and step size of the
caller's choosing, taking care of overlap, tail padding and timestamps.
Plugins are obtained through a Loader, normally a Registry holding built-in
factories plus libraries opened from disk.
*/
package vamp

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

var (
	// ErrLoad reports an analysis plugin that could not be found or created.
	ErrLoad = errors.New("failed to load analysis plugin")
	// ErrNoOutputs reports a plugin that describes no outputs.
	ErrNoOutputs = errors.New("analysis plugin has no outputs")
	// ErrOutputNotFound reports a requested output name the plugin lacks.
	ErrOutputNotFound = errors.New("analysis plugin output not found")
	// ErrInitialise reports a plugin rejecting its channel/step/block setup.
	ErrInitialise = errors.New("analysis plugin initialise failed")
	// ErrConfig reports an invalid analysis configuration.
	ErrConfig = errors.New("invalid analysis configuration")
	// ErrIncomplete reports a run cut short by a source read error.
	ErrIncomplete = errors.New("analysis run incomplete")
)

// InputDomain is the kind of input a plugin expects from Process.
type InputDomain int

const (
	TimeDomain InputDomain = iota
	FrequencyDomain
)

func (d InputDomain) String() string {
	switch d {
	case TimeDomain:
		return "time"
	case FrequencyDomain:
		return "frequency"
	default:
		return fmt.Sprintf("InputDomain(%d)", int(d))
	}
}

// Key names a plugin inside a library, written "library:identifier".
type Key struct {
	Library    string
	Identifier string
}

// ParseKey splits "library:identifier". Both halves must be non-empty.
func ParseKey(s string) (Key, error) {
	lib, id, ok := strings.Cut(s, ":")
	if !ok || lib == "" || id == "" {
		return Key{}, fmt.Errorf("%w: plugin key %q is not of the form library:identifier", ErrConfig, s)
	}
	return Key{Library: lib, Identifier: id}, nil
}

func (k Key) String() string { return k.Library + ":" + k.Identifier }

// Parameter is a single named parameter assignment.
type Parameter struct {
	Name  string
	Value float32
}

// AnalysisConfig identifies one configured plugin instance. A zero block or
// step size means "use the plugin's preference". Parameters are applied in
// order and compared as an ordered sequence.
type AnalysisConfig struct {
	Key        Key
	BlockSize  int
	StepSize   int
	Parameters []Parameter
}

// Compare orders configs by library, identifier, block size, step size and
// then parameter sequence. It returns -1, 0 or +1.
func Compare(a, b AnalysisConfig) int {
	if c := cmp.Compare(a.Key.Library, b.Key.Library); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Key.Identifier, b.Key.Identifier); c != 0 {
		return c
	}
	if c := cmp.Compare(a.BlockSize, b.BlockSize); c != 0 {
		return c
	}
	if c := cmp.Compare(a.StepSize, b.StepSize); c != 0 {
		return c
	}
	return slices.CompareFunc(a.Parameters, b.Parameters, func(x, y Parameter) int {
		if c := cmp.Compare(x.Name, y.Name); c != 0 {
			return c
		}
		return cmp.Compare(x.Value, y.Value)
	})
}

// Equal reports whether a and b describe the same plugin instance.
func (a AnalysisConfig) Equal(b AnalysisConfig) bool { return Compare(a, b) == 0 }

func (a AnalysisConfig) String() string {
	var sb strings.Builder
	sb.WriteString(a.Key.String())
	if a.BlockSize != 0 || a.StepSize != 0 {
		fmt.Fprintf(&sb, " [block %d, step %d]", a.BlockSize, a.StepSize)
	}
	for _, p := range a.Parameters {
		fmt.Fprintf(&sb, " %s=%g", p.Name, p.Value)
	}
	return sb.String()
}

// Feature is one frame of output. Plugins may leave the timestamp unset, in
// which case the host stamps it with the time of the block that produced it.
type Feature struct {
	HasTimestamp bool
	Timestamp    time.Duration
	HasDuration  bool
	Duration     time.Duration
	Values       []float32
	Label        string
}

// FeatureList is the ordered stream of features for one output.
type FeatureList []Feature

// FeatureSet maps an output index to the features produced for it.
type FeatureSet map[int]FeatureList

// Append adds every list in other to fs, preserving order.
func (fs FeatureSet) Append(other FeatureSet) {
	for out, list := range other {
		fs[out] = append(fs[out], list...)
	}
}

// SampleType describes how an output's features are spaced in time.
type SampleType int

const (
	// OneSamplePerStep outputs emit one feature per process call.
	OneSamplePerStep SampleType = iota
	// FixedSampleRate outputs emit at their own fixed rate.
	FixedSampleRate
	// VariableSampleRate outputs emit sparse, explicitly timestamped events.
	VariableSampleRate
)

// OutputDescriptor describes one feature stream of a plugin.
type OutputDescriptor struct {
	Identifier       string
	Name             string
	Description      string
	Unit             string
	HasFixedBinCount bool
	BinCount         int
	HasKnownExtents  bool
	MinValue         float32
	MaxValue         float32
	SampleType       SampleType
	HasDuration      bool
}

// ParameterDescriptor describes one adjustable plugin parameter.
type ParameterDescriptor struct {
	Identifier   string
	Name         string
	Description  string
	Unit         string
	MinValue     float32
	MaxValue     float32
	DefaultValue float32
}

// FrameToRealTime converts a frame position at sampleRate into a duration,
// rounded to the nearest nanosecond.
func FrameToRealTime(frame int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	rate := int64(sampleRate)
	sec := frame / rate
	rem := frame % rate
	nsec := math.Round(float64(rem) * float64(time.Second) / float64(rate))
	return time.Duration(sec)*time.Second + time.Duration(nsec)
}

// RealTimeToFrame is the inverse of FrameToRealTime, rounding to the nearest
// frame.
func RealTimeToFrame(t time.Duration, sampleRate int) int64 {
	return int64(math.Round(t.Seconds() * float64(sampleRate)))
}
