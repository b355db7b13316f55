// SPDX-License-Identifier: MIT
package vamp

import (
	"errors"
	"slices"
	"time"

	"vampeyer/internal/audio"
	"vampeyer/pkg/utils"
)

// stubPlugin records every block it is given and emits one untimed feature
// per call on output 0 holding the mean absolute value of channel 0.
type stubPlugin struct {
	id         string
	domain     InputDomain
	prefBlock  int
	prefStep   int
	outputs    []string
	params     map[string]float32
	minCh      int
	maxCh      int
	initErr    error
	initArgs   [3]int
	blocks     [][][]float32
	timestamps []time.Duration
	flushes    int
	flushOut   FeatureSet
	closed     bool
}

func newStub(id string, outputs ...string) *stubPlugin {
	if len(outputs) == 0 {
		outputs = []string{"mean"}
	}
	return &stubPlugin{id: id, outputs: outputs, params: map[string]float32{}}
}

func (s *stubPlugin) Identifier() string       { return s.id }
func (s *stubPlugin) InputDomain() InputDomain { return s.domain }
func (s *stubPlugin) PreferredBlockSize() int  { return s.prefBlock }
func (s *stubPlugin) PreferredStepSize() int   { return s.prefStep }

func (s *stubPlugin) OutputDescriptors() []OutputDescriptor {
	ods := make([]OutputDescriptor, len(s.outputs))
	for i, name := range s.outputs {
		ods[i] = OutputDescriptor{Identifier: name, HasFixedBinCount: true, BinCount: 1}
	}
	return ods
}

func (s *stubPlugin) ParameterDescriptors() []ParameterDescriptor {
	return []ParameterDescriptor{{Identifier: "gain", MaxValue: 10, DefaultValue: 1}}
}

func (s *stubPlugin) SetParameter(name string, v float32) { s.params[name] = v }

func (s *stubPlugin) Initialise(channels, step, block int) error {
	s.initArgs = [3]int{channels, step, block}
	return s.initErr
}

func (s *stubPlugin) Process(input [][]float32, ts time.Duration) FeatureSet {
	cp := make([][]float32, len(input))
	for c := range input {
		cp[c] = slices.Clone(input[c])
	}
	s.blocks = append(s.blocks, cp)
	s.timestamps = append(s.timestamps, ts)

	var sum float64
	for _, v := range input[0] {
		if v < 0 {
			v = -v
		}
		sum += float64(v)
	}
	mean := float32(sum / float64(len(input[0])))
	fs := FeatureSet{}
	for i := range s.outputs {
		fs[i] = FeatureList{{Values: []float32{mean * float32(i+1)}}}
	}
	return fs
}

func (s *stubPlugin) RemainingFeatures() FeatureSet {
	s.flushes++
	return s.flushOut
}

func (s *stubPlugin) MinChannelCount() int {
	if s.minCh == 0 {
		return 1
	}
	return s.minCh
}
func (s *stubPlugin) MaxChannelCount() int { return s.maxCh }

func (s *stubPlugin) Close() error {
	s.closed = true
	return nil
}

// stubLoader hands out a fresh stub per Load and counts instantiations.
type stubLoader struct {
	factory func(key Key) *stubPlugin
	loads   map[Key]int
	made    []*stubPlugin
	err     error
}

func newStubLoader(factory func(Key) *stubPlugin) *stubLoader {
	return &stubLoader{factory: factory, loads: map[Key]int{}}
}

func (l *stubLoader) Load(key Key, _ int) (Plugin, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.loads[key]++
	p := l.factory(key)
	l.made = append(l.made, p)
	return p, nil
}

// rampSource returns a mono source whose sample at frame i is i+1, so zero
// always means padding.
func rampSource(frames int) *audio.MemorySource {
	src, err := audio.NewMemorySource(utils.Ramp(frames), 1, 44100)
	if err != nil {
		panic(err)
	}
	return src
}

var errBrokenRead = errors.New("broken read")

// failingSource wraps a Source and fails every read after the first okReads.
type failingSource struct {
	audio.Source
	okReads int
	reads   int
}

func (f *failingSource) ReadFrames(buf []float32, n int) (int, error) {
	f.reads++
	if f.reads > f.okReads {
		return 0, errBrokenRead
	}
	return f.Source.ReadFrames(buf, n)
}
