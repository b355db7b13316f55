// SPDX-License-Identifier: MIT
package vis

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"plugin"
	"reflect"
	"sync"
	"testing"

	"vampeyer/internal/analysis"
	"vampeyer/internal/audio"
	"vampeyer/internal/vamp"
	"vampeyer/pkg/utils"
)

// countingLoader loads built-in plugins and counts instantiations per key.
type countingLoader struct {
	inner *vamp.Registry
	mu    sync.Mutex
	loads map[vamp.Key]int
}

func newCountingLoader() *countingLoader {
	reg := vamp.NewRegistry()
	analysis.Register(reg)
	return &countingLoader{inner: reg, loads: map[vamp.Key]int{}}
}

func (l *countingLoader) Load(key vamp.Key, rate int) (vamp.Plugin, error) {
	l.mu.Lock()
	l.loads[key]++
	l.mu.Unlock()
	return l.inner.Load(key, rate)
}

func (l *countingLoader) total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.loads {
		n += c
	}
	return n
}

const testRate = 8000

func testSamples() []float32 {
	s := utils.Sine(440, testRate, 0.8, testRate/2)
	// a silent half second after the tone
	return append(s, make([]float32, testRate/2)...)
}

func testSource(t testing.TB) *audio.MemorySource {
	t.Helper()
	src, err := audio.NewMemorySource(testSamples(), 1, testRate)
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func TestCollectDeduplicates(t *testing.T) {
	loader := newCountingLoader()
	c := &Collector{Loader: loader}

	refs := []OutputRef{
		Ref(analysis.Key("energy"), "rms"),
		Ref(analysis.Key("peaks"), "peaks"),
		Ref(analysis.Key("energy"), "silence"),
	}
	results, err := c.Collect(context.Background(), testSource(t), refs)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(results) != len(refs) {
		t.Fatalf("got %d results, want %d", len(results), len(refs))
	}
	if got := loader.loads[analysis.Key("energy")]; got != 1 {
		t.Errorf("energy loaded %d times, want 1", got)
	}
	if got := loader.total(); got != 2 {
		t.Errorf("total loads = %d, want 2", got)
	}
	if len(results[0]) == 0 || len(results[1]) == 0 {
		t.Error("rms or peaks stream is empty")
	}
	if len(results[2]) != 1 {
		t.Errorf("silence stream has %d regions, want 1", len(results[2]))
	}
}

func TestCollectSharesSpectrum(t *testing.T) {
	loader := newCountingLoader()
	c := &Collector{Loader: loader}

	spectrum := analysis.Key("spectrum")
	refs := []OutputRef{Ref(spectrum, "highest"), Ref(spectrum, "lowest"), Ref(spectrum, "centroid")}
	results, err := c.Collect(context.Background(), testSource(t), refs)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := loader.total(); got != 1 {
		t.Errorf("total loads = %d, want 1", got)
	}
	for i, r := range results {
		if len(r) == 0 || len(r) != len(results[0]) {
			t.Errorf("stream %d has %d frames, want %d", i, len(r), len(results[0]))
		}
	}
}

func TestCollectDistinguishesParameters(t *testing.T) {
	loader := newCountingLoader()
	c := &Collector{Loader: loader}

	refs := []OutputRef{
		Ref(analysis.Key("energy"), "silence", vamp.Parameter{Name: "gate", Value: 0.01}),
		Ref(analysis.Key("energy"), "silence", vamp.Parameter{Name: "gate", Value: 0.9}),
		{Config: vamp.AnalysisConfig{Key: analysis.Key("energy"), BlockSize: 512}, Output: "rms"},
	}
	if _, err := c.Collect(context.Background(), testSource(t), refs); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := loader.loads[analysis.Key("energy")]; got != 3 {
		t.Errorf("energy loaded %d times, want 3", got)
	}
}

func TestCollectRepeatedRefs(t *testing.T) {
	c := &Collector{Loader: newCountingLoader()}
	x := Ref(analysis.Key("peaks"), "peaks")
	y := Ref(analysis.Key("amplitude"), "amplitude")

	results, err := c.Collect(context.Background(), testSource(t), []OutputRef{x, y, x})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !reflect.DeepEqual(results[0], results[2]) {
		t.Error("repeated ref produced a different stream")
	}
	if reflect.DeepEqual(results[0], results[1]) {
		t.Error("distinct refs produced the same stream")
	}
}

func TestCollectOutputLookup(t *testing.T) {
	c := &Collector{Loader: newCountingLoader()}
	src := testSource(t)

	results, err := c.Collect(context.Background(), src, []OutputRef{Ref(analysis.Key("energy"), "mean")})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	direct := runDirect(t, analysis.Key("energy"))
	if !reflect.DeepEqual(results[0], direct[analysis.EnergyMean]) {
		t.Error("\"mean\" did not resolve to output 1")
	}

	_, err = c.Collect(context.Background(), src, []OutputRef{Ref(analysis.Key("energy"), "nope")})
	if !errors.Is(err, vamp.ErrOutputNotFound) {
		t.Errorf("missing output err = %v, want ErrOutputNotFound", err)
	}
}

// runDirect analyses a fresh source with key and default sizes.
func runDirect(t *testing.T, key vamp.Key) vamp.FeatureSet {
	t.Helper()
	h, err := vamp.NewHost(testSource(t), newCountingLoader(), vamp.AnalysisConfig{Key: key})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	fs, err := h.Run()
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestCollectRewindsBetweenRuns(t *testing.T) {
	c := &Collector{Loader: newCountingLoader()}
	keys := []string{"peaks", "amplitude", "energy"}
	refs := make([]OutputRef, len(keys))
	for i, k := range keys {
		refs[i] = Ref(analysis.Key(k), k)
	}
	refs[2].Output = "rms"

	// leave the shared source at end of stream before collecting
	src := testSource(t)
	buf := make([]float32, 1024)
	for {
		if n, _ := src.ReadFrames(buf, len(buf)); n == 0 {
			break
		}
	}

	results, err := c.Collect(context.Background(), src, refs)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for i, k := range keys {
		fs := runDirect(t, analysis.Key(k))
		if !reflect.DeepEqual(results[i], fs[0]) {
			t.Errorf("%s differs from an independent run", k)
		}
	}
}

func TestCollectParallelMatchesSequential(t *testing.T) {
	refs := []OutputRef{
		Ref(analysis.Key("spectrum"), "centroid"),
		Ref(analysis.Key("peaks"), "peaks"),
		Ref(analysis.Key("bands"), "energy"),
		Ref(analysis.Key("energy"), "onsets"),
		Ref(analysis.Key("spectrum"), "magnitudes"),
	}

	seq := &Collector{Loader: newCountingLoader()}
	want, err := seq.Collect(context.Background(), testSource(t), refs)
	if err != nil {
		t.Fatalf("sequential Collect: %v", err)
	}

	loader := newCountingLoader()
	par := &Collector{
		Loader:  loader,
		Workers: 3,
		Open:    func() (audio.Source, error) { return testSource(t), nil },
	}
	got, err := par.Collect(context.Background(), nil, refs)
	if err != nil {
		t.Fatalf("parallel Collect: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Error("parallel results differ from sequential")
	}
	if n := loader.total(); n != 4 {
		t.Errorf("parallel loads = %d, want 4", n)
	}
}

func TestCollectEmpty(t *testing.T) {
	loader := newCountingLoader()
	c := &Collector{Loader: loader}
	results, err := c.Collect(context.Background(), testSource(t), nil)
	if err != nil {
		t.Fatalf("Collect(nil): %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("Collect(nil) = %#v, want empty ResultSet", results)
	}
	if loader.total() != 0 {
		t.Error("empty request loaded a plugin")
	}
}

func TestCollectErrors(t *testing.T) {
	t.Run("unknown plugin", func(t *testing.T) {
		c := &Collector{Loader: newCountingLoader()}
		_, err := c.Collect(context.Background(), testSource(t),
			[]OutputRef{Ref(vamp.Key{Library: "nowhere", Identifier: "x"}, "y")})
		if !errors.Is(err, vamp.ErrLoad) {
			t.Errorf("err = %v, want ErrLoad", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := &Collector{Loader: newCountingLoader()}
		_, err := c.Collect(ctx, testSource(t), []OutputRef{Ref(analysis.Key("peaks"), "peaks")})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})

	t.Run("incomplete", func(t *testing.T) {
		refs := []OutputRef{Ref(analysis.Key("peaks"), "peaks")}

		lenient := &Collector{Loader: newCountingLoader()}
		results, err := lenient.Collect(context.Background(), &brokenSource{Source: testSource(t), okReads: 2}, refs)
		if err != nil {
			t.Fatalf("lenient Collect: %v", err)
		}
		if len(results[0]) == 0 {
			t.Error("partial results were dropped")
		}

		strict := &Collector{Loader: newCountingLoader(), RequireComplete: true}
		_, err = strict.Collect(context.Background(), &brokenSource{Source: testSource(t), okReads: 2}, refs)
		if !errors.Is(err, vamp.ErrIncomplete) {
			t.Errorf("strict err = %v, want ErrIncomplete", err)
		}
	})
}

type brokenSource struct {
	audio.Source
	okReads int
	reads   int
}

func (b *brokenSource) ReadFrames(buf []float32, n int) (int, error) {
	b.reads++
	if b.reads > b.okReads {
		return 0, errors.New("device unplugged")
	}
	return b.Source.ReadFrames(buf, n)
}

// fillRenderer paints every pixel with a grey level taken from the number
// of features it was given.
type fillRenderer struct {
	refs   []OutputRef
	err    error
	got    ResultSet
	rate   int
	closed bool
}

func (f *fillRenderer) Name() string         { return "fill" }
func (f *fillRenderer) Outputs() []OutputRef { return f.refs }

func (f *fillRenderer) Close() error {
	f.closed = true
	return nil
}

func (f *fillRenderer) Render(dst *image.RGBA, results ResultSet, rate int) error {
	if f.err != nil {
		return f.err
	}
	f.got, f.rate = results, rate
	grey := color.RGBA{uint8(len(results[0]) % 256), 0, 0, 255}
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetRGBA(x, y, grey)
		}
	}
	return nil
}

func TestHostRender(t *testing.T) {
	r := &fillRenderer{refs: []OutputRef{Ref(analysis.Key("peaks"), "peaks")}}
	h := NewHostFor(r, &Collector{Loader: newCountingLoader()})

	if _, err := h.Render(10, 10); !errors.Is(err, ErrRender) {
		t.Errorf("Render before Process err = %v, want ErrRender", err)
	}
	if err := h.Process(context.Background(), testSource(t)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := h.Render(0, 10); !errors.Is(err, ErrRender) {
		t.Errorf("Render(0, 10) err = %v, want ErrRender", err)
	}

	img, err := h.Render(30, 20)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds().Dx() != 30 || img.Bounds().Dy() != 20 {
		t.Errorf("image is %v, want 30x20", img.Bounds())
	}
	if r.rate != testRate {
		t.Errorf("renderer saw rate %d, want %d", r.rate, testRate)
	}
	if img.RGBAAt(29, 19).R != uint8(len(r.got[0])%256) {
		t.Error("renderer output not in returned image")
	}

	r.err = errors.New("out of ink")
	if _, err := h.Render(5, 5); !errors.Is(err, ErrRender) || !errors.Is(err, r.err) {
		t.Errorf("failing render err = %v, want ErrRender wrapping cause", err)
	}
	if err := h.Close(); err != nil || !r.closed {
		t.Errorf("Close() = %v, closed = %v", err, r.closed)
	}
}

type fakeLibrary map[string]plugin.Symbol

func (f fakeLibrary) Lookup(name string) (plugin.Symbol, error) {
	if s, ok := f[name]; ok {
		return s, nil
	}
	return nil, errors.New("symbol not found")
}

func TestRegistryOpen(t *testing.T) {
	newFill := func() Renderer { return &fillRenderer{} }
	libs := map[string]fakeLibrary{
		"direct.so":  {RendererSymbol: newFill},
		"pointer.so": {RendererSymbol: &newFill},
		"wrong.so":   {RendererSymbol: "not a constructor"},
		"nil.so":     {RendererSymbol: func() Renderer { return nil }},
		"empty.so":   {},
	}
	orig := openPlugin
	openPlugin = func(path string) (symbolLookup, error) {
		lib, ok := libs[filepath.Base(path)]
		if !ok {
			return nil, os.ErrNotExist
		}
		return lib, nil
	}
	t.Cleanup(func() { openPlugin = orig })

	reg := NewRegistry()
	reg.Register("fill", newFill)

	tests := []struct {
		name    string
		wantErr bool
	}{
		{"fill", false},
		{"absent", true},
		{"direct.so", false},
		{"/opt/renderers/pointer.so", false},
		{"wrong.so", true},
		{"nil.so", true},
		{"empty.so", true},
		{"missing.so", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := reg.Open(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrLoad) {
					t.Errorf("Open(%q) err = %v, want ErrLoad", tt.name, err)
				}
				return
			}
			if err != nil || r.Name() != "fill" {
				t.Errorf("Open(%q) = %v, %v", tt.name, r, err)
			}
		})
	}
}

func TestOutputRefString(t *testing.T) {
	ref := Ref(analysis.Key("energy"), "rms")
	if got := ref.String(); got != "vampeyer:energy:rms" {
		t.Errorf("String() = %q", got)
	}
}

func BenchmarkCollect(b *testing.B) {
	refs := []OutputRef{
		Ref(analysis.Key("peaks"), "peaks"),
		Ref(analysis.Key("energy"), "rms"),
		Ref(analysis.Key("energy"), "silence"),
	}
	c := &Collector{Loader: newCountingLoader()}
	src := testSource(b)
	b.ReportAllocs()
	b.ResetTimer()
	for iter := 0; iter < b.N; iter++ {
		if _, err := c.Collect(context.Background(), src, refs); err != nil {
			b.Fatal(err)
		}
	}
}
