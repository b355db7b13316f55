// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

	"vampeyer/internal/vamp"
)

// Output indices of MFCC.
const (
	MFCCCoefficients = iota
	MFCCMeans
)

const (
	melFilterCount = 40
	// log floor, keeps silence finite
	melLogFloor = 1e-5
)

// melFilter is one triangular filter of the mel filterbank. Weights apply to
// the bins starting at first.
type melFilter struct {
	centre  float64
	first   int
	weights []float64
}

func hzToMel(hz float64) float64  { return 2595 * math.Log10(1+hz/700) }
func melToHz(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

// newMelFilterbank spreads n triangular filters evenly on the mel scale from
// DC to the Nyquist frequency of a blockSize-point transform.
func newMelFilterbank(sampleRate, blockSize, n int) []melFilter {
	nyquist := float64(sampleRate) / 2
	hzPerBin := float64(sampleRate) / float64(blockSize)
	bins := blockSize/2 + 1

	top := hzToMel(nyquist)
	edges := make([]float64, n+2)
	for i := range edges {
		edges[i] = melToHz(top * float64(i) / float64(n+1))
	}

	filters := make([]melFilter, n)
	for f := range filters {
		lo, centre, hi := edges[f], edges[f+1], edges[f+2]
		filters[f].centre = centre
		for i := 0; i < bins; i++ {
			hz := float64(i) * hzPerBin
			var w float64
			switch {
			case hz > lo && hz <= centre:
				w = (hz - lo) / (centre - lo)
			case hz > centre && hz < hi:
				w = (hi - hz) / (hi - centre)
			}
			if w <= 0 {
				if len(filters[f].weights) > 0 {
					break
				}
				continue
			}
			if len(filters[f].weights) == 0 {
				filters[f].first = i
			}
			filters[f].weights = append(filters[f].weights, w)
		}
	}
	return filters
}

// apply returns the weighted sum of the magnitudes under f.
func (f melFilter) apply(mags []float64) float64 {
	var sum float64
	for i, w := range f.weights {
		sum += w * mags[f.first+i]
	}
	return sum
}

// MFCC computes mel-frequency cepstral coefficients: the orthonormal DCT-II
// of the log energies of a 40-band mel filterbank.
type MFCC struct {
	base
	filters []melFilter
	dct     *fourier.QuarterWaveFFT
	mags    []float64
	logs    []float64
	cepstra []float64
	sums    []float64
	steps   int
}

var (
	_ vamp.Plugin           = (*MFCC)(nil)
	_ vamp.WindowPreference = (*MFCC)(nil)
)

func NewMFCC(sampleRate int) *MFCC {
	m := &MFCC{base: newBase("mfcc", "MFCC", "Mel-frequency cepstral coefficients", sampleRate)}
	m.domain = vamp.FrequencyDomain
	m.prefBlock = 2048
	m.prefStep = 1024
	m.maxChannels = 1
	m.outputs = []vamp.OutputDescriptor{
		{
			Identifier:  "coefficients",
			Name:        "Coefficients",
			Description: "Cepstral coefficients, lowest first",
			SampleType:  vamp.OneSamplePerStep,
		},
		{
			Identifier:  "means",
			Name:        "Coefficient means",
			Description: "Mean of each coefficient over the whole input",
			SampleType:  vamp.VariableSampleRate,
		},
	}
	m.addParam(vamp.ParameterDescriptor{
		Identifier:   "coefficients",
		Name:         "Number of coefficients",
		MinValue:     1,
		MaxValue:     melFilterCount,
		DefaultValue: 20,
	})
	m.addParam(vamp.ParameterDescriptor{
		Identifier:   "includeC0",
		Name:         "Include C0",
		Description:  "1 to report the overall log energy as the first coefficient",
		MinValue:     0,
		MaxValue:     1,
		DefaultValue: 0,
	})
	return m
}

// Window implements vamp.WindowPreference.
func (m *MFCC) Window() vamp.WindowFunc { return vamp.Hamming }

// count is the number of coefficients reported per step. Without C0 there is
// one fewer available.
func (m *MFCC) count() int {
	n := int(math.Round(float64(m.param("coefficients"))))
	return min(n, melFilterCount-m.skip())
}

// skip is the index of the first coefficient reported.
func (m *MFCC) skip() int {
	if m.param("includeC0") >= 0.5 {
		return 0
	}
	return 1
}

func (m *MFCC) Initialise(channels, stepSize, blockSize int) error {
	if err := m.initialise(channels, stepSize, blockSize); err != nil {
		return err
	}
	n := m.count()
	for i := range m.outputs {
		m.outputs[i].HasFixedBinCount = true
		m.outputs[i].BinCount = n
	}
	m.filters = newMelFilterbank(m.sampleRate, blockSize, melFilterCount)
	m.dct = fourier.NewQuarterWaveFFT(melFilterCount)
	m.mags = make([]float64, blockSize/2+1)
	m.logs = make([]float64, melFilterCount)
	m.cepstra = make([]float64, melFilterCount)
	m.sums = make([]float64, n)
	m.steps = 0
	return nil
}

// dctII writes the orthonormal DCT-II of src into dst. CosSequence yields
// four times the unscaled transform.
func dctII(t *fourier.QuarterWaveFFT, dst, src []float64) {
	t.CosSequence(dst, src)
	n := float64(len(dst))
	for i := range dst {
		s := math.Sqrt(2 / n)
		if i == 0 {
			s = math.Sqrt(1 / n)
		}
		dst[i] *= s / 4
	}
}

func (m *MFCC) Process(input [][]float32, _ time.Duration) vamp.FeatureSet {
	spec := input[0]
	norm := 2 / float64(m.blockSize)
	for i := range m.mags {
		m.mags[i] = math.Hypot(float64(spec[2*i]), float64(spec[2*i+1])) * norm
	}
	for f, filter := range m.filters {
		m.logs[f] = math.Log10(max(filter.apply(m.mags), melLogFloor))
	}
	dctII(m.dct, m.cepstra, m.logs)

	skip := m.skip()
	values := make([]float32, len(m.sums))
	for i := range values {
		c := m.cepstra[skip+i]
		values[i] = float32(c)
		m.sums[i] += c
	}
	m.steps++
	return vamp.FeatureSet{MFCCCoefficients: {feature(values...)}}
}

// RemainingFeatures reports the per-coefficient means, stamped at zero.
func (m *MFCC) RemainingFeatures() vamp.FeatureSet {
	if m.steps == 0 {
		return nil
	}
	means := make([]float32, len(m.sums))
	for i, s := range m.sums {
		means[i] = float32(s / float64(m.steps))
	}
	return vamp.FeatureSet{MFCCMeans: {timedFeature(0, means...)}}
}
