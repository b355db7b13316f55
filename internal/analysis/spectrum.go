// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"time"

	"vampeyer/internal/vamp"
)

// Spectrum turns each frequency-domain block into a magnitude spectrum, its
// centroid and its strongest and weakest bins. Magnitudes are optionally
// smoothed over time.
type Spectrum struct {
	base
	magnitude []float64
	smoothed  []float32
	primed    bool
}

var (
	_ vamp.Plugin           = (*Spectrum)(nil)
	_ vamp.WindowPreference = (*Spectrum)(nil)
)

const (
	SpectrumMagnitudes = iota
	SpectrumCentroid
	SpectrumHighest
	SpectrumLowest
)

func NewSpectrum(sampleRate int) *Spectrum {
	s := &Spectrum{base: newBase("spectrum", "Spectrum",
		"Magnitude spectrum, spectral centroid and peak and floor levels", sampleRate)}
	s.domain = vamp.FrequencyDomain
	s.prefBlock = 2048
	s.maxChannels = 1
	s.outputs = []vamp.OutputDescriptor{
		{
			Identifier:  "magnitudes",
			Name:        "Magnitudes",
			Description: "Normalised magnitude of every bin from DC to Nyquist",
			SampleType:  vamp.OneSamplePerStep,
		},
		{
			Identifier:       "centroid",
			Name:             "Spectral centroid",
			Unit:             "Hz",
			HasFixedBinCount: true,
			BinCount:         1,
			SampleType:       vamp.OneSamplePerStep,
		},
		{
			Identifier:       "highest",
			Name:             "Peak magnitude",
			HasFixedBinCount: true,
			BinCount:         1,
			SampleType:       vamp.OneSamplePerStep,
		},
		{
			Identifier:       "lowest",
			Name:             "Lowest magnitude",
			HasFixedBinCount: true,
			BinCount:         1,
			SampleType:       vamp.OneSamplePerStep,
		},
	}
	s.addParam(vamp.ParameterDescriptor{
		Identifier:   "window",
		Name:         "Window function",
		Description:  "0 Hann, 1 Bartlett-Hann, 2 Blackman, 3 Blackman-Nuttall, 4 Hamming, 5 Lanczos, 6 Nuttall, 7 Rectangular",
		MinValue:     0,
		MaxValue:     float32(vamp.Rectangular),
		DefaultValue: float32(vamp.Hann),
	})
	s.addParam(vamp.ParameterDescriptor{
		Identifier:   "smoothing",
		Name:         "Temporal smoothing",
		MinValue:     0,
		MaxValue:     0.99,
		DefaultValue: 0,
	})
	return s
}

// Window implements vamp.WindowPreference.
func (s *Spectrum) Window() vamp.WindowFunc {
	return vamp.WindowFunc(math.Round(float64(s.param("window"))))
}

func (s *Spectrum) Initialise(channels, stepSize, blockSize int) error {
	if err := s.initialise(channels, stepSize, blockSize); err != nil {
		return err
	}
	bins := blockSize/2 + 1
	s.outputs[SpectrumMagnitudes].HasFixedBinCount = true
	s.outputs[SpectrumMagnitudes].BinCount = bins
	s.magnitude = make([]float64, bins)
	s.smoothed = make([]float32, bins)
	s.primed = false
	return nil
}

// binFrequency returns the centre frequency of bin i in Hz.
func (s *Spectrum) binFrequency(i int) float64 {
	return float64(i) * float64(s.sampleRate) / float64(s.blockSize)
}

func (s *Spectrum) Process(input [][]float32, _ time.Duration) vamp.FeatureSet {
	spec := input[0]
	norm := 2 / float64(s.blockSize)
	smoothing := s.param("smoothing")

	var weighted, total, highest float64
	lowest := math.Inf(1)
	for i := range s.magnitude {
		re, im := float64(spec[2*i]), float64(spec[2*i+1])
		m := math.Hypot(re, im) * norm
		s.magnitude[i] = m
		weighted += s.binFrequency(i) * m
		total += m
		highest = max(highest, m)
		lowest = min(lowest, m)
	}

	mags := make([]float32, len(s.magnitude))
	for i, m := range s.magnitude {
		v := float32(m)
		if s.primed && smoothing > 0 {
			v = s.smoothed[i]*smoothing + v*(1-smoothing)
		}
		s.smoothed[i] = v
		mags[i] = v
	}
	s.primed = true

	var centroid float64
	if total > 0 {
		centroid = weighted / total
	}

	return vamp.FeatureSet{
		SpectrumMagnitudes: {feature(mags...)},
		SpectrumCentroid:   {feature(float32(centroid))},
		SpectrumHighest:    {feature(float32(highest))},
		SpectrumLowest:     {feature(float32(lowest))},
	}
}

func (s *Spectrum) RemainingFeatures() vamp.FeatureSet { return nil }
