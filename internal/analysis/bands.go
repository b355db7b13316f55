package analysis

import (
	"math"
	"strings"
	"time"

	"vampeyer/internal/vamp"
)

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands splits the audible range into six bands. The top band ends
// at the Nyquist frequency.
func DefaultBands(sampleRate int) []FrequencyBand {
	return []FrequencyBand{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: float64(sampleRate) / 2},
	}
}

// BandEnergy reports the energy in each of a fixed set of frequency bands.
type BandEnergy struct {
	base
	bands   []FrequencyBand
	binBand []int // band index per bin, -1 for none
	energy  []float64
	counts  []int
}

var _ vamp.Plugin = (*BandEnergy)(nil)

func NewBandEnergy(sampleRate int) *BandEnergy {
	b := &BandEnergy{
		base:  newBase("bands", "Band Energy", "Energy in six frequency bands from sub to treble", sampleRate),
		bands: DefaultBands(sampleRate),
	}
	b.domain = vamp.FrequencyDomain
	b.maxChannels = 1

	names := make([]string, len(b.bands))
	for i, band := range b.bands {
		names[i] = band.Name
	}
	b.outputs = []vamp.OutputDescriptor{{
		Identifier:       "energy",
		Name:             "Band energy",
		Description:      "Scaled RMS magnitude per band: " + strings.Join(names, ", "),
		HasFixedBinCount: true,
		BinCount:         len(b.bands),
		HasKnownExtents:  true,
		MinValue:         0,
		MaxValue:         1,
		SampleType:       vamp.OneSamplePerStep,
	}}
	b.addParam(vamp.ParameterDescriptor{
		Identifier:   "scale",
		Name:         "Scale",
		MinValue:     1,
		MaxValue:     1000,
		DefaultValue: 50,
	})
	return b
}

// Bands returns the band layout, in output bin order.
func (b *BandEnergy) Bands() []FrequencyBand { return b.bands }

func (b *BandEnergy) Initialise(channels, stepSize, blockSize int) error {
	if err := b.initialise(channels, stepSize, blockSize); err != nil {
		return err
	}
	bins := blockSize/2 + 1
	b.binBand = make([]int, bins)
	for i := range b.binBand {
		freq := float64(i) * float64(b.sampleRate) / float64(blockSize)
		b.binBand[i] = -1
		for bi, band := range b.bands {
			if freq >= band.LowHz && freq < band.HighHz {
				b.binBand[i] = bi
				break
			}
		}
	}
	b.energy = make([]float64, len(b.bands))
	b.counts = make([]int, len(b.bands))
	return nil
}

func (b *BandEnergy) Process(input [][]float32, _ time.Duration) vamp.FeatureSet {
	spec := input[0]
	norm := 2 / float64(b.blockSize)
	clear(b.energy)
	clear(b.counts)

	for i, bi := range b.binBand {
		if bi < 0 {
			continue
		}
		m := math.Hypot(float64(spec[2*i]), float64(spec[2*i+1])) * norm
		b.energy[bi] += m * m
		b.counts[bi]++
	}

	scale := float64(b.param("scale"))
	values := make([]float32, len(b.bands))
	for bi := range b.bands {
		avg := 0.0
		if b.counts[bi] > 0 {
			avg = b.energy[bi] / float64(b.counts[bi])
		}
		values[bi] = float32(math.Min(1.0, math.Sqrt(avg)*scale))
	}
	return vamp.FeatureSet{0: {feature(values...)}}
}

func (b *BandEnergy) RemainingFeatures() vamp.FeatureSet { return nil }
