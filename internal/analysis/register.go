// SPDX-License-Identifier: MIT
/*
Package analysis provides the built-in analysis plugins, registered under
the "vampeyer" library:

	peaks      per-step minimum and maximum
	amplitude  attack/release envelope follower
	spectrum   magnitude spectrum, centroid, peak and floor (frequency domain)
	bands      six-band energy (frequency domain)
	mfcc       mel-frequency cepstral coefficients (frequency domain)
	energy     RMS and mean level, onsets, silent regions

All of them analyse a single channel; the host mixes multi-channel input
down before it reaches them.
*/
package analysis

import (
	"vampeyer/internal/vamp"
)

// Register adds every built-in plugin to r.
func Register(r *vamp.Registry) {
	r.Register(Library, "peaks", func(rate int) (vamp.Plugin, error) { return NewPeaks(rate), nil })
	r.Register(Library, "amplitude", func(rate int) (vamp.Plugin, error) { return NewAmplitudeFollower(rate), nil })
	r.Register(Library, "spectrum", func(rate int) (vamp.Plugin, error) { return NewSpectrum(rate), nil })
	r.Register(Library, "bands", func(rate int) (vamp.Plugin, error) { return NewBandEnergy(rate), nil })
	r.Register(Library, "energy", func(rate int) (vamp.Plugin, error) { return NewEnergy(rate), nil })
	r.Register(Library, "mfcc", func(rate int) (vamp.Plugin, error) { return NewMFCC(rate), nil })
}

// Key returns the registry key of the built-in plugin id.
func Key(id string) vamp.Key {
	return vamp.Key{Library: Library, Identifier: id}
}
