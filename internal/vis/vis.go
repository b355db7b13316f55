// SPDX-License-Identifier: MIT
/*
Package vis connects rendering plugins to the analysis host.

A Renderer declares the analysis outputs it needs as an ordered list of
OutputRefs. The Collector runs each distinct analysis configuration once
and hands the Renderer a ResultSet aligned with that list, which it paints
into an RGBA image.
*/
package vis

import (
	"errors"
	"fmt"
	"image"

	"vampeyer/internal/vamp"
)

var (
	// ErrLoad reports a rendering plugin that could not be found or opened.
	ErrLoad = errors.New("failed to load rendering plugin")
	// ErrRender reports a rendering plugin failing to produce an image.
	ErrRender = errors.New("rendering plugin failed")
)

// OutputRef names one feature stream: an analysis configuration and the
// identifier of one of its outputs.
type OutputRef struct {
	Config vamp.AnalysisConfig
	Output string
}

func (r OutputRef) String() string {
	return fmt.Sprintf("%s:%s", r.Config.Key, r.Output)
}

// Ref is shorthand for an OutputRef on a plugin with default sizes.
func Ref(key vamp.Key, output string, params ...vamp.Parameter) OutputRef {
	return OutputRef{
		Config: vamp.AnalysisConfig{Key: key, Parameters: params},
		Output: output,
	}
}

// ResultSet holds one feature stream per requested OutputRef, in request
// order.
type ResultSet []vamp.FeatureList

// Renderer turns feature streams into an image.
type Renderer interface {
	Name() string
	// Outputs lists the streams Render expects, in ResultSet order.
	Outputs() []OutputRef
	// Render paints dst. results holds one entry per Outputs element.
	Render(dst *image.RGBA, results ResultSet, sampleRate int) error
}
