// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"vampeyer/internal/vamp"
	"vampeyer/internal/vis"
)

// listSampleRate is only used to instantiate plugins for their descriptors.
const listSampleRate = 44100

// List writes every analysis plugin in analyses, with its outputs and
// parameters, followed by the renderers in renderers.
func List(w io.Writer, analyses *vamp.Registry, renderers *vis.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "Analysis plugins:")
	for _, key := range analyses.Keys() {
		p, err := analyses.Load(key, listSampleRate)
		if err != nil {
			fmt.Fprintf(tw, "  %s\t(failed to load: %v)\n", key, err)
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s domain\n", key, p.InputDomain())
		for _, o := range p.OutputDescriptors() {
			unit := ""
			if o.Unit != "" {
				unit = " [" + o.Unit + "]"
			}
			fmt.Fprintf(tw, "    output %s\t%s%s\n", o.Identifier, o.Name, unit)
		}
		for _, pd := range p.ParameterDescriptors() {
			fmt.Fprintf(tw, "    param %s\t%s (%g to %g, default %g)\n",
				pd.Identifier, pd.Name, pd.MinValue, pd.MaxValue, pd.DefaultValue)
		}
		if c, ok := p.(io.Closer); ok {
			c.Close()
		}
	}
	if libs := analyses.Libraries(); len(libs) > 0 {
		fmt.Fprintln(tw, "\nExternal libraries:")
		for _, l := range libs {
			fmt.Fprintf(tw, "  %s\n", l)
		}
	}

	fmt.Fprintln(tw, "\nRenderers:")
	for _, name := range renderers.Names() {
		r, err := renderers.Open(name)
		if err != nil {
			fmt.Fprintf(tw, "  %s\t(failed to open: %v)\n", name, err)
			continue
		}
		refs := r.Outputs()
		for i, ref := range refs {
			label := ""
			if i == 0 {
				label = name
			}
			fmt.Fprintf(tw, "  %s\t%s\n", label, ref)
		}
		if c, ok := r.(io.Closer); ok {
			c.Close()
		}
	}
	return tw.Flush()
}
