// SPDX-License-Identifier: MIT
package vis

import (
	"context"
	"fmt"
	"image"
	"io"

	"vampeyer/internal/audio"
	applog "vampeyer/internal/log"
)

// Host drives one renderer: it gathers the analysis results the renderer
// asks for and then has it paint an image.
type Host struct {
	renderer   Renderer
	collector  *Collector
	results    ResultSet
	sampleRate int
	processed  bool
}

// NewHost opens the renderer named by nameOrPath from reg.
func NewHost(reg *Registry, nameOrPath string, collector *Collector) (*Host, error) {
	r, err := reg.Open(nameOrPath)
	if err != nil {
		return nil, err
	}
	return &Host{renderer: r, collector: collector}, nil
}

// NewHostFor wraps an already constructed renderer.
func NewHostFor(r Renderer, collector *Collector) *Host {
	return &Host{renderer: r, collector: collector}
}

func (h *Host) Renderer() Renderer { return h.renderer }
func (h *Host) Results() ResultSet { return h.results }

// Process runs every analysis the renderer needs over src.
func (h *Host) Process(ctx context.Context, src audio.Source) error {
	refs := h.renderer.Outputs()
	applog.Infof("Renderer %s requests %d output(s)", h.renderer.Name(), len(refs))

	results, err := h.collector.Collect(ctx, src, refs)
	if err != nil {
		return err
	}
	h.results = results
	h.sampleRate = src.SampleRate()
	h.processed = true
	return nil
}

// Render paints a width x height image from the results of Process.
func (h *Host) Render(width, height int) (*image.RGBA, error) {
	if !h.processed {
		return nil, fmt.Errorf("%w: %s rendered before processing", ErrRender, h.renderer.Name())
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid image size %dx%d", ErrRender, width, height)
	}

	applog.Infof(" * Rendering %dx%d with %s", width, height, h.renderer.Name())
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if err := h.renderer.Render(img, h.results, h.sampleRate); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRender, h.renderer.Name(), err)
	}
	return img, nil
}

// Close releases the renderer if it holds resources.
func (h *Host) Close() error {
	if c, ok := h.renderer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
