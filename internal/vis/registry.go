// SPDX-License-Identifier: MIT
package vis

import (
	"fmt"
	"path/filepath"
	"plugin"
	"slices"
	"strings"
	"sync"

	applog "vampeyer/internal/log"
)

// RendererSymbol is the constructor an external rendering library exports.
const RendererSymbol = "NewRenderer"

// Factory creates a Renderer.
type Factory func() Renderer

// Registry holds the built-in renderers by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a renderer under name, replacing any earlier one.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns every registered renderer name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

type symbolLookup interface {
	Lookup(name string) (plugin.Symbol, error)
}

// openPlugin is a seam over plugin.Open for tests.
var openPlugin = func(path string) (symbolLookup, error) {
	return plugin.Open(path)
}

// isLibraryPath reports whether nameOrPath refers to a file rather than a
// registered name.
func isLibraryPath(nameOrPath string) bool {
	return filepath.Ext(nameOrPath) == ".so" || strings.ContainsRune(nameOrPath, filepath.Separator)
}

// Open returns the renderer registered as nameOrPath, or opens nameOrPath
// as a Go plugin exporting NewRenderer.
func (r *Registry) Open(nameOrPath string) (Renderer, error) {
	if !isLibraryPath(nameOrPath) {
		r.mu.RLock()
		f, ok := r.factories[nameOrPath]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: no renderer named %q (have %s)",
				ErrLoad, nameOrPath, strings.Join(r.Names(), ", "))
		}
		return f(), nil
	}

	applog.Infof("Loading rendering plugin %s", nameOrPath)
	lib, err := openPlugin(nameOrPath)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot load library %q: %w", ErrLoad, nameOrPath, err)
	}
	sym, err := lib.Lookup(RendererSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot load symbol %s from %q: %w", ErrLoad, RendererSymbol, nameOrPath, err)
	}

	var newRenderer func() Renderer
	switch fn := sym.(type) {
	case func() Renderer:
		newRenderer = fn
	case *func() Renderer:
		newRenderer = *fn
	default:
		return nil, fmt.Errorf("%w: %s in %q has type %T", ErrLoad, RendererSymbol, nameOrPath, sym)
	}

	rend := newRenderer()
	if rend == nil {
		return nil, fmt.Errorf("%w: %s in %q returned no renderer", ErrLoad, RendererSymbol, nameOrPath)
	}
	return rend, nil
}
