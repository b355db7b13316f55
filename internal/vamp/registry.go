// SPDX-License-Identifier: MIT
package vamp

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"slices"
	"sync"

	applog "vampeyer/internal/log"
)

// LibrarySymbol is the function an external analysis library exports. It is
// called once with the registry the library should add its plugins to.
const LibrarySymbol = "RegisterAnalysis"

// Factory creates a fresh plugin instance for the given sample rate.
type Factory func(sampleRate int) (Plugin, error)

// Loader creates plugin instances by key. Every call returns a new instance
// owned by the caller.
type Loader interface {
	Load(key Key, sampleRate int) (Plugin, error)
}

// Registry is a Loader over registered factories. The zero value is not
// usable, create one with NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[Key]Factory
	libraries []string
}

var _ Loader = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{factories: make(map[Key]Factory)}
}

// Register adds a factory under library:identifier, replacing any earlier
// registration for the same key.
func (r *Registry) Register(library, identifier string, f Factory) {
	key := Key{Library: library, Identifier: identifier}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[key]; dup {
		applog.Warnf("Analysis plugin %s registered twice, keeping the latest", key)
	}
	r.factories[key] = f
}

// Keys returns every registered key in sorted order.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	keys := make([]Key, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	slices.SortFunc(keys, func(a, b Key) int {
		return Compare(AnalysisConfig{Key: a}, AnalysisConfig{Key: b})
	})
	return keys
}

// Libraries returns the paths of the external libraries opened so far.
func (r *Registry) Libraries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.libraries)
}

// Load instantiates the plugin registered under key.
func (r *Registry) Load(key Key, sampleRate int) (Plugin, error) {
	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s is not registered", ErrLoad, key)
	}
	p, err := f(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, key, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s: factory returned no plugin", ErrLoad, key)
	}
	return p, nil
}

// openPlugin is a seam over plugin.Open for tests.
var openPlugin = func(path string) (symbolLookup, error) {
	return plugin.Open(path)
}

type symbolLookup interface {
	Lookup(name string) (plugin.Symbol, error)
}

// OpenLibrary opens a Go plugin shared object and lets it register its
// analysis plugins.
func (r *Registry) OpenLibrary(path string) error {
	lib, err := openPlugin(path)
	if err != nil {
		return fmt.Errorf("%w: failed to open library %q: %w", ErrLoad, path, err)
	}
	sym, err := lib.Lookup(LibrarySymbol)
	if err != nil {
		return fmt.Errorf("%w: library %q does not export %s: %w", ErrLoad, path, LibrarySymbol, err)
	}

	var register func(*Registry)
	switch fn := sym.(type) {
	case func(*Registry):
		register = fn
	case *func(*Registry):
		register = *fn
	default:
		return fmt.Errorf("%w: library %q exports %s with type %T", ErrLoad, path, LibrarySymbol, sym)
	}

	register(r)

	r.mu.Lock()
	r.libraries = append(r.libraries, path)
	r.mu.Unlock()

	applog.Infof("Loaded analysis library %s", path)
	return nil
}

// LoadDir opens every "*.so" file in dir. A missing directory is not an
// error; a library that fails to open is logged and skipped.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			applog.Debugf("Analysis plugin directory %s does not exist", dir)
			return nil
		}
		return fmt.Errorf("failed to read plugin directory %q: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".so" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := r.OpenLibrary(path); err != nil {
			applog.Warnf("Skipping analysis library: %v", err)
		}
	}
	return nil
}
