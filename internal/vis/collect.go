// SPDX-License-Identifier: MIT
package vis

import (
	"context"
	"fmt"
	"io"
	"slices"

	"golang.org/x/sync/errgroup"

	"vampeyer/internal/audio"
	applog "vampeyer/internal/log"
	"vampeyer/internal/vamp"
)

// Collector runs the analyses behind a list of OutputRefs and lines their
// results up with the list.
type Collector struct {
	Loader vamp.Loader

	// Workers above 1 runs distinct configurations concurrently. Each
	// concurrent run reads from its own source obtained from Open, so
	// Open must be set for Workers to take effect.
	Workers int
	Open    func() (audio.Source, error)

	// RequireComplete turns a run cut short by a read error into a failure.
	RequireComplete bool
}

// run is the outcome of one distinct configuration.
type run struct {
	features vamp.FeatureSet
	outputs  []vamp.OutputDescriptor
}

// Collect returns one feature stream per ref, in the order of refs. Each
// distinct configuration among refs is analysed exactly once, in
// configuration order, with src rewound before every run.
func (c *Collector) Collect(ctx context.Context, src audio.Source, refs []OutputRef) (ResultSet, error) {
	if len(refs) == 0 {
		return ResultSet{}, nil
	}

	configs := distinctConfigs(refs)
	runs := make([]run, len(configs))

	var err error
	if c.Workers > 1 && c.Open != nil && len(configs) > 1 {
		err = c.runParallel(ctx, configs, runs)
	} else {
		err = c.runSequential(ctx, src, configs, runs)
	}
	if err != nil {
		return nil, err
	}

	results := make(ResultSet, len(refs))
	for i, ref := range refs {
		applog.Debugf("Collecting results for %s", ref)
		ci, found := slices.BinarySearchFunc(configs, ref.Config, vamp.Compare)
		if !found {
			// distinctConfigs covers every ref.
			panic(fmt.Sprintf("vis: configuration %s missing after deduplication", ref.Config))
		}
		out, err := outputIndex(runs[ci].outputs, ref)
		if err != nil {
			return nil, err
		}
		results[i] = runs[ci].features[out]
	}
	return results, nil
}

// distinctConfigs returns the configurations referenced by refs, sorted and
// without duplicates.
func distinctConfigs(refs []OutputRef) []vamp.AnalysisConfig {
	configs := make([]vamp.AnalysisConfig, len(refs))
	for i, ref := range refs {
		configs[i] = ref.Config
	}
	slices.SortFunc(configs, vamp.Compare)
	return slices.CompactFunc(configs, vamp.AnalysisConfig.Equal)
}

// outputIndex finds ref.Output among outputs. The first match wins.
func outputIndex(outputs []vamp.OutputDescriptor, ref OutputRef) (int, error) {
	for i, od := range outputs {
		if od.Identifier == ref.Output {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: analysis plugin %s has no output %q",
		vamp.ErrOutputNotFound, ref.Config.Key, ref.Output)
}

func (c *Collector) runSequential(ctx context.Context, src audio.Source, configs []vamp.AnalysisConfig, runs []run) error {
	for i, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := src.SeekToStart(); err != nil {
			return fmt.Errorf("failed to rewind audio before %s: %w", cfg.Key, err)
		}
		r, err := c.analyse(src, cfg)
		if err != nil {
			return err
		}
		runs[i] = r
	}
	return nil
}

func (c *Collector) runParallel(ctx context.Context, configs []vamp.AnalysisConfig, runs []run) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Workers)

	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := c.Open()
			if err != nil {
				return fmt.Errorf("failed to open audio for %s: %w", cfg.Key, err)
			}
			if closer, ok := src.(io.Closer); ok {
				defer closer.Close()
			}
			r, err := c.analyse(src, cfg)
			if err != nil {
				return err
			}
			runs[i] = r
			return nil
		})
	}
	return g.Wait()
}

// analyse runs one configuration to completion on src.
func (c *Collector) analyse(src audio.Source, cfg vamp.AnalysisConfig) (run, error) {
	applog.Infof(" * Processing analysis plugin %s", cfg)

	h, err := vamp.NewHost(src, c.Loader, cfg)
	if err != nil {
		return run{}, fmt.Errorf("analysis plugin %s could not be set up: %w", cfg.Key, err)
	}
	defer func() {
		if err := h.Close(); err != nil {
			applog.Warnf("%v", err)
		}
	}()

	h.ApplyParameters()

	fs, err := h.Run()
	if err != nil {
		return run{}, fmt.Errorf("analysis plugin %s could not process audio: %w", cfg.Key, err)
	}
	if rerr := h.ReadErr(); rerr != nil && c.RequireComplete {
		return run{}, fmt.Errorf("%w: analysis plugin %s: %w", vamp.ErrIncomplete, cfg.Key, rerr)
	}

	return run{features: fs, outputs: h.Outputs()}, nil
}
