// SPDX-License-Identifier: MIT

// Package sink writes rendered images out.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"

	applog "vampeyer/internal/log"
)

// WritePNG encodes img as a PNG file at path, replacing any existing file.
func WritePNG(path string, img image.Image) (err error) {
	if img == nil {
		return errors.New("failed to write PNG: no image")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not open %s to write PNG: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write PNG %s: %w", path, err)
	}

	b := img.Bounds()
	applog.Infof("Wrote %dx%d image to %s", b.Dx(), b.Dy(), path)
	return nil
}
