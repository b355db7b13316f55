// SPDX-License-Identifier: MIT
//
// Package build carries the metadata stamped into the vampeyer binary at
// link time:
//
//	go build -ldflags "-X vampeyer/pkg/build.buildVersion=0.3.0 -X vampeyer/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Unstamped development builds still run. Initialize fills the gaps with
// placeholders and reports which flags were missing.
package build

import (
	"errors"
	"fmt"
)

const (
	DefaultName        = "vampeyer"
	DefaultDescription = "Render audio files as images from streamed feature analysis"
	unknown            = "unknown"
)

// ErrMissingFlag is wrapped once for every link-time flag left unset.
var ErrMissingFlag = errors.New("build flag not set")

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders the one-line version banner.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultFlags()
)

func defaultFlags() *ldFlags {
	return &ldFlags{
		Name:        DefaultName,
		Description: DefaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     "dev",
	}
}

// Initialize copies the link-time variables into the build information.
// Missing values keep their placeholders and are reported together in the
// returned error, which callers may treat as a warning.
func Initialize() error {
	flags := defaultFlags()
	var errs []error
	set := func(dst *string, val, name string) {
		if val == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingFlag, name))
			return
		}
		*dst = val
	}
	if buildName != "" {
		flags.Name = buildName
	}
	set(&flags.Time, buildTime, "buildTime")
	set(&flags.Commit, buildCommit, "buildCommit")
	set(&flags.Version, buildVersion, "buildVersion")

	buildFlags = flags
	return errors.Join(errs...)
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
