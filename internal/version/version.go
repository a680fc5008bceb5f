// Package version holds build metadata injected via ldflags:
//
//	go build -ldflags "-X github.com/Nova-Hunting/nova-tracer/internal/version.Version=v1.2.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Short returns the version string alone.
func Short() string {
	return Version
}

// Info returns version, commit and build date on one line.
func Info() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate)
}

// Full adds the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("nova-tracer %s\n  commit:  %s\n  built:   %s\n  go:      %s\n  platform: %s/%s",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
