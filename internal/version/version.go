package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release of the server binary. Overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the release string.
func Short() string {
	return Version
}

// Full returns the release string together with commit, build time and Go version.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s, go: %s", Version, Commit, BuildTime, runtime.Version())
}
