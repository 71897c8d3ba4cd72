// Package version holds build-time version metadata for the hazel CLI.
package version

import (
	"fmt"
	"runtime"
)

// These are set via ldflags by the release build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns formatted version information.
func Info() string {
	return fmt.Sprintf("hazel %s (commit: %s, built: %s) %s", Version, Commit, Date, runtime.Version())
}

// Short returns just the version string.
func Short() string {
	return Version
}
