// Build information of the graphcache binary. Version, commit and build time are injected with
// `-ldflags "-X github.com/nobletooth/graphcache/pkg/utils.Version=..."`.
// CAUTION: This file shouldn't be removed or else the linker flags would have nothing to set.

package utils

import (
	"log/slog"
	"strconv"
	"time"
)

const unknownVersion = "v0.0.0-unknown"

var (
	TestMode   string // Should be true when running tests.
	IsTestMode bool
	Version    string
	Commit     string
	BuildTime  string
	StartTime  time.Time
)

func init() {
	StartTime = time.Now()

	// If build info is not set, make that clear while keeping the version a valid semver.
	if Version == "" {
		Version = unknownVersion
	}
	if Commit == "" {
		Commit = "unknown"
	}
	if BuildTime == "" {
		BuildTime = "unknown"
	}
	if len(TestMode) > 0 {
		if isTestMode, err := strconv.ParseBool(TestMode); err == nil {
			IsTestMode = isTestMode
		} else {
			slog.Warn("Failed to parse TestMode build flag, defaulting to false", "error", err)
		}
	}
}

// Uptime returns how long the process has been running.
func Uptime() time.Duration {
	return time.Since(StartTime)
}
