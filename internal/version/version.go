// SPDX-License-Identifier: MIT

// Package version carries build metadata set through -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the current application version.
	Version = "v0.1.0-dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the version line printed by `zonewatchd version`.
func String() string {
	return fmt.Sprintf("zonewatchd %s (commit: %s, built: %s, %s)", Version, Commit, Date, runtime.Version())
}
