// Package version exposes the swarmville release version.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the current version, with whitespace trimmed
func Get() string {
	return strings.TrimSpace(versionContent)
}

// String formats the version for CLI output.
func String() string {
	return "swarmville " + Get()
}
