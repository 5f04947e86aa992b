package internal

import (
	"fmt"
	"runtime"
	"strings"
)

// Name used for the binary, config files, and cache directories.
const Name = "wharf"

const (

	// String to indicate an undefined variable
	defaultUndefined = "(undefined)"

	// String to indicate a local (non-pipeline) build
	defaultDevelBuild = "(devel)"
)

var (
	version   = "" // Version number (e.g., "1.2.3")
	gitCommit = "" // Git commit hash (e.g., "a1b2c3d4")
	buildDate = "" // Build date in RFC 3339 form (e.g., "2026-01-02T15:04:05Z")
)

// Returns the current version.
//
// If the version is not set, returns "(undefined)". If the version includes a
// "v" or "V" prefix (e.g., "v1.0.0"), it is stripped.
func Version() string {
	v := strings.TrimSpace(version)
	if v == "" {
		return defaultUndefined
	}

	v = strings.ToLower(v)
	v = strings.TrimPrefix(v, "v")

	return v
}

// Returns the git commit hash.
//
// If the commit hash is not set, returns "(undefined)".
func GitCommit() string {
	c := strings.TrimSpace(gitCommit)
	if c == "" {
		return defaultUndefined
	}
	return c
}

// Returns the build date.
//
// If the build date is not set, returns "(undefined)".
func BuildDate() string {
	d := strings.TrimSpace(buildDate)
	if d == "" {
		return defaultUndefined
	}
	return d
}

// Returns the build architecture.
func Arch() string {
	return runtime.GOARCH
}

// Returns true if this is a development (non-pipeline) build.
//
// A build is considered a development build if any of the version, git
// commit, or build date variables are unset. Release builds should set all
// three variables via linker flags.
func IsDevel() bool {
	return strings.TrimSpace(version) == "" ||
		strings.TrimSpace(gitCommit) == "" ||
		strings.TrimSpace(buildDate) == ""
}

// Returns a detailed version string.
//
// If this is a development build, returns "(devel)". Otherwise, returns a
// string formatted as "<version> <git-commit> <build-date> [<arch>]".
func VersionString() string {
	if IsDevel() {
		return defaultDevelBuild
	}
	return fmt.Sprintf("%s %s %s [%s]", Version(), GitCommit(), BuildDate(), Arch())
}
