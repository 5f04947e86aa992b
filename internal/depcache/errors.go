package depcache

import "errors"

var (
	// Returned when the workspace has no lockfile to fingerprint.
	ErrLockfileMissing = errors.New("lockfile missing")

	// Returned when compiling a dependency tree fails. Nothing is
	// published to the store on failure.
	ErrDeps = errors.New("dependency build failed")
)
