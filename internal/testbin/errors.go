package testbin

import "errors"

var (
	// Returned when the build log is missing or unreadable, so the
	// set of test executables cannot be known.
	ErrLogMissing = errors.New("build log unavailable")

	// Returned when the build log lists a test executable that is
	// not on disk.
	ErrArtifactMissing = errors.New("test artifact missing")
)
