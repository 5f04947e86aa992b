package buildlog

import "errors"

var (
	// Returned when the build log does not exist at the expected path.
	ErrNotFound = errors.New("build log not found")

	// Returned when the build log exists but cannot be decoded, or
	// declares a schema version this tool does not understand.
	ErrMalformed = errors.New("malformed build log")
)
