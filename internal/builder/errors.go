package builder

import "errors"

var (
	// Returned when the toolchain fails to compile a crate. The
	// wrapped error carries the compiler's diagnostics.
	ErrCompile = errors.New("crate build failed")

	// Returned when a build succeeds but does not produce a binary
	// the workspace configuration declares.
	ErrBinaryMissing = errors.New("declared binary not produced")
)
