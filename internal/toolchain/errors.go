package toolchain

import "errors"

// Returned when the compiler exits unsuccessfully. The wrapped error
// carries the tail of the compiler's diagnostics.
var ErrBuild = errors.New("toolchain build failed")
