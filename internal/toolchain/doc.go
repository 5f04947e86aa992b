// Package toolchain runs the compiler that turns crate sources into
// executables.
//
// The rest of the pipeline treats the toolchain as a black box: it is
// handed a workspace and a target directory, and everything it
// produces is described by the records it returns. Callers never
// inspect the target directory themselves.
package toolchain
