// Package testbin installs the test executables a crate build
// produced.
//
// Which executables are tests is decided by the build log alone.
// Filename conventions are never consulted: a toolchain that changes
// its naming scheme must not silently change what gets extracted.
package testbin
