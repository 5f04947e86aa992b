// Package buildlog defines the persisted record of what a crate build
// produced.
//
// The log is a JSON-lines file. The first line is a header carrying
// the schema version; every following line describes one executable
// artifact the toolchain reported. Binary installation and test
// discovery both consume this file, so an artifact that is not in the
// log does not exist as far as the rest of the pipeline is concerned.
package buildlog
