// Package depcache shares compiled dependency trees between crate
// builds.
//
// A workspace's dependency set is identified by a fingerprint over
// its lockfile and manifests. The first build of a fingerprint
// compiles the tree into a staging directory and publishes it to a
// content-addressed store; every later build, in this process or the
// next, reuses the published tree without touching the toolchain.
package depcache
