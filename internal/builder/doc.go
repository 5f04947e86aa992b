// Package builder compiles single crates and installs what they
// produce.
//
// Each build runs against a private target directory holding a copy
// of the shared dependency tree, so concurrent crate builds never
// contend for toolchain locks and a build that rewrites a stale
// artifact never reaches the published tree. What a build produced is
// decided by the build log alone, never by scanning directories.
//
// A successful build keeps its target directory alive because the
// build log's test executables live inside it; the caller releases it
// with [Artifact.Cleanup] once they have been extracted.
package builder
