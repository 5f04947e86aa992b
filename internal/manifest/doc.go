// Package manifest resolves workspace and crate descriptors.
//
// A workspace is a directory tree holding several independently versioned
// crates. The wharf.yaml file at the root names each crate and declares its
// packaging metadata (binaries, ports, volumes); the crate's own Cargo.toml
// manifest is the authority for its name and version. Loading the workspace
// and resolving individual crates are separate steps so one crate's broken
// manifest surfaces as that crate's failure rather than a workspace-wide
// one.
package manifest
