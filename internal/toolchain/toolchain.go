package toolchain

import (
	"context"

	"github.com/wharfhq/wharf/internal/buildlog"
)

// Compiles workspace crates and their dependencies.
type Toolchain interface {
	// Compiles the dependencies of every workspace crate into
	// targetDir. The directory can then be reused as the starting
	// target directory for individual crate builds.
	BuildDeps(ctx context.Context, root, targetDir string) error

	// Compiles the named crate and its test executables into
	// targetDir, returning one record per executable the compiler
	// reported.
	BuildCrate(ctx context.Context, root, crate, targetDir string) ([]buildlog.Record, error)
}
