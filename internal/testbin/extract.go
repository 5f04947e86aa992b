package testbin

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/wharfhq/wharf/internal/buildlog"
	"github.com/wharfhq/wharf/internal/fsutil"
	"github.com/wharfhq/wharf/internal/paths"
)

// Subdirectory of a crate's output directory holding its tests.
const DirName = "tests"

// One installed test executable.
type Test struct {
	// Package the executable belongs to.
	Package string

	// Name of the test target.
	Name string

	// Path the executable was installed at.
	Path string
}

// Installs every test executable the build log lists into outDir,
// grouped by package, and returns them in log order.
//
// A log with no test records is not an error: extraction succeeds
// with an empty result and creates nothing. A missing or unreadable
// log is ErrLogMissing; a listed executable absent from disk is
// ErrArtifactMissing.
func Extract(logPath, outDir string) ([]Test, error) {
	records, err := buildlog.Read(logPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogMissing, err)
	}

	tests := buildlog.Tests(records)
	if len(tests) == 0 {
		slog.Debug("build log lists no test executables", "log", logPath)
		return nil, nil
	}

	installed := make([]Test, 0, len(tests))
	for _, r := range tests {
		if _, err := os.Stat(r.FilePath); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, r.FilePath)
			}
			return nil, fmt.Errorf("failed to stat %s: %w", r.FilePath, err)
		}

		dir := filepath.Join(outDir, r.Package)
		if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}

		dst := filepath.Join(dir, filepath.Base(r.FilePath))
		if err := fsutil.LinkOrCopy(r.FilePath, dst, paths.BinaryMode); err != nil {
			return nil, fmt.Errorf("failed to install test %s: %w", r.Name, err)
		}
		installed = append(installed, Test{Package: r.Package, Name: r.Name, Path: dst})
	}

	slog.Debug("installed test executables", "log", logPath, "count", len(installed))
	return installed, nil
}
