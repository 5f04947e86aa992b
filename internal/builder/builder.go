package builder

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/wharfhq/wharf/internal/buildlog"
	"github.com/wharfhq/wharf/internal/fsutil"
	"github.com/wharfhq/wharf/internal/manifest"
	"github.com/wharfhq/wharf/internal/paths"
	"github.com/wharfhq/wharf/internal/toolchain"
)

// Subdirectory of a crate's output directory holding its binaries.
const BinDirname = "bin"

const checksumsFilename = "SHA256SUMS"

// Describes the installed output of one crate build.
type Artifact struct {
	// Crate name and version as resolved from its manifest.
	Name    string
	Version string

	// Directory the binaries were installed into.
	BinDir string

	// Binary file names inside BinDir, primary binary first.
	Binaries []string

	// Path of the persisted build log.
	LogPath string

	// Private target directory the build ran in. The executables the
	// build log references live here until Cleanup is called.
	TargetDir string
}

// Removes the private target directory, invalidating the executable
// paths the build log references.
func (a *Artifact) Cleanup() error {
	return os.RemoveAll(a.TargetDir)
}

// Compiles the crates of one workspace.
type Builder struct {
	ws      *manifest.Workspace
	tc      toolchain.Toolchain
	scratch string
}

// Returns a builder for the workspace. Each build gets a private
// target directory below scratch.
func New(ws *manifest.Workspace, tc toolchain.Toolchain, scratch string) *Builder {
	return &Builder{ws: ws, tc: tc, scratch: scratch}
}

// Compiles the crate against the given dependency tree and installs
// its binaries, build log and checksums below outDir.
//
// On success the caller owns the artifact's private target directory
// and releases it with [Artifact.Cleanup] once the build log's
// executables are no longer needed.
func (b *Builder) Build(ctx context.Context, crate *manifest.Crate, depsTree, outDir string) (*Artifact, error) {
	targetDir, err := b.seedTarget(crate.Name, depsTree)
	if err != nil {
		return nil, err
	}

	installed := false
	defer func() {
		if !installed {
			os.RemoveAll(targetDir)
		}
	}()

	records, err := b.tc.BuildCrate(ctx, b.ws.Root, crate.Name, targetDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, crate.Name, err)
	}

	logPath := filepath.Join(outDir, buildlog.Filename)
	if err := os.MkdirAll(outDir, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outDir, err)
	}
	if err := buildlog.Write(logPath, records); err != nil {
		return nil, err
	}

	binDir := filepath.Join(outDir, BinDirname)
	if err := os.MkdirAll(binDir, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", binDir, err)
	}

	produced := make(map[string]string)
	for _, r := range buildlog.Binaries(records) {
		produced[r.Name] = r.FilePath
	}

	binaries := crate.Binaries()
	for _, name := range binaries {
		src, ok := produced[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s did not produce %s", ErrBinaryMissing, crate.Name, name)
		}
		if err := fsutil.LinkOrCopy(src, filepath.Join(binDir, name), paths.BinaryMode); err != nil {
			return nil, fmt.Errorf("failed to install %s: %w", name, err)
		}
	}

	if err := writeChecksums(outDir, binDir, binaries); err != nil {
		return nil, err
	}

	slog.Info("crate built",
		"crate", crate.Name,
		"version", crate.Version,
		"binaries", len(binaries),
	)

	installed = true
	return &Artifact{
		Name:      crate.Name,
		Version:   crate.Version,
		BinDir:    binDir,
		Binaries:  binaries,
		LogPath:   logPath,
		TargetDir: targetDir,
	}, nil
}

// Creates a private target directory pre-populated with a copy of the
// shared dependency tree. The toolchain may rewrite anything in it
// without the published tree changing underneath other builds.
func (b *Builder) seedTarget(crate, depsTree string) (string, error) {
	if err := os.MkdirAll(b.scratch, paths.DefaultDirMode); err != nil {
		return "", fmt.Errorf("failed to create scratch area: %w", err)
	}
	dir, err := os.MkdirTemp(b.scratch, crate+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create target directory: %w", err)
	}
	if err := fsutil.CopyTree(depsTree, dir); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to seed target directory: %w", err)
	}

	slog.Debug("seeded target directory", "crate", crate, "deps", depsTree)
	return dir, nil
}

// Writes a sha256sum compatible manifest of the installed binaries.
func writeChecksums(outDir, binDir string, binaries []string) error {
	var buf bytes.Buffer
	for _, name := range binaries {
		f, err := os.Open(filepath.Join(binDir, name))
		if err != nil {
			return fmt.Errorf("failed to checksum %s: %w", name, err)
		}
		d, err := digest.FromReader(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to checksum %s: %w", name, err)
		}
		fmt.Fprintf(&buf, "%s  %s/%s\n", d.Encoded(), BinDirname, name)
	}

	path := filepath.Join(outDir, checksumsFilename)
	if err := os.WriteFile(path, buf.Bytes(), paths.DefaultFileMode); err != nil {
		return fmt.Errorf("failed to write %s: %w", checksumsFilename, err)
	}
	return nil
}
