package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
)

// Fields wharf reads from a crate manifest. Everything else in the manifest
// belongs to the toolchain and is ignored here.
type crateManifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
}

// Reads the named crate's manifest and returns the resolved descriptor.
//
// The manifest must declare a package name equal to the workspace entry
// name; relying on that equality keeps crate names unique across the
// workspace. A missing manifest file is reported as [ErrManifestNotFound],
// any parse or field problem as [ErrManifestMalformed]. Resolve has no side
// effects beyond reading the manifest.
func (w *Workspace) Resolve(name string) (*Crate, error) {
	e, ok := w.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not in the workspace config", ErrUnknownCrate, name)
	}

	dir := filepath.Join(w.Root, e.Path)
	path := filepath.Join(dir, ManifestFilename)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: crate %q has no %s in %s", ErrManifestNotFound, name, ManifestFilename, dir)
		}
		return nil, fmt.Errorf("%w: crate %q: %w", ErrManifestNotFound, name, err)
	}

	var m crateManifest
	if err := toml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: crate %q: %w", ErrManifestMalformed, name, err)
	}

	if m.Package.Name == "" {
		return nil, fmt.Errorf("%w: crate %q: missing package name", ErrManifestMalformed, name)
	}
	if m.Package.Version == "" {
		return nil, fmt.Errorf("%w: crate %q: missing package version", ErrManifestMalformed, name)
	}
	if m.Package.Name != name {
		return nil, fmt.Errorf("%w: manifest package name %q does not match workspace entry %q",
			ErrManifestMalformed, m.Package.Name, name)
	}

	binary := e.BinaryName
	if binary == "" {
		binary = name
	}

	return &Crate{
		Name:          m.Package.Name,
		Version:       m.Package.Version,
		Path:          dir,
		BinaryName:    binary,
		ExtraBinaries: slices.Clone(e.ExtraBinaries),
		Ports:         slices.Clone(e.Ports),
		Volumes:       slices.Clone(e.Volumes),
		Image:         e.Image,
	}, nil
}
