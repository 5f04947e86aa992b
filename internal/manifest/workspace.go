package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (

	// Filename of the workspace configuration, relative to the root.
	ConfigFilename = "wharf.yaml"

	// Filename of a crate manifest, relative to the crate directory.
	ManifestFilename = "Cargo.toml"

	// Filename of the workspace lockfile, relative to the root.
	LockFilename = "Cargo.lock"

	// Config schema version understood by this build.
	configVersion = 1
)

// Matches an exposed port declaration such as "8118/tcp".
var portPattern = regexp.MustCompile(`^[0-9]+/(tcp|udp)$`)

// Describes one buildable crate of the workspace.
//
// Name and Version originate from the crate's manifest; the remaining fields
// come from the workspace configuration entry. Name doubles as the image
// name and the default binary name.
type Crate struct {
	Name          string   // Unique crate name, equal to the manifest package name.
	Version       string   // Version string from the crate manifest.
	Path          string   // Absolute path to the crate directory.
	BinaryName    string   // Primary binary name. Defaults to Name.
	ExtraBinaries []string // Additional binaries installed alongside the primary one.
	Ports         []string // Exposed "port/proto" pairs for the packaged image.
	Volumes       []string // Mount points declared on the packaged image.
	Image         bool     // Whether the crate publishes a container image.
}

// Returns all binary names of the crate: the primary binary first, then the
// extra binaries in declared order.
func (c *Crate) Binaries() []string {
	bins := make([]string, 0, 1+len(c.ExtraBinaries))
	bins = append(bins, c.BinaryName)
	return append(bins, c.ExtraBinaries...)
}

// Raw workspace configuration entry for a single crate.
type crateEntry struct {
	Path          string   `yaml:"path"`
	BinaryName    string   `yaml:"binary-name"`
	ExtraBinaries []string `yaml:"extra-binaries"`
	Ports         []string `yaml:"ports"`
	Volumes       []string `yaml:"volumes"`
	Image         bool     `yaml:"image"`
}

// On-disk shape of the workspace configuration.
type config struct {
	Version int                   `yaml:"version"`
	Crates  map[string]crateEntry `yaml:"crates"`
}

// A loaded workspace configuration.
//
// The workspace knows which crates exist and where, but does not read any
// crate manifest until [Workspace.Resolve] is called, so a broken manifest
// in one crate never prevents the others from resolving.
type Workspace struct {
	Root    string                // Absolute path of the workspace root.
	entries map[string]crateEntry // Config entries keyed by crate name.
}

// Loads and validates the workspace configuration below root.
//
// The configuration file is wharf.yaml in the root directory. Crate names
// are the keys of the crates mapping; duplicate keys are rejected by the
// YAML decoder.
func Load(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
	}

	path := filepath.Join(abs, ConfigFilename)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrWorkspace, path, err)
	}

	var cfg config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrWorkspace, path, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWorkspace, path, err)
	}

	return &Workspace{Root: abs, entries: cfg.Crates}, nil
}

// Returns the names of all configured crates in lexical order.
func (w *Workspace) Names() []string {
	names := make([]string, 0, len(w.entries))
	for name := range w.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Returns the path to the workspace lockfile.
func (w *Workspace) LockfilePath() string {
	return filepath.Join(w.Root, LockFilename)
}

// Returns the path to the root workspace manifest, which may not exist.
func (w *Workspace) RootManifestPath() string {
	return filepath.Join(w.Root, ManifestFilename)
}

// Returns the manifest path of every declared crate, ordered by crate
// name to line up with Names.
func (w *Workspace) ManifestPaths() []string {
	names := w.Names()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(w.Root, w.entries[name].Path, ManifestFilename)
	}
	return paths
}

// Checks the decoded configuration for semantic errors.
func validate(cfg *config) error {
	if cfg.Version != configVersion {
		return fmt.Errorf("unsupported config version %d, want %d", cfg.Version, configVersion)
	}
	if len(cfg.Crates) == 0 {
		return fmt.Errorf("no crates configured")
	}

	for name, e := range cfg.Crates {
		if err := validateEntry(name, e); err != nil {
			return err
		}
	}
	return nil
}

// Checks a single crate entry for semantic errors.
func validateEntry(name string, e crateEntry) error {
	if name == "" {
		return fmt.Errorf("crate with empty name")
	}
	if e.Path == "" {
		return fmt.Errorf("crate %q: path is required", name)
	}
	if filepath.IsAbs(e.Path) {
		return fmt.Errorf("crate %q: path must be relative to the workspace root", name)
	}

	for _, port := range e.Ports {
		if !portPattern.MatchString(port) {
			return fmt.Errorf("crate %q: invalid port %q, want \"<port>/tcp\" or \"<port>/udp\"", name, port)
		}
	}

	for _, volume := range e.Volumes {
		if !strings.HasPrefix(volume, "/") {
			return fmt.Errorf("crate %q: volume %q must be an absolute path", name, volume)
		}
	}

	return nil
}
