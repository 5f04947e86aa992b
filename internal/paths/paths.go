package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	toolName = "wharf"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644

	// Permission mode for installed executables.
	BinaryMode os.FileMode = 0755
)

// Path to the directory for cached build state.
//
//	Linux:   $XDG_CACHE_HOME/wharf or ~/.cache/wharf
//	macOS:   ~/Library/Caches/wharf
func Cache() string {
	return filepath.Join(xdg.CacheHome, toolName)
}

// Path to the shared dependency store below the given cache
// directory.
//
// Entries below this directory are addressed by dependency fingerprint and
// published atomically, so the store can be shared by concurrent builds.
func DepsStore(cacheDir string) string {
	return filepath.Join(cacheDir, "deps")
}

// Path to the scratch area for per-crate target directories below the
// given cache directory. A single cache override relocates scratch
// space and the dependency store together.
func Scratch(cacheDir string) string {
	return filepath.Join(cacheDir, "scratch")
}
