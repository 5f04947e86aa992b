package depcache

import (
	"fmt"
	"hash"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/wharfhq/wharf/internal/manifest"
)

// Returns the fingerprint of the workspace's dependency set.
//
// The fingerprint covers the lockfile, the root manifest when one
// exists, and every declared crate manifest in name order. Two
// workspaces with the same fingerprint compile to interchangeable
// dependency trees.
func Fingerprint(ws *manifest.Workspace) (digest.Digest, error) {
	digester := digest.Canonical.Digester()
	h := digester.Hash()

	lock, err := os.ReadFile(ws.LockfilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrLockfileMissing, ws.LockfilePath())
		}
		return "", fmt.Errorf("failed to read lockfile: %w", err)
	}
	mix(h, manifest.LockFilename, lock)

	root, err := os.ReadFile(ws.RootManifestPath())
	switch {
	case err == nil:
		mix(h, manifest.ManifestFilename, root)
	case !os.IsNotExist(err):
		return "", fmt.Errorf("failed to read workspace manifest: %w", err)
	}

	names := ws.Names()
	for i, path := range ws.ManifestPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read manifest of %s: %w", names[i], err)
		}
		mix(h, names[i], data)
	}

	return digester.Digest(), nil
}

// Writes one labeled, length-framed input into the hash.
func mix(h hash.Hash, label string, data []byte) {
	fmt.Fprintf(h, "%s\x00%d\x00", label, len(data))
	h.Write(data)
}
