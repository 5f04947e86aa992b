package depcache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/wharfhq/wharf/internal/paths"
)

// Keeps compiled dependency trees in a content-addressed layout,
// root/<algorithm>/<encoded>. Trees are staged on the same filesystem
// and published with a single rename, so readers never observe a
// partially written tree.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Returns the directory a tree with this fingerprint lives at.
func (s *Store) Path(fp digest.Digest) string {
	return filepath.Join(s.root, fp.Algorithm().String(), fp.Encoded())
}

// Reports whether a tree with this fingerprint has been published.
func (s *Store) Contains(fp digest.Digest) bool {
	info, err := os.Stat(s.Path(fp))
	return err == nil && info.IsDir()
}

// Runs fill against an empty staging directory and publishes the
// result under fp. When a concurrent publisher wins the race the
// staged tree is discarded and the published one stands.
func (s *Store) Publish(fp digest.Digest, fill func(dir string) error) error {
	stagingRoot := filepath.Join(s.root, "staging")
	if err := os.MkdirAll(stagingRoot, paths.DefaultDirMode); err != nil {
		return fmt.Errorf("failed to create staging area: %w", err)
	}

	staging, err := os.MkdirTemp(stagingRoot, fp.Encoded()+"-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := fill(staging); err != nil {
		return err
	}

	final := s.Path(fp)
	if err := os.MkdirAll(filepath.Dir(final), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := os.Rename(staging, final); err != nil {
		if s.Contains(fp) {
			return nil
		}
		return fmt.Errorf("failed to publish dependency tree: %w", err)
	}
	return nil
}
