package depcache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"

	"github.com/wharfhq/wharf/internal/manifest"
	"github.com/wharfhq/wharf/internal/toolchain"
)

// Compiles each distinct dependency set exactly once and hands out
// the published tree afterwards.
type Cache struct {
	store *Store
	tc    toolchain.Toolchain

	group singleflight.Group
}

func New(store *Store, tc toolchain.Toolchain) *Cache {
	return &Cache{store: store, tc: tc}
}

// Returns the dependency tree for the workspace, compiling and
// publishing it first when its fingerprint has never been built.
// Concurrent calls with the same fingerprint share one compilation.
func (c *Cache) Build(ctx context.Context, ws *manifest.Workspace) (string, digest.Digest, error) {
	fp, err := Fingerprint(ws)
	if err != nil {
		return "", "", err
	}

	v, err, _ := c.group.Do(fp.String(), func() (any, error) {
		if c.store.Contains(fp) {
			slog.Debug("dependency tree cached", "fingerprint", fp)
			return c.store.Path(fp), nil
		}

		slog.Info("compiling dependency tree", "fingerprint", fp)
		err := c.store.Publish(fp, func(dir string) error {
			return c.tc.BuildDeps(ctx, ws.Root, dir)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeps, err)
		}
		return c.store.Path(fp), nil
	})
	if err != nil {
		return "", fp, err
	}
	return v.(string), fp, nil
}
