package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wharfhq/wharf/internal/builder"
	"github.com/wharfhq/wharf/internal/depcache"
	"github.com/wharfhq/wharf/internal/image"
	"github.com/wharfhq/wharf/internal/manifest"
	"github.com/wharfhq/wharf/internal/paths"
	"github.com/wharfhq/wharf/internal/testbin"
	"github.com/wharfhq/wharf/internal/toolchain"
)

// Default output directory below the workspace root.
const defaultOutputDir = "dist"

// Controls a pipeline run.
type Options struct {
	// Workspace root directory.
	Root string

	// Output directory for per-crate artifacts. Empty means dist
	// below the workspace root.
	Output string

	// Crates to build. Empty means every declared crate.
	Crates []string

	// Jobs caps concurrent crate builds. Zero means one per CPU.
	Jobs int

	// CacheDir overrides the cache location holding the dependency
	// store and build scratch space.
	CacheDir string

	// SkipImages disables image packaging for this run.
	SkipImages bool

	// Toolchain overrides the cargo toolchain.
	Toolchain toolchain.Toolchain

	// Packager overrides the image packager.
	Packager *image.Packager
}

// Runs the pipeline over the workspace and returns the per-crate
// outcomes.
//
// The returned error covers failures that prevent the run itself: a
// broken workspace configuration, an unknown crate name, or a failed
// dependency compilation. Per-crate failures are reported in the
// result, not as an error.
func Run(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()

	ws, err := manifest.Load(opts.Root)
	if err != nil {
		return nil, err
	}

	names := ws.Names()
	if len(opts.Crates) > 0 {
		declared := make(map[string]bool, len(names))
		for _, n := range names {
			declared[n] = true
		}
		// Selecting a crate twice must not end in two goroutines
		// writing the same output directory.
		seen := make(map[string]bool, len(opts.Crates))
		selected := make([]string, 0, len(opts.Crates))
		for _, n := range opts.Crates {
			if !declared[n] {
				return nil, fmt.Errorf("%w: %s", manifest.ErrUnknownCrate, n)
			}
			if seen[n] {
				continue
			}
			seen[n] = true
			selected = append(selected, n)
		}
		names = selected
	}

	outDir := opts.Output
	if outDir == "" {
		outDir = filepath.Join(ws.Root, defaultOutputDir)
	}
	cacheRoot := cmp.Or(opts.CacheDir, paths.Cache())

	tc := opts.Toolchain
	if tc == nil {
		tc = &toolchain.Cargo{}
	}
	packager := opts.Packager
	if packager == nil {
		packager = &image.Packager{}
	}

	slog.Info("pipeline started", "workspace", ws.Root, "crates", len(names))

	cache := depcache.New(depcache.NewStore(paths.DepsStore(cacheRoot)), tc)
	depsTree, fp, err := cache.Build(ctx, ws)
	if err != nil {
		return nil, err
	}

	b := builder.New(ws, tc, paths.Scratch(cacheRoot))

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]CrateResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, name := range names {
		g.Go(func() error {
			results[i] = runCrate(gctx, crateJob{
				ws:         ws,
				builder:    b,
				packager:   packager,
				crate:      name,
				depsTree:   depsTree,
				outDir:     filepath.Join(outDir, name),
				skipImages: opts.SkipImages,
			})
			return nil
		})
	}
	g.Wait()

	res := &Result{
		Version:     1,
		Workspace:   ws.Root,
		Fingerprint: fp.String(),
		Started:     started.UTC(),
		Elapsed:     time.Since(started),
		Crates:      results,
	}

	slog.Info("pipeline finished",
		"crates", len(res.Crates),
		"failed", len(res.Failed()),
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res, nil
}

type crateJob struct {
	ws         *manifest.Workspace
	builder    *builder.Builder
	packager   *image.Packager
	crate      string
	depsTree   string
	outDir     string
	skipImages bool
}

// Carries one crate from pending to a terminal status. Failures stay
// inside the returned result.
func runCrate(ctx context.Context, job crateJob) CrateResult {
	res := CrateResult{Crate: job.crate, Status: StatusPending}
	started := time.Now()
	defer func() { res.Elapsed = time.Since(started) }()

	crate, err := job.ws.Resolve(job.crate)
	if err != nil {
		res.fail(StatusBuildFailed, err)
		return res
	}
	res.Version = crate.Version

	res.advance(StatusBuilding)
	art, err := job.builder.Build(ctx, crate, job.depsTree, job.outDir)
	if err != nil {
		res.fail(StatusBuildFailed, err)
		return res
	}
	defer art.Cleanup()
	res.advance(StatusBuilt)
	res.Binaries = art.Binaries

	tests, err := testbin.Extract(art.LogPath, filepath.Join(job.outDir, testbin.DirName))
	if err != nil {
		res.fail(StatusExtractFailed, err)
		return res
	}
	res.advance(StatusTestsExtracted)
	res.Tests = len(tests)

	if crate.Image && !job.skipImages {
		imagePath := filepath.Join(job.outDir, image.Filename)
		if err := job.packager.Package(crate, art, imagePath); err != nil {
			res.fail(StatusPackageFailed, err)
			return res
		}
		res.advance(StatusPackaged)
		res.Image = imagePath
	}

	return res
}
