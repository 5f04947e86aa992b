package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/wharfhq/wharf/internal/pipeline"
)

// Represents the 'wharf build' command.
type BuildCmd struct {
	Root string `arg:"" optional:"" default:"." help:"Workspace root directory."`

	Output   string   `short:"o" placeholder:"DIR" help:"Output directory (default: dist below the workspace root)."`
	Crates   []string `short:"c" name:"crate" help:"Build only the named crates (repeatable)."`
	Jobs     int      `short:"j" help:"Concurrent crate builds (default: one per CPU)."`
	CacheDir string   `name:"cache-dir" placeholder:"DIR" help:"Override the cache directory."`
	Report   string   `placeholder:"FILE" help:"Write a JSON build report to this file."`
	NoImages bool     `name:"no-images" help:"Skip image packaging."`
}

func (c *BuildCmd) Run(ctx context.Context) error {
	res, err := pipeline.Run(ctx, pipeline.Options{
		Root:       c.Root,
		Output:     c.Output,
		Crates:     c.Crates,
		Jobs:       c.Jobs,
		CacheDir:   c.CacheDir,
		SkipImages: c.NoImages,
	})
	if err != nil {
		return err
	}

	if c.Report != "" {
		if err := pipeline.WriteReport(c.Report, res); err != nil {
			return err
		}
	}

	if failed := res.Failed(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, f := range failed {
			names[i] = f.Crate
		}
		return fmt.Errorf("%d of %d crates failed: %s", len(failed), len(res.Crates), strings.Join(names, ", "))
	}
	return nil
}
