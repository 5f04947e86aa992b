package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/wharfhq/wharf/internal"
)

// Represents the top-level 'wharf' command.
type RootCmd struct {
	Quiet   bool `short:"q" help:"Only log errors."`
	Verbose bool `short:"v" help:"Log debug detail."`
	Debug   bool `help:"Log debug detail with source locations."`

	Build   BuildCmd   `cmd:"" help:"Build workspace crates and assemble their artifacts."`
	Crates  CratesCmd  `cmd:"" help:"List the crates the workspace declares."`
	Version VersionCmd `cmd:"" help:"Print the version of this tool."`
}

// Parses the command line and runs the selected command.
func Execute(ctx context.Context) error {
	root := &RootCmd{}

	parser, err := kong.New(root,
		kong.Name(internal.Name),
		kong.Description("Builds, tests and packages the crates of a workspace."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	root.configureLogger()

	cwd, _ := os.Getwd()
	slog.Debug("starting "+internal.Name,
		"version", internal.VersionString(),
		"pid", os.Getpid(),
		"cwd", cwd,
		"args", os.Args[1:],
	)

	return kctx.Run()
}

// Installs the default logger according to the verbosity flags.
func (r *RootCmd) configureLogger() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch {
	case r.Debug:
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	case r.Verbose:
		opts.Level = slog.LevelDebug
	case r.Quiet:
		opts.Level = slog.LevelError
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
}
