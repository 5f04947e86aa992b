package toolchain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/wharfhq/wharf/internal/buildlog"
)

const defaultCargoPath = "cargo"

// Drives the Rust toolchain through the cargo CLI.
//
// Builds run with a caller-provided target directory so that the
// dependency cache can hand each build a pre-warmed one.
type Cargo struct {
	// Path of the cargo executable. Defaults to "cargo" looked up
	// on PATH.
	Path string

	// Extra environment entries appended to the inherited
	// environment.
	Env []string
}

var _ Toolchain = (*Cargo)(nil)

// Compiles every workspace crate and its dependencies into targetDir.
func (c *Cargo) BuildDeps(ctx context.Context, root, targetDir string) error {
	cmd := c.command(ctx, root, targetDir, "build", "--workspace", "--locked")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Debug("compiling workspace dependencies", "target_dir", targetDir)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %w\n%s", ErrBuild, err, tail(stderr.Bytes()))
	}
	return nil
}

// Compiles the named crate's binaries and test executables into
// targetDir and returns the artifacts cargo reported.
func (c *Cargo) BuildCrate(ctx context.Context, root, crate, targetDir string) ([]buildlog.Record, error) {
	cmd := c.command(ctx, root, targetDir,
		"build", "-p", crate, "--bins", "--tests",
		"--message-format=json-render-diagnostics", "--locked")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to attach to cargo: %w", err)
	}

	slog.Debug("compiling crate", "crate", crate, "target_dir", targetDir)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start cargo: %w", err)
	}

	records, parseErr := parseMessages(stdout)
	if parseErr != nil {
		// Keep draining so cargo can exit instead of blocking on a
		// full pipe.
		io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w\n%s", ErrBuild, err, tail(stderr.Bytes()))
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return records, nil
}

func (c *Cargo) command(ctx context.Context, root, targetDir string, args ...string) *exec.Cmd {
	path := c.Path
	if path == "" {
		path = defaultCargoPath
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = root
	cmd.Env = append(os.Environ(),
		"CARGO_TARGET_DIR="+targetDir,
		"CARGO_TERM_COLOR=never",
	)
	cmd.Env = append(cmd.Env, c.Env...)
	return cmd
}

// One JSON message on cargo's stdout. Only the fields needed to
// recognize executable artifacts are decoded.
type cargoMessage struct {
	Reason    string `json:"reason"`
	PackageID string `json:"package_id"`
	Target    struct {
		Kind []string `json:"kind"`
		Name string   `json:"name"`
	} `json:"target"`
	Profile struct {
		Test bool `json:"test"`
	} `json:"profile"`
	Executable string `json:"executable"`
}

// Translates cargo's message stream into build log records. Artifacts
// without an executable, and executables that are neither binaries nor
// tests, are skipped.
func parseMessages(r io.Reader) ([]buildlog.Record, error) {
	sc := bufio.NewScanner(r)
	// Messages for crates with large build script output can exceed
	// the default scanner limit.
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var records []buildlog.Record
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var m cargoMessage
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("failed to decode cargo message: %w", err)
		}
		if m.Reason != "compiler-artifact" || m.Executable == "" {
			continue
		}

		record := buildlog.Record{
			Package:  packageName(m.PackageID),
			Name:     m.Target.Name,
			FilePath: m.Executable,
		}
		switch {
		case m.Profile.Test:
			record.TargetKind = buildlog.KindTest
		case slices.Contains(m.Target.Kind, "bin"):
			record.TargetKind = buildlog.KindBin
		default:
			// Examples and benches also produce executables but are
			// never installed.
			continue
		}
		records = append(records, record)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cargo output: %w", err)
	}
	return records, nil
}

// Extracts the package name from a cargo package id.
//
// Old cargo renders ids as "name version (source)". Newer versions use
// a URL shape, "source#name@version", omitting the name when it equals
// the last segment of the source path.
func packageName(id string) string {
	if before, after, found := strings.Cut(id, "#"); found {
		if name, _, ok := strings.Cut(after, "@"); ok {
			return name
		}
		return before[strings.LastIndexByte(before, '/')+1:]
	}
	if name, _, found := strings.Cut(id, " "); found {
		return name
	}
	return id
}

// Returns the last lines of the compiler's diagnostics, enough to
// identify a failure without replaying the whole build.
func tail(out []byte) string {
	const keep = 30

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.Join(lines, "\n")
}
