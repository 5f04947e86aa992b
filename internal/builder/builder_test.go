package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"

	"github.com/wharfhq/wharf/internal/buildlog"
	"github.com/wharfhq/wharf/internal/manifest"
)

// Lays out a one-crate workspace whose crate declares an extra binary.
func writeWorkspace(t *testing.T) *manifest.Workspace {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"wharf.yaml":      "version: 1\ncrates:\n  node:\n    path: node\n    extra-binaries: [\"dna-inspect\"]\n",
		"node/Cargo.toml": "[package]\nname = \"node\"\nversion = \"0.7.0\"\n",
	}
	for name, body := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	ws, err := manifest.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	return ws
}

// Produces fake executables in the target directory and reports them
// the way cargo would.
type fakeToolchain struct {
	tests   []string // test target names to produce
	omit    string   // binary name to leave out of the build
	rewrite string   // seeded file to truncate and rewrite in place
	fail    bool
	sawSeed bool // whether the seeded dependency tree was visible
}

func (f *fakeToolchain) BuildDeps(context.Context, string, string) error { return nil }

func (f *fakeToolchain) BuildCrate(_ context.Context, _, crate, targetDir string) ([]buildlog.Record, error) {
	if f.fail {
		return nil, errors.New("error[E0308]: mismatched types")
	}
	if _, err := os.Stat(filepath.Join(targetDir, "seed")); err == nil {
		f.sawSeed = true
	}
	if f.rewrite != "" {
		stale, err := os.OpenFile(filepath.Join(targetDir, f.rewrite), os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, err
		}
		if _, err := stale.Write([]byte("rebuilt")); err != nil {
			return nil, err
		}
		if err := stale.Close(); err != nil {
			return nil, err
		}
	}

	debug := filepath.Join(targetDir, "debug")
	if err := os.MkdirAll(filepath.Join(debug, "deps"), 0755); err != nil {
		return nil, err
	}

	var records []buildlog.Record
	for _, name := range []string{crate, "dna-inspect"} {
		if name == f.omit {
			continue
		}
		path := filepath.Join(debug, name)
		if err := os.WriteFile(path, []byte("elf:"+name), 0755); err != nil {
			return nil, err
		}
		records = append(records, buildlog.Record{
			Package: crate, Name: name, TargetKind: buildlog.KindBin, FilePath: path,
		})
	}
	for _, name := range f.tests {
		path := filepath.Join(debug, "deps", name+"-1f2e3d")
		if err := os.WriteFile(path, []byte("test:"+name), 0755); err != nil {
			return nil, err
		}
		records = append(records, buildlog.Record{
			Package: crate, Name: name, TargetKind: buildlog.KindTest, FilePath: path,
		})
	}
	return records, nil
}

func TestBuild(t *testing.T) {
	ws := writeWorkspace(t)
	crate, err := ws.Resolve("node")
	if err != nil {
		t.Fatal(err)
	}

	deps := t.TempDir()
	if err := os.WriteFile(filepath.Join(deps, "seed"), []byte("deps"), 0644); err != nil {
		t.Fatal(err)
	}

	tc := &fakeToolchain{tests: []string{"node"}}
	scratch := t.TempDir()
	out := filepath.Join(t.TempDir(), "node")

	art, err := New(ws, tc, scratch).Build(context.Background(), crate, deps, out)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if art.Name != "node" || art.Version != "0.7.0" {
		t.Errorf("artifact = %s %s, want node 0.7.0", art.Name, art.Version)
	}
	if want := []string{"node", "dna-inspect"}; !reflect.DeepEqual(art.Binaries, want) {
		t.Errorf("Binaries = %v, want %v", art.Binaries, want)
	}
	if !tc.sawSeed {
		t.Error("build ran against an unseeded target directory")
	}

	for _, name := range art.Binaries {
		got, err := os.ReadFile(filepath.Join(art.BinDir, name))
		if err != nil {
			t.Fatalf("installed binary %s: %v", name, err)
		}
		if want := "elf:" + name; string(got) != want {
			t.Errorf("binary %s = %q, want %q", name, got, want)
		}
	}

	records, err := buildlog.Read(art.LogPath)
	if err != nil {
		t.Fatalf("reading build log: %v", err)
	}
	if got := len(buildlog.Binaries(records)); got != 2 {
		t.Errorf("log has %d binary records, want 2", got)
	}
	if got := len(buildlog.Tests(records)); got != 1 {
		t.Errorf("log has %d test records, want 1", got)
	}

	sums, err := os.ReadFile(filepath.Join(out, checksumsFilename))
	if err != nil {
		t.Fatalf("reading checksums: %v", err)
	}
	wantSum := digest.FromBytes([]byte("elf:node")).Encoded() + "  bin/node"
	if !strings.Contains(string(sums), wantSum) {
		t.Errorf("checksums missing %q:\n%s", wantSum, sums)
	}

	// The target directory stays alive until the caller is done with
	// the executables the log references.
	if _, err := os.Stat(art.TargetDir); err != nil {
		t.Fatalf("target directory gone before Cleanup: %v", err)
	}
	if err := art.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch area not cleaned up: %d entries left", len(entries))
	}
}

func TestBuildIsolatesDepsTree(t *testing.T) {
	ws := writeWorkspace(t)
	crate, err := ws.Resolve("node")
	if err != nil {
		t.Fatal(err)
	}

	deps := t.TempDir()
	rlib := filepath.Join(deps, "debug", "libserde.rlib")
	if err := os.MkdirAll(filepath.Dir(rlib), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(rlib, []byte("rlib-v1"), 0644); err != nil {
		t.Fatal(err)
	}

	tc := &fakeToolchain{rewrite: filepath.Join("debug", "libserde.rlib")}
	out := filepath.Join(t.TempDir(), "node")

	art, err := New(ws, tc, t.TempDir()).Build(context.Background(), crate, deps, out)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer art.Cleanup()

	got, err := os.ReadFile(rlib)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "rlib-v1" {
		t.Fatalf("shared dependency tree changed to %q, want %q", got, "rlib-v1")
	}
}

func TestBuildCompileError(t *testing.T) {
	ws := writeWorkspace(t)
	crate, err := ws.Resolve("node")
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "node")
	tc := &fakeToolchain{fail: true}
	scratch := t.TempDir()

	_, err = New(ws, tc, scratch).Build(context.Background(), crate, t.TempDir(), out)
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("Build error = %v, want ErrCompile", err)
	}

	if _, statErr := os.Stat(filepath.Join(out, buildlog.Filename)); !os.IsNotExist(statErr) {
		t.Error("failed build left a build log behind")
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed build left %d scratch entries behind", len(entries))
	}
}

func TestBuildMissingBinary(t *testing.T) {
	ws := writeWorkspace(t)
	crate, err := ws.Resolve("node")
	if err != nil {
		t.Fatal(err)
	}

	tc := &fakeToolchain{omit: "dna-inspect"}

	_, err = New(ws, tc, t.TempDir()).Build(context.Background(), crate, t.TempDir(), filepath.Join(t.TempDir(), "node"))
	if !errors.Is(err, ErrBinaryMissing) {
		t.Fatalf("Build error = %v, want ErrBinaryMissing", err)
	}
}
