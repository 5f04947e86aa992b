package image

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/wharfhq/wharf/internal/builder"
	"github.com/wharfhq/wharf/internal/manifest"
)

// Returns a packager wired to fake runtime pieces, plus a crate and
// artifact to package.
func packageFixtures(t *testing.T) (*Packager, *manifest.Crate, *builder.Artifact) {
	t.Helper()

	host := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(host, name)
		if err := os.WriteFile(path, []byte(body), 0755); err != nil {
			t.Fatal(err)
		}
		return path
	}

	p := &Packager{
		CABundle: write("ca-certificates.crt", "certs"),
		Shell:    write("sh", "shell"),
		Env:      write("env", "env"),
		Created:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	binDir := t.TempDir()
	for _, name := range []string{"node", "dna-inspect"} {
		if err := os.WriteFile(filepath.Join(binDir, name), []byte("elf:"+name), 0755); err != nil {
			t.Fatal(err)
		}
	}

	crate := &manifest.Crate{
		Name:          "node",
		Version:       "0.7.0",
		BinaryName:    "node",
		ExtraBinaries: []string{"dna-inspect"},
		Ports:         []string{"7171/tcp"},
		Volumes:       []string{"/data"},
		Image:         true,
	}
	art := &builder.Artifact{
		Name:     "node",
		Version:  "0.7.0",
		BinDir:   binDir,
		Binaries: []string{"node", "dna-inspect"},
	}
	return p, crate, art
}

// Reads every regular file of a tar archive into memory.
func readArchive(t *testing.T, path string) map[string][]byte {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	files := make(map[string][]byte)
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		files[hdr.Name] = data
	}
	return files
}

func blobName(d v1.Hash) string {
	return "blobs/" + d.Algorithm + "/" + d.Hex
}

// Follows index.json to the image manifest and config inside an
// extracted layout.
func readImage(t *testing.T, files map[string][]byte) (v1.Manifest, v1.ConfigFile, v1.Descriptor) {
	t.Helper()

	var idx v1.IndexManifest
	if err := json.Unmarshal(files["index.json"], &idx); err != nil {
		t.Fatalf("decoding index: %v", err)
	}
	if len(idx.Manifests) != 1 {
		t.Fatalf("index lists %d manifests, want 1", len(idx.Manifests))
	}
	desc := idx.Manifests[0]

	var m v1.Manifest
	if err := json.Unmarshal(files[blobName(desc.Digest)], &m); err != nil {
		t.Fatalf("decoding manifest: %v", err)
	}

	var cfg v1.ConfigFile
	if err := json.Unmarshal(files[blobName(m.Config.Digest)], &cfg); err != nil {
		t.Fatalf("decoding config: %v", err)
	}
	return m, cfg, desc
}

// Reads the file contents of a gzip compressed layer blob.
func layerContents(t *testing.T, blob []byte) map[string]string {
	t.Helper()

	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		t.Fatal(err)
	}

	contents := make(map[string]string)
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		contents[hdr.Name] = string(data)
	}
	return contents
}

func TestPackage(t *testing.T) {
	p, crate, art := packageFixtures(t)
	out := filepath.Join(t.TempDir(), Filename)

	if err := p.Package(crate, art, out); err != nil {
		t.Fatalf("Package: %v", err)
	}

	files := readArchive(t, out)
	if _, ok := files["oci-layout"]; !ok {
		t.Fatal("archive is missing the oci-layout marker")
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != 0644 {
		t.Errorf("archive mode = %o, want 644", got)
	}

	m, cfg, desc := readImage(t, files)

	if got := desc.Annotations[ocispec.AnnotationRefName]; got != "node:latest" {
		t.Errorf("ref name = %q, want node:latest", got)
	}
	if got := m.Annotations[ocispec.AnnotationTitle]; got != "node" {
		t.Errorf("title annotation = %q, want node", got)
	}
	if got := m.Annotations[ocispec.AnnotationVersion]; got != "0.7.0" {
		t.Errorf("version annotation = %q, want 0.7.0", got)
	}

	if got, want := []string(cfg.Config.Entrypoint), "/usr/bin/node"; len(got) != 1 || got[0] != want {
		t.Errorf("entrypoint = %v, want [%s]", got, want)
	}
	if _, ok := cfg.Config.ExposedPorts["7171/tcp"]; !ok {
		t.Errorf("exposed ports = %v, want 7171/tcp", cfg.Config.ExposedPorts)
	}
	if _, ok := cfg.Config.Volumes["/data"]; !ok {
		t.Errorf("volumes = %v, want /data", cfg.Config.Volumes)
	}
	if cfg.OS != "linux" {
		t.Errorf("os = %q, want linux", cfg.OS)
	}

	if len(m.Layers) != 2 {
		t.Fatalf("image has %d layers, want 2", len(m.Layers))
	}

	rootfs := layerContents(t, files[blobName(m.Layers[0].Digest)])
	for name, want := range map[string]string{
		"etc/ssl/certs/ca-certificates.crt": "certs",
		"bin/sh":                            "shell",
		"usr/bin/env":                       "env",
	} {
		if rootfs[name] != want {
			t.Errorf("runtime layer %s = %q, want %q", name, rootfs[name], want)
		}
	}

	bins := layerContents(t, files[blobName(m.Layers[1].Digest)])
	for _, name := range art.Binaries {
		if got, want := bins["usr/bin/"+name], "elf:"+name; got != want {
			t.Errorf("binaries layer usr/bin/%s = %q, want %q", name, got, want)
		}
	}
}

func TestPackageDeterministic(t *testing.T) {
	p, crate, art := packageFixtures(t)

	first := filepath.Join(t.TempDir(), Filename)
	if err := p.Package(crate, art, first); err != nil {
		t.Fatal(err)
	}
	second := filepath.Join(t.TempDir(), Filename)
	if err := p.Package(crate, art, second); err != nil {
		t.Fatal(err)
	}

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("two runs with identical inputs produced different archives")
	}

	// A different creation time changes the config but must not
	// change the layers.
	p.Created = p.Created.Add(time.Hour)
	third := filepath.Join(t.TempDir(), Filename)
	if err := p.Package(crate, art, third); err != nil {
		t.Fatal(err)
	}

	m1, _, _ := readImage(t, readArchive(t, first))
	m3, _, _ := readImage(t, readArchive(t, third))
	for i := range m1.Layers {
		if m1.Layers[i].Digest != m3.Layers[i].Digest {
			t.Errorf("layer %d digest changed with the creation time", i)
		}
	}
}

func TestPackageMissingRuntimePiece(t *testing.T) {
	p, crate, art := packageFixtures(t)
	p.CABundle = filepath.Join(t.TempDir(), "missing.crt")

	err := p.Package(crate, art, filepath.Join(t.TempDir(), Filename))
	if !errors.Is(err, ErrPackaging) {
		t.Fatalf("Package error = %v, want ErrPackaging", err)
	}
}

func TestArchiveDirFailure(t *testing.T) {
	outDir := t.TempDir()
	out := filepath.Join(outDir, Filename)
	if err := os.WriteFile(out, []byte("previous"), 0644); err != nil {
		t.Fatal(err)
	}

	missing := filepath.Join(t.TempDir(), "missing")
	if err := archiveDir(missing, out); err == nil {
		t.Fatal("archiveDir succeeded on a missing directory")
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "previous" {
		t.Errorf("failed run rewrote the existing archive: %q", got)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("failed run left %d entries behind, want 1", len(entries))
	}
}
