package image

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/layout"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/google/go-containerregistry/pkg/v1/types"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/wharfhq/wharf/internal/builder"
	"github.com/wharfhq/wharf/internal/manifest"
)

// Name of the image archive inside a crate's output directory.
const Filename = "image.tar"

// Tag applied to every packaged image. Builds are only ever packaged
// from the workspace head, so there is nothing else to tag them with;
// the version travels in the image annotations instead.
const Tag = "latest"

// Host paths the runtime layer is populated from.
const (
	defaultCABundle = "/etc/ssl/certs/ca-certificates.crt"
	defaultShell    = "/bin/sh"
	defaultEnv      = "/usr/bin/env"
)

// Assembles runtime images for built crates.
//
// The zero value packages against the host's CA bundle, shell and env
// binary, stamping images with the packaging time.
type Packager struct {
	// Host paths copied into the runtime layer. Empty fields fall
	// back to the usual locations.
	CABundle string
	Shell    string
	Env      string

	// Created is recorded in the image config and annotations. Two
	// runs with the same inputs and the same Created produce byte
	// identical archives. The zero value means packaging time.
	Created time.Time
}

// Packages the crate's binaries into an image archive at outPath.
//
// The image entrypoint is the crate's primary binary; declared ports
// and volumes are carried into the image config verbatim.
func (p *Packager) Package(crate *manifest.Crate, art *builder.Artifact, outPath string) error {
	if err := p.assemble(crate, art, outPath); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPackaging, crate.Name, err)
	}

	slog.Info("image packaged", "crate", crate.Name, "version", crate.Version, "path", outPath)
	return nil
}

func (p *Packager) assemble(crate *manifest.Crate, art *builder.Artifact, outPath string) error {
	created := p.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}

	runtimeLayer, err := p.runtimeLayer()
	if err != nil {
		return err
	}
	binLayer, err := binariesLayer(art)
	if err != nil {
		return err
	}

	base := mutate.MediaType(empty.Image, types.OCIManifestSchema1)
	base = mutate.ConfigMediaType(base, types.OCIConfigJSON)

	img, err := mutate.Append(base,
		mutate.Addendum{Layer: runtimeLayer, History: v1.History{
			Created:   v1.Time{Time: created},
			CreatedBy: "wharf runtime rootfs",
		}},
		mutate.Addendum{Layer: binLayer, History: v1.History{
			Created:   v1.Time{Time: created},
			CreatedBy: "wharf install " + crate.Name,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to append layers: %w", err)
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return fmt.Errorf("failed to read image config: %w", err)
	}
	cfg = cfg.DeepCopy()
	cfg.Created = v1.Time{Time: created}
	cfg.Architecture = runtime.GOARCH
	cfg.OS = "linux"
	cfg.Config.Entrypoint = []string{path.Join("/usr/bin", crate.BinaryName)}
	cfg.Config.Env = []string{"PATH=/usr/bin:/bin"}
	if len(crate.Ports) > 0 {
		cfg.Config.ExposedPorts = stringSet(crate.Ports)
	}
	if len(crate.Volumes) > 0 {
		cfg.Config.Volumes = stringSet(crate.Volumes)
	}

	img, err = mutate.ConfigFile(img, cfg)
	if err != nil {
		return fmt.Errorf("failed to set image config: %w", err)
	}

	img = mutate.Annotations(img, map[string]string{
		ocispec.AnnotationTitle:   crate.Name,
		ocispec.AnnotationVersion: crate.Version,
		ocispec.AnnotationCreated: created.Format(time.RFC3339),
	}).(v1.Image)

	tag, err := name.NewTag(crate.Name+":"+Tag, name.WithDefaultRegistry(""))
	if err != nil {
		return fmt.Errorf("failed to derive image tag: %w", err)
	}

	return writeArchive(img, tag, outPath)
}

// Writes the image as a tar of an OCI image layout. The layout and
// the archive are both staged next to outPath and renamed into place,
// so a failed run never leaves a half written archive behind.
func writeArchive(img v1.Image, tag name.Tag, outPath string) error {
	staging, err := os.MkdirTemp(filepath.Dir(outPath), ".image-")
	if err != nil {
		return fmt.Errorf("failed to create layout staging: %w", err)
	}
	defer os.RemoveAll(staging)

	lp, err := layout.Write(staging, empty.Index)
	if err != nil {
		return fmt.Errorf("failed to initialize layout: %w", err)
	}
	err = lp.AppendImage(img, layout.WithAnnotations(map[string]string{
		ocispec.AnnotationRefName: tag.String(),
	}))
	if err != nil {
		return fmt.Errorf("failed to write layout: %w", err)
	}

	return archiveDir(staging, outPath)
}

// Builds the layer with the runtime pieces every image carries: CA
// certificates, a shell and env.
func (p *Packager) runtimeLayer() (v1.Layer, error) {
	return layerFromFiles([]layerFile{
		{name: "etc/ssl/certs/ca-certificates.crt", src: cmp.Or(p.CABundle, defaultCABundle), mode: 0644},
		{name: "bin/sh", src: cmp.Or(p.Shell, defaultShell), mode: 0755},
		{name: "usr/bin/env", src: cmp.Or(p.Env, defaultEnv), mode: 0755},
	})
}

// Builds the layer installing the crate's binaries under /usr/bin.
func binariesLayer(art *builder.Artifact) (v1.Layer, error) {
	files := make([]layerFile, 0, len(art.Binaries))
	for _, bin := range art.Binaries {
		files = append(files, layerFile{
			name: path.Join("usr/bin", bin),
			src:  filepath.Join(art.BinDir, bin),
			mode: 0755,
		})
	}
	return layerFromFiles(files)
}

func layerFromFiles(files []layerFile) (v1.Layer, error) {
	var buf bytes.Buffer
	if err := writeLayerTar(&buf, files); err != nil {
		return nil, err
	}

	data := buf.Bytes()
	return tarball.LayerFromOpener(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, tarball.WithMediaType(types.OCILayer))
}

func stringSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
