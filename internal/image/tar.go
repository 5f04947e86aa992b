package image

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/wharfhq/wharf/internal/paths"
)

// All tar entries carry the epoch so identical inputs produce
// identical archives.
var epoch = time.Unix(0, 0).UTC()

// A host file staged into an image layer under a fixed path.
type layerFile struct {
	// Slash separated path inside the image, without a leading slash.
	name string

	// Host file the content comes from.
	src string

	mode int64
}

// Writes the files as a deterministic tar stream: parent directories
// first, fixed timestamps, root ownership.
func writeLayerTar(w io.Writer, files []layerFile) error {
	tw := tar.NewWriter(w)

	seen := make(map[string]bool)
	for _, f := range files {
		if err := writeParents(tw, seen, f.name); err != nil {
			return err
		}
		if err := writeFileEntry(tw, f); err != nil {
			return err
		}
	}
	return tw.Close()
}

func writeParents(tw *tar.Writer, seen map[string]bool, name string) error {
	dir := path.Dir(name)
	if dir == "." || dir == "/" || seen[dir] {
		return nil
	}
	if err := writeParents(tw, seen, dir); err != nil {
		return err
	}

	seen[dir] = true
	return tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeDir,
		Name:     dir + "/",
		Mode:     0755,
		ModTime:  epoch,
	})
}

func writeFileEntry(tw *tar.Writer, f layerFile) error {
	in, err := os.Open(f.src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", f.src, err)
	}

	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     f.name,
		Mode:     f.mode,
		Size:     info.Size(),
		ModTime:  epoch,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := io.Copy(tw, in); err != nil {
		return fmt.Errorf("failed to archive %s: %w", f.src, err)
	}
	return nil
}

// Packs the directory into a tar archive at outPath. The archive is
// staged in outPath's directory and renamed into place, so outPath
// either keeps its previous content or holds the complete archive,
// never a truncated one. WalkDir visits entries in lexical order, so
// two identical directories archive to identical bytes.
func archiveDir(dir, outPath string) error {
	out, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+"-")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	tmp := out.Name()
	defer func() {
		out.Close()
		os.Remove(tmp)
	}()

	tw := tar.NewWriter(out)
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		if d.IsDir() {
			return tw.WriteHeader(&tar.Header{
				Typeflag: tar.TypeDir,
				Name:     name + "/",
				Mode:     0755,
				ModTime:  epoch,
			})
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return writeFileEntry(tw, layerFile{name: name, src: p, mode: 0644})
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", dir, err)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", outPath, err)
	}
	if err := out.Chmod(paths.DefaultFileMode); err != nil {
		return fmt.Errorf("failed to finish %s: %w", outPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", outPath, err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return fmt.Errorf("failed to publish %s: %w", outPath, err)
	}
	return nil
}
