package buildlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/wharfhq/wharf/internal/paths"
)

const (
	// Name of the build log file inside a crate's output directory.
	Filename = "build-log.json"

	// Schema version this tool reads and writes.
	Version = 1
)

// Target kinds recorded in the build log.
const (
	KindBin  = "bin"
	KindTest = "test"
)

// A single artifact produced by the toolchain. The log is the only
// source of artifact provenance: nothing downstream guesses targets
// from filenames.
type Record struct {
	// Name of the package the artifact belongs to.
	Package string `json:"package"`

	// Target name within the package.
	Name string `json:"name"`

	// Either KindBin or KindTest.
	TargetKind string `json:"target_kind"`

	// Absolute path of the produced executable.
	FilePath string `json:"file_path"`
}

type header struct {
	Version int `json:"version"`
}

// Writes the log to path as JSON lines, one header line followed by
// one line per record, in the order given.
func Write(path string, records []Record) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return fmt.Errorf("failed to create build log: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(header{Version: Version}); err != nil {
		return fmt.Errorf("failed to write build log header: %w", err)
	}
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write build log record: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to flush build log: %w", err)
	}
	return nil
}

// Reads the log at path and returns its records in file order.
//
// Returns ErrNotFound when the file does not exist and ErrMalformed
// when it exists but cannot be decoded.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open build log: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)

	var h header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: bad header: %v", ErrMalformed, err)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, h.Version)
	}

	var records []Record
	for {
		var r Record
		if err := dec.Decode(&r); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%w: bad record: %v", ErrMalformed, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// Returns the records describing installable binaries, in log order.
func Binaries(records []Record) []Record {
	return byKind(records, KindBin)
}

// Returns the records describing test executables, in log order.
func Tests(records []Record) []Record {
	return byKind(records, KindTest)
}

func byKind(records []Record, kind string) []Record {
	var out []Record
	for _, r := range records {
		if r.TargetKind == kind {
			out = append(out, r)
		}
	}
	return out
}
