package pipeline

import (
	"fmt"
	"log/slog"
	"time"
)

// Holds the outcome of one crate's trip through the pipeline.
type CrateResult struct {
	Crate   string `json:"crate"`
	Version string `json:"version,omitempty"`
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`

	// Installed binary names, primary binary first.
	Binaries []string `json:"binaries,omitempty"`

	// Number of test executables installed.
	Tests int `json:"tests"`

	// Path of the packaged image, when one was built.
	Image string `json:"image,omitempty"`

	Elapsed time.Duration `json:"elapsed_ns"`
}

// Moves the crate to the given status. Transitions outside the legal
// order are programming errors.
func (r *CrateResult) advance(to Status) {
	if !r.Status.canAdvance(to) {
		panic(fmt.Sprintf("pipeline: illegal transition %s -> %s for %s", r.Status, to, r.Crate))
	}
	r.Status = to
}

// Marks the crate failed at the given terminal status.
func (r *CrateResult) fail(to Status, err error) {
	r.advance(to)
	r.Error = err.Error()
	slog.Error("crate failed", "crate", r.Crate, "status", to, "error", err)
}

// Returned after a whole pipeline run.
type Result struct {
	Version     int           `json:"version"`
	Workspace   string        `json:"workspace"`
	Fingerprint string        `json:"deps_fingerprint,omitempty"`
	Started     time.Time     `json:"started"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Crates      []CrateResult `json:"crates"`
}

// Returns the crates that ended in failure.
func (r *Result) Failed() []CrateResult {
	var failed []CrateResult
	for _, c := range r.Crates {
		if c.Status.Failed() {
			failed = append(failed, c)
		}
	}
	return failed
}

// Reports whether every crate reached a terminal success.
func (r *Result) OK() bool {
	return len(r.Failed()) == 0
}
