package pipeline

// Position of one crate as it moves through the pipeline.
type Status string

const (
	StatusPending        Status = "pending"
	StatusBuilding       Status = "building"
	StatusBuilt          Status = "built"
	StatusBuildFailed    Status = "build-failed"
	StatusTestsExtracted Status = "tests-extracted"
	StatusExtractFailed  Status = "extract-failed"
	StatusPackaged       Status = "packaged"
	StatusPackageFailed  Status = "package-failed"
)

// Legal forward moves for each status. A crate never revisits a
// stage and never leaves a terminal status.
var transitions = map[Status][]Status{
	StatusPending:        {StatusBuilding, StatusBuildFailed},
	StatusBuilding:       {StatusBuilt, StatusBuildFailed},
	StatusBuilt:          {StatusTestsExtracted, StatusExtractFailed},
	StatusTestsExtracted: {StatusPackaged, StatusPackageFailed},
}

// Reports whether moving to the given status is legal.
func (s Status) canAdvance(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Reports whether the status is a terminal failure.
func (s Status) Failed() bool {
	switch s {
	case StatusBuildFailed, StatusExtractFailed, StatusPackageFailed:
		return true
	}
	return false
}
