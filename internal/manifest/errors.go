package manifest

import "errors"

var (
	ErrWorkspace         = errors.New("workspace config invalid")
	ErrManifestNotFound  = errors.New("crate manifest not found")
	ErrManifestMalformed = errors.New("crate manifest malformed")
	ErrUnknownCrate      = errors.New("unknown crate")
)
