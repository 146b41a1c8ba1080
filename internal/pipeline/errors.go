package pipeline

import "errors"

// Configuration and data-sufficiency errors. These abort the whole operation;
// per-photo detection failures only skip the affected photo.
var (
	// ErrNoReferences means analysis was requested before any reference
	// faces were configured. Nothing is processed.
	ErrNoReferences = errors.New("no reference faces configured")

	// ErrNoMatches means no candidate photo matched the reference person,
	// so there is nothing to aggregate or render.
	ErrNoMatches = errors.New("no photos matched the reference person")

	// ErrNoFaceInReference means a reference photo contained no detectable
	// face. The wrapping error names the offending photo.
	ErrNoFaceInReference = errors.New("no detectable face in reference photo")
)
