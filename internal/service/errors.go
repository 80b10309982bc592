package service

import "errors"

// Sentinel errors surfaced to the request layer. Handlers match them with
// errors.Is to pick response codes; everything else is an internal failure.
var (
	// ErrInvalidFormat reports an export format outside {csv, json}.
	ErrInvalidFormat = errors.New("unsupported export format")

	// ErrInvalidFilter reports a filter value that failed validation.
	ErrInvalidFilter = errors.New("invalid export filter")

	// ErrJobNotFound reports an unknown export job id.
	ErrJobNotFound = errors.New("export job not found")

	// ErrExportNotReady reports a download attempt on a non-completed job.
	ErrExportNotReady = errors.New("export is not completed")

	// ErrArtifactMissing reports a completed job whose artifact is gone
	// from storage (deleted externally or swept).
	ErrArtifactMissing = errors.New("export artifact is no longer available")
)
