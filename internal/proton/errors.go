package proton

import (
	"context"
	"errors"
)

// The pipeline error taxonomy. Components return these sentinels wrapped
// with detail; the orchestrator branches on them with errors.Is.
var (
	// ErrReleaseQuery covers an unreachable release index as well as a
	// malformed or incomplete release.
	ErrReleaseQuery = errors.New("release query failed")
	// ErrScheme is returned for asset URLs not using https.
	ErrScheme = errors.New("insecure url scheme")
	// ErrDownload is returned for non-success HTTP statuses.
	ErrDownload = errors.New("download failed")
	// ErrDigestMismatch marks a corrupted or tampered archive.
	ErrDigestMismatch = errors.New("digest mismatch")
	// ErrExtraction marks an unreadable or unsafe archive.
	ErrExtraction = errors.New("extraction failed")
	// ErrInterrupted marks an externally delivered cancellation mid-flight.
	ErrInterrupted = errors.New("interrupted")
	// ErrNoBuildAvailable means neither network fetch nor local fallback
	// produced a build. Callers must abort the launch on it.
	ErrNoBuildAvailable = errors.New("no proton build available")
)

// interrupted reports whether an error stems from external cancellation.
func interrupted(err error) bool {
	return errors.Is(err, ErrInterrupted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
