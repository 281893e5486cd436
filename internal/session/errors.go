package session

import "errors"

// Sentinel errors for session storage. Callers match them with errors.Is.
var (
	// ErrSessionNotFound indicates the named session has no directory or
	// metadata on disk. Recoverable: report and continue.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionIO indicates a directory or metadata operation failed at
	// the filesystem level (permissions, disk). Fatal for that operation
	// only; the process should keep running where feasible.
	ErrSessionIO = errors.New("session storage failure")
)
