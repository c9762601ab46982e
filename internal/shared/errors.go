package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrJobLocked indicates another process holds the run lock for a job.
	ErrJobLocked = errors.New("job already running")
)
