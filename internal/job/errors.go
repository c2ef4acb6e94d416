package job

import "errors"

var (
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotFailed is returned when a requeue targets a job that has not failed.
	ErrJobNotFailed = errors.New("job is not in failed state")
	// ErrNoJobAvailable means no queued job is ready to run.
	ErrNoJobAvailable = errors.New("no job available")
	// ErrLeaseLost means the job is no longer running under the caller's
	// lease, typically because the janitor released it and it was claimed again.
	ErrLeaseLost = errors.New("job lease lost")
)
