package scheduler

import "context"

// Job is a unit of work run by the worker pool.
type Job interface {
	Execute(ctx context.Context) error

	// Key identifies the work. The pool drops a job whose key is already
	// queued or running.
	Key() string

	// Description is used in logs and span attributes.
	Description() string
}
