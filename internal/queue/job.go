package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Func is the work a job performs on the worker goroutine.
type Func func(ctx context.Context) error

// SynthesisJob is one serialised backend invocation.
type SynthesisJob struct {
	ID        string
	Scope     string
	CreatedAt time.Time
	StartedAt time.Time

	run  Func
	done chan error
}

// NewSynthesisJob creates a job with a unique ID. scope names the request the
// job belongs to and is used for logging only.
func NewSynthesisJob(scope string, fn Func) *SynthesisJob {
	return &SynthesisJob{
		ID:        uuid.New().String(),
		Scope:     scope,
		CreatedAt: time.Now(),
		run:       fn,
		done:      make(chan error, 1),
	}
}

// Wait blocks until the worker has run the job, or the queue was stopped
// before reaching it, and returns the job's error.
func (j *SynthesisJob) Wait() error {
	return <-j.done
}

// finish records the outcome. Called exactly once per job.
func (j *SynthesisJob) finish(err error) {
	j.done <- err
}

// Waited returns how long the job sat in the queue before it started.
func (j *SynthesisJob) Waited() time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	return j.StartedAt.Sub(j.CreatedAt)
}
