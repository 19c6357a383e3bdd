package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("queue is full")
	// ErrQueueClosed is returned when attempting to enqueue to a closed queue,
	// and to jobs still pending when the queue stops.
	ErrQueueClosed = errors.New("queue is closed")
)

// Queue is a bounded queue with a single worker. Jobs run one at a time in
// arrival order, which makes the worker the only goroutine touching a
// backend's fixed output file.
type Queue struct {
	mu        sync.Mutex
	jobs      []*SynthesisJob
	capacity  int
	logger    *slog.Logger
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopCh    chan struct{}
	enqueueCh chan struct{}
	stopOnce  sync.Once
}

// NewQueue creates a new bounded queue.
func NewQueue(capacity int, logger *slog.Logger) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		jobs:      make([]*SynthesisJob, 0, capacity),
		capacity:  capacity,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		stopCh:    make(chan struct{}),
		enqueueCh: make(chan struct{}, 1),
	}
}

// Enqueue adds a job to the queue.
func (q *Queue) Enqueue(job *SynthesisJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	if len(q.jobs) >= q.capacity {
		return ErrQueueFull
	}

	q.jobs = append(q.jobs, job)

	q.logger.Debug("job enqueued", "job_id", job.ID, "scope", job.Scope, "queue_depth", len(q.jobs))

	// Signal the worker
	select {
	case q.enqueueCh <- struct{}{}:
	default:
	}

	return nil
}

// Do enqueues fn and waits for the worker to run it. fn receives the queue's
// own context, so an abandoned caller does not interrupt it.
func (q *Queue) Do(scope string, fn Func) error {
	job := NewSynthesisJob(scope, fn)
	if err := q.Enqueue(job); err != nil {
		return err
	}
	return job.Wait()
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Start begins the worker goroutine.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.worker()
}

// Stop refuses new jobs, cancels the running job's context and waits for it
// to return, then fails the jobs still waiting with ErrQueueClosed. Safe to
// call more than once.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()

		// Cancel first so a job blocked on a hung backend returns.
		q.cancel()
		close(q.stopCh)
		q.wg.Wait()

		q.mu.Lock()
		pending := q.jobs
		q.jobs = nil
		q.mu.Unlock()

		for _, job := range pending {
			job.finish(ErrQueueClosed)
		}
		if len(pending) > 0 {
			q.logger.Info("queue stopped with pending jobs", "jobs_failed", len(pending))
		}
	})
}

// worker is the single job goroutine.
func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		if q.ctx.Err() != nil {
			return
		}
		select {
		case <-q.stopCh:
			return
		default:
		}

		if job := q.dequeue(); job != nil {
			q.processJob(job)
			continue
		}

		select {
		case <-q.stopCh:
			return
		case <-q.enqueueCh:
		}
	}
}

// dequeue removes and returns the next job from the queue.
func (q *Queue) dequeue() *SynthesisJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil
	}

	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job
}

// processJob runs a single job, converting a panic into the job's error.
func (q *Queue) processJob(job *SynthesisJob) {
	job.StartedAt = time.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("synthesis job panicked: %v", r)
			}
		}()
		return job.run(q.ctx)
	}()

	if err != nil {
		q.logger.Warn("job failed", "job_id", job.ID, "scope", job.Scope, "error", err)
	} else {
		q.logger.Debug("job completed",
			"job_id", job.ID,
			"scope", job.Scope,
			"waited", job.Waited(),
			"took", time.Since(job.StartedAt),
		)
	}

	job.finish(err)
}
