// Package master implements the renderer's work-stealing job pool:
// a fixed-size group of workers pulling from a shared queue, sized to
// the configured or detected core count, per spec.md §5.
package master

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const masterPrefix = "master: "

func newMasterErr(reason string) error { return errors.New(masterPrefix + reason) }

// Errors returned by this package.
var (
	ErrClosed    = newMasterErr("master is closed")
	ErrNoWorkers = newMasterErr("worker count must be positive")
)

// Job is one unit of schedulable work: a bucket render, a
// tessellation dice/split, or a photon-emission batch. Run must poll
// ctx and return promptly on cancellation, matching the
// bsp_build_progress abort contract from spec.md §5.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a plain function to Job.
type JobFunc func(ctx context.Context) error

// Run calls f.
func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// Config bounds a Master's concurrency.
type Config struct {
	// Workers is the number of concurrent job slots. Zero selects
	// the numCPU argument passed to NewMaster.
	Workers int
}

// Master is a work-stealing pool: jobs are pushed onto a shared
// queue (a channel buffered to four jobs per worker) and a fixed set of
// workers, each holding one semaphore permit, pull and run them. Using
// a single shared channel as the queue already gives every idle worker
// equal opportunity to steal the next job, the simplest correct
// work-stealing discipline for a queue with no per-worker affinity
// requirement.
type Master struct {
	sem     *semaphore.Weighted
	workers int

	mu     sync.Mutex
	jobs   chan Job
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// NewMaster starts a Master with cfg.Workers concurrent slots (or
// numCPU workers if cfg.Workers is zero), each pulling jobs
// from the shared queue until the returned Master is closed or parent
// is canceled.
func NewMaster(parent context.Context, cfg Config, numCPU int) (*Master, error) {
	workers := cfg.Workers
	if workers == 0 {
		workers = numCPU
	}
	if workers <= 0 {
		return nil, ErrNoWorkers
	}

	ctx, cancel := context.WithCancel(parent)
	group, gctx := errgroup.WithContext(ctx)

	m := &Master{
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: workers,
		jobs:    make(chan Job, workers*4),
		group:   group,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		group.Go(func() error { return m.workerLoop(gctx) })
	}

	return m, nil
}

func (m *Master) workerLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job, ok := <-m.jobs:
			if !ok {
				return nil
			}
			if err := m.runJob(ctx, job); err != nil {
				return err
			}
		}
	}
}

func (m *Master) runJob(ctx context.Context, job Job) error {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.sem.Release(1)
	return job.Run(ctx)
}

// Submit enqueues job for execution by the next idle worker. It
// blocks if the queue is momentarily full, and returns ErrClosed once
// Close has been called.
func (m *Master) Submit(job Job) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.mu.Unlock()

	select {
	case m.jobs <- job:
		return nil
	case <-m.ctx.Done():
		return m.ctx.Err()
	}
}

// Close stops accepting new jobs and waits for in-flight and
// already-queued jobs to finish, returning the first error any worker
// returned (if any). Calling Close more than once is safe; subsequent
// calls return the same result.
func (m *Master) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return m.group.Wait()
	}
	m.closed = true
	close(m.jobs)
	m.mu.Unlock()

	err := m.group.Wait()
	m.cancel()
	return err
}

// Cancel aborts every in-flight and queued job immediately, the
// render-time equivalent of bsp_build_progress returning true.
func (m *Master) Cancel() {
	m.cancel()
}
