package master

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestMasterRunsAllJobs(t *testing.T) {
	m, err := NewMaster(context.Background(), Config{Workers: 4}, 4)
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}

	var count int64
	const n = 100
	for i := 0; i < n; i++ {
		job := JobFunc(func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		})
		if err := m.Submit(job); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := atomic.LoadInt64(&count); got != n {
		t.Errorf("got %d completed jobs, want %d", got, n)
	}
}

func TestMasterZeroWorkersUsesNumCPU(t *testing.T) {
	m, err := NewMaster(context.Background(), Config{}, 3)
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	if m.workers != 3 {
		t.Errorf("workers = %d, want 3", m.workers)
	}
	m.Close()
}

func TestMasterNoWorkersErrors(t *testing.T) {
	_, err := NewMaster(context.Background(), Config{}, 0)
	if err != ErrNoWorkers {
		t.Errorf("err = %v, want ErrNoWorkers", err)
	}
}

func TestMasterSubmitAfterCloseErrors(t *testing.T) {
	m, err := NewMaster(context.Background(), Config{Workers: 1}, 1)
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	m.Close()
	if err := m.Submit(JobFunc(func(ctx context.Context) error { return nil })); err != ErrClosed {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestMasterPropagatesJobError(t *testing.T) {
	m, err := NewMaster(context.Background(), Config{Workers: 2}, 2)
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}

	boom := newMasterErr("boom")
	m.Submit(JobFunc(func(ctx context.Context) error { return boom }))

	// Give the worker a chance to pick up and fail the job before
	// closing, since Submit only guarantees enqueue, not execution.
	time.Sleep(20 * time.Millisecond)

	if err := m.Close(); err != boom {
		t.Errorf("Close err = %v, want %v", err, boom)
	}
}

func TestMasterCancelStopsWorkers(t *testing.T) {
	m, err := NewMaster(context.Background(), Config{Workers: 2}, 2)
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	m.Cancel()
	if err := m.Close(); err != nil {
		t.Errorf("Close after Cancel: %v", err)
	}
}
