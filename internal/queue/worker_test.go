package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	dir := t.TempDir()
	w, err := New(Config{
		StorePath:   filepath.Join(dir, "worker.sqlite"),
		AuditDBPath: filepath.Join(dir, "audit.sqlite"),
		LeaseOwner:  "worker-test",
	})
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	t.Cleanup(func() {
		_ = w.Close()
	})
	return w
}

func TestWorkerExecutesJob(t *testing.T) {
	w := newTestWorker(t)

	handled := 0
	w.RegisterHandler(JobTypeAssemble, func(ctx context.Context, job *Job) (any, error) {
		handled++
		return map[string]string{"paper_id": "p-1"}, nil
	})

	jobID, err := w.Store.Enqueue(JobTypeAssemble, time.Now().Add(-time.Second), AssemblePayload{Mode: "bank"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := w.claimAndExecute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if handled != 1 {
		t.Fatalf("expected handler to run once, ran %d times", handled)
	}

	job, err := w.Store.GetJob(jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", job.Status)
	}
}

func TestWorkerFailsJobOnHandlerError(t *testing.T) {
	w := newTestWorker(t)

	w.RegisterHandler(JobTypeAssemble, func(ctx context.Context, job *Job) (any, error) {
		return nil, errors.New("assembly exploded")
	})

	jobID, err := w.Store.Enqueue(JobTypeAssemble, time.Now().Add(-time.Second), AssemblePayload{Mode: "fresh"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := w.claimAndExecute(context.Background()); err == nil {
		t.Fatalf("expected handler error to propagate")
	}

	job, err := w.Store.GetJob(jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
}

func TestWorkerFailsUnknownJobType(t *testing.T) {
	w := newTestWorker(t)

	jobID, err := w.Store.Enqueue("mystery", time.Now().Add(-time.Second), nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := w.claimAndExecute(context.Background()); err == nil {
		t.Fatalf("expected unknown job type error")
	}

	job, err := w.Store.GetJob(jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
}

func TestWorkerNoJobsIsQuiet(t *testing.T) {
	w := newTestWorker(t)

	if err := w.claimAndExecute(context.Background()); err != nil {
		t.Fatalf("empty queue should be a no-op: %v", err)
	}
}
