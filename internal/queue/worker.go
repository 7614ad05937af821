package queue

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paperforge/internal/audit"
	"paperforge/internal/notify"
)

// HandlerFunc is the function signature for job handlers.
type HandlerFunc func(ctx context.Context, job *Job) (any, error)

// Worker is a long-running process that claims and executes assembly
// jobs one at a time.
type Worker struct {
	Store        *Store
	Handlers     map[string]HandlerFunc
	AuditLogger  *audit.Logger
	Notifier     *notify.Notifier
	LeaseOwner   string
	LeaseFor     time.Duration
	PollInterval time.Duration
}

// Config holds worker configuration.
type Config struct {
	StorePath     string
	AuditDBPath   string
	LeaseOwner    string
	LeaseFor      time.Duration
	PollInterval  time.Duration
	Notifications bool
}

// New creates a worker with no handlers registered.
func New(cfg Config) (*Worker, error) {
	store, err := Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if cfg.LeaseOwner == "" {
		hostname, _ := os.Hostname()
		cfg.LeaseOwner = fmt.Sprintf("worker-%s-%d", hostname, os.Getpid())
	}
	if cfg.LeaseFor == 0 {
		cfg.LeaseFor = 10 * time.Minute
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 1 * time.Second
	}

	return &Worker{
		Store:        store,
		Handlers:     map[string]HandlerFunc{},
		AuditLogger:  audit.NewLogger(cfg.AuditDBPath),
		Notifier:     &notify.Notifier{Enabled: cfg.Notifications},
		LeaseOwner:   cfg.LeaseOwner,
		LeaseFor:     cfg.LeaseFor,
		PollInterval: cfg.PollInterval,
	}, nil
}

// RegisterHandler registers a handler for a specific job type.
func (w *Worker) RegisterHandler(jobType string, handler HandlerFunc) {
	w.Handlers[jobType] = handler
}

// Run starts the worker loop. It exits on context cancellation or an
// interrupt signal.
func (w *Worker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	startPayload := map[string]any{
		"lease_owner":   w.LeaseOwner,
		"lease_for":     w.LeaseFor.String(),
		"poll_interval": w.PollInterval.String(),
	}
	if err := w.AuditLogger.LogEvent("worker", "worker_started", startPayload); err != nil {
		fmt.Fprintf(os.Stderr, "audit log failed: %v\n", err)
	}

	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = w.AuditLogger.LogEvent("worker", "worker_stopped", map[string]any{
				"lease_owner": w.LeaseOwner,
			})
			return nil

		case <-ticker.C:
			if err := w.claimAndExecute(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "job execution failed: %v\n", err)
			}
		}
	}
}

func (w *Worker) claimAndExecute(ctx context.Context) error {
	job, err := w.Store.ClaimNext(time.Now(), w.LeaseOwner, w.LeaseFor)
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if job == nil {
		return nil
	}

	startPayload := map[string]any{
		"job_id":   job.ID,
		"job_type": job.Type,
		"payload":  job.PayloadJSON,
	}
	if err := w.AuditLogger.LogEvent("worker", "job_started", startPayload); err != nil {
		fmt.Fprintf(os.Stderr, "audit log failed: %v\n", err)
	}

	handler, ok := w.Handlers[job.Type]
	if !ok {
		err := fmt.Errorf("no handler for job type: %s", job.Type)
		_ = w.Store.Fail(job.ID, err)
		_ = w.AuditLogger.LogEvent("worker", "job_failed", map[string]any{
			"job_id":   job.ID,
			"job_type": job.Type,
			"error":    err.Error(),
		})
		return err
	}

	result, execErr := handler(ctx, job)
	if execErr != nil {
		_ = w.Store.Fail(job.ID, execErr)
		_ = w.AuditLogger.LogEvent("worker", "job_failed", map[string]any{
			"job_id":   job.ID,
			"job_type": job.Type,
			"error":    execErr.Error(),
		})
		return execErr
	}

	if err := w.Store.Succeed(job.ID, result); err != nil {
		return fmt.Errorf("mark job succeeded: %w", err)
	}

	_ = w.AuditLogger.LogEvent("worker", "job_succeeded", map[string]any{
		"job_id":   job.ID,
		"job_type": job.Type,
	})
	return nil
}

// Close closes the worker's store.
func (w *Worker) Close() error {
	return w.Store.Close()
}
