// Package queue serializes paper assembly through a single-worker
// SQLite-backed job queue. Whole assemble runs are the unit of work;
// the worker claims at most one job at a time.
package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Job statuses.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// JobTypeAssemble is the only job type the worker runs.
const JobTypeAssemble = "assemble"

// Store manages worker state in SQLite.
type Store struct {
	DBPath string
	db     *sql.DB
}

// Job represents a queued or running assembly job.
type Job struct {
	ID             string
	Type           string
	Status         string
	ScheduledAt    time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	PayloadJSON    string
	ResultJSON     string
	LeaseOwner     string
	LeaseExpiresAt *time.Time
}

// AssemblePayload is the payload for an assemble job.
type AssemblePayload struct {
	BlueprintPath string `json:"blueprint_path"`
	Mode          string `json:"mode"`
	AuthorID      string `json:"author_id,omitempty"`
	MinFromBank   int    `json:"min_from_bank,omitempty"`
	Randomize     bool   `json:"randomize"`
	Seed          int64  `json:"seed"`
}

// Open opens or creates the worker state database.
func Open(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve worker db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure worker db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open worker db: %w", err)
	}

	store := &Store{
		DBPath: absPath,
		db:     db,
	}

	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS worker_jobs (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	scheduled_at TEXT NOT NULL,
	started_at TEXT,
	finished_at TEXT,
	payload_json TEXT,
	result_json TEXT,
	lease_owner TEXT,
	lease_expires_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_worker_jobs_status_scheduled ON worker_jobs(status, scheduled_at);
`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("create worker schema: %w", err)
	}
	return nil
}

// Enqueue inserts a new assemble job scheduled for scheduledAt.
func (s *Store) Enqueue(jobType string, scheduledAt time.Time, payload any) (string, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	scheduledAtStr := scheduledAt.UTC().Format(time.RFC3339)
	jobID := fmt.Sprintf("%s_%s", jobType, scheduledAt.UTC().Format("2006-01-02T15:04:05.000"))

	_, err = s.db.Exec(`
		INSERT INTO worker_jobs (id, type, status, scheduled_at, payload_json)
		VALUES (?, ?, ?, ?, ?)
	`, jobID, jobType, StatusQueued, scheduledAtStr, string(payloadJSON))
	if err != nil {
		return "", fmt.Errorf("insert job: %w", err)
	}

	return jobID, nil
}

// ClaimNext atomically claims the next queued job that is ready to run.
// The worker holds at most one claim; callers must finish a claimed job
// before claiming again.
func (s *Store) ClaimNext(now time.Time, leaseOwner string, leaseFor time.Duration) (*Job, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	nowStr := now.UTC().Format(time.RFC3339)
	leaseExpiresAt := now.Add(leaseFor).UTC().Format(time.RFC3339)

	var jobID string
	err = tx.QueryRow(`
		SELECT id FROM worker_jobs
		WHERE status = 'queued' AND scheduled_at <= ?
		ORDER BY scheduled_at ASC
		LIMIT 1
	`, nowStr).Scan(&jobID)

	if err == sql.ErrNoRows {
		return nil, nil // No jobs available
	}
	if err != nil {
		return nil, fmt.Errorf("find next job: %w", err)
	}

	startedAt := now.UTC().Format(time.RFC3339)
	_, err = tx.Exec(`
		UPDATE worker_jobs
		SET status = 'running',
		    started_at = ?,
		    lease_owner = ?,
		    lease_expires_at = ?
		WHERE id = ?
	`, startedAt, leaseOwner, leaseExpiresAt, jobID)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetJob(jobID)
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(jobID string) (*Job, error) {
	row := s.db.QueryRow(`
		SELECT id, type, status, scheduled_at, started_at, finished_at,
		       payload_json, result_json, lease_owner, lease_expires_at
		FROM worker_jobs
		WHERE id = ?
	`, jobID)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Succeed marks a job as succeeded.
func (s *Store) Succeed(jobID string, result any) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	finishedAt := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(`
		UPDATE worker_jobs
		SET status = 'succeeded',
		    finished_at = ?,
		    result_json = ?
		WHERE id = ?
	`, finishedAt, string(resultJSON), jobID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// Fail marks a job as failed.
func (s *Store) Fail(jobID string, jobErr error) error {
	result := map[string]string{
		"error": jobErr.Error(),
	}
	resultJSON, _ := json.Marshal(result)

	finishedAt := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		UPDATE worker_jobs
		SET status = 'failed',
		    finished_at = ?,
		    result_json = ?
		WHERE id = ?
	`, finishedAt, string(resultJSON), jobID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// ListJobs returns up to limit jobs ordered by scheduled_at, newest first.
func (s *Store) ListJobs(limit int) ([]Job, error) {
	rows, err := s.db.Query(`
		SELECT id, type, status, scheduled_at, started_at, finished_at,
		       payload_json, result_json, lease_owner, lease_expires_at
		FROM worker_jobs
		ORDER BY scheduled_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var scheduledAt string
	var startedAt, finishedAt, leaseExpiresAt sql.NullString
	var payloadJSON, resultJSON, leaseOwner sql.NullString

	err := row.Scan(
		&job.ID, &job.Type, &job.Status, &scheduledAt,
		&startedAt, &finishedAt, &payloadJSON, &resultJSON,
		&leaseOwner, &leaseExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	job.ScheduledAt, _ = time.Parse(time.RFC3339, scheduledAt)
	if startedAt.Valid {
		t, _ := time.Parse(time.RFC3339, startedAt.String)
		job.StartedAt = &t
	}
	if finishedAt.Valid {
		t, _ := time.Parse(time.RFC3339, finishedAt.String)
		job.FinishedAt = &t
	}
	if leaseExpiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, leaseExpiresAt.String)
		job.LeaseExpiresAt = &t
	}
	job.PayloadJSON = payloadJSON.String
	job.ResultJSON = resultJSON.String
	job.LeaseOwner = leaseOwner.String

	return &job, nil
}
