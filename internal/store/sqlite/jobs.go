package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-swms/pkg/jobs"
)

// Fixed-width UTC timestamps keep ORDER BY created_at chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const jobColumns = `id,status,project,COALESCE(renderer,''),attempts,COALESCE(error,''),COALESCE(cache_key,''),created_at,COALESCE(completed_at,'')`

// JobStore persists render jobs. It implements jobs.Store.
type JobStore struct {
	DB *sql.DB
}

var _ jobs.Store = JobStore{}

func NewJobStore(db *sql.DB) JobStore {
	return JobStore{DB: db}
}

func (s JobStore) Create(ctx context.Context, job jobs.Job) error {
	if job.ID == "" {
		return errors.New("sqlite: job id required")
	}
	attempts, err := encodeAttempts(job.Attempts)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO render_jobs(id,status,project,renderer,attempts,error,cache_key,created_at,completed_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		job.ID, string(job.Status), job.Project, nullable(job.Renderer), attempts, nullable(job.Error),
		nullable(job.CacheKey), formatTime(job.CreatedAt), nullableTime(job.CompletedAt))
	if err != nil {
		return fmt.Errorf("sqlite: insert job %s: %w", job.ID, err)
	}
	return nil
}

func (s JobStore) Complete(ctx context.Context, job jobs.Job, pdf []byte) error {
	if !job.Status.Terminal() {
		return fmt.Errorf("sqlite: job %s: status %q is not terminal", job.ID, job.Status)
	}
	attempts, err := encodeAttempts(job.Attempts)
	if err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE render_jobs SET status=?, project=?, renderer=?, attempts=?, error=?, completed_at=? WHERE id=? AND status='loading'`,
		string(job.Status), job.Project, nullable(job.Renderer), attempts, nullable(job.Error), nullableTime(job.CompletedAt), job.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update job %s: %w", job.ID, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM render_jobs WHERE id=?`, job.ID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return jobs.ErrNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("sqlite: job %s already %s", job.ID, status)
	}

	if pdf != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO render_outputs(job_id,size,data) VALUES (?,?,?)`, job.ID, len(pdf), pdf); err != nil {
			return fmt.Errorf("sqlite: store output for %s: %w", job.ID, err)
		}
	}
	return tx.Commit()
}

func (s JobStore) Get(ctx context.Context, id string) (jobs.Job, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM render_jobs WHERE id=?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return jobs.Job{}, jobs.ErrNotFound
	}
	return job, err
}

func (s JobStore) PDF(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.DB.QueryRowContext(ctx, `SELECT data FROM render_outputs WHERE job_id=?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, jobs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s JobStore) List(ctx context.Context, limit int) ([]jobs.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT `+jobColumns+` FROM render_jobs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []jobs.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, job)
	}
	return res, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (jobs.Job, error) {
	var (
		job                  jobs.Job
		status, attempts     string
		createdAt, completed string
	)
	if err := row.Scan(&job.ID, &status, &job.Project, &job.Renderer, &attempts, &job.Error, &job.CacheKey, &createdAt, &completed); err != nil {
		return jobs.Job{}, err
	}
	job.Status = jobs.Status(status)
	if err := json.Unmarshal([]byte(attempts), &job.Attempts); err != nil {
		return jobs.Job{}, fmt.Errorf("sqlite: decode attempts for %s: %w", job.ID, err)
	}
	if len(job.Attempts) == 0 {
		job.Attempts = nil
	}
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("sqlite: parse created_at for %s: %w", job.ID, err)
	}
	job.CreatedAt = created
	if completed != "" {
		t, err := time.Parse(timeLayout, completed)
		if err != nil {
			return jobs.Job{}, fmt.Errorf("sqlite: parse completed_at for %s: %w", job.ID, err)
		}
		job.CompletedAt = &t
	}
	return job, nil
}

func encodeAttempts(attempts []jobs.Attempt) (string, error) {
	if len(attempts) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(attempts)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode attempts: %w", err)
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
