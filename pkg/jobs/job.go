package jobs

import (
	"context"
	"errors"
	"time"
)

// Status is the caller-visible progression of a render.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// ErrNotFound is returned by stores for unknown job ids.
var ErrNotFound = errors.New("jobs: not found")

// ErrNotReady is returned when the PDF of a job that has not succeeded is
// requested.
var ErrNotReady = errors.New("jobs: pdf not ready")

// Attempt records one failed tier.
type Attempt struct {
	Renderer string `json:"renderer"`
	Error    string `json:"error"`
}

// Job is one render request and its outcome.
type Job struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Project     string     `json:"project"`
	Renderer    string     `json:"renderer,omitempty"`
	Attempts    []Attempt  `json:"attempts,omitempty"`
	Error       string     `json:"error,omitempty"`
	CacheKey    string     `json:"cacheKey,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Store persists jobs and their output.
type Store interface {
	Create(ctx context.Context, job Job) error
	// Complete moves a loading job to its terminal state. pdf is nil for
	// failed jobs.
	Complete(ctx context.Context, job Job, pdf []byte) error
	Get(ctx context.Context, id string) (Job, error)
	PDF(ctx context.Context, id string) ([]byte, error)
	List(ctx context.Context, limit int) ([]Job, error)
}
