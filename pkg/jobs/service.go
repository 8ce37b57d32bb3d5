package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-swms/pkg/cache"
	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/orchestrator"
	"github.com/goliatone/go-swms/pkg/render"
)

// CacheRenderer is recorded as the renderer of jobs served from the cache.
const CacheRenderer = "cache"

// Pipeline runs assemble -> render. *orchestrator.Orchestrator satisfies it.
type Pipeline interface {
	Generate(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error)
}

type Option func(*Service)

// WithCache serves repeated inputs from a PDF cache.
func WithCache(pdfs *cache.PDFCache) Option {
	return func(s *Service) {
		s.cache = pdfs
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides uuid job ids.
func WithIDGenerator(next func() string) Option {
	return func(s *Service) {
		if next != nil {
			s.newID = next
		}
	}
}

// WithJobTimeout bounds background jobs started with Start.
func WithJobTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.jobTimeout = timeout
	}
}

// Service tracks renders as jobs with a loading -> success | error lifecycle.
type Service struct {
	store      Store
	pipeline   Pipeline
	cache      *cache.PDFCache
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
	jobTimeout time.Duration

	wg sync.WaitGroup
}

func NewService(store Store, pipeline Pipeline, options ...Option) *Service {
	s := &Service{
		store:      store,
		pipeline:   pipeline,
		logger:     zap.NewNop(),
		now:        time.Now,
		newID:      uuid.NewString,
		jobTimeout: 2 * time.Minute,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Request is a job submission.
type Request struct {
	Sections     pkgmodel.Sections
	Renderer     string
	ThemeName    string
	ThemeVariant string
}

// Submit records a loading job, runs the pipeline and returns the job in its
// terminal state. Pipeline failures are recorded on the job, not returned;
// the error result is reserved for store failures.
func (s *Service) Submit(ctx context.Context, req Request) (Job, error) {
	job, err := s.create(ctx, req)
	if err != nil {
		return Job{}, err
	}
	return s.run(ctx, job, req)
}

// Start records a loading job and runs it in the background. Poll Get for the
// outcome.
func (s *Service) Start(ctx context.Context, req Request) (Job, error) {
	job, err := s.create(ctx, req)
	if err != nil {
		return Job{}, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.jobTimeout)
		defer cancel()
		if _, err := s.run(runCtx, job, req); err != nil {
			s.logger.Error("background render job failed to persist", zap.String("job", job.ID), zap.Error(err))
		}
	}()
	return job, nil
}

// Wait blocks until background jobs finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Get returns a job by id.
func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	return s.store.Get(ctx, id)
}

// PDF returns the output of a successful job.
func (s *Service) PDF(ctx context.Context, id string) ([]byte, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != StatusSuccess {
		return nil, fmt.Errorf("%w: job %s is %s", ErrNotReady, id, job.Status)
	}
	return s.store.PDF(ctx, id)
}

// List returns the most recent jobs first.
func (s *Service) List(ctx context.Context, limit int) ([]Job, error) {
	return s.store.List(ctx, limit)
}

func (s *Service) create(ctx context.Context, req Request) (Job, error) {
	job := Job{
		ID:        s.newID(),
		Status:    StatusLoading,
		Project:   projectName(req.Sections),
		CreatedAt: s.now().UTC(),
	}
	if s.cache != nil {
		key, err := cache.Key(req.Sections, req.Renderer, req.ThemeName, req.ThemeVariant)
		if err != nil {
			s.logger.Debug("sections not cacheable", zap.Error(err))
		} else {
			job.CacheKey = key
		}
	}
	if err := s.store.Create(ctx, job); err != nil {
		return Job{}, fmt.Errorf("jobs: create job: %w", err)
	}
	s.logger.Debug("render job created", zap.String("job", job.ID), zap.String("project", job.Project))
	return job, nil
}

func (s *Service) run(ctx context.Context, job Job, req Request) (Job, error) {
	if pdf, ok := s.cached(ctx, job.CacheKey); ok {
		job.Renderer = CacheRenderer
		return s.finish(ctx, job, pdf, nil)
	}

	result, err := s.pipeline.Generate(ctx, orchestrator.Request{
		Sections:     req.Sections,
		Renderer:     req.Renderer,
		ThemeName:    req.ThemeName,
		ThemeVariant: req.ThemeVariant,
	})
	if err != nil {
		return s.finish(ctx, job, nil, err)
	}

	job.Renderer = result.Renderer
	job.Attempts = attemptsFrom(result.Failures)
	if result.Document.Project.ProjectName != "" {
		job.Project = result.Document.Project.ProjectName
	}
	if job.CacheKey != "" && result.ContentType == render.ContentTypePDF {
		if err := s.cache.Put(ctx, job.CacheKey, result.Output); err != nil {
			s.logger.Warn("pdf cache write failed", zap.String("job", job.ID), zap.Error(err))
		}
	}
	return s.finish(ctx, job, result.Output, nil)
}

func (s *Service) cached(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil || key == "" {
		return nil, false
	}
	pdf, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	return pdf, true
}

func (s *Service) finish(ctx context.Context, job Job, pdf []byte, runErr error) (Job, error) {
	completed := s.now().UTC()
	job.CompletedAt = &completed
	if runErr != nil {
		job.Status = StatusError
		job.Error = runErr.Error()
		var failed *render.AllRenderersFailedError
		if errors.As(runErr, &failed) {
			job.Attempts = attemptsFrom(failed.Attempts)
		}
		s.logger.Warn("render job failed", zap.String("job", job.ID), zap.Error(runErr))
	} else {
		job.Status = StatusSuccess
		s.logger.Info("render job succeeded", zap.String("job", job.ID), zap.String("renderer", job.Renderer), zap.Int("bytes", len(pdf)))
	}

	// A cancelled request must still be able to record its outcome.
	storeCtx := context.WithoutCancel(ctx)
	if err := s.store.Complete(storeCtx, job, pdf); err != nil {
		return job, fmt.Errorf("jobs: complete job %s: %w", job.ID, err)
	}
	return job, nil
}

func attemptsFrom(failures []render.TierError) []Attempt {
	if len(failures) == 0 {
		return nil
	}
	out := make([]Attempt, 0, len(failures))
	for _, failure := range failures {
		msg := ""
		if failure.Err != nil {
			msg = failure.Err.Error()
		}
		out = append(out, Attempt{Renderer: failure.Renderer, Error: msg})
	}
	return out
}

func projectName(sections pkgmodel.Sections) string {
	var project struct {
		ProjectName string `json:"projectName"`
	}
	raw := sections.Raw(pkgmodel.SectionProject)
	if len(raw) == 0 {
		return ""
	}
	if err := json.Unmarshal(raw, &project); err != nil {
		return ""
	}
	return strings.TrimSpace(project.ProjectName)
}
