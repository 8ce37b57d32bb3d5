package model

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-swms/internal/model"
	"github.com/goliatone/go-swms/pkg/risk"
)

// Assembler merges form sections into a Document.
type Assembler interface {
	Assemble(ctx context.Context, sections Sections) (Document, error)
}

// AssemblerOption configures the assembler behaviour.
type AssemblerOption func(*assemblerOptions)

type assemblerOptions struct {
	scorer     *risk.Scorer
	logger     *zap.Logger
	now        func() time.Time
	defaults   Defaults
	decorators []Decorator
}

// WithScorer sets the scorer used for activities without precomputed scores.
func WithScorer(scorer *risk.Scorer) AssemblerOption {
	return func(opts *assemblerOptions) {
		opts.scorer = scorer
	}
}

// WithLogger attaches a logger. Assembly is silent by default.
func WithLogger(logger *zap.Logger) AssemblerOption {
	return func(opts *assemblerOptions) {
		opts.logger = logger
	}
}

// WithClock overrides the clock used for the default preparation date.
func WithClock(now func() time.Time) AssemblerOption {
	return func(opts *assemblerOptions) {
		opts.now = now
	}
}

// WithDefaults overrides individual textual defaults. Blank fields keep the
// stock value.
func WithDefaults(defaults Defaults) AssemblerOption {
	return func(opts *assemblerOptions) {
		opts.defaults = defaults
	}
}

// WithDecorators runs decorators, in order, on every assembled document.
func WithDecorators(decorators ...Decorator) AssemblerOption {
	return func(opts *assemblerOptions) {
		opts.decorators = append(opts.decorators, decorators...)
	}
}

// NewAssembler returns an Assembler backed by the internal implementation.
func NewAssembler(options ...AssemblerOption) Assembler {
	cfg := assemblerOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	internal := model.New(model.Options{
		Scorer:   cfg.scorer,
		Logger:   cfg.logger,
		Now:      cfg.now,
		Defaults: cfg.defaults,
	})
	if len(cfg.decorators) == 0 {
		return internal
	}
	return &decoratedAssembler{inner: internal, decorators: cfg.decorators}
}

type decoratedAssembler struct {
	inner      Assembler
	decorators []Decorator
}

func (d *decoratedAssembler) Assemble(ctx context.Context, sections Sections) (Document, error) {
	doc, err := d.inner.Assemble(ctx, sections)
	if err != nil {
		return Document{}, err
	}
	for _, decorator := range d.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(&doc); err != nil {
			return Document{}, err
		}
	}
	return doc, nil
}
