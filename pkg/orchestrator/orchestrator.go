package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	theme "github.com/goliatone/go-theme"
	"go.uber.org/zap"

	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/render"
	"github.com/goliatone/go-swms/pkg/renderers/primitive"
)

// Default per-tier deadlines. The remote service gets the shortest budget so
// a slow network fails over to local rendering quickly.
const (
	DefaultExternalTimeout  = 15 * time.Second
	DefaultChromiumTimeout  = 45 * time.Second
	DefaultPrimitiveTimeout = 20 * time.Second
)

// Tier pairs a renderer with the deadline applied to each attempt.
type Tier struct {
	Renderer render.Renderer
	Timeout  time.Duration
}

// Name reports the renderer name, or "" for an empty tier.
func (t Tier) Name() string {
	if t.Renderer == nil {
		return ""
	}
	return t.Renderer.Name()
}

// DefaultTimeout returns the deadline for a well-known tier name.
func DefaultTimeout(name string) time.Duration {
	switch name {
	case "external":
		return DefaultExternalTimeout
	case "chromium":
		return DefaultChromiumTimeout
	default:
		return DefaultPrimitiveTimeout
	}
}

// DefaultTiers orders the given renderers as external, chromium, primitive
// with the default timeouts. Nil renderers are skipped so callers can omit a
// tier that is not configured.
func DefaultTiers(external, chromium, fallback render.Renderer) []Tier {
	tiers := make([]Tier, 0, 3)
	for _, renderer := range []render.Renderer{external, chromium, fallback} {
		if renderer == nil {
			continue
		}
		tiers = append(tiers, Tier{Renderer: renderer, Timeout: DefaultTimeout(renderer.Name())})
	}
	return tiers
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithAssembler injects the document assembler used by Generate.
func WithAssembler(assembler pkgmodel.Assembler) Option {
	return func(o *Orchestrator) {
		o.assembler = assembler
	}
}

// WithTiers sets the ordered fallback chain.
func WithTiers(tiers ...Tier) Option {
	return func(o *Orchestrator) {
		o.tiers = append([]Tier(nil), tiers...)
	}
}

// WithRegistry supplies extra renderers that requests may pin by name even
// when they are not part of the tier chain, such as the HTML renderer.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records tier outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithThemeSelector resolves branding for every render. Requests may override
// the default theme and variant.
func WithThemeSelector(selector theme.ThemeSelector, defaultTheme, defaultVariant string) Option {
	return func(o *Orchestrator) {
		o.themes = selector
		o.themeName = defaultTheme
		o.themeVariant = defaultVariant
	}
}

// WithFooter sets the footer printed by paginating renderers.
func WithFooter(footer string) Option {
	return func(o *Orchestrator) {
		o.footer = footer
	}
}

// Orchestrator turns a document into a PDF by trying each tier in order. It
// holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	assembler    pkgmodel.Assembler
	tiers        []Tier
	registry     *render.Registry
	logger       *zap.Logger
	metrics      *Metrics
	themes       theme.ThemeSelector
	themeName    string
	themeVariant string
	footer       string
}

// New constructs an Orchestrator. Without WithTiers the chain holds only the
// primitive renderer, which needs no external resources.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{logger: zap.NewNop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	if o.assembler == nil {
		o.assembler = pkgmodel.NewAssembler(pkgmodel.WithLogger(o.logger))
	}
	if len(o.tiers) == 0 {
		o.tiers = DefaultTiers(nil, nil, primitive.New(primitive.WithLogger(o.logger)))
	}
	return o
}

// Tiers returns a copy of the configured chain.
func (o *Orchestrator) Tiers() []Tier {
	return append([]Tier(nil), o.tiers...)
}

// Request describes one pipeline run.
type Request struct {
	// Sections is the raw input. Ignored when Document is set.
	Sections pkgmodel.Sections

	// Document bypasses assembly for callers that already hold one.
	Document *pkgmodel.Document

	// Renderer pins a single renderer by name. Empty walks every tier.
	Renderer string

	ThemeName    string
	ThemeVariant string

	// Title overrides the document title.
	Title string
}

// Result is the outcome of a successful run.
type Result struct {
	Output      []byte
	ContentType string
	Renderer    string
	Document    pkgmodel.Document
	// Failures lists the tiers that failed before Renderer succeeded.
	Failures []render.TierError
}

// Render walks the tier chain for an already assembled document.
func (o *Orchestrator) Render(ctx context.Context, doc pkgmodel.Document) ([]byte, error) {
	options, err := o.renderOptions("", "", "")
	if err != nil {
		return nil, err
	}
	result, err := o.run(ctx, o.tiers, doc, options)
	if err != nil {
		return nil, err
	}
	return result.Output, nil
}

// Generate executes the assemble -> render sequence.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var doc pkgmodel.Document
	if req.Document != nil {
		doc = *req.Document
	} else {
		assembled, err := o.assembler.Assemble(ctx, req.Sections)
		if err != nil {
			return Result{}, fmt.Errorf("orchestrator: assemble document: %w", err)
		}
		doc = assembled
	}

	tiers, err := o.tiersFor(req.Renderer)
	if err != nil {
		return Result{}, err
	}
	options, err := o.renderOptions(req.ThemeName, req.ThemeVariant, req.Title)
	if err != nil {
		return Result{}, err
	}

	result, err := o.run(ctx, tiers, doc, options)
	if err != nil {
		return Result{}, err
	}
	result.Document = doc
	return result, nil
}

// Assemble exposes the configured assembler.
func (o *Orchestrator) Assemble(ctx context.Context, sections pkgmodel.Sections) (pkgmodel.Document, error) {
	return o.assembler.Assemble(ctx, sections)
}

func (o *Orchestrator) tiersFor(name string) ([]Tier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return o.tiers, nil
	}
	for _, tier := range o.tiers {
		if tier.Name() == name {
			return []Tier{tier}, nil
		}
	}
	if o.registry != nil {
		if renderer, err := o.registry.Get(name); err == nil {
			return []Tier{{Renderer: renderer, Timeout: DefaultTimeout(name)}}, nil
		}
	}
	return nil, fmt.Errorf("orchestrator: %w: %q", ErrUnknownRenderer, name)
}

// ErrUnknownRenderer is returned when a request pins a renderer that is
// neither a tier nor registered.
var ErrUnknownRenderer = errors.New("unknown renderer")

var errNilRenderer = errors.New("renderer is nil")

func (o *Orchestrator) run(ctx context.Context, tiers []Tier, doc pkgmodel.Document, options render.RenderOptions) (Result, error) {
	var failures []render.TierError
	for i, tier := range tiers {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("orchestrator: render aborted: %w", err)
		}
		name := tier.Name()
		if tier.Renderer == nil {
			label := fmt.Sprintf("tier-%d", i+1)
			failures = append(failures, render.TierError{Renderer: label, Err: render.Unavailable(label, errNilRenderer)})
			continue
		}

		o.logger.Debug("attempting renderer", zap.String("tier", name), zap.Int("position", i+1), zap.Duration("timeout", tier.Timeout))
		started := time.Now()
		output, err := o.attempt(ctx, tier, doc, options)
		elapsed := time.Since(started)

		if err == nil {
			o.metrics.observe(name, outcomeSuccess, elapsed)
			o.logger.Info("document rendered",
				zap.String("tier", name),
				zap.Int("bytes", len(output)),
				zap.Duration("elapsed", elapsed),
				zap.Int("failed_tiers", len(failures)),
			)
			return Result{
				Output:      output,
				ContentType: tier.Renderer.ContentType(),
				Renderer:    name,
				Failures:    failures,
			}, nil
		}

		if parentErr := ctx.Err(); parentErr != nil {
			o.metrics.observe(name, outcomeCanceled, elapsed)
			return Result{}, fmt.Errorf("orchestrator: render aborted during %s: %w", name, parentErr)
		}

		o.metrics.observe(name, outcomeFor(err), elapsed)
		failures = append(failures, render.TierError{Renderer: name, Err: err})
		if i < len(tiers)-1 {
			o.logger.Warn("renderer failed, falling through",
				zap.String("tier", name),
				zap.String("next", tiers[i+1].Name()),
				zap.Error(err),
			)
		}
	}

	failed := &render.AllRenderersFailedError{Attempts: failures}
	o.logger.Error("all renderers failed", zap.Int("attempts", len(failures)), zap.Error(failed))
	return Result{}, failed
}

func (o *Orchestrator) attempt(ctx context.Context, tier Tier, doc pkgmodel.Document, options render.RenderOptions) ([]byte, error) {
	name := tier.Name()
	attemptCtx := ctx
	if tier.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, tier.Timeout)
		defer cancel()
	}

	output, err := tier.Renderer.Render(attemptCtx, doc, options)
	if err != nil {
		return nil, render.Classify(attemptCtx, name, err)
	}
	// Output that arrives after the tier deadline is discarded.
	if ctxErr := attemptCtx.Err(); ctxErr != nil {
		return nil, render.Classify(attemptCtx, name, ctxErr)
	}
	if tier.Renderer.ContentType() == render.ContentTypePDF {
		if err := render.CheckPDF(output); err != nil {
			return nil, render.Unavailable(name, err)
		}
	}
	return output, nil
}

func (o *Orchestrator) renderOptions(themeName, variant, title string) (render.RenderOptions, error) {
	options := render.RenderOptions{Title: title, Footer: o.footer}
	if o.themes == nil {
		return options, nil
	}
	if themeName == "" {
		themeName = o.themeName
	}
	if variant == "" {
		variant = o.themeVariant
	}
	selection, err := o.themes.Select(themeName, variant)
	if err != nil {
		return options, fmt.Errorf("orchestrator: select theme %q: %w", themeName, err)
	}
	options.Theme = ThemeConfigFrom(selection)
	return options, nil
}
