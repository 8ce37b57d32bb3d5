package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/goliatone/go-swms/internal/config"
	"github.com/goliatone/go-swms/internal/store/sqlite"
	"github.com/goliatone/go-swms/pkg/cache"
	"github.com/goliatone/go-swms/pkg/jobs"
	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/orchestrator"
	"github.com/goliatone/go-swms/pkg/render"
	"github.com/goliatone/go-swms/pkg/renderers/chromium"
	"github.com/goliatone/go-swms/pkg/renderers/external"
	"github.com/goliatone/go-swms/pkg/renderers/html"
	"github.com/goliatone/go-swms/pkg/renderers/primitive"
	"github.com/goliatone/go-swms/pkg/risk"
)

// App holds the wired components shared by the CLI and the HTTP server.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Scorer       *risk.Scorer
	Assembler    pkgmodel.Assembler
	HTML         *html.Renderer
	Registry     *render.Registry
	Themes       *orchestrator.Catalog
	Metrics      *orchestrator.Metrics
	Gatherer     prometheus.Gatherer
	Orchestrator *orchestrator.Orchestrator
	Jobs         *jobs.Service
	Cache        *cache.PDFCache

	closers []func() error
}

type Option func(*options)

type options struct {
	tiers      []orchestrator.Tier
	launcher   chromium.Launcher
	withoutJob bool
}

// WithTiers replaces the configured tier chain, mostly for tests.
func WithTiers(tiers ...orchestrator.Tier) Option {
	return func(o *options) {
		o.tiers = tiers
	}
}

// WithLauncher replaces the chromedp launcher of the chromium tier.
func WithLauncher(launcher chromium.Launcher) Option {
	return func(o *options) {
		o.launcher = launcher
	}
}

// WithoutJobs skips opening the job store. Commands that render once use it.
func WithoutJobs() Option {
	return func(o *options) {
		o.withoutJob = true
	}
}

// New builds every component from cfg. Call Close when done.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	a := &App{Config: cfg, Logger: logger}
	if err := a.build(cfg, o); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg config.Config, o options) error {
	scorer, err := NewScorer(cfg.Risk)
	if err != nil {
		return err
	}
	a.Scorer = scorer
	a.Assembler = pkgmodel.NewAssembler(
		pkgmodel.WithScorer(scorer),
		pkgmodel.WithLogger(a.Logger.Named("assembler")),
	)

	page, err := html.New()
	if err != nil {
		return fmt.Errorf("app: html renderer: %w", err)
	}
	a.HTML = page

	themes, err := orchestrator.NewCatalog()
	if err != nil {
		return err
	}
	a.Themes = themes

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := orchestrator.NewMetrics(registry)
	if err != nil {
		return err
	}
	a.Metrics = metrics
	a.Gatherer = registry

	tiers := o.tiers
	if len(tiers) == 0 {
		tiers, err = a.tiers(cfg.Renderers, o.launcher)
		if err != nil {
			return err
		}
	}

	a.Registry = render.NewRegistry()
	for _, tier := range tiers {
		if err := a.Registry.Register(tier.Renderer); err != nil {
			return fmt.Errorf("app: register %s: %w", tier.Name(), err)
		}
	}
	if !a.Registry.Has(html.Name) {
		a.Registry.MustRegister(page)
	}

	a.Orchestrator = orchestrator.New(
		orchestrator.WithAssembler(a.Assembler),
		orchestrator.WithTiers(tiers...),
		orchestrator.WithRegistry(a.Registry),
		orchestrator.WithLogger(a.Logger.Named("orchestrator")),
		orchestrator.WithMetrics(metrics),
		orchestrator.WithThemeSelector(themes, cfg.Theme.Name, cfg.Theme.Variant),
	)

	if cfg.Cache.Addr != "" {
		kv := cache.NewRedisKVStore(cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		}))
		a.closers = append(a.closers, kv.Close)
		a.Cache = cache.NewPDFCache(kv, cache.WithTTL(cfg.Cache.TTL), cache.WithLogger(a.Logger.Named("cache")))
	}

	if o.withoutJob {
		return nil
	}
	db, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, db.Close)
	a.Jobs = a.newJobs(db)
	return nil
}

func (a *App) newJobs(db *sql.DB) *jobs.Service {
	opts := []jobs.Option{jobs.WithLogger(a.Logger.Named("jobs"))}
	if a.Cache != nil {
		opts = append(opts, jobs.WithCache(a.Cache))
	}
	return jobs.NewService(sqlite.NewJobStore(db), a.Orchestrator, opts...)
}

// tiers builds the fallback chain in external, chromium, primitive order.
// Unconfigured tiers are left out.
func (a *App) tiers(cfg config.RenderersConfig, launcher chromium.Launcher) ([]orchestrator.Tier, error) {
	var tiers []orchestrator.Tier

	if cfg.External.Endpoint != "" {
		remote, err := external.New(
			external.WithEndpoint(cfg.External.Endpoint),
			external.WithAPIKey(cfg.External.APIKey),
			external.WithTimeout(cfg.External.Timeout),
			external.WithRetries(cfg.External.Retries, cfg.External.RetryWait),
			external.WithHTMLRenderer(a.HTML),
			external.WithLogger(a.Logger.Named("external")),
		)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, orchestrator.Tier{Renderer: remote, Timeout: cfg.External.Timeout})
	}

	if cfg.Chromium.Enabled {
		chromeOpts := []chromium.Option{
			chromium.WithHTMLRenderer(a.HTML),
			chromium.WithExecPath(cfg.Chromium.ExecPath),
			chromium.WithNoSandbox(cfg.Chromium.NoSandbox),
			chromium.WithLogger(a.Logger.Named("chromium")),
		}
		if launcher != nil {
			chromeOpts = append(chromeOpts, chromium.WithLauncher(launcher))
		}
		browser, err := chromium.New(chromeOpts...)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, orchestrator.Tier{Renderer: browser, Timeout: cfg.Chromium.Timeout})
	}

	tiers = append(tiers, orchestrator.Tier{
		Renderer: primitive.New(primitive.WithLogger(a.Logger.Named("primitive"))),
		Timeout:  cfg.Primitive.Timeout,
	})
	return tiers, nil
}

// NewScorer builds the risk scorer described by cfg.
func NewScorer(cfg config.RiskConfig) (*risk.Scorer, error) {
	var opts []risk.Option
	if cfg.TablesFile != "" {
		tables, err := risk.LoadTablesFile(cfg.TablesFile)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		opts = append(opts, risk.WithTables(tables))
	}
	switch {
	case !cfg.Jitter:
		opts = append(opts, risk.WithJitter(risk.NoJitter))
	case cfg.Seed != 0:
		opts = append(opts, risk.WithSeed(cfg.Seed))
	}
	return risk.NewScorer(opts...), nil
}

// Ping checks optional backing services.
func (a *App) Ping(ctx context.Context) error {
	if a.Cache == nil {
		return nil
	}
	_, err := a.Cache.Get(ctx, "ping")
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return fmt.Errorf("app: cache unreachable: %w", err)
	}
	return nil
}

// Close waits for background jobs and releases resources.
func (a *App) Close() error {
	if a.Jobs != nil {
		a.Jobs.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
