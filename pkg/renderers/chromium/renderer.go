package chromium

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/render"
	"github.com/goliatone/go-swms/pkg/renderers/html"
)

// Name is the registry name of the local browser tier.
const Name = "chromium"

type Option func(*config)

type config struct {
	launcher Launcher
	html     render.Renderer
	logger   *zap.Logger
	chrome   ChromeLauncher
}

// WithLauncher replaces the chromedp launcher.
func WithLauncher(launcher Launcher) Option {
	return func(cfg *config) {
		cfg.launcher = launcher
	}
}

// WithHTMLRenderer replaces the page renderer. Defaults to the bundled HTML
// renderer.
func WithHTMLRenderer(renderer render.Renderer) Option {
	return func(cfg *config) {
		cfg.html = renderer
	}
}

// WithExecPath points the default launcher at a specific Chrome binary.
func WithExecPath(path string) Option {
	return func(cfg *config) {
		cfg.chrome.ExecPath = path
	}
}

// WithNoSandbox disables the Chrome sandbox, needed in most containers.
func WithNoSandbox(disabled bool) Option {
	return func(cfg *config) {
		cfg.chrome.NoSandbox = disabled
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Renderer prints the HTML rendition of a document with a headless browser
// launched for this render only.
type Renderer struct {
	launcher Launcher
	html     render.Renderer
	logger   *zap.Logger
}

// New constructs the chromium renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.launcher == nil {
		cfg.launcher = cfg.chrome
	}
	if cfg.html == nil {
		page, err := html.New()
		if err != nil {
			return nil, fmt.Errorf("chromium renderer: %w", err)
		}
		cfg.html = page
	}
	return &Renderer{launcher: cfg.launcher, html: cfg.html, logger: cfg.logger}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return render.ContentTypePDF
}

// Render launches a browser, prints the page and always tears the browser
// down before returning.
func (r *Renderer) Render(ctx context.Context, doc model.Document, options render.RenderOptions) ([]byte, error) {
	page, err := r.html.Render(ctx, doc, options)
	if err != nil {
		return nil, fmt.Errorf("chromium renderer: render html: %w", err)
	}

	session, err := r.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("chromium renderer: launch browser: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.logger.Warn("browser teardown failed", zap.Error(cerr))
		}
	}()

	pdf, err := session.PrintToPDF(ctx, string(page))
	if err != nil {
		return nil, fmt.Errorf("chromium renderer: print to pdf: %w", err)
	}
	if err := render.CheckPDF(pdf); err != nil {
		return nil, fmt.Errorf("chromium renderer: %w", err)
	}
	return pdf, nil
}
