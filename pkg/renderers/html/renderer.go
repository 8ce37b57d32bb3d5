package html

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/render"
	rendertemplate "github.com/goliatone/go-swms/pkg/render/template"
	gotemplate "github.com/goliatone/go-swms/pkg/render/template/gotemplate"
)

// Name is the registry name of the HTML renderer.
const Name = "html"

const (
	documentTemplate = "templates/document.tmpl"
	signoffRows      = 8
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	stylesheet       *string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS. The bundle
// must contain templates/document.tmpl.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithStylesheet replaces the bundled print stylesheet. An empty string drops
// it entirely.
func WithStylesheet(css string) Option {
	return func(cfg *config) {
		cfg.stylesheet = &css
	}
}

// Renderer turns a Document into a self-contained, print ready HTML page.
// The chromium tier prints its output; HTTP callers can request it directly.
type Renderer struct {
	templates  rendertemplate.TemplateRenderer
	stylesheet string
}

// New constructs the HTML renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	stylesheet := defaultStylesheet()
	if cfg.stylesheet != nil {
		stylesheet = *cfg.stylesheet
	}
	return &Renderer{templates: renderer, stylesheet: stylesheet}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return render.ContentTypeHTML
}

// Render executes the document template.
func (r *Renderer) Render(ctx context.Context, doc model.Document, options render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("html renderer: template renderer is nil")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("html renderer: %w", err)
		}
	}

	title := strings.TrimSpace(options.Title)
	if title == "" {
		title = "SWMS - " + doc.Project.ProjectName
	}
	variant := "default"
	if options.Theme != nil && options.Theme.Variant != "" {
		variant = options.Theme.Variant
	}

	rows := make([]int, signoffRows)
	for i := range rows {
		rows[i] = i + 1
	}

	result, err := r.templates.RenderTemplate(documentTemplate, map[string]any{
		"document":      doc,
		"title":         title,
		"footer":        options.Footer,
		"stylesheet":    r.stylesheet,
		"css_vars":      CSSVariables(options.Theme),
		"theme_variant": variant,
		"signoff_rows":  rows,
		"summary": map[string]any{
			"activities": len(doc.Activities),
			"hazards":    doc.HazardCount(),
			"highest":    doc.HighestInitialRisk().Int(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: render template: %w", err)
	}
	return []byte(result), nil
}

// CSSVariables renders theme CSS variables as a :root rule. Keys without the
// leading "--" are prefixed with "--swms-". Output is sorted for stable
// snapshots.
func CSSVariables(theme *render.ThemeConfig) string {
	if theme == nil {
		return ""
	}
	vars := make(map[string]string, len(theme.Tokens)+len(theme.CSSVars))
	for key, value := range theme.Tokens {
		vars[cssVarName(key)] = value
	}
	for key, value := range theme.CSSVars {
		vars[cssVarName(key)] = value
	}
	if len(vars) == 0 {
		return ""
	}

	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root {")
	for _, key := range keys {
		value := sanitizeCSSValue(vars[key])
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, " %s: %s;", key, value)
	}
	b.WriteString(" }")
	return b.String()
}

func cssVarName(key string) string {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, "--") {
		return key
	}
	key = strings.NewReplacer(".", "-", "_", "-", " ", "-").Replace(strings.ToLower(key))
	return "--swms-" + key
}

// sanitizeCSSValue keeps token values from closing the style element or
// injecting extra declarations.
func sanitizeCSSValue(value string) string {
	value = strings.TrimSpace(value)
	if strings.ContainsAny(value, "<>{};") {
		return ""
	}
	return value
}
