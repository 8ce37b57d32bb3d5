package gotemplate

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/flosch/pongo2/v6"
	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-swms/pkg/render/template"
	"github.com/goliatone/go-swms/pkg/risk"
)

// Option configures the adapter before construction.
type Option func(*config)

type config struct {
	baseDir    string
	templates  fs.FS
	extension  string
	templateFn map[string]any
	globalData map[string]any
	passthru   []gotemplatepkg.Option
}

// WithBaseDir loads templates from a directory on disk. Disk templates take
// precedence over WithFS templates with the same name.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from an fs.FS.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithExtension overrides the default ".tmpl" extension.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		cfg.extension = trimmed
	}
}

// WithTemplateFunc registers pongo2 filters or callable globals.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		if cfg.templateFn == nil {
			cfg.templateFn = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			cfg.templateFn[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// WithGoTemplateOptions forwards options to the underlying go-template
// renderer. They are applied after the adapter's own options.
func WithGoTemplateOptions(opts ...gotemplatepkg.Option) Option {
	return func(cfg *config) {
		for _, opt := range opts {
			if opt != nil {
				cfg.passthru = append(cfg.passthru, opt)
			}
		}
	}
}

// Engine adapts a go-template renderer to template.TemplateRenderer and
// installs the risk filters used by document templates.
type Engine struct {
	renderer *gotemplatepkg.Engine
}

var _ template.TemplateRenderer = (*Engine)(nil)

// New constructs an Engine. At least one of WithBaseDir or WithFS is
// required.
func New(options ...Option) (*Engine, error) {
	cfg := &config{extension: ".tmpl"}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	if cfg.baseDir == "" && cfg.templates == nil {
		return nil, errors.New("gotemplate: need to provide either base dir or fs.FS")
	}

	opts := []gotemplatepkg.Option{
		gotemplatepkg.WithExtension(cfg.extension),
		gotemplatepkg.WithTemplateFunc(documentFilters()),
	}
	if cfg.baseDir != "" {
		opts = append(opts, gotemplatepkg.WithBaseDir(cfg.baseDir))
	}
	if cfg.templates != nil {
		opts = append(opts, gotemplatepkg.WithFS(cfg.templates))
	}
	if len(cfg.templateFn) > 0 {
		opts = append(opts, gotemplatepkg.WithTemplateFunc(cfg.templateFn))
	}
	if len(cfg.globalData) > 0 {
		opts = append(opts, gotemplatepkg.WithGlobalData(cfg.globalData))
	}
	opts = append(opts, cfg.passthru...)

	renderer, err := gotemplatepkg.NewRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: load renderer: %w", err)
	}
	return &Engine{renderer: renderer}, nil
}

// Render treats name as inline template content when it contains template
// tags, otherwise as a template path.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.renderer == nil {
		return "", errors.New("gotemplate: engine is nil")
	}
	result, err := e.renderer.Render(name, data, out...)
	if err != nil {
		return "", fmt.Errorf("gotemplate: %w", err)
	}
	return result, nil
}

// RenderTemplate executes the named template file.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.renderer == nil {
		return "", errors.New("gotemplate: engine is nil")
	}
	result, err := e.renderer.RenderTemplate(name, data, out...)
	if err != nil {
		return "", fmt.Errorf("gotemplate: template %q: %w", name, err)
	}
	return result, nil
}

// RenderString parses and executes templateContent.
func (e *Engine) RenderString(templateContent string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.renderer == nil {
		return "", errors.New("gotemplate: engine is nil")
	}
	result, err := e.renderer.RenderString(templateContent, data, out...)
	if err != nil {
		return "", fmt.Errorf("gotemplate: template string: %w", err)
	}
	return result, nil
}

// RegisterFilter registers a pongo2 filter. pongo2 filters are process
// global, so registering an existing name is an error.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if e == nil || e.renderer == nil {
		return errors.New("gotemplate: engine is nil")
	}
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("gotemplate: filter name and function required")
	}
	if err := e.renderer.RegisterFilter(name, fn); err != nil {
		return fmt.Errorf("gotemplate: %w", err)
	}
	return nil
}

// GlobalContext merges data into the set globals.
func (e *Engine) GlobalContext(data any) error {
	if e == nil || e.renderer == nil {
		return errors.New("gotemplate: engine is nil")
	}
	if data == nil {
		return nil
	}
	return e.renderer.GlobalContext(data)
}

// RegisterPostHook adds a hook that can rewrite rendered output.
func (e *Engine) RegisterPostHook(hook gotemplatepkg.PostHook) {
	if e == nil || e.renderer == nil || hook == nil {
		return
	}
	e.renderer.RegisterPostHook(hook)
}

func documentFilters() map[string]any {
	return map[string]any{
		"risk_level": filterRiskLevel,
		"risk_class": filterRiskClass,
		"risk_value": filterRiskValue,
	}
}

// filterRiskLevel accepts a score (number or {value, level} object) or a
// level name and returns the level name.
func filterRiskLevel(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(levelOf(in.Interface()).String()), nil
}

// filterRiskClass returns a CSS class such as "risk-high".
func filterRiskClass(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	level := levelOf(in.Interface())
	if level == "" {
		return pongo2.AsValue("risk-unknown"), nil
	}
	return pongo2.AsValue("risk-" + strings.ToLower(level.String())), nil
}

func filterRiskValue(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if score, ok := scoreOf(in.Interface()); ok {
		return pongo2.AsValue(score.Int()), nil
	}
	return pongo2.AsValue(""), nil
}

func levelOf(value any) risk.Level {
	if text, ok := value.(string); ok {
		level, _ := risk.ParseLevel(text)
		return level
	}
	if score, ok := scoreOf(value); ok {
		return score.Level()
	}
	return ""
}

func scoreOf(value any) (risk.Score, bool) {
	switch typed := value.(type) {
	case risk.Score:
		return typed, true
	case int:
		return risk.Score(typed), true
	case float64:
		return risk.Score(int(typed)), true
	case map[string]any:
		return scoreOf(typed["value"])
	default:
		return 0, false
	}
}
