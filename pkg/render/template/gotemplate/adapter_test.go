package gotemplate_test

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"testing"

	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/render/template/gotemplate"
	"github.com/goliatone/go-swms/pkg/testsupport"
)

//go:embed testdata/templates/*.tmpl
var embeddedTemplates embed.FS

func newEngine(t *testing.T, options ...gotemplate.Option) *gotemplate.Engine {
	t.Helper()

	templatesFS, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	engine, err := gotemplate.New(append([]gotemplate.Option{gotemplate.WithFS(templatesFS)}, options...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngine_RenderTemplateWritesAndReturns(t *testing.T) {
	engine := newEngine(t)

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, w)
	})
	if result != "Hello Ada!\n" {
		t.Fatalf("result = %q", result)
	}
	if written != result {
		t.Fatalf("writer got %q, want %q", written, result)
	}
}

func TestEngine_GlobalData(t *testing.T) {
	engine := newEngine(t, gotemplate.WithGlobalData(map[string]any{
		"settings": map[string]any{"env": "staging"},
	}))

	result, err := engine.Render("use-global", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "staging\n" {
		t.Fatalf("result = %q", result)
	}
}

func TestEngine_RiskFiltersOnDocument(t *testing.T) {
	engine := newEngine(t)
	doc := model.Document{Activities: []model.WorkActivity{
		{ID: "a", InitialRisk: 12},
		{ID: "b", InitialRisk: 4},
		{ID: "c", InitialRisk: 17},
	}}

	result, err := engine.RenderTemplate("risk", doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "a:12:High:risk-high\nb:4:Low:risk-low\nc:17:Extreme:risk-extreme\n"
	if result != want {
		t.Fatalf("result mismatch\nwant: %q\n got: %q", want, result)
	}
}

func TestEngine_RenderStringAndCustomFilter(t *testing.T) {
	engine := newEngine(t)
	if err := engine.RegisterFilter("shout_swms", func(input any, _ any) (any, error) {
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	}); err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := engine.RegisterFilter("shout_swms", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate filter error")
	}

	result, err := engine.Render(`{{ level|shout_swms }} {{ "Medium"|risk_class }}`, map[string]any{"level": "high"})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if result != "HIGH! risk-medium" {
		t.Fatalf("result = %q", result)
	}
}

func TestEngine_ForwardsGoTemplateOptions(t *testing.T) {
	engine := newEngine(t,
		gotemplate.WithGlobalData(map[string]any{"settings": map[string]any{"env": "staging"}}),
		gotemplate.WithGoTemplateOptions(gotemplatepkg.WithGlobalData(map[string]any{
			"settings": map[string]any{"env": "production"},
		})),
	)

	result, err := engine.Render("use-global", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "production\n" {
		t.Fatalf("result = %q", result)
	}

	// lowerfirst ships with the go-template renderer, not with this package.
	result, err = engine.RenderString(`{{ "Work Method"|lowerfirst }}`, nil)
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if result != "work Method" {
		t.Fatalf("result = %q", result)
	}
}

func TestEngine_PostHookRewritesOutput(t *testing.T) {
	engine := newEngine(t)
	engine.RegisterPostHook(func(ctx *gotemplatepkg.HookContext) (string, error) {
		return strings.ToUpper(ctx.Output), nil
	})

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, w)
	})
	if result != "HELLO ADA!\n" {
		t.Fatalf("result = %q", result)
	}
	if written != result {
		t.Fatalf("writer got %q, want %q", written, result)
	}
}

func TestNew_RequiresSource(t *testing.T) {
	if _, err := gotemplate.New(); err == nil {
		t.Fatalf("expected error without template source")
	}
}
