package html_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/render"
	"github.com/goliatone/go-swms/pkg/renderers/html"
	"github.com/goliatone/go-swms/pkg/testsupport"
)

func TestRenderer_RendersSiteDocument(t *testing.T) {
	renderer, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	doc := testsupport.SiteDocument(t)

	out, err := renderer.Render(context.Background(), doc, render.RenderOptions{Footer: "Uncontrolled when printed"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	page := string(out)

	for _, want := range []string{
		"<title>SWMS - Harbourside Substation Upgrade</title>",
		`id="hv-connection"`,
		`id="cable-tray"`,
		`id="activity-3"`,
		"Royal Prince Alfred Hospital",
		"Uncontrolled when printed",
		"risk-high",
		"@page { size: A4; margin: 0; }",
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("rendered page missing %q", want)
		}
	}
	if got := strings.Count(page, "<li>Insulated gloves</li>"); got != 1 {
		t.Fatalf("expected de-duplicated PPE, found %d entries", got)
	}
	if renderer.ContentType() != render.ContentTypeHTML || renderer.Name() != html.Name {
		t.Fatalf("unexpected renderer metadata %q/%q", renderer.Name(), renderer.ContentType())
	}
}

func TestRenderer_EscapesText(t *testing.T) {
	renderer, err := html.New(html.WithStylesheet(""))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	doc := model.Document{
		Project:    model.ProjectInfo{ProjectName: "Tower & Podium"},
		Activities: []model.WorkActivity{{ID: "a", Name: `1 < 2 "quoted"`}},
	}

	out, err := renderer.Render(context.Background(), doc, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	page := string(out)
	if !strings.Contains(page, "Tower &amp; Podium") {
		t.Fatalf("project name not escaped")
	}
	if strings.Contains(page, `1 < 2`) {
		t.Fatalf("activity name not escaped")
	}
	if strings.Contains(page, "@page") {
		t.Fatalf("stylesheet should be dropped")
	}
}

func TestRenderer_ThemeVariables(t *testing.T) {
	renderer, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	theme := &render.ThemeConfig{
		Name:    "swms",
		Variant: "high-contrast",
		Tokens:  map[string]string{"primary": "#000000", "risk.high": "#ff6600"},
		CSSVars: map[string]string{"--swms-font-family": "Inter, sans-serif", "bad": "red;} body{display:none"},
	}

	out, err := renderer.Render(context.Background(), model.Document{}, render.RenderOptions{Theme: theme})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	page := string(out)
	for _, want := range []string{
		"--swms-primary: #000000;",
		"--swms-risk-high: #ff6600;",
		"--swms-font-family: Inter, sans-serif;",
		`class="swms theme-high-contrast"`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q", want)
		}
	}
	if strings.Contains(page, "display:none") {
		t.Fatalf("unsafe css value leaked")
	}
}

func TestCSSVariables_NilTheme(t *testing.T) {
	if got := html.CSSVariables(nil); got != "" {
		t.Fatalf("expected empty css vars, got %q", got)
	}
}

func TestRenderer_CustomTemplates(t *testing.T) {
	files := fstest.MapFS{
		"templates/document.tmpl": {Data: []byte(`{{ document.project.projectName }}|{{ summary.activities }}`)},
	}
	renderer, err := html.New(html.WithTemplatesFS(files))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	doc := model.Document{
		Project:    model.ProjectInfo{ProjectName: "Depot"},
		Activities: []model.WorkActivity{{ID: "a"}, {ID: "b"}},
	}
	out, err := renderer.Render(context.Background(), doc, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != "Depot|2" {
		t.Fatalf("output = %q", out)
	}
}

func TestRenderer_CancelledContext(t *testing.T) {
	renderer, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := renderer.Render(ctx, model.Document{}, render.RenderOptions{}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
