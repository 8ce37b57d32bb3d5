// Package swms generates Safe Work Method Statements. It re-exports the
// pipeline types so callers can assemble and render a document from the
// module root without importing the individual packages.
package swms

import (
	"context"

	theme "github.com/goliatone/go-theme"

	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/orchestrator"
	"github.com/goliatone/go-swms/pkg/render"
)

// Document is the assembled aggregate handed to renderers.
type Document = pkgmodel.Document

// Sections is the raw render request keyed by section name.
type Sections = pkgmodel.Sections

// RenderOptions carries per-request title, footer and theme data.
type RenderOptions = render.RenderOptions

// Request describes one pipeline run.
type Request = orchestrator.Request

// Result is the outcome of a successful run.
type Result = orchestrator.Result

// Tier pairs a renderer with its per-attempt deadline.
type Tier = orchestrator.Tier

// NewOrchestrator exposes the orchestrator constructor from the module root.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// GeneratePDF parses a JSON or YAML render request, assembles it and walks the
// configured tiers. Without WithTiers only the primitive renderer runs.
func GeneratePDF(ctx context.Context, request []byte, options ...orchestrator.Option) ([]byte, error) {
	sections, err := pkgmodel.LoadSections(request)
	if err != nil {
		return nil, err
	}
	result, err := orchestrator.New(options...).Generate(ctx, orchestrator.Request{Sections: sections})
	if err != nil {
		return nil, err
	}
	return result.Output, nil
}

// GeneratePDFFromDocument renders an already assembled document, bypassing
// the assembly stage.
func GeneratePDFFromDocument(ctx context.Context, doc Document, options ...orchestrator.Option) ([]byte, error) {
	return orchestrator.New(options...).Render(ctx, doc)
}

// WithTiers sets the ordered fallback chain.
func WithTiers(tiers ...Tier) orchestrator.Option {
	return orchestrator.WithTiers(tiers...)
}

// WithThemeSelector passes a go-theme selector through to the orchestrator so
// renderers receive resolved tokens.
func WithThemeSelector(selector theme.ThemeSelector, defaultTheme, defaultVariant string) orchestrator.Option {
	return orchestrator.WithThemeSelector(selector, defaultTheme, defaultVariant)
}

// WithDefaultTheme resolves the built-in swms manifest with the given variant.
func WithDefaultTheme(variant string) (orchestrator.Option, error) {
	catalog, err := orchestrator.NewCatalog()
	if err != nil {
		return nil, err
	}
	return orchestrator.WithThemeSelector(catalog, orchestrator.DefaultThemeName, variant), nil
}
