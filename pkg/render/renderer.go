package render

import (
	"context"

	"github.com/goliatone/go-swms/pkg/model"
)

// Content types produced by the bundled renderers.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// Renderer converts an assembled Document into a byte representation (PDF,
// HTML). Implementations must honour ctx cancellation and release any
// resources they acquire before returning.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, doc model.Document, options RenderOptions) ([]byte, error)
}

// RendererFunc adapts a function into a Renderer with a fixed name and
// content type.
type RendererFunc struct {
	RendererName string
	Type         string
	Fn           func(ctx context.Context, doc model.Document, options RenderOptions) ([]byte, error)
}

// Name implements Renderer.
func (f RendererFunc) Name() string { return f.RendererName }

// ContentType implements Renderer.
func (f RendererFunc) ContentType() string {
	if f.Type == "" {
		return ContentTypePDF
	}
	return f.Type
}

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, doc model.Document, options RenderOptions) ([]byte, error) {
	if f.Fn == nil {
		return nil, Unavailable(f.RendererName, errNoRenderFunc)
	}
	return f.Fn(ctx, doc, options)
}
