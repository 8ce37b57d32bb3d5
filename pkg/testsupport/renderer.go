package testsupport

import (
	"context"
	"sync"
	"time"

	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/render"
)

// StubRenderer is a scriptable render.Renderer. With Delay set it blocks
// until the delay passes or ctx is done, whichever comes first.
type StubRenderer struct {
	RendererName string
	Output       []byte
	Err          error
	Delay        time.Duration

	mu    sync.Mutex
	calls int
}

var _ render.Renderer = (*StubRenderer)(nil)

// Name implements render.Renderer.
func (s *StubRenderer) Name() string { return s.RendererName }

// ContentType implements render.Renderer.
func (s *StubRenderer) ContentType() string { return render.ContentTypePDF }

// Render implements render.Renderer.
func (s *StubRenderer) Render(ctx context.Context, _ pkgmodel.Document, _ render.RenderOptions) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := s.Output
	if out == nil {
		out = MinimalPDF(s.RendererName)
	}
	return append([]byte(nil), out...), nil
}

// Calls reports how many times Render ran.
func (s *StubRenderer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
