package chromium

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// A4 paper in inches, as Page.printToPDF expects.
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
)

// Session is one running browser able to print HTML.
type Session interface {
	PrintToPDF(ctx context.Context, html string) ([]byte, error)
	Close() error
}

// Launcher starts a browser scoped to a single render.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// ChromeLauncher starts a local headless Chrome through chromedp.
type ChromeLauncher struct {
	ExecPath  string
	NoSandbox bool
}

// Launch starts the browser process. The process is bound to ctx as well as
// to Session.Close, whichever ends first.
func (l ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.DisableGPU)
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}
	if l.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	session := &chromeSession{
		ctx: browserCtx,
		cancel: func() {
			_ = chromedp.Cancel(browserCtx)
			browserCancel()
			allocCancel()
		},
	}
	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		session.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return session, nil
}

type chromeSession struct {
	ctx    context.Context
	cancel func()
	once   sync.Once
}

func (s *chromeSession) PrintToPDF(ctx context.Context, html string) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	var pdf []byte
	err := chromedp.Run(s.ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthInches).
				WithPaperHeight(paperHeightInches).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			pdf = data
			return err
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, err
	}
	return pdf, nil
}

// Close stops the browser. It is safe to call more than once.
func (s *chromeSession) Close() error {
	s.once.Do(s.cancel)
	return nil
}
