// Package chrome renders HTML to PDF with headless Chrome driven by chromedp.
package chrome

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"reportpdf/internal/config"
	"reportpdf/internal/domain"
	"reportpdf/internal/infra/logging"
)

const acquireTimeout = 5 * time.Second

// waitForAssets resolves once web fonts and images have finished loading.
const waitForAssets = `(async () => {
	if (document.fonts && document.fonts.ready) { await document.fonts.ready; }
	await Promise.all(Array.from(document.images)
		.filter(img => !img.complete)
		.map(img => new Promise(done => { img.onload = img.onerror = done; })));
	return true;
})()`

// Renderer prints markup through a tab pool, or through a fresh browser per
// render when chrome_pool_size is 0.
type Renderer struct {
	cfg    config.Config
	settle time.Duration

	mu   sync.Mutex
	pool *Pool
}

// NewRenderer returns a renderer. Chrome is not started until the first
// render.
func NewRenderer(cfg config.Config) *Renderer {
	return &Renderer{
		cfg:    cfg,
		settle: time.Duration(cfg.PDF.SettleMillis) * time.Millisecond,
	}
}

func (r *Renderer) getPool() (*Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.PDF.ChromePoolSize <= 0 {
		return nil, nil
	}
	if r.pool != nil {
		return r.pool, nil
	}
	pool, err := NewPool(r.cfg)
	if err != nil {
		return nil, err
	}
	r.pool = pool
	return r.pool, nil
}

// Render prints markup to PDF. The render stops when ctx is done.
func (r *Renderer) Render(ctx context.Context, markup string, layout domain.PageLayout) ([]byte, error) {
	pool, err := r.getPool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return r.renderWithFreshBrowser(ctx, markup, layout)
	}

	acquireCtx, acquireCancel := context.WithTimeout(ctx, acquireTimeout)
	tab, err := pool.Acquire(acquireCtx)
	acquireCancel()
	if err != nil {
		return nil, fmt.Errorf("acquire chrome tab: %w", err)
	}

	tabCtx, cancel := bindContext(ctx, tab.Ctx)
	pdf, renderErr := renderInTab(tabCtx, markup, layout, r.settle)
	cancel()
	pool.Release(tab, renderErr)

	if renderErr != nil && ctx.Err() == nil && IsSessionInterrupted(renderErr) {
		logging.Warn("Chrome session interrupted; restarting pool", "error", renderErr)
		if err := pool.Restart(); err != nil {
			logging.Error("Chrome pool restart failed", "error", err)
		}
	}
	return pdf, renderErr
}

// bindContext derives a context from the tab that also ends with the caller.
func bindContext(caller, tab context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(tab)
	if deadline, ok := caller.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		ctx, cancelDeadline = context.WithDeadline(ctx, deadline)
		prev := cancel
		cancel = func() { cancelDeadline(); prev() }
	}
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (r *Renderer) renderWithFreshBrowser(ctx context.Context, markup string, layout domain.PageLayout) ([]byte, error) {
	dir, err := createProfileDir(r.cfg)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(r.cfg, dir)...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	return renderInTab(browserCtx, markup, layout, r.settle)
}

// renderInTab loads markup into the tab behind ctx and prints it.
func renderInTab(ctx context.Context, markup string, layout domain.PageLayout, settle time.Duration) ([]byte, error) {
	var pdf []byte
	var loaded bool
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, markup).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(waitForAssets, &loaded, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return waitForRenderReady(ctx, settle)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = printParams(layout).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

func printParams(layout domain.PageLayout) *page.PrintToPDFParams {
	width, height := layout.Dimensions()
	params := page.PrintToPDF().
		WithPrintBackground(layout.PrintBackground).
		WithPaperWidth(width).
		WithPaperHeight(height).
		WithMarginTop(layout.Margins.Top).
		WithMarginRight(layout.Margins.Right).
		WithMarginBottom(layout.Margins.Bottom).
		WithMarginLeft(layout.Margins.Left).
		WithPreferCSSPageSize(layout.PreferCSSPageSize)

	if layout.DisplayHeaderFooter() {
		header, footer := layout.HeaderTemplate, layout.FooterTemplate
		if header == "" {
			header = "<span></span>"
		}
		if footer == "" {
			footer = "<span></span>"
		}
		params = params.
			WithDisplayHeaderFooter(true).
			WithHeaderTemplate(header).
			WithFooterTemplate(footer)
	}
	return params
}

// waitForRenderReady gives layout a moment to settle after assets load.
func waitForRenderReady(ctx context.Context, settle time.Duration) error {
	if settle <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(settle)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports pool occupancy; a disabled pool reports Enabled=false.
func (r *Renderer) Stats() Stats {
	r.mu.Lock()
	pool := r.pool
	r.mu.Unlock()
	if pool == nil {
		return Stats{
			PoolSizeConf: r.cfg.PDF.ChromePoolSize,
			TimeoutSecs:  r.cfg.PDF.TimeoutSecs,
		}
	}
	return pool.Stats(r.cfg.PDF.TimeoutSecs)
}

// Close stops the browser, if one was started.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	return nil
}
