// Package rodpdf renders HTML to PDF with go-rod. It is the alternative to
// the chromedp engine, selected with pdf.engine: rod.
package rodpdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"reportpdf/internal/config"
	"reportpdf/internal/domain"
)

// Render failures wrap one of these.
var (
	// ErrBrowserConnect means the browser could not be launched or reached.
	ErrBrowserConnect = errors.New("browser connection failed")
	// ErrPageCreate means a new page could not be opened.
	ErrPageCreate = errors.New("page creation failed")
	// ErrPageLoad means the markup could not be loaded into the page.
	ErrPageLoad = errors.New("page load failed")
	// ErrPDFGeneration means printing the loaded page failed.
	ErrPDFGeneration = errors.New("pdf generation failed")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("renderer closed")
)

// Renderer keeps one lazily launched browser and opens a page per render.
type Renderer struct {
	bin       string
	noSandbox bool

	mu      sync.Mutex
	browser *rod.Browser
	closed  bool
}

// NewRenderer returns a renderer using cfg.PDF.ChromePath when set. Without a
// path rod resolves, and if needed downloads, a browser on first use.
func NewRenderer(cfg config.Config) *Renderer {
	return &Renderer{bin: cfg.PDF.ChromePath, noSandbox: cfg.PDF.ChromeNoSandbox}
}

func (r *Renderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Headless(true).NoSandbox(r.noSandbox)
	if r.bin != "" {
		l = l.Bin(r.bin)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.browser = browser
	return browser, nil
}

// Render prints markup to PDF in a fresh page.
func (r *Renderer) Render(ctx context.Context, markup string, layout domain.PageLayout) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.SetDocumentContent(markup); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := page.PDF(printOptions(layout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return out, nil
}

func printOptions(layout domain.PageLayout) *proto.PagePrintToPDF {
	width, height := layout.Dimensions()
	opts := &proto.PagePrintToPDF{
		PaperWidth:        floatPtr(width),
		PaperHeight:       floatPtr(height),
		MarginTop:         floatPtr(layout.Margins.Top),
		MarginRight:       floatPtr(layout.Margins.Right),
		MarginBottom:      floatPtr(layout.Margins.Bottom),
		MarginLeft:        floatPtr(layout.Margins.Left),
		PrintBackground:   layout.PrintBackground,
		PreferCSSPageSize: layout.PreferCSSPageSize,
	}
	if layout.DisplayHeaderFooter() {
		opts.DisplayHeaderFooter = true
		opts.HeaderTemplate = orEmptySpan(layout.HeaderTemplate)
		opts.FooterTemplate = orEmptySpan(layout.FooterTemplate)
	}
	return opts
}

func orEmptySpan(tpl string) string {
	if tpl == "" {
		return "<span></span>"
	}
	return tpl
}

func floatPtr(v float64) *float64 { return &v }

// Close shuts the browser down. Later renders fail with ErrClosed.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}
