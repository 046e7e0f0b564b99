// Package pipeline turns composed documents into PDFs and merges many of them
// into one file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"reportpdf/internal/domain"
	"reportpdf/internal/infra/logging"
	"reportpdf/internal/infra/pdfdoc"
)

// Renderer turns markup into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, markup string, layout domain.PageLayout) ([]byte, error)
}

// ComposeFunc projects one record into markup. It must not fail on missing
// optional data.
type ComposeFunc[T any] func(ctx context.Context, index int, record T) (domain.Document, error)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency renders up to n records at once. Pages are still merged in
// input order. Values below 2 keep rendering sequential.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithRecordTimeout bounds every single render. Zero disables the bound.
func WithRecordTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// Pipeline renders and merges documents.
type Pipeline struct {
	renderer    Renderer
	docs        *pdfdoc.Model
	concurrency int
	timeout     time.Duration
}

// New returns a sequential pipeline unless configured otherwise.
func New(renderer Renderer, docs *pdfdoc.Model, opts ...Option) *Pipeline {
	p := &Pipeline{renderer: renderer, docs: docs, concurrency: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build renders one composed document. Failures are reported as
// *domain.RenderError carrying index.
func (p *Pipeline) Build(ctx context.Context, index int, doc domain.Document) ([]byte, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := p.renderer.Render(ctx, doc.HTML, doc.Layout)
	if err != nil {
		return nil, &domain.RenderError{Index: index, Err: err}
	}
	logging.Debug("Record rendered", "index", index, "bytes", len(out), "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

// Merge composes, renders and concatenates records in order. The first
// failing record aborts the merge and no partial output is returned.
func Merge[T any](ctx context.Context, p *Pipeline, records []T, compose ComposeFunc[T]) ([]byte, error) {
	if len(records) == 0 {
		return nil, domain.Validationf("no records to merge")
	}

	acc := p.docs.Create()

	if p.concurrency > 1 && len(records) > 1 {
		rendered, err := renderAll(ctx, p, records, compose)
		if err != nil {
			return nil, err
		}
		for i, pdf := range rendered {
			if err := p.appendRecord(acc, i, pdf); err != nil {
				return nil, err
			}
		}
		return save(acc, len(records))
	}

	for i, rec := range records {
		pdf, err := composeAndBuild(ctx, p, i, rec, compose)
		if err != nil {
			return nil, err
		}
		if err := p.appendRecord(acc, i, pdf); err != nil {
			return nil, err
		}
	}
	return save(acc, len(records))
}

func composeAndBuild[T any](ctx context.Context, p *Pipeline, index int, rec T, compose ComposeFunc[T]) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.RenderError{Index: index, Err: err}
	}
	doc, err := compose(ctx, index, rec)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, &domain.RenderError{Index: index, Err: err}
	}
	return p.Build(ctx, index, doc)
}

func renderAll[T any](ctx context.Context, p *Pipeline, records []T, compose ComposeFunc[T]) ([][]byte, error) {
	out := make([][]byte, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, rec := range records {
		g.Go(func() error {
			pdf, err := composeAndBuild(gctx, p, i, rec, compose)
			if err != nil {
				return err
			}
			out[i] = pdf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) appendRecord(acc *pdfdoc.Document, index int, pdf []byte) error {
	src, err := p.docs.Load(pdf)
	if err != nil {
		return &domain.ParseError{Index: index, Err: err}
	}
	pages, err := src.CopyPages(src.PageIndices())
	if err != nil {
		return &domain.ParseError{Index: index, Err: err}
	}
	for _, page := range pages {
		acc.AddPage(page)
	}
	return nil
}

func save(acc *pdfdoc.Document, records int) ([]byte, error) {
	out, err := acc.Save()
	if err != nil {
		if errors.Is(err, domain.ErrEmptyDocument) {
			return nil, err
		}
		return nil, fmt.Errorf("save merged document: %w", err)
	}
	logging.Debug("Documents merged", "records", records, "pages", acc.PageCount(), "bytes", len(out))
	return out, nil
}
