package pdffixture

import (
	"context"
	"errors"
	"sync"
	"time"

	"reportpdf/internal/domain"
)

// ErrInjected is returned for records listed in Renderer.Fail.
var ErrInjected = errors.New("injected render failure")

// Renderer is a fake renderer. Markup carrying a Markup marker renders to a
// PDF with marked pages; any other markup renders to one page marked with
// record 0. Every call is recorded.
type Renderer struct {
	// Fail lists record ids that fail to render.
	Fail map[int]bool
	// Garbage lists record ids that render to bytes that are not a PDF.
	Garbage map[int]bool
	// Delay is applied before rendering the given record id.
	Delay map[int]time.Duration

	mu      sync.Mutex
	calls   []int
	markups []string
	layouts []domain.PageLayout
}

func (r *Renderer) Render(ctx context.Context, markup string, layout domain.PageLayout) ([]byte, error) {
	id, pages, ok := ParseMarkup(markup)
	if !ok {
		id, pages = 0, 1
	}

	r.mu.Lock()
	r.calls = append(r.calls, id)
	r.markups = append(r.markups, markup)
	r.layouts = append(r.layouts, layout)
	r.mu.Unlock()

	if d := r.Delay[id]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Fail[id] {
		return nil, ErrInjected
	}
	if r.Garbage[id] {
		return []byte("%PDF-garbage"), nil
	}
	return Record(id, pages)
}

// Calls returns the record ids rendered so far, in call order.
func (r *Renderer) Calls() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.calls...)
}

// Markups returns every markup passed to Render.
func (r *Renderer) Markups() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.markups...)
}

// Layouts returns every layout passed to Render.
func (r *Renderer) Layouts() []domain.PageLayout {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PageLayout(nil), r.layouts...)
}
