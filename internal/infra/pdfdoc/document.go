// Package pdfdoc wraps pdfcpu behind the small document model the merge
// pipeline needs: load rendered bytes, pick pages, append them to an
// accumulator and serialize the result.
package pdfdoc

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"reportpdf/internal/domain"
)

var disableConfigDir sync.Once

// Model creates and loads documents. It is safe for concurrent use; every
// pdfcpu call gets its own configuration.
type Model struct{}

// New returns a Model. pdfcpu's on-disk configuration directory is disabled.
func New() *Model {
	disableConfigDir.Do(api.DisableConfigDir)
	return &Model{}
}

func (m *Model) conf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Source is one loaded PDF.
type Source struct {
	data  []byte
	pages int
}

// Page is a handle to one page of a Source.
type Page struct {
	src   *Source
	index int
}

// PageSize is a page's media box in points.
type PageSize struct {
	Width, Height float64
}

// Load parses data as a PDF. A document with an empty page tree loads as a
// source with zero pages.
func (m *Model) Load(data []byte) (*Source, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", domain.ErrParse)
	}
	ctx, err := api.ReadContext(bytes.NewReader(data), m.conf())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if ctx.PageCount == 0 {
		return &Source{data: data}, nil
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	return &Source{data: data, pages: ctx.PageCount}, nil
}

// PageCount returns the number of pages in s.
func (s *Source) PageCount() int { return s.pages }

// PageIndices returns 0..n-1.
func (s *Source) PageIndices() []int {
	out := make([]int, s.pages)
	for i := range out {
		out[i] = i
	}
	return out
}

// CopyPages returns handles for indices, in the order given.
func (s *Source) CopyPages(indices []int) ([]Page, error) {
	out := make([]Page, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= s.pages {
			return nil, fmt.Errorf("page index %d out of range [0,%d)", i, s.pages)
		}
		out = append(out, Page{src: s, index: i})
	}
	return out, nil
}

// Document is an accumulator of pages. It is not safe for concurrent use.
type Document struct {
	m     *Model
	pages []Page
}

// Create returns an empty document.
func (m *Model) Create() *Document {
	return &Document{m: m}
}

// AddPage appends p. Adding the same page twice yields it twice.
func (d *Document) AddPage(p Page) {
	d.pages = append(d.pages, p)
}

// PageCount returns the number of pages appended so far.
func (d *Document) PageCount() int { return len(d.pages) }

type run struct {
	src     *Source
	indices []int
}

func (r run) whole() bool {
	if len(r.indices) != r.src.pages {
		return false
	}
	for i, idx := range r.indices {
		if idx != i {
			return false
		}
	}
	return true
}

// runs groups consecutive pages that come from the same source.
func (d *Document) runs() []run {
	var out []run
	for _, p := range d.pages {
		if n := len(out); n > 0 && out[n-1].src == p.src {
			out[n-1].indices = append(out[n-1].indices, p.index)
			continue
		}
		out = append(out, run{src: p.src, indices: []int{p.index}})
	}
	return out
}

// Save serializes the document. A document made of exactly one whole source
// is returned unchanged.
func (d *Document) Save() ([]byte, error) {
	if len(d.pages) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	runs := d.runs()
	parts := make([][]byte, 0, len(runs))
	for _, r := range runs {
		part, err := d.m.collect(r)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}

	readers := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		readers[i] = bytes.NewReader(p)
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, d.m.conf()); err != nil {
		return nil, fmt.Errorf("merge %d parts: %w", len(parts), err)
	}
	return buf.Bytes(), nil
}

func (m *Model) collect(r run) ([]byte, error) {
	if r.whole() {
		return r.src.data, nil
	}
	selection := make([]string, len(r.indices))
	for i, idx := range r.indices {
		selection[i] = strconv.Itoa(idx + 1)
	}
	var buf bytes.Buffer
	if err := api.Collect(bytes.NewReader(r.src.data), &buf, selection, m.conf()); err != nil {
		return nil, fmt.Errorf("collect pages %v: %w", r.indices, err)
	}
	return buf.Bytes(), nil
}

// PageSizes reports the media box of every page in data.
func (m *Model) PageSizes(data []byte) ([]PageSize, error) {
	dims, err := api.PageDims(bytes.NewReader(data), m.conf())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	out := make([]PageSize, len(dims))
	for i, d := range dims {
		out[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	return out, nil
}

