package report

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strings"
	"time"

	"reportpdf/internal/config"
	"reportpdf/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Branding is the letterhead printed on every report.
type Branding struct {
	CompanyName string
	Address     []string
	Email       string
	Website     string
	Watermark   string
	Logo        template.URL
}

// WebsiteHost strips the scheme for display.
func (b Branding) WebsiteHost() string {
	host := strings.TrimPrefix(strings.TrimPrefix(b.Website, "https://"), "http://")
	return strings.TrimSuffix(host, "/")
}

// Builder turns decoded records into printable documents. It holds no
// per-request state and is safe for concurrent use.
type Builder struct {
	tpl          *template.Template
	brand        Branding
	fmt          Formatter
	papers       map[string]config.PaperSize
	defaultPaper string
	advanceRule  string
	now          func() time.Time
}

// NewBuilder parses the embedded templates and loads the logo named by
// branding.logo_path, if any.
func NewBuilder(cfg config.Config) (*Builder, error) {
	tpl, err := template.New("reports").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse report templates: %w", err)
	}

	brand := Branding{
		CompanyName: cfg.Branding.CompanyName,
		Address:     cfg.Branding.Address,
		Email:       cfg.Branding.Email,
		Website:     cfg.Branding.Website,
		Watermark:   cfg.Branding.Watermark,
	}
	if cfg.Branding.LogoPath != "" {
		raw, err := os.ReadFile(cfg.Branding.LogoPath)
		if err != nil {
			return nil, fmt.Errorf("read logo: %w", err)
		}
		brand.Logo = DataURI(raw, "")
	}

	papers := cfg.PDF.PaperSizes
	if len(papers) == 0 {
		papers = config.DefaultPaperSizes()
	}
	fallback := cfg.PDF.DefaultPaper
	if _, ok := papers[fallback]; !ok {
		fallback = "A4"
	}

	return &Builder{
		tpl:          tpl,
		brand:        brand,
		fmt:          NewFormatter(cfg.Location()),
		papers:       papers,
		defaultPaper: fallback,
		advanceRule:  cfg.Reports.AdvanceBalanceRule,
		now:          time.Now,
	}, nil
}

// WithClock returns a copy of b that reads the current time from now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	c := *b
	c.now = now
	return &c
}

// Page resolves request page options against the configured paper table.
func (b *Builder) Page(opts domain.PageOptions) domain.Page {
	return opts.Resolve(b.papers, b.defaultPaper)
}

func (b *Builder) paper(name string) config.PaperSize {
	if p, ok := b.papers[name]; ok {
		return p
	}
	return b.papers[b.defaultPaper]
}

// layout starts a print layout on p, or on the default paper when p was
// never resolved.
func (b *Builder) layout(p domain.Page) domain.PageLayout {
	paper := p.Paper
	if paper.Width <= 0 || paper.Height <= 0 {
		paper = b.paper(p.Format)
	}
	return domain.PageLayout{Paper: paper, Landscape: p.Landscape, PrintBackground: true}
}

func (b *Builder) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := b.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.String(), nil
}

// page is the data every report template receives.
type page[T any] struct {
	Brand Branding
	Title string
	Body  T
}

// DataURI embeds raw as a data: URL. An empty contentType is sniffed.
func DataURI(raw []byte, contentType string) template.URL {
	if contentType == "" {
		contentType = http.DetectContentType(raw)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return template.URL("data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(raw))
}

const footerCopyright = `<div style="font-size:10px;width:100%;text-align:center;color:#6b7280;padding:6px 0;">` +
	`Page <span class="pageNumber"></span> of <span class="totalPages"></span> | &copy; %s</div>`

const footerPurchase = `<div style="width:100%;text-align:center;margin-top:10px;">` +
	`<hr style="border:0;border-top:1px solid #000;margin-bottom:6px;"/>` +
	`<div style="font-size:10px;color:#6b7280;padding:4px 0;">Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>` +
	`<div style="font-size:10px;color:#6b7280;padding:2px 0 6px;">This is a system generated document and does not require signature.</div>` +
	`</div>`

const footerSchedule = `<div style="font-size:9px;width:100%;padding:6px 16px;color:#6b7280;display:flex;justify-content:space-between;">` +
	`<div>&copy; %s</div><div>Page <span class="pageNumber"></span> of <span class="totalPages"></span></div></div>`

func (b *Builder) copyrightFooter(tpl string) string {
	return fmt.Sprintf(tpl, template.HTMLEscapeString(b.brand.CompanyName))
}
