package domain

import (
	"encoding/json"
	"slices"
	"strings"

	"reportpdf/internal/config"
)

// AllowedFormats lists the paper formats a request may ask for.
var AllowedFormats = []string{"A0", "A1", "A2", "A3", "A4", "A5", "LETTER", "LEGAL", "TABLOID"}

const mmPerInch = 25.4

// Margins are page margins in inches.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// MarginsMM converts millimetre margins to inches.
func MarginsMM(top, right, bottom, left float64) Margins {
	return Margins{Top: top / mmPerInch, Right: right / mmPerInch, Bottom: bottom / mmPerInch, Left: left / mmPerInch}
}

// MarginsPX converts CSS pixel margins (96 per inch) to inches.
func MarginsPX(px float64) Margins {
	in := px / 96
	return Margins{Top: in, Right: in, Bottom: in, Left: in}
}

// PageLayout is everything a renderer needs besides the markup.
type PageLayout struct {
	Paper             config.PaperSize
	Landscape         bool
	Margins           Margins
	PrintBackground   bool
	PreferCSSPageSize bool
	HeaderTemplate    string
	FooterTemplate    string
}

// Dimensions returns the oriented paper width and height in inches.
func (l PageLayout) Dimensions() (width, height float64) {
	if l.Landscape {
		return l.Paper.Height, l.Paper.Width
	}
	return l.Paper.Width, l.Paper.Height
}

// DisplayHeaderFooter reports whether either print template is set.
func (l PageLayout) DisplayHeaderFooter() bool {
	return l.HeaderTemplate != "" || l.FooterTemplate != ""
}

// Document is composed markup ready for rendering.
type Document struct {
	HTML   string
	Layout PageLayout
}

// Flag decodes loosely typed JSON booleans: true/false, "true", "landscape",
// numbers and null. Objects and arrays are true.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = Flag(t)
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		*f = Flag(s == "true" || s == "landscape")
	case float64:
		*f = Flag(t != 0)
	case map[string]any, []any:
		*f = true
	default:
		*f = false
	}
	return nil
}

// PageOptions are the per-request template options.
type PageOptions struct {
	Format    string `json:"format"`
	Landscape Flag   `json:"landscape"`
}

// Page is a resolved paper size and orientation.
type Page struct {
	Format    string
	Paper     config.PaperSize
	Landscape bool
}

// Resolve normalizes the requested format against the configured sizes. An
// unknown or unsupported format falls back to fallback.
func (o PageOptions) Resolve(sizes map[string]config.PaperSize, fallback string) Page {
	format := strings.ToUpper(strings.TrimSpace(o.Format))
	paper, ok := sizes[format]
	if !ok || !slices.Contains(AllowedFormats, format) {
		format = fallback
		paper = sizes[fallback]
	}
	return Page{Format: format, Paper: paper, Landscape: bool(o.Landscape)}
}

