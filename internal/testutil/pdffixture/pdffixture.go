// Package pdffixture builds small real PDFs for tests. Page sizes double as
// content markers: record r, page p is (200+10r) x (400+10p) points.
package pdffixture

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// fixedDate keeps the output byte-identical across calls.
var fixedDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Size is a page size in points.
type Size struct {
	Width, Height float64
}

// Marker returns the page size used for record r, page p.
func Marker(record, page int) Size {
	return Size{Width: float64(200 + 10*record), Height: float64(400 + 10*page)}
}

// Build renders one page per size.
func Build(sizes ...Size) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetCreationDate(fixedDate)
	for i, s := range sizes {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: s.Width, Ht: s.Height})
		pdf.SetFont("Helvetica", "", 10)
		pdf.Text(20, 40, fmt.Sprintf("page %d", i+1))
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Empty returns a well-formed PDF whose page tree has no pages. gofpdf
// cannot produce one since it always emits at least one page.
func Empty() []byte {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [] /Count 0 >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// Record renders pages marked for record r. Zero pages yields Empty.
func Record(record, pages int) ([]byte, error) {
	if pages == 0 {
		return Empty(), nil
	}
	sizes := make([]Size, pages)
	for p := range sizes {
		sizes[p] = Marker(record, p)
	}
	return Build(sizes...)
}

// Markup encodes a record id and page count as fake markup understood by
// ParseMarkup.
func Markup(record, pages int) string {
	return fmt.Sprintf("<!-- record=%d pages=%d -->", record, pages)
}

// ParseMarkup reads back the values written by Markup. It also finds them
// when embedded in a larger document.
func ParseMarkup(markup string) (record, pages int, ok bool) {
	i := strings.Index(markup, "<!-- record=")
	if i < 0 {
		return 0, 0, false
	}
	rest := markup[i+len("<!-- record="):]
	end := strings.Index(rest, " -->")
	if end < 0 {
		return 0, 0, false
	}
	fields := strings.Fields(strings.Replace(rest[:end], "pages=", "", 1))
	if len(fields) != 2 {
		return 0, 0, false
	}
	r, err1 := strconv.Atoi(fields[0])
	p, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return r, p, true
}
