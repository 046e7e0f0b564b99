package report

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Dash is printed for missing values.
const Dash = "-"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts ISO-8601 timestamps and plain dates. Values without a
// zone are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && len(s) >= 12 {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

// Formatter renders dates in one time zone.
type Formatter struct {
	loc *time.Location
}

// NewFormatter returns a Formatter for loc, UTC when loc is nil.
func NewFormatter(loc *time.Location) Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return Formatter{loc: loc}
}

// Date prints dd-mm-yyyy. Empty input prints Dash; unparsable input is
// returned unchanged.
func (f Formatter) Date(s string) string {
	if strings.TrimSpace(s) == "" {
		return Dash
	}
	t, ok := ParseTime(s)
	if !ok {
		return s
	}
	return t.In(f.loc).Format("02-01-2006")
}

// ShortDate prints d/m/yyyy, or fallback when s is empty or unparsable.
func (f Formatter) ShortDate(s, fallback string) string {
	t, ok := ParseTime(s)
	if !ok {
		return fallback
	}
	return t.In(f.loc).Format("2/1/2006")
}

// DateTime prints dd/mm/yyyy hh:mm:ss.
func (f Formatter) DateTime(t time.Time) string {
	return t.In(f.loc).Format("02/01/2006 15:04:05")
}

// MediumDate prints e.g. "05 Feb 2024".
func (f Formatter) MediumDate(t time.Time) string {
	return t.In(f.loc).Format("02 Jan 2006")
}

// LongDate prints e.g. "Monday, 5 February 2024".
func (f Formatter) LongDate(t time.Time) string {
	return t.In(f.loc).Format("Monday, 2 January 2006")
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func isUpper(s string) bool {
	return s == strings.ToUpper(s)
}

func titleWord(w string) string {
	return cases.Title(language.English).String(w)
}

// TitleCase capitalizes each word, leaving all-caps words such as "PO" or
// "HT" and words without letters untouched.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if !hasLetter(w) || isUpper(w) {
			continue
		}
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

// PrettyStatus turns "po_created" into "PO Created".
func PrettyStatus(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		switch {
		case strings.EqualFold(w, "po"):
			words[i] = "PO"
		case isUpper(w):
		default:
			words[i] = titleWord(w)
		}
	}
	return strings.Join(words, " ")
}

// Or returns s, or fallback when s is blank.
func Or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// Fixed prints d with two decimals.
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FixedOrDash prints d with two decimals, or Dash when it is zero.
func FixedOrDash(d decimal.Decimal) string {
	if d.IsZero() {
		return Dash
	}
	return Fixed(d)
}

// INR prints d as rupees with Indian digit grouping and two decimals,
// e.g. ₹1,23,456.70.
func INR(d decimal.Decimal) string {
	return "₹" + groupIndian(d.StringFixed(2))
}

// INRCompact is INR with trailing zero decimals dropped, e.g. ₹ 1,23,456.5.
func INRCompact(d decimal.Decimal) string {
	s := d.Round(2).String()
	return "₹ " + groupIndian(s)
}

// groupIndian inserts separators into a plain decimal string: the last three
// integer digits form one group, the rest are grouped in pairs.
func groupIndian(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) > 3 {
		head, tail := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		intPart = strings.Join(append(groups, tail), ",")
	}
	if hasFrac {
		return sign + intPart + "." + frac
	}
	return sign + intPart
}
