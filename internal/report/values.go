package report

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Text is a string that also accepts JSON numbers and booleans. Objects,
// arrays and null decode to "".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case data[0] == '{' || data[0] == '[':
		*t = ""
	default:
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Or returns t, or fallback when t is blank.
func (t Text) Or(fallback string) string {
	if strings.TrimSpace(string(t)) == "" {
		return fallback
	}
	return string(t)
}

// Amount is a decimal that decodes from numbers or numeric strings. Anything
// unparsable counts as zero.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount { return Amount{Decimal: d} }

// AmountOf parses s, returning zero when it is not a number.
func AmountOf(s string) Amount {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return Amount{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}
	}
	return Amount{Decimal: d}
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		*a = Amount{}
		return nil
	}
	*a = AmountOf(string(t))
	return nil
}

// MarshalJSON keeps amounts numeric.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// Ref decodes a nested object. A bare id, an array or null leaves V zero,
// which covers records whose references were never populated.
type Ref[T any] struct {
	V T
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	return json.Unmarshal(data, &r.V)
}

func fold[T, A any](items []T, acc A, step func(A, T) A) A {
	for _, it := range items {
		acc = step(acc, it)
	}
	return acc
}

// pickAmount returns the first key of raw present and non-null.
func pickAmount(raw map[string]json.RawMessage, keys ...string) Amount {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		var a Amount
		_ = a.UnmarshalJSON(v)
		return a
	}
	return Amount{}
}

// pickText returns the first key of raw holding a non-blank value.
func pickText(raw map[string]json.RawMessage, keys ...string) Text {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var t Text
		if err := t.UnmarshalJSON(v); err == nil && strings.TrimSpace(string(t)) != "" {
			return t
		}
	}
	return ""
}
