package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or empty input. It maps to HTTP 400.
	ErrValidation = errors.New("validation failed")
	// ErrRender marks a failure to turn one record into a PDF.
	ErrRender = errors.New("render failed")
	// ErrParse marks rendered bytes that could not be loaded as a PDF.
	ErrParse = errors.New("pdf parse failed")
	// ErrEmptyDocument is returned when a document is saved without pages.
	ErrEmptyDocument = errors.New("document has no pages")

	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrTokenStoreNotReady signals that tokens have not been loaded yet.
	ErrTokenStoreNotReady = errors.New("token store not ready")
)

// ValidationError carries a client-facing message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validationf builds a *ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// RenderError reports which record failed to render.
type RenderError struct {
	Index int
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("record %d: render: %v", e.Index, e.Err)
}

func (e *RenderError) Unwrap() []error { return []error{ErrRender, e.Err} }

// ParseError reports which record produced bytes that are not a usable PDF.
type ParseError struct {
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("record %d: load pdf: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// RecordIndex returns the failing record index carried by err, if any.
func RecordIndex(err error) (int, bool) {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Index, true
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Index, true
	}
	return 0, false
}
