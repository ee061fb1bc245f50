package parse

import (
	"errors"
	"fmt"
)

// Error kinds. Every header, message and file-shape failure matches one of
// these with errors.Is. I/O errors are returned wrapped as they are.
var (
	ErrMissingField    = errors.New("missing field")
	ErrInvalidField    = errors.New("invalid field")
	ErrUnparseableDate = errors.New("unparseable date")
	ErrMalformedFile   = errors.New("malformed file")
)

// FieldError reports a required field that is absent, or a field whose
// JSON type does not fit the model. Path is dotted from the record root,
// e.g. "swipe_info[1].extra.token_count".
type FieldError struct {
	Kind   error
	Path   string
	Detail string
}

func (e *FieldError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v %q: %s", e.Kind, e.Path, e.Detail)
	}
	return fmt.Sprintf("%v %q", e.Kind, e.Path)
}

func (e *FieldError) Unwrap() error { return e.Kind }

func missing(path string) error {
	return &FieldError{Kind: ErrMissingField, Path: path}
}

func invalid(path, detail string) error {
	return &FieldError{Kind: ErrInvalidField, Path: path, Detail: detail}
}

// DateError carries the text that no known date encoding accepted.
type DateError struct {
	Field string
	Text  string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("%v in %q: %q", ErrUnparseableDate, e.Field, e.Text)
}

func (e *DateError) Unwrap() error { return ErrUnparseableDate }

// LineError ties a mapping failure to the line it happened on.
type LineError struct {
	Index int // logical index among accepted lines, 0 is the header
	Line  int // physical 1-based line
	Err   error
}

func (e *LineError) Error() string {
	if e.Index == 0 {
		return fmt.Sprintf("header (line %d): %v", e.Line, e.Err)
	}
	return fmt.Sprintf("message %d (line %d): %v", e.Index, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedFile, reason)
}
