package sexp

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared by the layout and symbol parsers. Callers branch on them
// with errors.Is to tell "this is not the claimed format" apart from
// per-record trouble, which is reported as Warning values instead.
var (
	ErrMissingSection       = errors.New("missing section")
	ErrEmptySection         = errors.New("empty section")
	ErrUnterminatedString   = errors.New("unterminated string")
	ErrUnbalancedDelimiters = errors.New("unbalanced delimiters")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidNumber        = errors.New("invalid number")
)

// ParseError is the single tagged error type returned by the parsers.
type ParseError struct {
	Kind    error  // One of the Err* kinds above
	Subject string // Section, field or literal the error refers to
	Offset  int    // Byte offset into the input, -1 when unknown
}

// NewError builds a ParseError of the given kind.
func NewError(kind error, subject string, offset int) *ParseError {
	return &ParseError{Kind: kind, Subject: subject, Offset: offset}
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Subject != "" {
		fmt.Fprintf(&b, " %q", e.Subject)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	return b.String()
}

// Unwrap exposes the kind so errors.Is(err, ErrMissingSection) works.
func (e *ParseError) Unwrap() error {
	return e.Kind
}

// Warning records a block or line that was located but could not be decoded.
// Warnings never abort a parse; they are returned next to the partial result.
type Warning struct {
	Tag    string // Head of the offending block (e.g. "footprint")
	Offset int    // Byte offset of the block start
	Err    error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s at offset %d: %v", w.Tag, w.Offset, w.Err)
}

// MarshalText lets warnings appear in JSON reports as plain strings.
func (w Warning) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}
