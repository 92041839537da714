package vcf

import (
	"errors"
	"fmt"
)

// Header errors.
var (
	ErrMalformedMeta       = errors.New("malformed meta line")
	ErrDuplicateFieldID    = errors.New("duplicate field id")
	ErrMissingColumnHeader = errors.New("missing #CHROM header line")
)

// Record decode errors. ErrUnknownFilter, ErrUnknownInfo and ErrUnknownFormat
// are only ever reported as record warnings.
var (
	ErrColumnCount         = errors.New("column count mismatch")
	ErrInvalidPosition     = errors.New("invalid position")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrArityMismatch       = errors.New("arity mismatch")
	ErrFormatArityMismatch = errors.New("more sample values than FORMAT keys")
	ErrUnknownFilter       = errors.New("undeclared FILTER")
	ErrUnknownInfo         = errors.New("undeclared INFO key")
	ErrUnknownFormat       = errors.New("undeclared FORMAT key")
)

// Encode errors.
var (
	ErrSampleCountMismatch = errors.New("sample count mismatch")
	ErrNoTemplate          = errors.New("writer requires a template header")
	ErrEmptyFilter         = errors.New("failed FILTER without filter ids")
)

// HeaderError reports a header problem with line context.
type HeaderError struct {
	Line int
	Err  error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("vcf header error at line %d: %v", e.Line, e.Err)
}

func (e *HeaderError) Unwrap() error { return e.Err }

// ParseError represents a fatal error decoding a record line. Record is the
// 1-based index of the record within the stream.
type ParseError struct {
	Line   int
	Record int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d (record %d): %v", e.Line, e.Record, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
