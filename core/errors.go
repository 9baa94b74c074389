package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error produced while decoding wraps exactly one of
// these.
var (
	// ErrTruncated means the buffer ended in the middle of a record or field.
	ErrTruncated = errors.New("truncated")

	// ErrUnexpectedRecordType means a required record had the wrong type.
	ErrUnexpectedRecordType = errors.New("unexpected record type")

	// ErrMalformedLength means a declared length is inconsistent with the
	// buffer or with the fixed size the record type requires.
	ErrMalformedLength = errors.New("malformed length")

	// ErrIndexOutOfRange means a structure, element, polygon or property
	// index was outside [0, count).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidNumericField means a numeric field decoded to an unusable
	// value, such as non-positive units.
	ErrInvalidNumericField = errors.New("invalid numeric field")
)

// ErrInvalidLength is returned when a record header declares a total length
// smaller than the 4-byte header itself.
var ErrInvalidLength = fmt.Errorf("record length below header size: %w", ErrMalformedLength)

// ErrOutOfRange is returned when a seek targets a position outside [0, len].
// It is a malformed-offset condition, not a caller index error.
var ErrOutOfRange = fmt.Errorf("seek out of range: %w", ErrMalformedLength)

// ParseError describes where decoding stopped.
type ParseError struct {
	Op     string     // what was being decoded, e.g. "read header"
	Offset int        // byte offset of the record involved
	Record RecordType // record type, zero when unknown
	Err    error
}

func (e *ParseError) Error() string {
	if e.Record != 0 {
		return fmt.Sprintf("%s: %s at offset %d: %v", e.Op, e.Record, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Wrap annotates err with the operation and record it occurred in. An error
// that is already a *ParseError is returned unchanged so the innermost
// location wins.
func Wrap(op string, rec Record, err error) error {
	if err == nil {
		return nil
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &ParseError{Op: op, Offset: rec.Offset, Record: rec.Type, Err: err}
}
