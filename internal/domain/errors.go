package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDateFormat is returned for dates that are not zero-padded YYYY-MM-DD
	// (or YYYY-MM for months).
	ErrInvalidDateFormat = errors.New("invalid date format")
	// ErrInvalidDateRange is returned when a range ends before it starts.
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrMalformedRecord is returned when a record is missing a required field.
	ErrMalformedRecord = errors.New("malformed record")
)

// RecordError describes which input record failed validation.
type RecordError struct {
	Err   error
	Kind  string // e.g. "transaction", "account"
	Field string
	Index int
	ID    string
}

func (e *RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q (#%d): field %s: %v", e.Kind, e.ID, e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("%s #%d: field %s: %v", e.Kind, e.Index, e.Field, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func malformed(kind string, index int, id, field string) error {
	return &RecordError{Err: ErrMalformedRecord, Kind: kind, Index: index, ID: id, Field: field}
}
