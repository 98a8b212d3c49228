package weather

import (
	"errors"
	"fmt"
)

// ErrUnexpectedFormat is wrapped by every SchemaError.
var ErrUnexpectedFormat = errors.New("unexpected data format")

// TransportError means the request could not be sent at all
// (malformed URL, DNS failure, refused connection, timeout).
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("invalid URL or network error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError means the archive API answered with a status other than 200.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to retrieve data: status %d", e.Code)
}

// SchemaError means the decoded payload does not have the expected shape.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnexpectedFormat, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrUnexpectedFormat }

// IntegrityError means the hourly arrays are inconsistent with each other.
type IntegrityError struct {
	Column   string
	Got      int
	Expected int
	Reason   string
}

func (e *IntegrityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("data integrity: column %q: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("data integrity: column %q has %d values, expected %d", e.Column, e.Got, e.Expected)
}

func schemaErrorf(format string, args ...any) error {
	return &SchemaError{Reason: fmt.Sprintf(format, args...)}
}
