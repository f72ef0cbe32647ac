package database

import "errors"

// ErrUnknownSourceType is returned by Open for an unsupported source type
var ErrUnknownSourceType = errors.New("unknown source type")

// ErrNotAuthorized is returned when a read-only source refuses a statement
var ErrNotAuthorized = errors.New("not authorized")

// SourceError marks failures that originate in the row source: connection
// loss, malformed queries, scan failures, refused statements.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string { return e.Err.Error() }

func (e *SourceError) Unwrap() error { return e.Err }

func sourceErr(err error) error {
	if err == nil {
		return nil
	}
	var se *SourceError
	if errors.As(err, &se) {
		return err
	}
	return &SourceError{Err: err}
}
