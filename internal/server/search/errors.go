package search

import (
	"errors"
	"fmt"
)

// IndexUnavailableError reports a failed call to the search backend.
type IndexUnavailableError struct {
	Op  string
	Err error
}

func (e *IndexUnavailableError) Error() string {
	return fmt.Sprintf("search index unavailable during %s: %v", e.Op, e.Err)
}

func (e *IndexUnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err as an IndexUnavailableError unless it already is one.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var iu *IndexUnavailableError
	if errors.As(err, &iu) {
		return err
	}
	return &IndexUnavailableError{Op: op, Err: err}
}
