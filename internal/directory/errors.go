package directory

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the directory has no record of the requested entity
var ErrNotFound = errors.New("not found in directory")

// ErrRequestFailed is returned when the directory could not serve a request
var ErrRequestFailed = errors.New("directory request failed")

// apiError unwraps to ErrRequestFailed and carries the message, if any, that the
// directory returned alongside the failure
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("%v: status %d", ErrRequestFailed, e.status)
	}
	return fmt.Sprintf("%v: status %d: %s", ErrRequestFailed, e.status, e.message)
}

func (e *apiError) Unwrap() error {
	return ErrRequestFailed
}
