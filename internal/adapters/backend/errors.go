package backend

import (
	"errors"
	"fmt"
)

// ErrDecode is wrapped when a backend response body cannot be decoded.
var ErrDecode = errors.New("decode backend response")

// ServerError is a non-success response from the backend.
type ServerError struct {
	Status int
	Reason string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("Server error: %s", e.Reason)
}

// FiltersLoadError reports that the search filter options are unavailable.
type FiltersLoadError struct {
	Err error
}

func (e *FiltersLoadError) Error() string {
	return fmt.Sprintf("load search filters: %v", e.Err)
}

func (e *FiltersLoadError) Unwrap() error { return e.Err }
