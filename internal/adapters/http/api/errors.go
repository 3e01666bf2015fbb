package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrNotPlayable = errors.New("no playable play loaded")
	ErrUpstream    = errors.New("backend unavailable")
	ErrNotReady    = errors.New("frame not ready")
)

// kindError tags an error with the operation that produced it and a
// sentinel kind usable with errors.Is.
type kindError struct {
	op   string
	kind error
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.err)
}

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.err }

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return &kindError{op: op, kind: kind}
}

// WrapKind wraps err as the given kind for op.
func WrapKind(op string, kind, err error) error {
	return &kindError{op: op, kind: kind, err: err}
}
