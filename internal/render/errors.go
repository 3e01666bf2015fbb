package render

import (
	"errors"
	"fmt"
)

// Sentinel kinds for render errors.
var (
	ErrResourceStatus = errors.New("unexpected resource status")
	ErrEmptyLocation  = errors.New("empty resource location")
)

// ResourceLoadError reports that the background image could not be loaded.
// It is never fatal: the renderer keeps using the fallback fill.
type ResourceLoadError struct {
	Location string
	Err      error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("load resource %q: %v", e.Location, e.Err)
}

func (e *ResourceLoadError) Unwrap() error { return e.Err }
