package renders

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a render id is unknown.
var ErrNotFound = errors.New("render not found")

// ValidationError rejects a request before any work is done.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}

// SubmitError wraps a renderer submission failure. The render is already
// marked failed when it is returned.
type SubmitError struct {
	RenderID string
	Err      error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("render %s: submission failed: %v", e.RenderID, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
