package workitem

import (
	"fmt"

	"tfsrelay/internal/services"
)

// MalformedEventError reports a change notification that is not well-formed
// XML or lacks a required field.
type MalformedEventError struct {
	Field string
	Err   error
}

func (e *MalformedEventError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("malformed work item event: missing %s", e.Field)
	case e.Err != nil:
		return fmt.Sprintf("malformed work item event: %v", e.Err)
	default:
		return "malformed work item event"
	}
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, services.ErrMalformedEvent) classify parse failures.
func (e *MalformedEventError) Is(target error) bool {
	return target == services.ErrMalformedEvent
}
