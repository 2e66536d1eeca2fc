package tfs

import (
	"fmt"

	"tfsrelay/internal/services"
)

// LookupFailedError reports a failed work item query: transport errors,
// non-2xx responses, and bodies that do not have the expected shape.
type LookupFailedError struct {
	WorkItemID string
	StatusCode int
	Err        error
}

func (e *LookupFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tfs lookup %s: http %d: %v", e.WorkItemID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("tfs lookup %s: %v", e.WorkItemID, e.Err)
}

func (e *LookupFailedError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, services.ErrLookupFailed) classify lookup failures.
func (e *LookupFailedError) Is(target error) bool {
	return target == services.ErrLookupFailed
}
