package catalog

import "fmt"

// FormatError is returned when a catalog document has neither a bare list
// shape nor an object wrapping a "jobs" list, or when its postings break the
// catalog invariants.
type FormatError struct {
	Message string
	Cause   error
}

func (e *FormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("catalog format error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("catalog format error: %s", e.Message)
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}

// NotFoundError is returned when a job id is absent from the catalog.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job %q not found in catalog", e.ID)
}
