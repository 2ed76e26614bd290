package scheduling

import (
	"fmt"
	"strings"
)

// ValidationError is a single user-facing rule violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	// Scope is set only for overlap conflicts.
	Scope Scope `json:"scope,omitempty"`
	// ConflictingID names the existing appointment an overlap collided with.
	ConflictingID string `json:"conflicting_id,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsOverlap reports whether the error came from the overlap validator.
func (e ValidationError) IsOverlap() bool {
	return e.Scope != ""
}

// ValidationErrors is the full set of violations found in one pass.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Add appends a violation.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// Err returns nil when there is nothing to report so callers can write `if err := errs.Err(); err != nil`.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// OnlyOverlaps reports whether every violation is an overlap conflict.
func (v ValidationErrors) OnlyOverlaps() bool {
	if len(v) == 0 {
		return false
	}
	for _, e := range v {
		if !e.IsOverlap() {
			return false
		}
	}
	return true
}

// PreconditionError signals structurally impossible input. It is a programming error,
// not something a user can fix by changing the request.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("scheduling: %s: precondition violated: %s", e.Op, e.Reason)
}
