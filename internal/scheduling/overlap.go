package scheduling

import "time"

// Scope is the actor dimension an overlap check runs against.
type Scope string

const (
	ScopeInstructor Scope = "instructor"
	ScopeStudent    Scope = "student"
)

// Slot is the view of an appointment the engine reasons over.
type Slot struct {
	ID           string
	InstructorID string
	// StudentID is empty for open slots.
	StudentID  string
	Start      time.Time
	End        time.Time
	Status     Status
	ReBookable bool
}

// IsOpen reports whether the slot has no student assigned or is explicitly Open.
func (s Slot) IsOpen() bool {
	return s.Status == StatusOpen || s.StudentID == ""
}

// ActorID returns the identifier of the actor owning the slot for a scope.
func (s Slot) ActorID(scope Scope) string {
	if scope == ScopeStudent {
		return s.StudentID
	}
	return s.InstructorID
}

// Overlaps reports whether [s1,e1) and [s2,e2) intersect. Touching edges do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Conflict describes the first existing appointment a candidate collides with.
type Conflict struct {
	Scope         Scope
	ConflictingID string
	Start         time.Time
	End           time.Time
}

// Message is the human readable reason shown to callers.
func (c *Conflict) Message() string {
	if c.Scope == ScopeStudent {
		return "Time slot overlaps with student's other appointments."
	}
	return "Time slot overlaps with instructor's other appointments."
}

// ValidationError converts the conflict into the common error shape.
func (c *Conflict) ValidationError() ValidationError {
	return ValidationError{Field: "base", Message: c.Message(), Scope: c.Scope, ConflictingID: c.ConflictingID}
}

// ValidateNoOverlap checks the candidate interval against the actor's active appointments.
// The active set is trusted as given; entries that belong to another actor or carry
// candidateID are ignored. It returns nil when there is no conflict.
func ValidateNoOverlap(candidateID string, start, end time.Time, actorID string, scope Scope, active []Slot) *Conflict {
	if actorID == "" {
		return nil
	}
	for _, existing := range active {
		if candidateID != "" && existing.ID == candidateID {
			continue
		}
		if existing.ActorID(scope) != actorID {
			continue
		}
		if Overlaps(start, end, existing.Start, existing.End) {
			return &Conflict{Scope: scope, ConflictingID: existing.ID, Start: existing.Start, End: existing.End}
		}
	}
	return nil
}
