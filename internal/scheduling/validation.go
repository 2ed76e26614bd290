package scheduling

import "time"

// DefaultMinStartOffset allows a new appointment to start up to five minutes before now.
const DefaultMinStartOffset = -5 * time.Minute

// Policy holds the tunables of candidate validation.
type Policy struct {
	// MinStartOffset is added to now to get the earliest legal start of a new appointment.
	// Negative values tolerate slightly stale clients; positive values demand lead time.
	MinStartOffset time.Duration
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

func (p Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// EarliestStart is the earliest start accepted for a new appointment at the current instant.
func (p Policy) EarliestStart() time.Time {
	return p.now().Add(p.MinStartOffset)
}

// Check is one fully materialized candidate plus the active sets it must not collide with.
type Check struct {
	Candidate Slot
	// Creating enables the start-in-the-past rule, which only applies to new records.
	Creating bool
	// InstructorActive and StudentActive are supplied by the persistence layer.
	InstructorActive []Slot
	StudentActive    []Slot
}

// Materialize fills the candidate's end time from its category.
func Materialize(candidate Slot, category *Category) (Slot, error) {
	end, err := EndTimeFor(candidate.Start, category)
	if err != nil {
		return Slot{}, err
	}
	candidate.End = end
	return candidate, nil
}

// Validate runs every rule and returns all violations at once. It never mutates its input.
func (p Policy) Validate(c Check) ValidationErrors {
	var errs ValidationErrors
	cand := c.Candidate

	if cand.InstructorID == "" {
		errs.Add("instructor_id", "can't be blank")
	}
	if cand.Start.IsZero() {
		errs.Add("start_time", "can't be blank")
	}
	if !cand.Status.Valid() {
		errs.Add("status", "is not included in the list")
	} else if cand.Status.RequiresStudent() && cand.StudentID == "" {
		errs.Add("student_id", "can't be blank")
	}

	if !cand.Start.IsZero() {
		if !cand.End.After(cand.Start) {
			errs.Add("end_time", "must be after start time.")
		}
		if c.Creating && cand.Start.Before(p.EarliestStart()) {
			errs.Add("start_time", "cannot be in the past")
		}
	}

	if cand.Start.IsZero() || !cand.End.After(cand.Start) {
		return errs
	}

	if conflict := ValidateNoOverlap(cand.ID, cand.Start, cand.End, cand.InstructorID, ScopeInstructor, c.InstructorActive); conflict != nil {
		errs = append(errs, conflict.ValidationError())
	}
	if !cand.IsOpen() {
		if conflict := ValidateNoOverlap(cand.ID, cand.Start, cand.End, cand.StudentID, ScopeStudent, c.StudentActive); conflict != nil {
			errs = append(errs, conflict.ValidationError())
		}
	}

	return errs
}

// ScopeKeys lists the lock keys a write of the candidate must hold, in a stable order.
// Callers serialise check-then-write per key; the validator cannot close that race itself.
func ScopeKeys(candidate Slot) []string {
	keys := []string{string(ScopeInstructor) + ":" + candidate.InstructorID}
	if !candidate.IsOpen() {
		keys = append(keys, string(ScopeStudent)+":"+candidate.StudentID)
	}
	return keys
}
