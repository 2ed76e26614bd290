package scheduling

import "time"

// CountsTowardOverlap is the default "active" predicate: a terminal-cancelled appointment whose
// slot was released (re-bookable) or superseded by a rebooking no longer occupies its window.
// Every other status counts.
func CountsTowardOverlap(s Slot, rebooked bool) bool {
	if s.Status.IsTerminalCancelled() && (s.ReBookable || rebooked) {
		return false
	}
	return true
}

// Without returns the slots whose id is not in ids.
func Without(slots []Slot, ids ...string) []Slot {
	if len(ids) == 0 {
		return slots
	}
	skip := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if _, ok := skip[s.ID]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

// PlanRebooking builds the open replacement for a dead appointment. A zero start keeps the
// dead appointment's window. The replacement still has to pass Validate against the
// instructor's active set with the dead appointment removed.
func PlanRebooking(dead Slot, category Category, start time.Time) (Slot, error) {
	if !dead.Status.IsTerminalCancelled() {
		return Slot{}, ValidationErrors{{
			Field:   "status",
			Message: "only cancelled or rescheduled appointments can be rebooked",
		}}
	}
	if start.IsZero() {
		start = dead.Start
	}
	return Slot{
		InstructorID: dead.InstructorID,
		Start:        start,
		End:          ComputeEndTime(start, category),
		Status:       StatusOpen,
		ReBookable:   true,
	}, nil
}

// ValidateLink checks the structural rules of a rebooking row before it is written.
func ValidateLink(dead Slot, replacement Slot, deadAlreadyLinked, replacementAlreadyTarget bool) ValidationErrors {
	var errs ValidationErrors
	if dead.ID == "" {
		errs.Add("dead_appointment_id", "can't be blank")
	}
	if replacement.ID == "" {
		errs.Add("new_appointment_id", "can't be blank")
	}
	if dead.ID != "" && dead.ID == replacement.ID {
		errs.Add("new_appointment_id", "must differ from the dead appointment")
	}
	if !dead.Status.IsTerminalCancelled() {
		errs.Add("dead_appointment_id", "must be cancelled or rescheduled")
	}
	if deadAlreadyLinked {
		errs.Add("dead_appointment_id", "has already been rebooked")
	}
	if replacementAlreadyTarget {
		errs.Add("new_appointment_id", "is already the target of a rebooking")
	}
	return errs
}
