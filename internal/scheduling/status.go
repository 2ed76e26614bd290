package scheduling

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Status is the lifecycle state of an appointment. The set of values is closed.
type Status string

const (
	StatusOpen                    Status = "Open"
	StatusFuture                  Status = "Future"
	StatusPastOccurred            Status = "Past - Occurred"
	StatusCancelledByStudent      Status = "Cancelled by Student"
	StatusCancelledByInstructor   Status = "Cancelled by Instructor"
	StatusRescheduledByStudent    Status = "Rescheduled by Student"
	StatusRescheduledByInstructor Status = "Rescheduled by Instructor"
	StatusNoShow                  Status = "No Show"
	StatusUnavailable             Status = "Unavailable"
)

// Phase groups statuses by how they behave in the lifecycle.
type Phase int

const (
	PhaseOpen Phase = iota + 1
	PhaseLive
	PhaseTerminalOccurred
	PhaseTerminalCancelled
	PhaseUnavailable
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseLive:
		return "live"
	case PhaseTerminalOccurred:
		return "terminal_occurred"
	case PhaseTerminalCancelled:
		return "terminal_cancelled"
	case PhaseUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// AllStatuses lists every status in display order.
func AllStatuses() []Status {
	return []Status{
		StatusOpen,
		StatusFuture,
		StatusPastOccurred,
		StatusCancelledByStudent,
		StatusCancelledByInstructor,
		StatusRescheduledByStudent,
		StatusRescheduledByInstructor,
		StatusNoShow,
		StatusUnavailable,
	}
}

// StatusesIn returns the statuses belonging to any of the phases, in display order.
func StatusesIn(phases ...Phase) []Status {
	var out []Status
	for _, s := range AllStatuses() {
		for _, p := range phases {
			if s.Phase() == p {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// DayViewStatuses are the statuses listed on a day's schedule; cancellations are hidden.
func DayViewStatuses() []Status {
	return StatusesIn(PhaseOpen, PhaseLive, PhaseTerminalOccurred, PhaseUnavailable)
}

// ParseStatus converts a raw value into a Status, rejecting anything outside the enum.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown appointment status %q", raw)
	}
	return s, nil
}

// Valid reports whether s is one of the nine known statuses.
func (s Status) Valid() bool {
	_, ok := s.phase()
	return ok
}

// Phase returns the lifecycle partition of s. It panics on an unknown status.
func (s Status) Phase() Phase {
	p, ok := s.phase()
	if !ok {
		panic(fmt.Sprintf("scheduling: unknown status %q", string(s)))
	}
	return p
}

func (s Status) phase() (Phase, bool) {
	switch s {
	case StatusOpen:
		return PhaseOpen, true
	case StatusFuture:
		return PhaseLive, true
	case StatusPastOccurred, StatusNoShow:
		return PhaseTerminalOccurred, true
	case StatusCancelledByStudent, StatusCancelledByInstructor, StatusRescheduledByStudent, StatusRescheduledByInstructor:
		return PhaseTerminalCancelled, true
	case StatusUnavailable:
		return PhaseUnavailable, true
	default:
		return 0, false
	}
}

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	p, ok := s.phase()
	return ok && (p == PhaseTerminalOccurred || p == PhaseTerminalCancelled)
}

// IsTerminalCancelled reports whether s is one of the cancelled/rescheduled states that may spawn a rebooking.
func (s Status) IsTerminalCancelled() bool {
	p, ok := s.phase()
	return ok && p == PhaseTerminalCancelled
}

// EditableByInstructor reports whether an instructor (without admin privilege) may change an
// appointment currently in status s. Enforcement belongs to the caller.
func (s Status) EditableByInstructor() bool {
	switch s {
	case StatusOpen, StatusFuture, StatusUnavailable:
		return true
	default:
		return false
	}
}

// RequiresStudent reports whether the status implies a booked student.
func (s Status) RequiresStudent() bool {
	switch s {
	case StatusFuture, StatusPastOccurred, StatusNoShow, StatusCancelledByStudent, StatusRescheduledByStudent:
		return true
	default:
		return false
	}
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return fmt.Errorf("scan status: null value")
	default:
		return fmt.Errorf("scan status: unsupported type %T", src)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %q", string(s))
	}
	return string(s), nil
}

// UnmarshalJSON rejects statuses outside the enum.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
