package scheduling

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Window is the half-open interval [Start, End). Appointments are attributed to the
// window in which they start; an overnight lesson belongs to its start day only.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow validates the bounds.
func NewWindow(start, end time.Time) (Window, error) {
	if !end.After(start) {
		return Window{}, fmt.Errorf("window end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Window{Start: start, End: end}, nil
}

// DayWindow covers the calendar day of date in loc.
func DayWindow(date time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	local := date.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// TomorrowWindow covers the calendar day after now in loc.
func TomorrowWindow(now time.Time, loc *time.Location) Window {
	today := DayWindow(now, loc)
	return Window{Start: today.End, End: today.End.AddDate(0, 0, 1)}
}

// Contains reports whether t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Recurrence describes when an instructor makes a category of lesson available.
type Recurrence struct {
	StartsAt time.Time
	// Rule is an RFC 5545 RRULE such as "FREQ=WEEKLY;BYDAY=MO,WE".
	Rule     string
	Until    time.Time
	Location *time.Location
}

// Occurrences returns the lesson start times of the recurrence that fall in w.
func (r Recurrence) Occurrences(w Window) ([]time.Time, error) {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	if r.Rule == "" {
		if w.Contains(r.StartsAt) {
			return []time.Time{r.StartsAt.In(loc)}, nil
		}
		return nil, nil
	}

	opt, err := rrule.StrToROptionInLocation(r.Rule, loc)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence rule: %w", err)
	}
	opt.Dtstart = r.StartsAt.In(loc)
	if !r.Until.IsZero() && (opt.Until.IsZero() || r.Until.Before(opt.Until)) {
		opt.Until = r.Until.In(loc)
	}
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build recurrence rule: %w", err)
	}

	var out []time.Time
	for _, t := range rule.Between(w.Start, w.End, true) {
		if w.Contains(t) {
			out = append(out, t)
		}
	}
	return out, nil
}
