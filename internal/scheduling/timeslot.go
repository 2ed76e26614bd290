package scheduling

import "time"

// Category carries the durations configured for an appointment category.
type Category struct {
	LessonMinutes int
	BufferMinutes int
}

// LessonDuration is the teaching portion of the slot.
func (c Category) LessonDuration() time.Duration {
	return time.Duration(c.LessonMinutes) * time.Minute
}

// BufferDuration is the changeover time appended after the lesson.
func (c Category) BufferDuration() time.Duration {
	return time.Duration(c.BufferMinutes) * time.Minute
}

// TotalMinutes is lesson plus buffer in whole minutes.
func (c Category) TotalMinutes() int {
	return c.LessonMinutes + c.BufferMinutes
}

// TotalDuration is lesson plus buffer.
func (c Category) TotalDuration() time.Duration {
	return time.Duration(c.TotalMinutes()) * time.Minute
}

// ComputeEndTime derives the end of an appointment from its start and category.
// The result keeps the location carried by start.
func ComputeEndTime(start time.Time, category Category) time.Time {
	return start.Add(category.TotalDuration())
}

// EndTimeFor is ComputeEndTime for callers holding an optional category.
// A nil category fails fast with a PreconditionError.
func EndTimeFor(start time.Time, category *Category) (time.Time, error) {
	if category == nil {
		return time.Time{}, &PreconditionError{Op: "compute end time", Reason: "appointment has no category"}
	}
	return ComputeEndTime(start, *category), nil
}
