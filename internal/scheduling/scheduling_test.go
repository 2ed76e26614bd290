package scheduling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2030, time.March, 4, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func fixedPolicy(now time.Time, offset time.Duration) Policy {
	return Policy{MinStartOffset: offset, Now: func() time.Time { return now }}
}

func TestComputeEndTime(t *testing.T) {
	cat := Category{LessonMinutes: 45, BufferMinutes: 15}
	start := at(9, 0)

	end := ComputeEndTime(start, cat)
	assert.Equal(t, at(10, 0), end)
	assert.Equal(t, 45*time.Minute, cat.LessonDuration())
	assert.Equal(t, 15*time.Minute, cat.BufferDuration())
	assert.Equal(t, time.Hour, cat.TotalDuration())
	assert.True(t, end.After(start))
}

func TestComputeEndTimeKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	start := time.Date(2030, time.March, 4, 23, 30, 0, 0, loc)

	end := ComputeEndTime(start, Category{LessonMinutes: 60})
	assert.Equal(t, loc, end.Location())
	assert.Equal(t, 5, end.Day())
	assert.Equal(t, 0, end.Hour())
}

func TestEndTimeForMissingCategory(t *testing.T) {
	_, err := EndTimeFor(at(9, 0), nil)
	require.Error(t, err)
	var pre *PreconditionError
	assert.ErrorAs(t, err, &pre)
}

func TestOverlapsEdgesExcluded(t *testing.T) {
	assert.False(t, Overlaps(at(10, 0), at(11, 0), at(9, 0), at(10, 0)))
	assert.False(t, Overlaps(at(8, 0), at(9, 0), at(9, 0), at(10, 0)))
	assert.True(t, Overlaps(at(9, 30), at(10, 30), at(9, 0), at(10, 0)))
	assert.True(t, Overlaps(at(9, 15), at(9, 45), at(9, 0), at(10, 0)))
	assert.True(t, Overlaps(at(8, 0), at(11, 0), at(9, 0), at(10, 0)))
}

func TestValidateNoOverlap(t *testing.T) {
	active := []Slot{{ID: "a1", InstructorID: "i1", StudentID: "s1", Start: at(9, 0), End: at(10, 0), Status: StatusFuture}}

	assert.Nil(t, ValidateNoOverlap("", at(10, 0), at(11, 0), "i1", ScopeInstructor, active))

	conflict := ValidateNoOverlap("", at(9, 30), at(10, 30), "i1", ScopeInstructor, active)
	require.NotNil(t, conflict)
	assert.Equal(t, ScopeInstructor, conflict.Scope)
	assert.Equal(t, "a1", conflict.ConflictingID)
	assert.Equal(t, "Time slot overlaps with instructor's other appointments.", conflict.Message())

	assert.Nil(t, ValidateNoOverlap("", at(9, 30), at(10, 30), "i2", ScopeInstructor, active), "other instructor")
	assert.Nil(t, ValidateNoOverlap("a1", at(9, 30), at(10, 30), "i1", ScopeInstructor, active), "self is ignored")

	studentConflict := ValidateNoOverlap("", at(9, 30), at(10, 30), "s1", ScopeStudent, active)
	require.NotNil(t, studentConflict)
	assert.Equal(t, "Time slot overlaps with student's other appointments.", studentConflict.Message())
}

func TestPolicyValidateCollectsAllErrors(t *testing.T) {
	now := at(12, 0)
	policy := fixedPolicy(now, DefaultMinStartOffset)

	errs := policy.Validate(Check{
		Candidate: Slot{Start: at(8, 0), End: at(8, 0), Status: StatusFuture},
		Creating:  true,
	})

	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	assert.True(t, fields["instructor_id"])
	assert.True(t, fields["student_id"])
	assert.True(t, fields["end_time"])
	assert.True(t, fields["start_time"])
	assert.False(t, errs.OnlyOverlaps())
}

func TestPolicyValidateInstructorConflict(t *testing.T) {
	policy := fixedPolicy(at(6, 0), DefaultMinStartOffset)
	active := []Slot{{ID: "a1", InstructorID: "i1", Start: at(9, 0), End: at(10, 0), Status: StatusOpen}}

	ok := policy.Validate(Check{
		Candidate:        Slot{InstructorID: "i1", Start: at(10, 0), End: at(11, 0), Status: StatusOpen},
		Creating:         true,
		InstructorActive: active,
	})
	assert.Empty(t, ok)

	errs := policy.Validate(Check{
		Candidate:        Slot{InstructorID: "i1", Start: at(9, 30), End: at(10, 30), Status: StatusOpen},
		Creating:         true,
		InstructorActive: active,
	})
	require.Len(t, errs, 1)
	assert.Equal(t, ScopeInstructor, errs[0].Scope)
	assert.True(t, errs.OnlyOverlaps())
}

func TestOpenSlotSkipsStudentScope(t *testing.T) {
	policy := fixedPolicy(at(6, 0), DefaultMinStartOffset)
	studentBusy := []Slot{{ID: "b1", InstructorID: "i9", StudentID: "s1", Start: at(9, 0), End: at(10, 0), Status: StatusFuture}}

	errs := policy.Validate(Check{
		Candidate:     Slot{InstructorID: "i1", Start: at(9, 0), End: at(10, 0), Status: StatusOpen},
		Creating:      true,
		StudentActive: studentBusy,
	})
	assert.Empty(t, errs)

	errs = policy.Validate(Check{
		Candidate:     Slot{InstructorID: "i1", StudentID: "s1", Start: at(9, 0), End: at(10, 0), Status: StatusFuture},
		Creating:      true,
		StudentActive: studentBusy,
	})
	require.Len(t, errs, 1)
	assert.Equal(t, ScopeStudent, errs[0].Scope)
}

func TestDeadAppointmentOutsideActiveSetDoesNotBlock(t *testing.T) {
	policy := fixedPolicy(at(6, 0), DefaultMinStartOffset)
	dead := Slot{ID: "d1", InstructorID: "i1", StudentID: "s1", Start: at(9, 0), End: at(10, 0), Status: StatusCancelledByStudent}

	assert.False(t, CountsTowardOverlap(dead, true))
	assert.True(t, CountsTowardOverlap(dead, false))
	dead.ReBookable = true
	assert.False(t, CountsTowardOverlap(dead, false))

	var active []Slot
	if CountsTowardOverlap(dead, true) {
		active = append(active, dead)
	}
	errs := policy.Validate(Check{
		Candidate:        Slot{InstructorID: "i1", Start: at(9, 0), End: at(10, 0), Status: StatusOpen},
		Creating:         true,
		InstructorActive: active,
	})
	assert.Empty(t, errs)
}

func TestStartTimeBoundary(t *testing.T) {
	now := at(9, 0)

	t.Run("lead time required", func(t *testing.T) {
		policy := fixedPolicy(now, 5*time.Minute)
		cand := func(start time.Time) Check {
			return Check{Candidate: Slot{InstructorID: "i1", Start: start, End: start.Add(time.Hour), Status: StatusOpen}, Creating: true}
		}
		assert.NotEmpty(t, policy.Validate(cand(now.Add(4*time.Minute+59*time.Second))))
		assert.Empty(t, policy.Validate(cand(now.Add(5*time.Minute))))
		assert.Empty(t, policy.Validate(cand(now.Add(time.Hour))))
	})

	t.Run("default tolerance", func(t *testing.T) {
		policy := fixedPolicy(now, DefaultMinStartOffset)
		cand := func(start time.Time) Check {
			return Check{Candidate: Slot{InstructorID: "i1", Start: start, End: start.Add(time.Hour), Status: StatusOpen}, Creating: true}
		}
		assert.Empty(t, policy.Validate(cand(now.Add(-5*time.Minute))))
		assert.NotEmpty(t, policy.Validate(cand(now.Add(-5*time.Minute-time.Second))))
	})

	t.Run("updates skip the rule", func(t *testing.T) {
		policy := fixedPolicy(now, 5*time.Minute)
		start := now.Add(-time.Hour)
		errs := policy.Validate(Check{Candidate: Slot{InstructorID: "i1", Start: start, End: start.Add(time.Hour), Status: StatusOpen}})
		assert.Empty(t, errs)
	})
}

func TestEditableByInstructor(t *testing.T) {
	editable := map[Status]bool{StatusOpen: true, StatusFuture: true, StatusUnavailable: true}
	for _, s := range AllStatuses() {
		assert.Equal(t, editable[s], s.EditableByInstructor(), string(s))
	}
}

func TestStatusPhases(t *testing.T) {
	assert.Len(t, AllStatuses(), 9)
	assert.Equal(t, PhaseOpen, StatusOpen.Phase())
	assert.Equal(t, PhaseLive, StatusFuture.Phase())
	assert.Equal(t, PhaseTerminalOccurred, StatusNoShow.Phase())
	assert.Equal(t, PhaseTerminalOccurred, StatusPastOccurred.Phase())
	assert.Equal(t, PhaseUnavailable, StatusUnavailable.Phase())
	for _, s := range []Status{StatusCancelledByStudent, StatusCancelledByInstructor, StatusRescheduledByStudent, StatusRescheduledByInstructor} {
		assert.True(t, s.IsTerminalCancelled(), string(s))
		assert.True(t, s.IsTerminal(), string(s))
	}
	assert.False(t, StatusFuture.IsTerminal())

	_, err := ParseStatus("Booked - Future")
	assert.Error(t, err)
	assert.Panics(t, func() { Status("bogus").Phase() })
}

func TestStatusJSONAndSQL(t *testing.T) {
	var s Status
	require.NoError(t, json.Unmarshal([]byte(`"No Show"`), &s))
	assert.Equal(t, StatusNoShow, s)
	assert.Error(t, json.Unmarshal([]byte(`"Maybe"`), &s))

	require.NoError(t, s.Scan([]byte("Unavailable")))
	assert.Equal(t, StatusUnavailable, s)
	v, err := StatusFuture.Value()
	require.NoError(t, err)
	assert.Equal(t, "Future", v)
}

func TestPlanRebooking(t *testing.T) {
	cat := Category{LessonMinutes: 30, BufferMinutes: 10}
	dead := Slot{ID: "d1", InstructorID: "i1", StudentID: "s1", Start: at(9, 0), End: at(9, 40), Status: StatusRescheduledByInstructor}

	replacement, err := PlanRebooking(dead, cat, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, replacement.Status)
	assert.Equal(t, "i1", replacement.InstructorID)
	assert.Empty(t, replacement.StudentID)
	assert.True(t, replacement.ReBookable)
	assert.Equal(t, at(9, 0), replacement.Start)
	assert.Equal(t, at(9, 40), replacement.End)

	moved, err := PlanRebooking(dead, cat, at(14, 0))
	require.NoError(t, err)
	assert.Equal(t, at(14, 40), moved.End)

	dead.Status = StatusFuture
	_, err = PlanRebooking(dead, cat, time.Time{})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "status", verrs[0].Field)
}

func TestReplacementValidatesWithoutDeadAppointment(t *testing.T) {
	policy := fixedPolicy(at(6, 0), DefaultMinStartOffset)
	dead := Slot{ID: "d1", InstructorID: "i1", StudentID: "s1", Start: at(9, 0), End: at(10, 0), Status: StatusCancelledByInstructor}
	other := Slot{ID: "o1", InstructorID: "i1", Start: at(10, 0), End: at(11, 0), Status: StatusOpen}

	replacement, err := PlanRebooking(dead, Category{LessonMinutes: 60}, time.Time{})
	require.NoError(t, err)

	errs := policy.Validate(Check{Candidate: replacement, Creating: true, InstructorActive: []Slot{dead, other}})
	require.Len(t, errs, 1, "dead appointment still counted when left in the set")

	errs = policy.Validate(Check{Candidate: replacement, Creating: true, InstructorActive: Without([]Slot{dead, other}, dead.ID)})
	assert.Empty(t, errs)
}

func TestValidateLink(t *testing.T) {
	dead := Slot{ID: "d1", Status: StatusCancelledByStudent}
	repl := Slot{ID: "n1", Status: StatusOpen}

	assert.Empty(t, ValidateLink(dead, repl, false, false))
	assert.Len(t, ValidateLink(dead, repl, true, true), 2)
	assert.NotEmpty(t, ValidateLink(Slot{ID: "d1", Status: StatusNoShow}, repl, false, false))
	assert.NotEmpty(t, ValidateLink(dead, Slot{ID: "d1"}, false, false))
}

func TestScopeKeys(t *testing.T) {
	assert.Equal(t, []string{"instructor:i1"}, ScopeKeys(Slot{InstructorID: "i1", Status: StatusOpen}))
	assert.Equal(t, []string{"instructor:i1", "student:s1"}, ScopeKeys(Slot{InstructorID: "i1", StudentID: "s1", Status: StatusFuture}))
}

func TestWindows(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	now := time.Date(2030, time.March, 4, 23, 30, 0, 0, time.UTC) // 01:30 on the 5th in loc

	today := DayWindow(now, loc)
	assert.Equal(t, 5, today.Start.Day())
	assert.Equal(t, 24*time.Hour, today.End.Sub(today.Start))

	tomorrow := TomorrowWindow(now, loc)
	assert.Equal(t, today.End, tomorrow.Start)
	assert.Equal(t, 6, tomorrow.Start.Day())

	assert.True(t, today.Contains(today.Start))
	assert.False(t, today.Contains(today.End))

	_, err := NewWindow(at(10, 0), at(9, 0))
	assert.Error(t, err)
}

func TestRecurrenceOccurrences(t *testing.T) {
	rec := Recurrence{
		StartsAt: time.Date(2030, time.March, 4, 15, 0, 0, 0, time.UTC), // Monday
		Rule:     "FREQ=WEEKLY;BYDAY=MO,WE",
		Location: time.UTC,
	}
	w := Window{Start: time.Date(2030, time.March, 4, 0, 0, 0, 0, time.UTC), End: time.Date(2030, time.March, 11, 0, 0, 0, 0, time.UTC)}

	got, err := rec.Occurrences(w)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Wednesday, got[1].Weekday())
	assert.Equal(t, 15, got[1].Hour())

	single := Recurrence{StartsAt: at(9, 0)}
	got, err = single.Occurrences(DayWindow(day, time.UTC))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = Recurrence{StartsAt: at(9, 0), Rule: "FREQ=SOMETIMES"}.Occurrences(w)
	assert.Error(t, err)
}

func TestStatusesIn(t *testing.T) {
	assert.Equal(t, []Status{
		StatusCancelledByStudent,
		StatusCancelledByInstructor,
		StatusRescheduledByStudent,
		StatusRescheduledByInstructor,
	}, StatusesIn(PhaseTerminalCancelled))
	assert.Equal(t, []Status{
		StatusOpen,
		StatusFuture,
		StatusPastOccurred,
		StatusNoShow,
		StatusUnavailable,
	}, DayViewStatuses())
}
