package models

import (
	"time"

	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
)

// Availability is a recurring window in which an instructor offers lessons of one category.
type Availability struct {
	ID           string     `db:"id" json:"id"`
	InstructorID string     `db:"instructor_id" json:"instructor_id"`
	CategoryID   string     `db:"appointment_category_id" json:"appointment_category_id"`
	StartsAt     time.Time  `db:"starts_at" json:"starts_at"`
	Recurrence   string     `db:"recurrence" json:"recurrence"`
	Until        *time.Time `db:"until" json:"until,omitempty"`
	Timezone     string     `db:"timezone" json:"timezone"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Schedule converts the row into a recurrence anchored in its own timezone.
func (a Availability) Schedule() (scheduling.Recurrence, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return scheduling.Recurrence{}, err
	}
	r := scheduling.Recurrence{StartsAt: a.StartsAt.In(loc), Rule: a.Recurrence, Location: loc}
	if a.Until != nil {
		r.Until = a.Until.In(loc)
	}
	return r, nil
}

// CreateAvailabilityRequest is the payload for POST /availabilities.
type CreateAvailabilityRequest struct {
	InstructorID string     `json:"instructor_id"`
	CategoryID   string     `json:"appointment_category_id" validate:"required"`
	StartsAt     time.Time  `json:"starts_at" validate:"required"`
	Recurrence   string     `json:"recurrence" validate:"max=500"`
	Until        *time.Time `json:"until"`
	Timezone     string     `json:"timezone"`
}

// ExpandAvailabilityRequest bounds an expansion to [From, To).
type ExpandAvailabilityRequest struct {
	From time.Time `json:"from" validate:"required"`
	To   time.Time `json:"to" validate:"required"`
}

// SkippedOccurrence is an occurrence that could not become an appointment.
type SkippedOccurrence struct {
	StartTime time.Time                   `json:"start_time"`
	Errors    scheduling.ValidationErrors `json:"errors"`
}

// ExpansionResult reports what an expansion created and what it skipped.
type ExpansionResult struct {
	Created []Appointment       `json:"created"`
	Skipped []SkippedOccurrence `json:"skipped"`
}
