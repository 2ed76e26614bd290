package models

import (
	"time"

	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
)

// Appointment is a lesson slot between an instructor and, once booked, a student.
type Appointment struct {
	ID             string            `db:"id" json:"id"`
	CategoryID     string            `db:"appointment_category_id" json:"appointment_category_id"`
	InstructorID   string            `db:"instructor_id" json:"instructor_id"`
	StudentID      *string           `db:"student_id" json:"student_id,omitempty"`
	AvailabilityID *string           `db:"availability_id" json:"availability_id,omitempty"`
	StartTime      time.Time         `db:"start_time" json:"start_time"`
	EndTime        time.Time         `db:"end_time" json:"end_time"`
	Status         scheduling.Status `db:"status" json:"status"`
	ReBookable     bool              `db:"re_bookable" json:"re_bookable"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// Slot projects the appointment onto the scheduling engine's view.
func (a Appointment) Slot() scheduling.Slot {
	s := scheduling.Slot{
		ID:           a.ID,
		InstructorID: a.InstructorID,
		Start:        a.StartTime,
		End:          a.EndTime,
		Status:       a.Status,
		ReBookable:   a.ReBookable,
	}
	if a.StudentID != nil {
		s.StudentID = *a.StudentID
	}
	return s
}

// Apply copies the engine-owned fields of a slot back onto the appointment.
func (a *Appointment) Apply(s scheduling.Slot) {
	a.InstructorID = s.InstructorID
	a.StartTime = s.Start
	a.EndTime = s.End
	a.Status = s.Status
	a.ReBookable = s.ReBookable
	if s.StudentID == "" {
		a.StudentID = nil
	} else {
		id := s.StudentID
		a.StudentID = &id
	}
}

// IsOpen reports whether the appointment can still be booked.
func (a Appointment) IsOpen() bool {
	return a.Status == scheduling.StatusOpen && a.StudentID == nil
}

// Slots converts a list of appointments.
func Slots(list []Appointment) []scheduling.Slot {
	out := make([]scheduling.Slot, len(list))
	for i, a := range list {
		out[i] = a.Slot()
	}
	return out
}

// AppointmentFilter narrows GET /appointments.
type AppointmentFilter struct {
	InstructorID string
	StudentID    string
	Status       scheduling.Status
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
	SortOrder    string
}

// CreateAppointmentRequest is the payload for POST /appointments.
type CreateAppointmentRequest struct {
	CategoryID   string            `json:"appointment_category_id" validate:"required"`
	InstructorID string            `json:"instructor_id" validate:"required"`
	StudentID    *string           `json:"student_id"`
	StartTime    time.Time         `json:"start_time" validate:"required"`
	Status       scheduling.Status `json:"status"`
	ReBookable   bool              `json:"re_bookable"`
}

// UpdateAppointmentRequest is the payload for PUT /appointments/:id. Nil fields are left unchanged.
type UpdateAppointmentRequest struct {
	CategoryID   *string            `json:"appointment_category_id"`
	InstructorID *string            `json:"instructor_id"`
	StudentID    *string            `json:"student_id"`
	ClearStudent bool               `json:"clear_student"`
	StartTime    *time.Time         `json:"start_time"`
	Status       *scheduling.Status `json:"status"`
	ReBookable   *bool              `json:"re_bookable"`
}

// UpdateStatusRequest is the payload for PATCH /appointments/:id/status.
type UpdateStatusRequest struct {
	Status scheduling.Status `json:"status" validate:"required"`
	// Rebook creates an open replacement in the same transaction; only valid for cancelled statuses.
	Rebook    bool       `json:"rebook"`
	StartTime *time.Time `json:"start_time"`
}

// BookRequest is the payload for POST /appointments/:id/book.
type BookRequest struct {
	StudentID string `json:"student_id"`
}

// RebookRequest is the payload for POST /appointments/:id/rebook. A nil start keeps the dead window.
type RebookRequest struct {
	StartTime *time.Time `json:"start_time"`
}

// RebookResult returns both sides of a rebooking.
type RebookResult struct {
	Dead        Appointment `json:"dead"`
	Replacement Appointment `json:"replacement"`
	Rebooking   Rebooking   `json:"rebooking"`
}

// StatusChangeResult is returned by status updates; Rebook is set when a replacement was created.
type StatusChangeResult struct {
	Appointment Appointment   `json:"appointment"`
	Rebook      *RebookResult `json:"rebook,omitempty"`
}
