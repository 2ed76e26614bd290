package models

import "time"

// Reminder is the payload of a lesson reminder job.
type Reminder struct {
	AppointmentID string    `json:"appointment_id"`
	InstructorID  string    `json:"instructor_id"`
	StudentID     string    `json:"student_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}
