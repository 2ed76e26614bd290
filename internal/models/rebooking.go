package models

import "time"

// Rebooking links a cancelled appointment to its replacement.
type Rebooking struct {
	ID                string    `db:"id" json:"id"`
	DeadAppointmentID string    `db:"dead_appointment_id" json:"dead_appointment_id"`
	NewAppointmentID  string    `db:"new_appointment_id" json:"new_appointment_id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
