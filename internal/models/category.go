package models

import (
	"time"

	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
)

// AppointmentCategory is a lesson type with its fixed duration.
type AppointmentCategory struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	LessonMinutes int       `db:"lesson_minutes" json:"lesson_minutes"`
	BufferMinutes int       `db:"buffer_minutes" json:"buffer_minutes"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Durations exposes the category to the scheduling engine.
func (c AppointmentCategory) Durations() scheduling.Category {
	return scheduling.Category{LessonMinutes: c.LessonMinutes, BufferMinutes: c.BufferMinutes}
}

// TotalMinutes is lesson plus buffer.
func (c AppointmentCategory) TotalMinutes() int {
	return c.Durations().TotalMinutes()
}

// CreateCategoryRequest is the payload for POST /categories.
type CreateCategoryRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	LessonMinutes int    `json:"lesson_minutes" validate:"required,gt=0,lte=480"`
	BufferMinutes int    `json:"buffer_minutes" validate:"gte=0,lte=120"`
}
