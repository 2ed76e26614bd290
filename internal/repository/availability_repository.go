package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

// AvailabilityRepository stores instructors' recurring availability.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// FindByID fetches an availability by ID.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.Availability, error) {
	const query = `SELECT id, instructor_id, appointment_category_id, starts_at, recurrence, until, timezone, created_at, updated_at FROM availabilities WHERE id = $1`
	var availability models.Availability
	if err := r.db.GetContext(ctx, &availability, query, id); err != nil {
		return nil, err
	}
	return &availability, nil
}

// ListByInstructor returns the instructor's availabilities, oldest first.
func (r *AvailabilityRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.Availability, error) {
	const query = `SELECT id, instructor_id, appointment_category_id, starts_at, recurrence, until, timezone, created_at, updated_at FROM availabilities WHERE instructor_id = $1 ORDER BY starts_at`
	var list []models.Availability
	if err := r.db.SelectContext(ctx, &list, query, instructorID); err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	return list, nil
}

// Create inserts a new availability.
func (r *AvailabilityRepository) Create(ctx context.Context, availability *models.Availability) error {
	if availability.ID == "" {
		availability.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	availability.CreatedAt = now
	availability.UpdatedAt = now

	const query = `INSERT INTO availabilities (id, instructor_id, appointment_category_id, starts_at, recurrence, until, timezone, created_at, updated_at)
		VALUES (:id, :instructor_id, :appointment_category_id, :starts_at, :recurrence, :until, :timezone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, availability); err != nil {
		return fmt.Errorf("create availability: %w", err)
	}
	return nil
}
