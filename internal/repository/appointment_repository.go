package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
)

const appointmentColumns = "id, appointment_category_id, instructor_id, student_id, availability_id, start_time, end_time, status, re_bookable, created_at, updated_at"

var (
	// activeAppointmentSQL drops terminal-cancelled rows that were released or superseded by a rebooking.
	activeAppointmentSQL = fmt.Sprintf(
		"NOT (status IN (%s) AND (re_bookable OR EXISTS (SELECT 1 FROM rebookings rb WHERE rb.dead_appointment_id = appointments.id)))",
		quoteStatuses(scheduling.StatusesIn(scheduling.PhaseTerminalCancelled)),
	)
	dayViewStatusesSQL = quoteStatuses(scheduling.DayViewStatuses())
)

func quoteStatuses(list []scheduling.Status) string {
	parts := make([]string, len(list))
	for i, s := range list {
		parts[i] = "'" + strings.ReplaceAll(string(s), "'", "''") + "'"
	}
	return strings.Join(parts, ", ")
}

// AppointmentTx is the view of appointment storage available inside WithinLock.
type AppointmentTx interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	ActiveForActor(ctx context.Context, scope scheduling.Scope, actorID string, window scheduling.Window, excludeIDs ...string) ([]models.Appointment, error)
	Create(ctx context.Context, appointment *models.Appointment) error
	Update(ctx context.Context, appointment *models.Appointment) error
	RebookingLinks(ctx context.Context, deadID, newID string) (deadLinked bool, newTargeted bool, err error)
	CreateRebooking(ctx context.Context, rebooking *models.Rebooking) error
}

// AppointmentRepository manages persistence for appointments and rebookings.
type AppointmentRepository struct {
	db *sqlx.DB
	appointmentQueries
}

// NewAppointmentRepository constructs an AppointmentRepository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db, appointmentQueries: appointmentQueries{q: db}}
}

// WithinLock runs fn in a transaction holding an advisory lock on every key. Keys are locked in
// sorted order. The locks are released when the transaction ends.
func (r *AppointmentRepository) WithinLock(ctx context.Context, keys []string, fn func(AppointmentTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin appointment tx: %w", err)
	}

	sorted := uniqueSorted(keys)
	for _, key := range sorted {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("lock %s: %w", key, err)
		}
	}

	if err := fn(&appointmentQueries{q: tx, forUpdate: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit appointment tx: %w", err)
	}
	return nil
}

func uniqueSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// List returns appointments matching filters along with total count.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	base := "FROM appointments WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_time < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY start_time %s LIMIT %d OFFSET %d", appointmentColumns, base, order, size, offset)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	return appointments, total, nil
}

// BookedInWindow lists Future appointments with a student that start within the window.
func (r *AppointmentRepository) BookedInWindow(ctx context.Context, window scheduling.Window) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE status = $1 AND student_id IS NOT NULL AND start_time >= $2 AND start_time < $3 ORDER BY start_time`, appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, scheduling.StatusFuture, window.Start, window.End); err != nil {
		return nil, fmt.Errorf("list booked appointments: %w", err)
	}
	return appointments, nil
}

// DayView lists appointments starting within the window whose status is shown on a day's schedule.
func (r *AppointmentRepository) DayView(ctx context.Context, window scheduling.Window) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE status IN (%s) AND start_time >= $1 AND start_time < $2 ORDER BY start_time`, appointmentColumns, dayViewStatusesSQL)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, window.Start, window.End); err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	return appointments, nil
}

// InstructorSchedule lists every appointment of an instructor starting within the window.
func (r *AppointmentRepository) InstructorSchedule(ctx context.Context, instructorID string, window scheduling.Window) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE instructor_id = $1 AND start_time >= $2 AND start_time < $3 ORDER BY start_time`, appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, instructorID, window.Start, window.End); err != nil {
		return nil, fmt.Errorf("list instructor schedule: %w", err)
	}
	return appointments, nil
}

// Delete removes an appointment. Rebooking rows referencing it cascade.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RebookingFor returns the rebooking in which the appointment is either side.
func (r *AppointmentRepository) RebookingFor(ctx context.Context, appointmentID string) (*models.Rebooking, error) {
	const query = `SELECT id, dead_appointment_id, new_appointment_id, created_at FROM rebookings WHERE dead_appointment_id = $1 OR new_appointment_id = $1 LIMIT 1`
	var rb models.Rebooking
	if err := r.db.GetContext(ctx, &rb, query, appointmentID); err != nil {
		return nil, err
	}
	return &rb, nil
}

// appointmentQueries holds the statements shared by the pool and a locked transaction.
type appointmentQueries struct {
	q         sqlx.ExtContext
	forUpdate bool
}

// FindByID fetches an appointment by ID. Inside WithinLock the row is locked for update.
func (r *appointmentQueries) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)
	if r.forUpdate {
		query += " FOR UPDATE"
	}
	var appointment models.Appointment
	if err := sqlx.GetContext(ctx, r.q, &appointment, query, id); err != nil {
		return nil, err
	}
	return &appointment, nil
}

// ActiveForActor lists the actor's active appointments intersecting the window, minus excludeIDs.
func (r *appointmentQueries) ActiveForActor(ctx context.Context, scope scheduling.Scope, actorID string, window scheduling.Window, excludeIDs ...string) ([]models.Appointment, error) {
	column := "instructor_id"
	if scope == scheduling.ScopeStudent {
		column = "student_id"
	}
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE %s = $1 AND start_time < $2 AND end_time > $3 AND %s`, appointmentColumns, column, activeAppointmentSQL)
	args := []interface{}{actorID, window.End, window.Start}
	if len(excludeIDs) > 0 {
		query += " AND NOT (id::text = ANY($4))"
		args = append(args, pq.Array(excludeIDs))
	}
	query += " ORDER BY start_time"

	var appointments []models.Appointment
	if err := sqlx.SelectContext(ctx, r.q, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("list active %s appointments: %w", scope, err)
	}
	return appointments, nil
}

// Create inserts a new appointment record.
func (r *appointmentQueries) Create(ctx context.Context, appointment *models.Appointment) error {
	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	appointment.UpdatedAt = now

	const query = `INSERT INTO appointments (id, appointment_category_id, instructor_id, student_id, availability_id, start_time, end_time, status, re_bookable, created_at, updated_at)
		VALUES (:id, :appointment_category_id, :instructor_id, :student_id, :availability_id, :start_time, :end_time, :status, :re_bookable, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, appointment); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// Update persists every mutable column of an appointment.
func (r *appointmentQueries) Update(ctx context.Context, appointment *models.Appointment) error {
	appointment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointments SET appointment_category_id = :appointment_category_id, instructor_id = :instructor_id, student_id = :student_id,
		start_time = :start_time, end_time = :end_time, status = :status, re_bookable = :re_bookable, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, appointment); err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

// RebookingLinks reports whether deadID already has a replacement and whether newID already replaces something.
func (r *appointmentQueries) RebookingLinks(ctx context.Context, deadID, newID string) (bool, bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM rebookings WHERE dead_appointment_id = $1) AS dead_linked,
		EXISTS (SELECT 1 FROM rebookings WHERE new_appointment_id = $2) AS new_targeted`
	var links struct {
		DeadLinked  bool `db:"dead_linked"`
		NewTargeted bool `db:"new_targeted"`
	}
	if err := sqlx.GetContext(ctx, r.q, &links, query, deadID, newID); err != nil {
		return false, false, fmt.Errorf("check rebooking links: %w", err)
	}
	return links.DeadLinked, links.NewTargeted, nil
}

// CreateRebooking inserts the link between a dead appointment and its replacement.
func (r *appointmentQueries) CreateRebooking(ctx context.Context, rebooking *models.Rebooking) error {
	if rebooking.ID == "" {
		rebooking.ID = uuid.NewString()
	}
	if rebooking.CreatedAt.IsZero() {
		rebooking.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO rebookings (id, dead_appointment_id, new_appointment_id, created_at)
		VALUES (:id, :dead_appointment_id, :new_appointment_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, rebooking); err != nil {
		return fmt.Errorf("create rebooking: %w", err)
	}
	return nil
}
