package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/repository"
	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
	"github.com/noah-isme/lesson-scheduler-api/pkg/cache"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

type appointmentRepository interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	BookedInWindow(ctx context.Context, window scheduling.Window) ([]models.Appointment, error)
	DayView(ctx context.Context, window scheduling.Window) ([]models.Appointment, error)
	Delete(ctx context.Context, id string) error
	RebookingFor(ctx context.Context, appointmentID string) (*models.Rebooking, error)
	WithinLock(ctx context.Context, keys []string, fn func(repository.AppointmentTx) error) error
}

type categoryLookup interface {
	Get(ctx context.Context, id string) (*models.AppointmentCategory, error)
}

// Actor is the authenticated caller of a write.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// AppointmentServiceConfig carries the scheduling tunables.
type AppointmentServiceConfig struct {
	Policy   scheduling.Policy
	Location *time.Location
	TodayTTL time.Duration
}

// AppointmentService runs every appointment write through the overlap engine under scope locks.
type AppointmentService struct {
	repo       appointmentRepository
	categories categoryLookup
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     AppointmentServiceConfig
}

// NewAppointmentService constructs an AppointmentService.
func NewAppointmentService(repo appointmentRepository, categories categoryLookup, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AppointmentServiceConfig) *AppointmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &AppointmentService{
		repo:       repo,
		categories: categories,
		cache:      cacheSvc,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     cfg,
	}
}

// List returns appointments matching the filter.
func (s *AppointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, schedulingError(invalid("status", "is not included in the list"), "")
	}
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return list, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one appointment.
func (s *AppointmentService) Get(ctx context.Context, id string) (*models.Appointment, error) {
	appointment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, schedulingError(err, "appointment not found")
	}
	return appointment, nil
}

// Rebooking returns the rebooking the appointment takes part in.
func (s *AppointmentService) Rebooking(ctx context.Context, id string) (*models.Rebooking, error) {
	rb, err := s.repo.RebookingFor(ctx, id)
	if err != nil {
		return nil, schedulingError(err, "rebooking not found")
	}
	return rb, nil
}

// BookedInWindow lists booked (Future, student assigned) appointments starting in [from, to).
func (s *AppointmentService) BookedInWindow(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	window, err := scheduling.NewWindow(from, to)
	if err != nil {
		return nil, schedulingError(invalid("to", err.Error()), "")
	}
	list, err := s.repo.BookedInWindow(ctx, window)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list booked appointments")
	}
	return list, nil
}

// Today lists the day's schedule for the calendar date of day in loc. A nil loc uses the configured zone.
func (s *AppointmentService) Today(ctx context.Context, day time.Time, loc *time.Location) ([]models.Appointment, error) {
	if loc == nil {
		loc = s.config.Location
	}
	window := scheduling.DayWindow(day, loc)
	key := cache.Key("today", window.Start.Format("2006-01-02"), loc.String())

	var cached []models.Appointment
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	start := time.Now()
	list, err := s.repo.DayView(ctx, window)
	s.metrics.ObserveDBQuery("appointments_day_view", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list today's appointments")
	}
	s.cache.Set(ctx, key, list, s.config.TodayTTL)
	return list, nil
}

// Create validates and stores a new appointment. Instructors may only create their own.
func (s *AppointmentService) Create(ctx context.Context, actor Actor, req models.CreateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}
	if actor.Role == models.RoleInstructor && req.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors can only schedule their own appointments")
	}

	status := req.Status
	if status == "" {
		status = scheduling.StatusOpen
		if req.StudentID != nil && *req.StudentID != "" {
			status = scheduling.StatusFuture
		}
	}

	appointment := &models.Appointment{
		CategoryID:   req.CategoryID,
		InstructorID: req.InstructorID,
		StudentID:    nonEmpty(req.StudentID),
		StartTime:    req.StartTime,
		Status:       status,
		ReBookable:   req.ReBookable,
	}

	err := s.insert(ctx, appointment)
	s.metrics.RecordAppointmentWrite("create", err)
	if err != nil {
		return nil, schedulingError(err, "appointment not found")
	}
	s.invalidateDayViews(ctx)
	s.logger.Info("appointment created",
		zap.String("appointment_id", appointment.ID),
		zap.String("instructor_id", appointment.InstructorID),
		zap.String("status", string(appointment.Status)),
		zap.Time("start_time", appointment.StartTime),
	)
	return appointment, nil
}

// insert materializes, validates and writes a new appointment under its scope locks.
func (s *AppointmentService) insert(ctx context.Context, appointment *models.Appointment) error {
	category, err := s.category(ctx, appointment.CategoryID)
	if err != nil {
		return err
	}
	durations := category.Durations()
	slot, err := scheduling.Materialize(appointment.Slot(), &durations)
	if err != nil {
		return err
	}
	appointment.Apply(slot)

	return s.repo.WithinLock(ctx, scheduling.ScopeKeys(slot), func(tx repository.AppointmentTx) error {
		if err := s.check(ctx, tx, slot, true); err != nil {
			return err
		}
		return tx.Create(ctx, appointment)
	})
}

// Update reschedules or reassigns an appointment. The end time is always recomputed.
func (s *AppointmentService) Update(ctx context.Context, actor Actor, id string, req models.UpdateAppointmentRequest) (*models.Appointment, error) {
	updated, err := s.mutate(ctx, "update", id, func(current models.Appointment) (models.Appointment, error) {
		next := current
		if req.CategoryID != nil {
			next.CategoryID = *req.CategoryID
		}
		if req.InstructorID != nil {
			next.InstructorID = *req.InstructorID
		}
		if req.ClearStudent {
			next.StudentID = nil
		} else if req.StudentID != nil {
			next.StudentID = nonEmpty(req.StudentID)
		}
		if req.StartTime != nil {
			next.StartTime = *req.StartTime
		}
		if req.Status != nil {
			next.Status = *req.Status
		}
		if req.ReBookable != nil {
			next.ReBookable = *req.ReBookable
		}
		if next.Status == scheduling.StatusOpen {
			next.StudentID = nil
		}
		return s.rematerialize(ctx, next)
	}, nil)
	if err != nil {
		return nil, err
	}
	return &updated.Appointment, nil
}

// UpdateStatus changes an appointment's status. Instructors may only touch their own appointments
// while they are still editable. With Rebook set, an open replacement is created in the same transaction.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor Actor, id string, req models.UpdateStatusRequest) (*models.StatusChangeResult, error) {
	if !req.Status.Valid() {
		return nil, schedulingError(invalid("status", "is not included in the list"), "")
	}
	if req.Rebook && !req.Status.IsTerminalCancelled() {
		return nil, schedulingError(invalid("rebook", "is only allowed when cancelling or rescheduling"), "")
	}

	var after func(context.Context, repository.AppointmentTx, models.Appointment) (*models.RebookResult, error)
	if req.Rebook {
		var start time.Time
		if req.StartTime != nil {
			start = *req.StartTime
		}
		after = func(ctx context.Context, tx repository.AppointmentTx, dead models.Appointment) (*models.RebookResult, error) {
			return s.rebookInTx(ctx, tx, dead, start)
		}
	}

	result, err := s.mutate(ctx, "status", id, func(current models.Appointment) (models.Appointment, error) {
		if err := authorizeInstructorEdit(actor, current); err != nil {
			return current, err
		}
		next := current
		next.Status = req.Status
		// Reopening releases the seat.
		if next.Status == scheduling.StatusOpen {
			next.StudentID = nil
		}
		return next, nil
	}, after)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment status changed",
		zap.String("appointment_id", id),
		zap.String("status", string(req.Status)),
		zap.Bool("rebooked", result.Rebook != nil),
	)
	return result, nil
}

// Book assigns a student to an open appointment and moves it to Future.
// Students book themselves; admins name the student.
func (s *AppointmentService) Book(ctx context.Context, actor Actor, id string, req models.BookRequest) (*models.Appointment, error) {
	studentID := req.StudentID
	switch actor.Role {
	case models.RoleStudent:
		if studentID != "" && studentID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only book for themselves")
		}
		studentID = actor.UserID
	case models.RoleAdmin:
		if studentID == "" {
			return nil, schedulingError(invalid("student_id", "can't be blank"), "")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students or admins can book appointments")
	}

	result, err := s.mutate(ctx, "book", id, func(current models.Appointment) (models.Appointment, error) {
		if !current.IsOpen() {
			return current, invalid("status", "appointment is not open for booking")
		}
		if current.StartTime.Before(s.config.Policy.EarliestStart()) {
			return current, invalid("start_time", "cannot be in the past")
		}
		next := current
		next.StudentID = &studentID
		next.Status = scheduling.StatusFuture
		return next, nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return &result.Appointment, nil
}

// Rebook creates an open replacement for a cancelled or rescheduled appointment and links the two.
// A nil start keeps the dead appointment's window.
func (s *AppointmentService) Rebook(ctx context.Context, actor Actor, id string, req models.RebookRequest) (*models.RebookResult, error) {
	dead, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, schedulingError(err, "appointment not found")
	}
	if actor.Role == models.RoleInstructor && dead.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors can only rebook their own appointments")
	}
	var start time.Time
	if req.StartTime != nil {
		start = *req.StartTime
	}

	var result *models.RebookResult
	err = s.repo.WithinLock(ctx, []string{string(scheduling.ScopeInstructor) + ":" + dead.InstructorID}, func(tx repository.AppointmentTx) error {
		fresh, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if fresh.InstructorID != dead.InstructorID {
			return appErrors.Clone(appErrors.ErrConflict, "appointment was modified concurrently, retry")
		}
		result, err = s.rebookInTx(ctx, tx, *fresh, start)
		return err
	})
	s.metrics.RecordAppointmentWrite("rebook", err)
	if err != nil {
		return nil, schedulingError(err, "appointment not found")
	}
	s.invalidateDayViews(ctx)
	s.logger.Info("appointment rebooked",
		zap.String("dead_appointment_id", result.Dead.ID),
		zap.String("new_appointment_id", result.Replacement.ID),
	)
	return result, nil
}

// Delete removes an appointment and any rebooking that references it.
func (s *AppointmentService) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	s.metrics.RecordAppointmentWrite("delete", err)
	if err != nil {
		return schedulingError(err, "appointment not found")
	}
	s.invalidateDayViews(ctx)
	return nil
}

// mutate applies change to an existing appointment under the locks of both its old and new scopes.
// The row is re-read under the lock; a concurrent edit in between is reported as a conflict.
func (s *AppointmentService) mutate(
	ctx context.Context,
	op, id string,
	change func(models.Appointment) (models.Appointment, error),
	after func(context.Context, repository.AppointmentTx, models.Appointment) (*models.RebookResult, error),
) (*models.StatusChangeResult, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, schedulingError(err, "appointment not found")
	}
	next, err := change(*current)
	if err != nil {
		s.metrics.RecordAppointmentWrite(op, err)
		return nil, schedulingError(err, "appointment not found")
	}

	keys := append(scheduling.ScopeKeys(current.Slot()), scheduling.ScopeKeys(next.Slot())...)
	result := &models.StatusChangeResult{}
	err = s.repo.WithinLock(ctx, keys, func(tx repository.AppointmentTx) error {
		fresh, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !fresh.UpdatedAt.Equal(current.UpdatedAt) {
			return appErrors.Clone(appErrors.ErrConflict, "appointment was modified concurrently, retry")
		}
		if err := s.check(ctx, tx, next.Slot(), false); err != nil {
			return err
		}
		if err := tx.Update(ctx, &next); err != nil {
			return err
		}
		result.Appointment = next
		if after != nil {
			rb, err := after(ctx, tx, next)
			if err != nil {
				return err
			}
			result.Rebook = rb
		}
		return nil
	})
	s.metrics.RecordAppointmentWrite(op, err)
	if err != nil {
		return nil, schedulingError(err, "appointment not found")
	}
	s.invalidateDayViews(ctx)
	return result, nil
}

// rebookInTx plans, validates and writes the replacement and the rebooking row.
func (s *AppointmentService) rebookInTx(ctx context.Context, tx repository.AppointmentTx, dead models.Appointment, start time.Time) (*models.RebookResult, error) {
	category, err := s.category(ctx, dead.CategoryID)
	if err != nil {
		return nil, err
	}
	slot, err := scheduling.PlanRebooking(dead.Slot(), category.Durations(), start)
	if err != nil {
		return nil, err
	}
	slot.ID = uuid.NewString()

	deadLinked, newTargeted, err := tx.RebookingLinks(ctx, dead.ID, slot.ID)
	if err != nil {
		return nil, err
	}
	errs := scheduling.ValidateLink(dead.Slot(), slot, deadLinked, newTargeted)
	if len(errs) > 0 {
		return nil, errs
	}
	if err := s.check(ctx, tx, slot, true, dead.ID); err != nil {
		return nil, err
	}

	replacement := models.Appointment{ID: slot.ID, CategoryID: dead.CategoryID}
	replacement.Apply(slot)
	if err := tx.Create(ctx, &replacement); err != nil {
		return nil, err
	}
	rebooking := models.Rebooking{DeadAppointmentID: dead.ID, NewAppointmentID: replacement.ID}
	if err := tx.CreateRebooking(ctx, &rebooking); err != nil {
		return nil, err
	}
	return &models.RebookResult{Dead: dead, Replacement: replacement, Rebooking: rebooking}, nil
}

// check loads the active sets the candidate could collide with and runs the validator.
func (s *AppointmentService) check(ctx context.Context, tx repository.AppointmentTx, candidate scheduling.Slot, creating bool, excludeIDs ...string) error {
	in := scheduling.Check{Candidate: candidate, Creating: creating}
	if !candidate.Start.IsZero() && candidate.End.After(candidate.Start) {
		window := scheduling.Window{Start: candidate.Start, End: candidate.End}
		if candidate.InstructorID != "" {
			active, err := tx.ActiveForActor(ctx, scheduling.ScopeInstructor, candidate.InstructorID, window, excludeIDs...)
			if err != nil {
				return err
			}
			in.InstructorActive = models.Slots(active)
		}
		if !candidate.IsOpen() && candidate.StudentID != "" {
			active, err := tx.ActiveForActor(ctx, scheduling.ScopeStudent, candidate.StudentID, window, excludeIDs...)
			if err != nil {
				return err
			}
			in.StudentActive = models.Slots(active)
		}
	}
	return s.config.Policy.Validate(in).Err()
}

func (s *AppointmentService) rematerialize(ctx context.Context, a models.Appointment) (models.Appointment, error) {
	category, err := s.category(ctx, a.CategoryID)
	if err != nil {
		return a, err
	}
	durations := category.Durations()
	slot, err := scheduling.Materialize(a.Slot(), &durations)
	if err != nil {
		return a, err
	}
	a.Apply(slot)
	return a, nil
}

func (s *AppointmentService) category(ctx context.Context, id string) (*models.AppointmentCategory, error) {
	return lookupCategory(ctx, s.categories, id)
}

// lookupCategory reports an unknown category as a field error on the appointment.
func lookupCategory(ctx context.Context, categories categoryLookup, id string) (*models.AppointmentCategory, error) {
	category, err := categories.Get(ctx, id)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrNotFound.Code {
			return nil, invalid("appointment_category_id", "does not exist")
		}
		return nil, err
	}
	return category, nil
}

func (s *AppointmentService) invalidateDayViews(ctx context.Context) {
	s.cache.Invalidate(ctx, cache.Key("today", "*"))
}

func authorizeInstructorEdit(actor Actor, current models.Appointment) error {
	if actor.Role != models.RoleInstructor {
		return nil
	}
	if current.InstructorID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "instructors can only edit their own appointments")
	}
	if !current.Status.EditableByInstructor() {
		return appErrors.Clone(appErrors.ErrForbidden, "appointment can no longer be edited by the instructor")
	}
	return nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
