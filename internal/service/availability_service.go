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

// maxExpansionWindow bounds a single expansion request.
const maxExpansionWindow = 92 * 24 * time.Hour

type availabilityRepository interface {
	FindByID(ctx context.Context, id string) (*models.Availability, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]models.Availability, error)
	Create(ctx context.Context, availability *models.Availability) error
}

type appointmentLocker interface {
	WithinLock(ctx context.Context, keys []string, fn func(repository.AppointmentTx) error) error
}

// AvailabilityService stores recurring availabilities and expands them into open appointments.
type AvailabilityService struct {
	repo         availabilityRepository
	appointments appointmentLocker
	categories   categoryLookup
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	policy       scheduling.Policy
	location     *time.Location
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(
	repo availabilityRepository,
	appointments appointmentLocker,
	categories categoryLookup,
	cacheSvc *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	policy scheduling.Policy,
	location *time.Location,
) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if location == nil {
		location = time.UTC
	}
	return &AvailabilityService{
		repo:         repo,
		appointments: appointments,
		categories:   categories,
		cache:        cacheSvc,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		policy:       policy,
		location:     location,
	}
}

// Create stores an availability. Instructors create their own; admins must name the instructor.
func (s *AvailabilityService) Create(ctx context.Context, actor Actor, req models.CreateAvailabilityRequest) (*models.Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	instructorID := req.InstructorID
	switch actor.Role {
	case models.RoleInstructor:
		if instructorID != "" && instructorID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors can only publish their own availability")
		}
		instructorID = actor.UserID
	case models.RoleAdmin:
		if instructorID == "" {
			return nil, schedulingError(invalid("instructor_id", "can't be blank"), "")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors or admins can publish availability")
	}

	if _, err := lookupCategory(ctx, s.categories, req.CategoryID); err != nil {
		return nil, schedulingError(err, "")
	}

	tz := req.Timezone
	if tz == "" {
		tz = s.location.String()
	}
	availability := &models.Availability{
		ID:           uuid.NewString(),
		InstructorID: instructorID,
		CategoryID:   req.CategoryID,
		StartsAt:     req.StartsAt,
		Recurrence:   req.Recurrence,
		Until:        req.Until,
		Timezone:     tz,
	}

	// Parse the rule once up front so a bad RRULE is rejected at write time.
	schedule, err := availability.Schedule()
	if err != nil {
		return nil, schedulingError(invalid("timezone", "is not a known time zone"), "")
	}
	if _, err := schedule.Occurrences(scheduling.Window{Start: req.StartsAt, End: req.StartsAt.Add(time.Minute)}); err != nil {
		return nil, schedulingError(invalid("recurrence", err.Error()), "")
	}

	if err := s.repo.Create(ctx, availability); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability")
	}
	s.logger.Info("availability created",
		zap.String("availability_id", availability.ID),
		zap.String("instructor_id", availability.InstructorID),
		zap.String("recurrence", availability.Recurrence),
	)
	return availability, nil
}

// Get returns one availability.
func (s *AvailabilityService) Get(ctx context.Context, id string) (*models.Availability, error) {
	availability, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, schedulingError(err, "availability not found")
	}
	return availability, nil
}

// ListByInstructor returns an instructor's availabilities.
func (s *AvailabilityService) ListByInstructor(ctx context.Context, instructorID string) ([]models.Availability, error) {
	list, err := s.repo.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availabilities")
	}
	return list, nil
}

// Expand turns every occurrence of the availability in [From, To) into an Open appointment.
// Occurrences that fail validation, including those colliding with each other, are skipped
// and reported; the rest are inserted in one transaction under the instructor lock.
func (s *AvailabilityService) Expand(ctx context.Context, actor Actor, id string, req models.ExpandAvailabilityRequest) (*models.ExpansionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expansion window")
	}
	window, err := scheduling.NewWindow(req.From, req.To)
	if err != nil {
		return nil, schedulingError(invalid("to", err.Error()), "")
	}
	if window.End.Sub(window.Start) > maxExpansionWindow {
		return nil, schedulingError(invalid("to", "window must not exceed 92 days"), "")
	}

	availability, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, schedulingError(err, "availability not found")
	}
	if actor.Role == models.RoleInstructor && availability.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors can only expand their own availability")
	}

	category, err := lookupCategory(ctx, s.categories, availability.CategoryID)
	if err != nil {
		return nil, schedulingError(err, "")
	}
	schedule, err := availability.Schedule()
	if err != nil {
		return nil, schedulingError(invalid("timezone", "is not a known time zone"), "")
	}
	starts, err := schedule.Occurrences(window)
	if err != nil {
		return nil, schedulingError(invalid("recurrence", err.Error()), "")
	}

	durations := category.Durations()
	result := &models.ExpansionResult{Created: []models.Appointment{}, Skipped: []models.SkippedOccurrence{}}
	lockKey := string(scheduling.ScopeInstructor) + ":" + availability.InstructorID

	err = s.appointments.WithinLock(ctx, []string{lockKey}, func(tx repository.AppointmentTx) error {
		result.Created = result.Created[:0]
		result.Skipped = result.Skipped[:0]

		var accepted []scheduling.Slot
		for _, start := range starts {
			slot, err := scheduling.Materialize(scheduling.Slot{
				ID:           uuid.NewString(),
				InstructorID: availability.InstructorID,
				Start:        start,
				Status:       scheduling.StatusOpen,
			}, &durations)
			if err != nil {
				return err
			}

			active, err := tx.ActiveForActor(ctx, scheduling.ScopeInstructor, availability.InstructorID, scheduling.Window{Start: slot.Start, End: slot.End})
			if err != nil {
				return err
			}
			errs := s.policy.Validate(scheduling.Check{
				Candidate:        slot,
				Creating:         true,
				InstructorActive: append(models.Slots(active), accepted...),
			})
			if len(errs) > 0 {
				result.Skipped = append(result.Skipped, models.SkippedOccurrence{StartTime: start, Errors: errs})
				continue
			}

			availabilityID := availability.ID
			appointment := models.Appointment{
				ID:             slot.ID,
				CategoryID:     availability.CategoryID,
				AvailabilityID: &availabilityID,
			}
			appointment.Apply(slot)
			if err := tx.Create(ctx, &appointment); err != nil {
				return err
			}
			accepted = append(accepted, slot)
			result.Created = append(result.Created, appointment)
		}
		return nil
	})
	s.metrics.RecordAppointmentWrite("expand", err)
	if err != nil {
		return nil, schedulingError(err, "availability not found")
	}
	if len(result.Created) > 0 {
		s.cache.Invalidate(ctx, cache.Key("today", "*"))
	}
	s.logger.Info("availability expanded",
		zap.String("availability_id", availability.ID),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}
