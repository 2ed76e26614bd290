package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
	"github.com/noah-isme/lesson-scheduler-api/pkg/jobs"
)

// ReminderJobKind routes lesson reminders on the job queue.
const ReminderJobKind = "lesson_reminder"

type bookedAppointmentSource interface {
	BookedInWindow(ctx context.Context, window scheduling.Window) ([]models.Appointment, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// Notifier delivers one reminder.
type Notifier interface {
	Notify(ctx context.Context, reminder models.Reminder) error
}

// LogNotifier writes reminders to the log instead of sending them anywhere.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, reminder models.Reminder) error {
	n.logger.Sugar().Infow("lesson reminder",
		"appointment_id", reminder.AppointmentID,
		"instructor_id", reminder.InstructorID,
		"student_id", reminder.StudentID,
		"start_time", reminder.StartTime,
	)
	return nil
}

// ReminderConfig tunes the daily sweep.
type ReminderConfig struct {
	Schedule string
	Location *time.Location
}

// ReminderService enqueues a reminder for every lesson booked for tomorrow.
type ReminderService struct {
	source   bookedAppointmentSource
	queue    jobEnqueuer
	notifier Notifier
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ReminderConfig
	now      func() time.Time
	cron     *cron.Cron
}

// NewReminderService constructs a ReminderService.
func NewReminderService(source bookedAppointmentSource, queue jobEnqueuer, notifier Notifier, metrics *MetricsService, logger *zap.Logger, cfg ReminderConfig) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 8 * * *"
	}
	return &ReminderService{
		source:   source,
		queue:    queue,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Sweep enqueues reminders for tomorrow's booked lessons and returns how many were queued.
func (s *ReminderService) Sweep(ctx context.Context) (int, error) {
	window := scheduling.TomorrowWindow(s.now(), s.cfg.Location)
	booked, err := s.source.BookedInWindow(ctx, window)
	if err != nil {
		return 0, fmt.Errorf("load booked appointments: %w", err)
	}

	queued := 0
	day := window.Start.Format("2006-01-02")
	for _, appt := range booked {
		if appt.StudentID == nil {
			continue
		}
		job := jobs.Job{
			ID:   "reminder:" + appt.ID + ":" + day,
			Kind: ReminderJobKind,
			Payload: models.Reminder{
				AppointmentID: appt.ID,
				InstructorID:  appt.InstructorID,
				StudentID:     *appt.StudentID,
				StartTime:     appt.StartTime,
				EndTime:       appt.EndTime,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue reminder", zap.String("appointment_id", appt.ID), zap.Error(err))
			continue
		}
		queued++
	}
	s.logger.Info("reminder sweep finished", zap.String("day", day), zap.Int("booked", len(booked)), zap.Int("queued", queued))
	return queued, nil
}

// Handle is the queue handler for ReminderJobKind.
func (s *ReminderService) Handle(ctx context.Context, job jobs.Job) error {
	reminder, ok := job.Payload.(models.Reminder)
	if !ok {
		err := fmt.Errorf("unexpected reminder payload %T", job.Payload)
		s.metrics.RecordReminder(err)
		return err
	}
	err := s.notifier.Notify(ctx, reminder)
	s.metrics.RecordReminder(err)
	return err
}

// Start schedules the sweep. Runs use ctx for their queries.
func (s *ReminderService) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.cfg.Location))
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("reminder sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("reminder sweep scheduled", zap.String("schedule", s.cfg.Schedule), zap.String("timezone", s.cfg.Location.String()))
	return nil
}

// Stop halts the schedule and waits for a running sweep to return.
func (s *ReminderService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
