package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/export"
)

// ExportFormat names a schedule export encoding.
type ExportFormat string

const (
	ExportFormatICS ExportFormat = "ics"
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// defaultExportSpan is used when the caller gives no upper bound.
const defaultExportSpan = 30 * 24 * time.Hour

type instructorScheduleRepository interface {
	InstructorSchedule(ctx context.Context, instructorID string, window scheduling.Window) ([]models.Appointment, error)
}

type categoryLister interface {
	List(ctx context.Context) ([]models.AppointmentCategory, error)
}

type tableRenderer interface {
	Render(t export.Table) ([]byte, error)
}

type calendarRenderer interface {
	Render(c export.Calendar) ([]byte, error)
}

// ExportRequest selects the schedule to export. Zero bounds default to today and thirty days on.
type ExportRequest struct {
	InstructorID string
	Format       ExportFormat
	From         time.Time
	To           time.Time
}

// ExportResult is a rendered file ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders an instructor's schedule as a calendar feed or a printable table.
type ExportService struct {
	appointments instructorScheduleRepository
	categories   categoryLister
	csv          tableRenderer
	pdf          tableRenderer
	ics          calendarRenderer
	logger       *zap.Logger
	location     *time.Location
	now          func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers get the package defaults.
func NewExportService(appointments instructorScheduleRepository, categories categoryLister, location *time.Location, logger *zap.Logger, csv, pdf tableRenderer, ics calendarRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if ics == nil {
		ics = export.NewICSExporter("-//lesson-scheduler//schedule//EN")
	}
	return &ExportService{
		appointments: appointments,
		categories:   categories,
		csv:          csv,
		pdf:          pdf,
		ics:          ics,
		logger:       logger,
		location:     location,
		now:          time.Now,
	}
}

// InstructorSchedule renders the instructor's appointments starting in the requested window.
// Instructors may only export their own schedule.
func (s *ExportService) InstructorSchedule(ctx context.Context, actor Actor, req ExportRequest) (*ExportResult, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleInstructor:
		if actor.UserID != req.InstructorID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors can only export their own schedule")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "schedule export requires an instructor or admin")
	}

	window, err := s.window(req.From, req.To)
	if err != nil {
		return nil, schedulingError(invalid("to", err.Error()), "")
	}

	appointments, err := s.appointments.InstructorSchedule(ctx, req.InstructorID, window)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	names := s.categoryNames(ctx)

	base := fmt.Sprintf("schedule_%s_%s", sanitizeFilename(req.InstructorID), window.Start.Format("20060102"))
	var result *ExportResult
	switch req.Format {
	case ExportFormatICS:
		body, err := s.ics.Render(s.calendar(req.InstructorID, appointments, names))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render calendar")
		}
		result = &ExportResult{Filename: base + ".ics", ContentType: "text/calendar; charset=utf-8", Body: body}
	case ExportFormatCSV, ExportFormatPDF:
		table := s.table(req.InstructorID, window, appointments, names)
		renderer, contentType := s.csv, "text/csv; charset=utf-8"
		if req.Format == ExportFormatPDF {
			renderer, contentType = s.pdf, "application/pdf"
		}
		body, err := renderer.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule")
		}
		result = &ExportResult{Filename: base + "." + string(req.Format), ContentType: contentType, Body: body}
	default:
		return nil, schedulingError(invalid("format", "must be one of ics, csv, pdf"), "")
	}

	s.logger.Info("schedule exported",
		zap.String("instructor_id", req.InstructorID),
		zap.String("format", string(req.Format)),
		zap.Int("appointments", len(appointments)),
	)
	return result, nil
}

func (s *ExportService) window(from, to time.Time) (scheduling.Window, error) {
	if from.IsZero() {
		from = scheduling.DayWindow(s.now(), s.location).Start
	}
	if to.IsZero() {
		to = from.Add(defaultExportSpan)
	}
	return scheduling.NewWindow(from, to)
}

// categoryNames is best effort; exports fall back to category ids.
func (s *ExportService) categoryNames(ctx context.Context) map[string]string {
	names := map[string]string{}
	if s.categories == nil {
		return names
	}
	list, err := s.categories.List(ctx)
	if err != nil {
		s.logger.Warn("failed to load category names for export", zap.Error(err))
		return names
	}
	for _, c := range list {
		names[c.ID] = c.Name
	}
	return names
}

func (s *ExportService) calendar(instructorID string, appointments []models.Appointment, names map[string]string) export.Calendar {
	cal := export.Calendar{Name: "Lessons " + instructorID}
	for _, a := range appointments {
		summary := categoryName(names, a.CategoryID)
		if a.Status != scheduling.StatusFuture {
			summary = fmt.Sprintf("%s (%s)", summary, a.Status)
		}
		description := "Status: " + string(a.Status)
		if a.StudentID != nil {
			description += "\nStudent: " + *a.StudentID
		}
		cal.Events = append(cal.Events, export.Event{
			UID:         a.ID + "@lesson-scheduler",
			Summary:     summary,
			Description: description,
			Start:       a.StartTime,
			End:         a.EndTime,
			Cancelled:   a.Status.IsTerminalCancelled(),
			Tentative:   a.IsOpen(),
			UpdatedAt:   a.UpdatedAt,
		})
	}
	return cal
}

func (s *ExportService) table(instructorID string, window scheduling.Window, appointments []models.Appointment, names map[string]string) export.Table {
	table := export.Table{
		Title:    "Lesson schedule " + instructorID,
		Subtitle: fmt.Sprintf("%s to %s (%s)", window.Start.In(s.location).Format("2006-01-02"), window.End.In(s.location).Format("2006-01-02"), s.location),
		Columns: []export.Column{
			{Key: "date", Title: "Date", Width: 30},
			{Key: "start", Title: "Start", Width: 22},
			{Key: "end", Title: "End", Width: 22},
			{Key: "category", Title: "Lesson"},
			{Key: "student", Title: "Student"},
			{Key: "status", Title: "Status", Width: 50},
		},
	}
	for _, a := range appointments {
		student := ""
		if a.StudentID != nil {
			student = *a.StudentID
		}
		start := a.StartTime.In(s.location)
		table.Rows = append(table.Rows, map[string]string{
			"date":     start.Format("2006-01-02"),
			"start":    start.Format("15:04"),
			"end":      a.EndTime.In(s.location).Format("15:04"),
			"category": categoryName(names, a.CategoryID),
			"student":  student,
			"status":   string(a.Status),
		})
	}
	return table
}

func categoryName(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
