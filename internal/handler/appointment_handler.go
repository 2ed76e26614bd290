package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type appointmentService interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Appointment, error)
	Rebooking(ctx context.Context, id string) (*models.Rebooking, error)
	BookedInWindow(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
	Today(ctx context.Context, day time.Time, loc *time.Location) ([]models.Appointment, error)
	Create(ctx context.Context, actor service.Actor, req models.CreateAppointmentRequest) (*models.Appointment, error)
	Update(ctx context.Context, actor service.Actor, id string, req models.UpdateAppointmentRequest) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, actor service.Actor, id string, req models.UpdateStatusRequest) (*models.StatusChangeResult, error)
	Book(ctx context.Context, actor service.Actor, id string, req models.BookRequest) (*models.Appointment, error)
	Rebook(ctx context.Context, actor service.Actor, id string, req models.RebookRequest) (*models.RebookResult, error)
	Delete(ctx context.Context, id string) error
}

// AppointmentHandler exposes appointment scheduling over HTTP.
type AppointmentHandler struct {
	service  appointmentService
	location *time.Location
	now      func() time.Time
}

// NewAppointmentHandler constructs handler. loc is the default zone for day views.
func NewAppointmentHandler(svc appointmentService, loc *time.Location) *AppointmentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentHandler{service: svc, location: loc, now: time.Now}
}

// List godoc
// @Summary List appointments
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param instructor_id query string false "Filter by instructor"
// @Param student_id query string false "Filter by student"
// @Param status query string false "Filter by status"
// @Param from query string false "Start time lower bound (RFC 3339)"
// @Param to query string false "Start time upper bound (RFC 3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	filter := models.AppointmentFilter{
		InstructorID: c.Query("instructor_id"),
		StudentID:    c.Query("student_id"),
		Status:       scheduling.Status(c.Query("status")),
		Page:         intQuery(c, "page", 1),
		PageSize:     intQuery(c, "limit", 20),
		SortOrder:    strings.ToLower(c.Query("order")),
	}
	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}
	if !from.IsZero() {
		filter.From = &from
	}
	if !to.IsZero() {
		filter.To = &to
	}

	// Students only ever see their own lessons.
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		filter.StudentID = claims.UserID
	}

	list, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, pagination)
}

// Get godoc
// @Summary Get appointment
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	appointment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointment, nil)
}

// Rebooking godoc
// @Summary Get the rebooking an appointment takes part in
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointments/{id}/rebooking [get]
func (h *AppointmentHandler) Rebooking(c *gin.Context) {
	rebooking, err := h.service.Rebooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rebooking, nil)
}

// Booked godoc
// @Summary List booked appointments starting in a window
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param from query string true "Window start (RFC 3339)"
// @Param to query string true "Window end, exclusive (RFC 3339)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /appointments/booked [get]
func (h *AppointmentHandler) Booked(c *gin.Context) {
	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}
	if from.IsZero() || to.IsZero() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to are required"))
		return
	}
	list, err := h.service.BookedInWindow(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Today godoc
// @Summary Day view of appointments
// @Description Open, booked, occurred, no-show and unavailable appointments starting on the given date.
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Param tz query string false "IANA time zone, defaults to the server zone"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /appointments/today [get]
func (h *AppointmentHandler) Today(c *gin.Context) {
	loc := h.location
	if tz := c.Query("tz"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unknown time zone"))
			return
		}
		loc = parsed
	}
	day := h.now().In(loc)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	list, err := h.service.Today(c.Request.Context(), day, loc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil, map[string]interface{}{
		"date":     day.Format("2006-01-02"),
		"timezone": loc.String(),
	})
}

// Create godoc
// @Summary Create appointment
// @Description The end time is derived from the category. Overlaps with the instructor's or student's active lessons return 409.
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateAppointmentRequest true "Appointment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateAppointmentRequest
	if !bindJSON(c, &req, "invalid appointment payload") {
		return
	}
	appointment, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appointment)
}

// Update godoc
// @Summary Reschedule or reassign appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param payload body models.UpdateAppointmentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id} [put]
func (h *AppointmentHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateAppointmentRequest
	if !bindJSON(c, &req, "invalid appointment payload") {
		return
	}
	appointment, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointment, nil)
}

// UpdateStatus godoc
// @Summary Change appointment status
// @Description Instructors may only change Open, Future or Unavailable appointments. Set rebook with a cancelled or rescheduled status to open a replacement slot.
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param payload body models.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/status [patch]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	result, err := h.service.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Book godoc
// @Summary Book an open appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param payload body models.BookRequest false "Student to book (admins only)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/book [post]
func (h *AppointmentHandler) Book(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.BookRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid booking payload") {
		return
	}
	appointment, err := h.service.Book(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointment, nil)
}

// Rebook godoc
// @Summary Rebook a cancelled appointment
// @Description Creates an open replacement for the instructor and links it to the cancelled appointment.
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Dead appointment ID"
// @Param payload body models.RebookRequest false "Optional new start time"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/rebook [post]
func (h *AppointmentHandler) Rebook(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.RebookRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid rebook payload") {
		return
	}
	result, err := h.service.Rebook(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Delete godoc
// @Summary Delete appointment
// @Tags Appointments
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
