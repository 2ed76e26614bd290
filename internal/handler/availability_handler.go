package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type availabilityService interface {
	Create(ctx context.Context, actor service.Actor, req models.CreateAvailabilityRequest) (*models.Availability, error)
	Get(ctx context.Context, id string) (*models.Availability, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]models.Availability, error)
	Expand(ctx context.Context, actor service.Actor, id string, req models.ExpandAvailabilityRequest) (*models.ExpansionResult, error)
}

// AvailabilityHandler manages recurring instructor availability.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Create godoc
// @Summary Publish availability
// @Tags Availabilities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateAvailabilityRequest true "Availability payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /availabilities [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateAvailabilityRequest
	if !bindJSON(c, &req, "invalid availability payload") {
		return
	}
	availability, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, availability)
}

// Get godoc
// @Summary Get availability
// @Tags Availabilities
// @Produce json
// @Security BearerAuth
// @Param id path string true "Availability ID"
// @Success 200 {object} response.Envelope
// @Router /availabilities/{id} [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	availability, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// ListByInstructor godoc
// @Summary List an instructor's availability
// @Tags Availabilities
// @Produce json
// @Security BearerAuth
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/availabilities [get]
func (h *AvailabilityHandler) ListByInstructor(c *gin.Context) {
	list, err := h.service.ListByInstructor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Expand godoc
// @Summary Expand availability into open appointments
// @Description Conflicting occurrences are skipped and listed in the response.
// @Tags Availabilities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Availability ID"
// @Param payload body models.ExpandAvailabilityRequest true "Expansion window"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /availabilities/{id}/expand [post]
func (h *AvailabilityHandler) Expand(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ExpandAvailabilityRequest
	if !bindJSON(c, &req, "invalid expansion payload") {
		return
	}
	result, err := h.service.Expand(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result, map[string]interface{}{
		"created": len(result.Created),
		"skipped": len(result.Skipped),
	})
}
