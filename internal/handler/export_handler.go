package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type scheduleExporter interface {
	InstructorSchedule(ctx context.Context, actor service.Actor, req service.ExportRequest) (*service.ExportResult, error)
}

// ExportHandler streams instructor schedules as files.
type ExportHandler struct {
	service scheduleExporter
}

// NewExportHandler constructs handler.
func NewExportHandler(svc scheduleExporter) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Schedule godoc
// @Summary Export an instructor schedule
// @Description One route per format: schedule.ics, schedule.csv and schedule.pdf.
// @Tags Exports
// @Produce text/calendar
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Instructor ID"
// @Param from query string false "Window start (RFC 3339), defaults to today"
// @Param to query string false "Window end (RFC 3339), defaults to 30 days after from"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /instructors/{id}/schedule.ics [get]
func (h *ExportHandler) Schedule(format service.ExportFormat) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		from, ok := timeQuery(c, "from")
		if !ok {
			return
		}
		to, ok := timeQuery(c, "to")
		if !ok {
			return
		}

		result, err := h.service.InstructorSchedule(c.Request.Context(), actor, service.ExportRequest{
			InstructorID: c.Param("id"),
			Format:       format,
			From:         from,
			To:           to,
		})
		if err != nil {
			response.Error(c, err)
			return
		}
		response.File(c, result.Filename, result.ContentType, result.Body)
	}
}
