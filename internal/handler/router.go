package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/middleware"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Auth           *AuthHandler
	Categories     *CategoryHandler
	Appointments   *AppointmentHandler
	Availabilities *AvailabilityHandler
	Exports        *ExportHandler
	Metrics        *MetricsHandler
}

// RegisterRoutes mounts probes at the root and the API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, tokens middleware.TokenValidator, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)
	booking := middleware.RequireRoles(models.RoleAdmin, models.RoleStudent)

	api := r.Group(prefix)
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	secured.GET("/auth/me", h.Auth.Me)

	secured.GET("/categories", h.Categories.List)
	secured.GET("/categories/:id", h.Categories.Get)
	secured.POST("/categories", admin, h.Categories.Create)

	appointments := secured.Group("/appointments")
	appointments.GET("", h.Appointments.List)
	appointments.GET("/booked", admin, h.Appointments.Booked)
	appointments.GET("/today", h.Appointments.Today)
	appointments.GET("/:id", h.Appointments.Get)
	appointments.GET("/:id/rebooking", h.Appointments.Rebooking)
	appointments.POST("", staff, h.Appointments.Create)
	appointments.PUT("/:id", admin, h.Appointments.Update)
	appointments.PATCH("/:id/status", staff, h.Appointments.UpdateStatus)
	appointments.POST("/:id/book", booking, h.Appointments.Book)
	appointments.POST("/:id/rebook", staff, h.Appointments.Rebook)
	appointments.DELETE("/:id", admin, h.Appointments.Delete)

	secured.POST("/availabilities", staff, h.Availabilities.Create)
	secured.GET("/availabilities/:id", h.Availabilities.Get)
	secured.POST("/availabilities/:id/expand", staff, h.Availabilities.Expand)

	instructors := secured.Group("/instructors/:id")
	instructors.GET("/availabilities", h.Availabilities.ListByInstructor)
	instructors.GET("/schedule.ics", staff, h.Exports.Schedule(service.ExportFormatICS))
	instructors.GET("/schedule.csv", staff, h.Exports.Schedule(service.ExportFormatCSV))
	instructors.GET("/schedule.pdf", staff, h.Exports.Schedule(service.ExportFormatPDF))
}
