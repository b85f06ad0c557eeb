package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"invoicestore/internal/handler"
	"invoicestore/internal/middleware"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Invoice    *handler.InvoiceHandler
	Attachment *handler.AttachmentHandler
	Filter     *handler.FilterHandler
	Export     *handler.ExportHandler
	Health     *handler.HealthHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(h Handlers, allowedOrigins []string, logger zerolog.Logger) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	v1 := r.Group("/api/v1")

	invoices := v1.Group("/invoices")
	invoices.POST("", h.Invoice.Create)
	invoices.GET("", h.Invoice.List)
	invoices.GET("/stats", h.Invoice.Stats)
	invoices.GET("/:id", h.Invoice.GetByID)
	invoices.PATCH("/:id", h.Invoice.Update)
	invoices.DELETE("/:id", h.Invoice.Delete)

	attachments := invoices.Group("/:id/attachments")
	attachments.POST("", h.Attachment.Upload)
	attachments.GET("", h.Attachment.List)
	attachments.GET("/stats", h.Attachment.Stats)
	attachments.POST("/bulk-delete", h.Attachment.BulkDelete)
	attachments.GET("/:attachmentId/download", h.Attachment.Download)
	attachments.DELETE("/:attachmentId", h.Attachment.Delete)

	filters := v1.Group("/filters")
	filters.GET("", h.Filter.Get)
	filters.PUT("", h.Filter.Save)
	filters.DELETE("", h.Filter.Clear)

	v1.GET("/export.csv", h.Export.CSV)
	v1.GET("/export.xlsx", h.Export.XLSX)

	return r
}
