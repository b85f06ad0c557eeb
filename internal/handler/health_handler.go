package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicestore/internal/port"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store port.KeyValueStore
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store port.KeyValueStore) *HealthHandler {
	return &HealthHandler{store: store}
}

// Liveness handles GET /healthz
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string "Process is up"
// @Router /healthz [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
// @Summary Readiness check
// @Description Reports whether the storage backend is reachable
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string "Storage reachable"
// @Failure 503 {object} map[string]string "Storage not reachable"
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	if !h.store.Available(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "storage not reachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
