package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicestore/internal/domain"
	"invoicestore/internal/port"
	"invoicestore/internal/repository"
)

// FilterHandler serves the saved filter panel state.
type FilterHandler struct {
	filters port.FilterStateRepository
}

// NewFilterHandler creates a new FilterHandler.
func NewFilterHandler(filters port.FilterStateRepository) *FilterHandler {
	return &FilterHandler{filters: filters}
}

// Get handles GET /api/v1/filters
// @Summary Get the saved filter state
// @Tags filters
// @Produce json
// @Success 200 {object} APIResponse{data=domain.FilterState} "Filter state, defaults when none is saved"
// @Router /filters [get]
func (h *FilterHandler) Get(c *gin.Context) {
	state, err := h.filters.Load(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, state)
}

// Save handles PUT /api/v1/filters
// @Summary Save the filter state
// @Tags filters
// @Accept json
// @Produce json
// @Param state body domain.FilterState true "Filter state"
// @Success 200 {object} APIResponse{data=domain.FilterState} "Saved state"
// @Failure 400 {object} APIResponse "Malformed body"
// @Failure 503 {object} APIResponse "Storage unavailable"
// @Router /filters [put]
func (h *FilterHandler) Save(c *gin.Context) {
	state := repository.DefaultFilterState()
	if err := c.ShouldBindJSON(&state); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body must be a JSON filter state")
		return
	}
	if state.Statuses == nil {
		state.Statuses = []domain.PaymentStatus{}
	}

	if err := h.filters.Save(c.Request.Context(), state); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, state)
}

// Clear handles DELETE /api/v1/filters
// @Summary Reset the filter state
// @Tags filters
// @Produce json
// @Success 200 {object} APIResponse{data=domain.FilterState} "Default state"
// @Router /filters [delete]
func (h *FilterHandler) Clear(c *gin.Context) {
	if err := h.filters.Clear(c.Request.Context()); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, repository.DefaultFilterState())
}
