package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicestore/internal/domain"
	"invoicestore/internal/port"
)

// InvoiceHandler handles invoice CRUD, query and stats endpoints.
type InvoiceHandler struct {
	invoices port.InvoiceRepository
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoices port.InvoiceRepository) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Create handles POST /api/v1/invoices
// @Summary Create an invoice
// @Description Validate and store a new invoice. Line totals, subtotal and total must agree.
// @Tags invoices
// @Accept json
// @Produce json
// @Param invoice body domain.InvoiceInput true "Invoice to create"
// @Success 201 {object} APIResponse{data=InvoiceResponse} "Invoice created"
// @Failure 400 {object} APIResponse "Malformed body or validation failure"
// @Failure 409 {object} APIResponse "Invoice number already in use"
// @Failure 503 {object} APIResponse "Storage unavailable"
// @Failure 507 {object} APIResponse "Storage full"
// @Router /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var input domain.InvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body must be a JSON invoice")
		return
	}

	inv, err := h.invoices.Create(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, toInvoiceResponse(inv))
}

// List handles GET /api/v1/invoices
// @Summary List invoices
// @Description Filter, search and sort the invoice collection, one page at a time
// @Tags invoices
// @Produce json
// @Param q query string false "Search term"
// @Param status query []string false "Payment status filter" collectionFormat(multi)
// @Param from query string false "First day, YYYY-MM-DD"
// @Param to query string false "Last day, YYYY-MM-DD"
// @Param sort query string false "Sort field"
// @Param order query string false "asc or desc"
// @Param offset query int false "Offset" default(0)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} APIResponse{data=[]InvoiceResponse} "Invoice page"
// @Failure 400 {object} APIResponse "Invalid query"
// @Failure 500 {object} APIResponse "Stored data is corrupted"
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	offset, limit := parsePagination(c)

	list, err := q.run(c.Request.Context(), h.invoices)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, toInvoiceResponses(paginate(list, offset, limit)), PagMeta{Total: len(list), Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/invoices/:id
// @Summary Get an invoice
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} APIResponse{data=InvoiceResponse} "Invoice"
// @Failure 404 {object} APIResponse "Invoice not found"
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	inv, err := h.invoices.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	if inv == nil {
		HandleError(c, &domain.InvoiceNotFoundError{ID: id})
		return
	}

	RespondOK(c, toInvoiceResponse(inv))
}

// Update handles PATCH /api/v1/invoices/:id
// @Summary Update an invoice
// @Description Merge the given fields over the stored invoice. Attachments are managed through the attachment endpoints.
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param patch body domain.InvoicePatch true "Fields to change"
// @Success 200 {object} APIResponse{data=InvoiceResponse} "Invoice updated"
// @Failure 400 {object} APIResponse "Malformed body or validation failure"
// @Failure 404 {object} APIResponse "Invoice not found"
// @Failure 409 {object} APIResponse "Invoice number already in use"
// @Router /invoices/{id} [patch]
func (h *InvoiceHandler) Update(c *gin.Context) {
	var patch domain.InvoicePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body must be a JSON invoice patch")
		return
	}

	inv, err := h.invoices.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, toInvoiceResponse(inv))
}

// Delete handles DELETE /api/v1/invoices/:id
// @Summary Delete an invoice
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} APIResponse "Invoice deleted"
// @Failure 503 {object} APIResponse "Storage unavailable"
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	if _, err := h.invoices.Delete(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "invoice deleted"})
}

// Stats handles GET /api/v1/invoices/stats
// @Summary Invoice statistics
// @Description Counts and amounts per payment status
// @Tags invoices
// @Produce json
// @Success 200 {object} APIResponse{data=domain.InvoiceStats} "Statistics"
// @Failure 500 {object} APIResponse "Stored data is corrupted"
// @Router /invoices/stats [get]
func (h *InvoiceHandler) Stats(c *gin.Context) {
	stats, err := h.invoices.Stats(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, stats)
}
