package handler

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"invoicestore/internal/csvexport"
	"invoicestore/internal/domain"
	"invoicestore/internal/port"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler exports the invoice list in spreadsheet formats. It accepts the
// same query parameters as the invoice list, without pagination.
type ExportHandler struct {
	invoices port.InvoiceRepository
	now      func() time.Time
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(invoices port.InvoiceRepository) *ExportHandler {
	return &ExportHandler{invoices: invoices, now: time.Now}
}

// CSV handles GET /api/v1/export.csv
// @Summary Export invoices as CSV
// @Tags export
// @Produce text/csv
// @Param name query string false "Base file name" default(invoices)
// @Param q query string false "Search term"
// @Param status query []string false "Payment status filter" collectionFormat(multi)
// @Param from query string false "First day, YYYY-MM-DD"
// @Param to query string false "Last day, YYYY-MM-DD"
// @Success 200 {file} file "CSV attachment"
// @Failure 400 {object} APIResponse "Invalid query"
// @Router /export.csv [get]
func (h *ExportHandler) CSV(c *gin.Context) {
	h.export(c, "csv", "text/csv; charset=utf-8", csvexport.WriteCSV)
}

// XLSX handles GET /api/v1/export.xlsx
// @Summary Export invoices as a spreadsheet
// @Tags export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param name query string false "Base file name" default(invoices)
// @Param q query string false "Search term"
// @Param status query []string false "Payment status filter" collectionFormat(multi)
// @Param from query string false "First day, YYYY-MM-DD"
// @Param to query string false "Last day, YYYY-MM-DD"
// @Success 200 {file} file "XLSX attachment"
// @Failure 400 {object} APIResponse "Invalid query"
// @Router /export.xlsx [get]
func (h *ExportHandler) XLSX(c *gin.Context) {
	h.export(c, "xlsx", xlsxContentType, csvexport.WriteXLSX)
}

func (h *ExportHandler) export(c *gin.Context, ext, contentType string, write func(io.Writer, []domain.Invoice) error) {
	q, err := parseListQuery(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	list, err := q.run(c.Request.Context(), h.invoices)
	if err != nil {
		HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, list); err != nil {
		HandleError(c, err)
		return
	}

	filename := csvexport.BuildFilename(c.DefaultQuery("name", "invoices"), ext, h.now())
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
