package handler

import (
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicestore/internal/domain"
	"invoicestore/internal/port"
)

// AttachmentHandler handles attachment upload, download and management endpoints.
type AttachmentHandler struct {
	attachments port.AttachmentRepository
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(attachments port.AttachmentRepository) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

// Upload handles POST /api/v1/invoices/:id/attachments
// One "file" part attaches a single file; several are attached as a batch.
// @Summary Upload attachments
// @Description Attach one or more files (PDF, images, text, office documents) to an invoice
// @Tags attachments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Invoice ID"
// @Param file formData file true "File to attach, repeat for a batch"
// @Success 201 {object} APIResponse{data=AttachmentMeta} "Single file attached"
// @Success 201 {object} APIResponse{data=BatchUploadResponse} "Batch result"
// @Failure 400 {object} APIResponse "Missing file, unsupported type or no file attached"
// @Failure 404 {object} APIResponse "Invoice not found"
// @Failure 413 {object} APIResponse "File too large"
// @Failure 422 {object} APIResponse "Attachment limit reached"
// @Failure 507 {object} APIResponse "Storage full"
// @Router /invoices/{id}/attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "multipart form data is required")
		return
	}
	headers := form.File["file"]
	if len(headers) == 0 {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}

	files := make([]domain.FileUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_FILE", "could not read uploaded file "+fh.Filename)
			return
		}
		defer func() { _ = f.Close() }()
		files = append(files, domain.FileUpload{
			Filename: fh.Filename,
			Type:     declaredType(fh),
			Size:     fh.Size,
			Content:  f,
		})
	}

	invoiceID := c.Param("id")
	if len(files) == 1 {
		att, err := h.attachments.Upload(c.Request.Context(), invoiceID, files[0], nil)
		if err != nil {
			HandleError(c, err)
			return
		}
		RespondCreated(c, toAttachmentMeta(att))
		return
	}

	result, err := h.attachments.UploadMany(c.Request.Context(), invoiceID, files)
	if err != nil {
		HandleError(c, err)
		return
	}
	resp := BatchUploadResponse{Successful: toAttachmentMetas(result.Successful), Failed: result.Failed}
	if len(resp.Successful) == 0 {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Data:    resp,
			Error:   &APIError{Code: "UPLOAD_FAILED", Message: "no file could be attached"},
		})
		return
	}
	RespondCreated(c, resp)
}

// declaredType returns the part's media type without parameters. Generic binary
// types are dropped so the content gets sniffed instead.
func declaredType(fh *multipart.FileHeader) string {
	mediaType, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil || mediaType == "application/octet-stream" {
		return ""
	}
	return mediaType
}

// List handles GET /api/v1/invoices/:id/attachments
// @Summary List attachments
// @Description Attachment metadata without the file contents
// @Tags attachments
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} APIResponse{data=[]AttachmentMeta} "Attachments"
// @Failure 404 {object} APIResponse "Invoice not found"
// @Router /invoices/{id}/attachments [get]
func (h *AttachmentHandler) List(c *gin.Context) {
	list, err := h.attachments.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, toAttachmentMetas(list))
}

// Stats handles GET /api/v1/invoices/:id/attachments/stats
// @Summary Attachment statistics
// @Tags attachments
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} APIResponse{data=domain.AttachmentStats} "Statistics"
// @Failure 404 {object} APIResponse "Invoice not found"
// @Router /invoices/{id}/attachments/stats [get]
func (h *AttachmentHandler) Stats(c *gin.Context) {
	stats, err := h.attachments.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, stats)
}

// Download handles GET /api/v1/invoices/:id/attachments/:attachmentId/download
// @Summary Download an attachment
// @Tags attachments
// @Produce octet-stream
// @Param id path string true "Invoice ID"
// @Param attachmentId path string true "Attachment ID"
// @Success 200 {file} file "Decoded file contents"
// @Failure 404 {object} APIResponse "Invoice or attachment not found"
// @Failure 500 {object} APIResponse "Stored data is corrupted"
// @Router /invoices/{id}/attachments/{attachmentId}/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()
	att, err := h.attachments.Get(ctx, c.Param("id"), c.Param("attachmentId"))
	if err != nil {
		HandleError(c, err)
		return
	}

	err = h.attachments.Download(ctx, att, port.DownloadSinkFunc(func(filename, mimeType string, data []byte) error {
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
		c.Data(http.StatusOK, mimeType, data)
		return nil
	}))
	if err != nil {
		HandleError(c, err)
	}
}

// Delete handles DELETE /api/v1/invoices/:id/attachments/:attachmentId
// @Summary Delete an attachment
// @Tags attachments
// @Produce json
// @Param id path string true "Invoice ID"
// @Param attachmentId path string true "Attachment ID"
// @Success 200 {object} APIResponse "Attachment deleted"
// @Failure 404 {object} APIResponse "Invoice not found"
// @Router /invoices/{id}/attachments/{attachmentId} [delete]
func (h *AttachmentHandler) Delete(c *gin.Context) {
	if _, err := h.attachments.Delete(c.Request.Context(), c.Param("id"), c.Param("attachmentId")); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "attachment deleted"})
}

// BulkDelete handles POST /api/v1/invoices/:id/attachments/bulk-delete
// @Summary Delete several attachments
// @Tags attachments
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body object{ids=[]string} true "Attachment IDs"
// @Success 200 {object} APIResponse{data=object{removed=int}} "Number removed"
// @Failure 400 {object} APIResponse "No ids given"
// @Failure 404 {object} APIResponse "Invoice not found"
// @Router /invoices/{id}/attachments/bulk-delete [post]
func (h *AttachmentHandler) BulkDelete(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "ids must list at least one attachment id")
		return
	}

	removed, err := h.attachments.BulkDelete(c.Request.Context(), c.Param("id"), req.IDs)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"removed": removed})
}
