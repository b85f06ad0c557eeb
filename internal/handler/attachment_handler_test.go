package handler_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoicestore/internal/domain"
	"invoicestore/internal/handler"
	"invoicestore/internal/port"
	"invoicestore/mocks"
)

func newAttachmentHandler() (*handler.AttachmentHandler, *mocks.MockAttachmentRepo) {
	repo := new(mocks.MockAttachmentRepo)
	return handler.NewAttachmentHandler(repo), repo
}

func uploadContext(t *testing.T, files ...formFile) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	body, contentType := multipartBody(t, files...)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/invoices/inv-1/attachments", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "id", Value: "inv-1"}}
	return c, w
}

func storedAttachment(id, name string) *domain.FileAttachment {
	return &domain.FileAttachment{
		ID: id, Filename: name, Size: 8, Type: domain.MimePDF, Data: "JVBERi0xLjQ=",
		UploadedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAttachmentHandler_Upload_Single(t *testing.T) {
	h, repo := newAttachmentHandler()
	repo.On("Upload", mock.Anything, "inv-1", mock.MatchedBy(func(f domain.FileUpload) bool {
		return f.Filename == "receipt.pdf" && f.Type == domain.MimePDF && f.Size == 8 && f.Content != nil
	}), mock.Anything).Return(storedAttachment("att-1", "receipt.pdf"), nil)

	c, w := uploadContext(t, formFile{name: "receipt.pdf", contentType: "application/pdf", content: "%PDF-1.4"})
	h.Upload(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "att-1", data["id"])
	assert.NotContains(t, data, "data")
	repo.AssertExpectations(t)
}

func TestAttachmentHandler_Upload_GenericTypeIsSniffed(t *testing.T) {
	h, repo := newAttachmentHandler()
	repo.On("Upload", mock.Anything, "inv-1", mock.MatchedBy(func(f domain.FileUpload) bool {
		return f.Type == ""
	}), mock.Anything).Return(storedAttachment("att-1", "scan"), nil)

	c, w := uploadContext(t, formFile{name: "scan", contentType: "application/octet-stream", content: "%PDF-1.4"})
	h.Upload(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	repo.AssertExpectations(t)
}

func TestAttachmentHandler_Upload_Batch(t *testing.T) {
	h, repo := newAttachmentHandler()
	result := &domain.BatchResult{
		Successful: []domain.FileAttachment{*storedAttachment("att-1", "a.pdf")},
		Failed:     []domain.FailedUpload{{Filename: "b.exe", Message: "type not allowed"}},
	}
	repo.On("UploadMany", mock.Anything, "inv-1", mock.MatchedBy(func(files []domain.FileUpload) bool {
		return len(files) == 2 && files[0].Filename == "a.pdf" && files[1].Filename == "b.exe"
	})).Return(result, nil)

	c, w := uploadContext(t,
		formFile{name: "a.pdf", contentType: "application/pdf", content: "%PDF-1.4"},
		formFile{name: "b.exe", contentType: "application/x-msdownload", content: "MZ"},
	)
	h.Upload(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Len(t, data["successful"], 1)
	failed := data["failed"].([]any)
	require.Len(t, failed, 1)
	assert.Equal(t, "type not allowed", failed[0].(map[string]any)["error"])
}

func TestAttachmentHandler_Upload_BatchAllFailed(t *testing.T) {
	h, repo := newAttachmentHandler()
	repo.On("UploadMany", mock.Anything, "inv-1", mock.Anything).Return(&domain.BatchResult{
		Successful: []domain.FileAttachment{},
		Failed:     []domain.FailedUpload{{Filename: "a.exe"}, {Filename: "b.exe"}},
	}, nil)

	c, w := uploadContext(t, formFile{name: "a.exe", content: "MZ"}, formFile{name: "b.exe", content: "MZ"})
	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UPLOAD_FAILED", decodeResponse(t, w).Error.Code)
}

func TestAttachmentHandler_Upload_MissingFile(t *testing.T) {
	h, repo := newAttachmentHandler()

	c, w := uploadContext(t)
	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", decodeResponse(t, w).Error.Code)
	repo.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAttachmentHandler_Upload_NotMultipart(t *testing.T) {
	h, _ := newAttachmentHandler()

	c, w := newContext(http.MethodPost, "/api/v1/invoices/inv-1/attachments", []byte(`{}`))
	c.Params = gin.Params{{Key: "id", Value: "inv-1"}}
	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeResponse(t, w).Error.Code)
}

func TestAttachmentHandler_Upload_Limits(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"count", &domain.FileAttachmentError{InvoiceID: "inv-1", Limit: 1, Requested: 1}, http.StatusUnprocessableEntity},
		{"budget", &domain.StorageLimitError{CurrentSize: 0, AddedSize: 83_676_775, MaxSize: 52_428_800}, http.StatusRequestEntityTooLarge},
		{"invoice", &domain.InvoiceNotFoundError{ID: "inv-1"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, repo := newAttachmentHandler()
			repo.On("Upload", mock.Anything, "inv-1", mock.Anything, mock.Anything).Return(nil, tt.err)

			c, w := uploadContext(t, formFile{name: "a.pdf", contentType: "application/pdf", content: "%PDF"})
			h.Upload(c)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAttachmentHandler_List(t *testing.T) {
	h, repo := newAttachmentHandler()
	repo.On("List", mock.Anything, "inv-1").Return([]domain.FileAttachment{*storedAttachment("att-1", "a.pdf")}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/invoices/inv-1/attachments", nil)
	c.Params = gin.Params{{Key: "id", Value: "inv-1"}}
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "a.pdf", data[0].(map[string]any)["filename"])
}

func TestAttachmentHandler_Download(t *testing.T) {
	h, repo := newAttachmentHandler()
	att := storedAttachment("att-1", "receipt.pdf")
	repo.On("Get", mock.Anything, "inv-1", "att-1").Return(att, nil)
	repo.On("Download", mock.Anything, att, mock.Anything).Run(func(args mock.Arguments) {
		sink := args.Get(2).(port.DownloadSink)
		_ = sink.Save("receipt.pdf", domain.MimePDF, []byte("%PDF-1.4"))
	}).Return(nil)

	c, w := newContext(http.MethodGet, "/api/v1/invoices/inv-1/attachments/att-1/download", nil)
	c.Params = gin.Params{{Key: "id", Value: "inv-1"}, {Key: "attachmentId", Value: "att-1"}}
	h.Download(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.MimePDF, w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=receipt.pdf", w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.Equal([]byte("%PDF-1.4"), w.Body.Bytes()))
}

func TestAttachmentHandler_Download_NotFound(t *testing.T) {
	h, repo := newAttachmentHandler()
	repo.On("Get", mock.Anything, "inv-1", "nope").
		Return(nil, &domain.FileNotFoundError{InvoiceID: "inv-1", AttachmentID: "nope"})

	c, w := newContext(http.MethodGet, "/api/v1/invoices/inv-1/attachments/nope/download", nil)
	c.Params = gin.Params{{Key: "id", Value: "inv-1"}, {Key: "attachmentId", Value: "nope"}}
	h.Download(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ATTACHMENT_NOT_FOUND", decodeResponse(t, w).Error.Code)
	repo.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything)
}

func TestAttachmentHandler_BulkDelete(t *testing.T) {
	h, repo := newAttachmentHandler()
	repo.On("BulkDelete", mock.Anything, "inv-1", []string{"att-1", "att-2"}).Return(2, nil)

	c, w := newContext(http.MethodPost, "/api/v1/invoices/inv-1/attachments/bulk-delete",
		jsonBody(t, map[string]any{"ids": []string{"att-1", "att-2"}}))
	c.Params = gin.Params{{Key: "id", Value: "inv-1"}}
	h.BulkDelete(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeResponse(t, w).Data.(map[string]any)["removed"])
}

func TestAttachmentHandler_BulkDelete_EmptyIDs(t *testing.T) {
	h, repo := newAttachmentHandler()

	c, w := newContext(http.MethodPost, "/api/v1/invoices/inv-1/attachments/bulk-delete",
		jsonBody(t, map[string]any{"ids": []string{}}))
	c.Params = gin.Params{{Key: "id", Value: "inv-1"}}
	h.BulkDelete(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "BulkDelete", mock.Anything, mock.Anything, mock.Anything)
}

func TestAttachmentHandler_Delete(t *testing.T) {
	h, repo := newAttachmentHandler()
	repo.On("Delete", mock.Anything, "inv-1", "att-1").Return(true, nil)

	c, w := newContext(http.MethodDelete, "/api/v1/invoices/inv-1/attachments/att-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "inv-1"}, {Key: "attachmentId", Value: "att-1"}}
	h.Delete(c)

	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestAttachmentHandler_Stats(t *testing.T) {
	h, repo := newAttachmentHandler()
	repo.On("Stats", mock.Anything, "inv-1").Return(&domain.AttachmentStats{Count: 1, RemainingSlots: 0, MaxFiles: 1}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/invoices/inv-1/attachments/stats", nil)
	c.Params = gin.Params{{Key: "id", Value: "inv-1"}}
	h.Stats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeResponse(t, w).Data.(map[string]any)["count"])
}
