package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"invoicestore/internal/domain"
	"invoicestore/internal/handler"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.NewValidationError("invoice", "total", "mismatch"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"invoice not found", &domain.InvoiceNotFoundError{ID: "x"}, http.StatusNotFound, "INVOICE_NOT_FOUND"},
		{"attachment not found", &domain.FileNotFoundError{InvoiceID: "x", AttachmentID: "y"}, http.StatusNotFound, "ATTACHMENT_NOT_FOUND"},
		{"duplicate", &domain.DuplicateInvoiceNumberError{InvoiceNumber: "INV-001"}, http.StatusConflict, "DUPLICATE_INVOICE_NUMBER"},
		{"attachment limit", &domain.FileAttachmentError{Limit: 1, Requested: 1}, http.StatusUnprocessableEntity, "ATTACHMENT_LIMIT_REACHED"},
		{"storage limit", &domain.StorageLimitError{MaxSize: 10}, http.StatusRequestEntityTooLarge, "STORAGE_LIMIT_EXCEEDED"},
		{"quota", &domain.StorageQuotaError{Key: "invoices"}, http.StatusInsufficientStorage, "STORAGE_QUOTA_EXCEEDED"},
		{"corruption", &domain.DataCorruptionError{Key: "invoices", Err: errors.New("bad json")}, http.StatusInternalServerError, "DATA_CORRUPTION"},
		{"unavailable", fmt.Errorf("reading: %w", domain.ErrStorageUnavailable), http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{"wrapped duplicate", fmt.Errorf("create: %w", &domain.DuplicateInvoiceNumberError{InvoiceNumber: "A"}), http.StatusConflict, "DUPLICATE_INVOICE_NUMBER"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, _ := handler.MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestMapDomainError_HidesInternalDetails(t *testing.T) {
	_, _, msg := handler.MapDomainError(errors.New("disk at /var/secret failed"))
	assert.NotContains(t, msg, "/var/secret")
}
