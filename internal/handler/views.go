package handler

import (
	"time"

	"invoicestore/internal/domain"
)

// AttachmentMeta is an attachment without its encoded content.
type AttachmentMeta struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// InvoiceResponse is an invoice as returned by the API. Attachment content is
// only served by the download endpoint.
type InvoiceResponse struct {
	domain.Invoice
	Attachments []AttachmentMeta `json:"attachments"`
}

// BatchUploadResponse is the outcome of a multi-file upload.
type BatchUploadResponse struct {
	Successful []AttachmentMeta      `json:"successful"`
	Failed     []domain.FailedUpload `json:"failed"`
}

func toAttachmentMeta(a *domain.FileAttachment) AttachmentMeta {
	return AttachmentMeta{ID: a.ID, Filename: a.Filename, Size: a.Size, Type: a.Type, UploadedAt: a.UploadedAt}
}

func toAttachmentMetas(list []domain.FileAttachment) []AttachmentMeta {
	out := make([]AttachmentMeta, len(list))
	for i := range list {
		out[i] = toAttachmentMeta(&list[i])
	}
	return out
}

func toInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	return InvoiceResponse{Invoice: *inv, Attachments: toAttachmentMetas(inv.Attachments)}
}

func toInvoiceResponses(list []domain.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, len(list))
	for i := range list {
		out[i] = toInvoiceResponse(&list[i])
	}
	return out
}
