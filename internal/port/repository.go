package port

import (
	"context"

	"invoicestore/internal/domain"
)

// InvoiceRepository is the authoritative CRUD and query surface over the invoice collection.
type InvoiceRepository interface {
	Create(ctx context.Context, input domain.InvoiceInput) (*domain.Invoice, error)
	Get(ctx context.Context, id string) (*domain.Invoice, error)
	List(ctx context.Context) ([]domain.Invoice, error)
	Update(ctx context.Context, id string, patch domain.InvoicePatch) (*domain.Invoice, error)
	Delete(ctx context.Context, id string) (bool, error)
	Filter(ctx context.Context, criteria domain.FilterCriteria) ([]domain.Invoice, error)
	Sort(ctx context.Context, by domain.SortField, order domain.SortOrder) ([]domain.Invoice, error)
	Search(ctx context.Context, term string) ([]domain.Invoice, error)
	Stats(ctx context.Context) (*domain.InvoiceStats, error)
}

// AttachmentRepository manages the attachment list embedded in one invoice.
type AttachmentRepository interface {
	Upload(ctx context.Context, invoiceID string, file domain.FileUpload, progress domain.ProgressFunc) (*domain.FileAttachment, error)
	UploadMany(ctx context.Context, invoiceID string, files []domain.FileUpload) (*domain.BatchResult, error)
	Get(ctx context.Context, invoiceID, attachmentID string) (*domain.FileAttachment, error)
	List(ctx context.Context, invoiceID string) ([]domain.FileAttachment, error)
	Delete(ctx context.Context, invoiceID, attachmentID string) (bool, error)
	BulkDelete(ctx context.Context, invoiceID string, attachmentIDs []string) (int, error)
	Download(ctx context.Context, attachment *domain.FileAttachment, sink DownloadSink) error
	Stats(ctx context.Context, invoiceID string) (*domain.AttachmentStats, error)
}

// FilterStateRepository persists the filter panel state.
type FilterStateRepository interface {
	Load(ctx context.Context) (*domain.FilterState, error)
	Save(ctx context.Context, state domain.FilterState) error
	Clear(ctx context.Context) error
}
