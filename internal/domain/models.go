package domain

import (
	"io"
	"time"
)

// Invoice is the root persisted entity.
type Invoice struct {
	ID              string           `json:"id"`
	InvoiceNumber   string           `json:"invoiceNumber"`
	Date            time.Time        `json:"date"`
	CustomerName    string           `json:"customerName"`
	CustomerEmail   string           `json:"customerEmail,omitempty"`
	CustomerAddress string           `json:"customerAddress,omitempty"`
	LineItems       []LineItem       `json:"lineItems"`
	Subtotal        float64          `json:"subtotal"`
	Tax             float64          `json:"tax"`
	Total           float64          `json:"total"`
	PaymentStatus   PaymentStatus    `json:"paymentStatus"`
	Attachments     []FileAttachment `json:"attachments"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// LineItem is one billable row within an invoice.
type LineItem struct {
	ID          string  `json:"id" validate:"max=64"`
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"gt=0,lte=1000000"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0,lte=1000000"`
	Total       float64 `json:"total" validate:"gte=0"`
}

// FileAttachment is a binary file stored inline as base64 text.
type FileAttachment struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	Data       string    `json:"data"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// StoredSize is the number of bytes the encoded data occupies.
func (a *FileAttachment) StoredSize() int64 {
	return int64(len(a.Data))
}

// InvoiceInput is the payload for creating an invoice. Id and timestamps are assigned by the repository.
type InvoiceInput struct {
	InvoiceNumber   string           `json:"invoiceNumber" validate:"required,max=50"`
	Date            time.Time        `json:"date"`
	CustomerName    string           `json:"customerName" validate:"required,max=100"`
	CustomerEmail   string           `json:"customerEmail" validate:"omitempty,max=254,invoice_email"`
	CustomerAddress string           `json:"customerAddress" validate:"omitempty,max=500"`
	LineItems       []LineItem       `json:"lineItems" validate:"required,min=1,max=100,dive"`
	Subtotal        float64          `json:"subtotal" validate:"gte=0"`
	Tax             float64          `json:"tax" validate:"gte=0,lte=100000000"`
	Total           float64          `json:"total" validate:"gte=0"`
	PaymentStatus   PaymentStatus    `json:"paymentStatus" validate:"required,payment_status"`
	Attachments     []FileAttachment `json:"attachments,omitempty"`
}

// InvoicePatch is a partial update. Nil fields are left unchanged.
type InvoicePatch struct {
	InvoiceNumber   *string           `json:"invoiceNumber,omitempty" validate:"omitempty,min=1,max=50"`
	Date            *time.Time        `json:"date,omitempty"`
	CustomerName    *string           `json:"customerName,omitempty" validate:"omitempty,min=1,max=100"`
	CustomerEmail   *string           `json:"customerEmail,omitempty" validate:"omitempty,max=254,invoice_email"`
	CustomerAddress *string           `json:"customerAddress,omitempty" validate:"omitempty,max=500"`
	LineItems       *[]LineItem       `json:"lineItems,omitempty" validate:"omitempty,min=1,max=100,dive"`
	Subtotal        *float64          `json:"subtotal,omitempty" validate:"omitempty,gte=0"`
	Tax             *float64          `json:"tax,omitempty" validate:"omitempty,gte=0,lte=100000000"`
	Total           *float64          `json:"total,omitempty" validate:"omitempty,gte=0"`
	PaymentStatus   *PaymentStatus    `json:"paymentStatus,omitempty" validate:"omitempty,payment_status"`
	Attachments     AttachmentsUpdate `json:"-"`
}

// AttachmentsUpdate says whether an update replaces the attachment list or leaves it alone.
// The zero value keeps the existing attachments.
type AttachmentsUpdate struct {
	replace bool
	list    []FileAttachment
}

// KeepAttachments leaves the stored attachment list untouched.
func KeepAttachments() AttachmentsUpdate {
	return AttachmentsUpdate{}
}

// ReplaceAttachments replaces the stored attachment list with list. A nil list clears it.
func ReplaceAttachments(list []FileAttachment) AttachmentsUpdate {
	if list == nil {
		list = []FileAttachment{}
	}
	return AttachmentsUpdate{replace: true, list: list}
}

// Replaces reports whether the update carries a replacement list.
func (u AttachmentsUpdate) Replaces() bool { return u.replace }

// List returns the replacement list. Only meaningful when Replaces is true.
func (u AttachmentsUpdate) List() []FileAttachment { return u.list }

// DateRange is an inclusive calendar-day range.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FilterCriteria narrows the invoice collection. Empty criteria match everything.
type FilterCriteria struct {
	DateRange *DateRange      `json:"dateRange,omitempty"`
	Statuses  []PaymentStatus `json:"statuses,omitempty"`
}

// FilterState is the persisted state of the invoice filter panel.
type FilterState struct {
	DateRange  *DateRange      `json:"dateRange,omitempty"`
	Statuses   []PaymentStatus `json:"statuses"`
	SearchTerm string          `json:"searchTerm"`
	SortBy     SortField       `json:"sortBy"`
	SortOrder  SortOrder       `json:"sortOrder"`
}

// StatusStats aggregates invoices sharing a payment status.
type StatusStats struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// InvoiceStats aggregates the whole collection.
type InvoiceStats struct {
	TotalCount  int                           `json:"totalCount"`
	TotalAmount float64                       `json:"totalAmount"`
	ByStatus    map[PaymentStatus]StatusStats `json:"byStatus"`
}

// AttachmentStats describes the attachments of one invoice.
type AttachmentStats struct {
	Count          int            `json:"count"`
	TotalSize      int64          `json:"totalSize"`
	StoredSize     int64          `json:"storedSize"`
	ByType         map[string]int `json:"byType"`
	RemainingSlots int            `json:"remainingSlots"`
	MaxFiles       int            `json:"maxFiles"`
	MaxTotalSize   int64          `json:"maxTotalSize"`
	UsagePercent   float64        `json:"usagePercent"`
}

// FileUpload is a file offered for attachment. Type may be empty, in which case it is sniffed from Content.
type FileUpload struct {
	Filename string
	Type     string
	Size     int64
	Content  io.Reader
}

// Progress reports how far an encode or decode has got.
type Progress struct {
	Loaded     int64   `json:"loaded"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// ProgressFunc receives progress updates. It may be nil.
type ProgressFunc func(Progress)

// FailedUpload records a file from a batch that could not be attached.
type FailedUpload struct {
	Filename string `json:"filename"`
	Err      error  `json:"-"`
	Message  string `json:"error"`
}

// BatchResult is the outcome of a multi-file upload.
type BatchResult struct {
	Successful []FileAttachment `json:"successful"`
	Failed     []FailedUpload   `json:"failed"`
}
