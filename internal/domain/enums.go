package domain

// PaymentStatus is the payment state of an invoice.
type PaymentStatus string

const (
	PaymentStatusPaid          PaymentStatus = "Paid"
	PaymentStatusUnpaid        PaymentStatus = "Unpaid"
	PaymentStatusPartiallyPaid PaymentStatus = "Partially Paid"
	PaymentStatusOverdue       PaymentStatus = "Overdue"
)

// PaymentStatuses lists every payment status in display order.
var PaymentStatuses = []PaymentStatus{
	PaymentStatusPaid,
	PaymentStatusUnpaid,
	PaymentStatusPartiallyPaid,
	PaymentStatusOverdue,
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusUnpaid, PaymentStatusPartiallyPaid, PaymentStatusOverdue:
		return true
	}
	return false
}

// SortField is a column the invoice list can be sorted by.
type SortField string

const (
	SortByDate          SortField = "date"
	SortByInvoiceNumber SortField = "invoiceNumber"
	SortByCustomerName  SortField = "customerName"
	SortByTotal         SortField = "total"
)

// Valid reports whether f is a known sort field.
func (f SortField) Valid() bool {
	switch f {
	case SortByDate, SortByInvoiceNumber, SortByCustomerName, SortByTotal:
		return true
	}
	return false
}

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Valid reports whether o is a known sort order.
func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

// Allowed attachment MIME types.
const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeGIF  = "image/gif"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
	MimeXLS  = "application/vnd.ms-excel"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// AllowedAttachmentTypes maps allowed MIME types to their canonical file extension.
var AllowedAttachmentTypes = map[string]string{
	MimePDF:  "pdf",
	MimeJPEG: "jpg",
	MimePNG:  "png",
	MimeGIF:  "gif",
	MimeDOC:  "doc",
	MimeDOCX: "docx",
	MimeText: "txt",
	MimeXLS:  "xls",
	MimeXLSX: "xlsx",
}

// IsAllowedAttachmentType reports whether mimeType may be attached to an invoice.
func IsAllowedAttachmentType(mimeType string) bool {
	_, ok := AllowedAttachmentTypes[mimeType]
	return ok
}
