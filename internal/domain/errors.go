package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds. Typed errors below match them with errors.Is.
var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrFileNotFound           = errors.New("attachment not found")
	ErrDuplicateInvoiceNumber = errors.New("invoice number already exists")
	ErrValidation             = errors.New("validation failed")
	ErrDataCorruption         = errors.New("stored data is corrupted")
	ErrStorageQuota           = errors.New("storage quota exceeded")
	ErrStorageUnavailable     = errors.New("storage is unavailable")
	ErrFileAttachment         = errors.New("attachment limit reached")
	ErrStorageLimit           = errors.New("attachment storage limit exceeded")
)

// FieldError is a single violated rule on a field path such as "lineItems.0.total".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError carries every rule an invoice, line item or attachment violated.
type ValidationError struct {
	Entity string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(entity, field, message string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: []FieldError{{Field: field, Message: message}}}
}

// DataCorruptionError is returned when stored text under Key cannot be parsed.
type DataCorruptionError struct {
	Key string
	Err error
}

func (e *DataCorruptionError) Error() string {
	return fmt.Sprintf("data under key %q is corrupted: %v", e.Key, e.Err)
}

func (e *DataCorruptionError) Unwrap() error { return e.Err }

func (e *DataCorruptionError) Is(target error) bool { return target == ErrDataCorruption }

// StorageQuotaError is returned when a write does not fit even after cleanup.
type StorageQuotaError struct {
	Key  string
	Size int
	Err  error
}

func (e *StorageQuotaError) Error() string {
	return fmt.Sprintf("cannot save %q (%d bytes): storage full", e.Key, e.Size)
}

func (e *StorageQuotaError) Unwrap() error { return e.Err }

func (e *StorageQuotaError) Is(target error) bool { return target == ErrStorageQuota }

// InvoiceNotFoundError is returned when no invoice has the requested id.
type InvoiceNotFoundError struct {
	ID string
}

func (e *InvoiceNotFoundError) Error() string {
	return fmt.Sprintf("invoice %q not found", e.ID)
}

func (e *InvoiceNotFoundError) Is(target error) bool {
	return target == ErrInvoiceNotFound || target == ErrNotFound
}

// FileNotFoundError is returned when an invoice has no attachment with the requested id.
type FileNotFoundError struct {
	InvoiceID    string
	AttachmentID string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("attachment %q not found on invoice %q", e.AttachmentID, e.InvoiceID)
}

func (e *FileNotFoundError) Is(target error) bool {
	return target == ErrFileNotFound || target == ErrNotFound
}

// DuplicateInvoiceNumberError is returned when an invoice number is already taken.
type DuplicateInvoiceNumberError struct {
	InvoiceNumber string
}

func (e *DuplicateInvoiceNumberError) Error() string {
	return fmt.Sprintf("invoice number %q already exists", e.InvoiceNumber)
}

func (e *DuplicateInvoiceNumberError) Is(target error) bool { return target == ErrDuplicateInvoiceNumber }

// FileAttachmentError is returned when an invoice cannot take more attachments.
type FileAttachmentError struct {
	InvoiceID string
	Limit     int
	Requested int
}

func (e *FileAttachmentError) Error() string {
	return fmt.Sprintf("invoice %q cannot take %d more attachment(s): maximum is %d per invoice",
		e.InvoiceID, e.Requested, e.Limit)
}

func (e *FileAttachmentError) Is(target error) bool { return target == ErrFileAttachment }

// StorageLimitError is returned when attachments would exceed the per-invoice storage budget.
type StorageLimitError struct {
	CurrentSize int64
	AddedSize   int64
	MaxSize     int64
}

func (e *StorageLimitError) Error() string {
	return fmt.Sprintf("attachment storage limit exceeded: %d bytes used + %d bytes requested > %d bytes allowed",
		e.CurrentSize, e.AddedSize, e.MaxSize)
}

func (e *StorageLimitError) Is(target error) bool { return target == ErrStorageLimit }
