// Package validator checks invoices and line items before they enter the store.
// Checks run in two passes: a structural pass over field shapes and bounds, then a
// business-rule pass over derived amounts, the date window and cross-field rules.
package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"invoicestore/internal/domain"
)

// Field bounds.
const (
	MaxInvoiceNumberLength = 50
	MaxCustomerNameLength  = 100
	MaxEmailLength         = 254
	MaxAddressLength       = 500
	MaxLineItems           = 100
	MaxDescriptionLength   = 500
	MaxQuantity            = 1_000_000
	MaxUnitPrice           = 1_000_000
	MaxTax                 = 100_000_000
	MaxFilenameLength      = 255

	// DefaultMaxAttachments is the per-invoice attachment limit in this deployment.
	DefaultMaxAttachments = 1
	// DefaultMaxFileSize bounds the original size of one attachment.
	DefaultMaxFileSize = 10 << 20
	// DefaultMaxTotalSize bounds the encoded size of all attachments on one invoice.
	DefaultMaxTotalSize = 50 << 20
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Result is the outcome of a validation call. OK is true when Errors is empty.
type Result struct {
	OK     bool                `json:"ok"`
	Entity string              `json:"entity"`
	Errors []domain.FieldError `json:"errors,omitempty"`
}

// Err returns nil for a passing result and a *domain.ValidationError otherwise.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &domain.ValidationError{Entity: r.Entity, Errors: r.Errors}
}

func newResult(entity string, errs []domain.FieldError) Result {
	return Result{OK: len(errs) == 0, Entity: entity, Errors: errs}
}

// Validator is safe for concurrent use.
type Validator struct {
	structural     *validator.Validate
	now            func() time.Time
	maxAttachments int
	maxFileSize    int64
	maxTotalSize   int64
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock sets the clock the business-date window is measured from.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithMaxAttachments sets the per-invoice attachment limit.
func WithMaxAttachments(n int) Option {
	return func(v *Validator) { v.maxAttachments = n }
}

// WithAttachmentLimits sets the per-file size limit and the per-invoice encoded budget.
// Non-positive values keep the defaults.
func WithAttachmentLimits(maxFileSize, maxTotalSize int64) Option {
	return func(v *Validator) {
		if maxFileSize > 0 {
			v.maxFileSize = maxFileSize
		}
		if maxTotalSize > 0 {
			v.maxTotalSize = maxTotalSize
		}
	}
}

// New creates a Validator with the invoice tags registered.
func New(opts ...Option) *Validator {
	structural := validator.New(validator.WithRequiredStructEnabled())
	structural.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = structural.RegisterValidation("payment_status", func(fl validator.FieldLevel) bool {
		return domain.PaymentStatus(fl.Field().String()).Valid()
	})
	_ = structural.RegisterValidation("invoice_email", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || emailPattern.MatchString(s)
	})

	v := &Validator{
		structural:     structural,
		now:            time.Now,
		maxAttachments: DefaultMaxAttachments,
		maxFileSize:    DefaultMaxFileSize,
		maxTotalSize:   DefaultMaxTotalSize,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateForCreate fully validates a to-be-created invoice.
func (v *Validator) ValidateForCreate(in *domain.InvoiceInput) (res Result) {
	const entity = "invoice"
	defer recoverInto(entity, &res)
	if in == nil {
		return newResult(entity, []domain.FieldError{{Field: "invoice", Message: "is required"}})
	}

	errs := v.structuralErrors(in)
	if in.Date.IsZero() {
		errs = append(errs, domain.FieldError{Field: "date", Message: "is required"})
	} else {
		errs = append(errs, v.checkDateWindow(in.Date)...)
	}
	errs = append(errs, checkLineItems(in.LineItems, "lineItems")...)
	errs = append(errs, checkSubtotal(in.LineItems, in.Subtotal)...)
	errs = append(errs, checkTotal(in.Subtotal, in.Tax, in.Total)...)
	errs = append(errs, v.checkAttachments(in.Attachments)...)
	return newResult(entity, errs)
}

// ValidateForUpdate validates only the supplied fields of a patch. When total is supplied
// together with lineItems, subtotal or tax the derived amounts are re-checked over the
// supplied values.
func (v *Validator) ValidateForUpdate(p *domain.InvoicePatch) (res Result) {
	const entity = "invoice"
	defer recoverInto(entity, &res)
	if p == nil {
		return newResult(entity, nil)
	}

	errs := v.structuralErrors(p)
	if p.Date != nil {
		if p.Date.IsZero() {
			errs = append(errs, domain.FieldError{Field: "date", Message: "is required"})
		} else {
			errs = append(errs, v.checkDateWindow(*p.Date)...)
		}
	}
	if p.LineItems != nil {
		errs = append(errs, checkLineItems(*p.LineItems, "lineItems")...)
	}

	if p.Total != nil && (p.LineItems != nil || p.Subtotal != nil || p.Tax != nil) {
		subtotal := p.Subtotal
		if p.LineItems != nil {
			if subtotal != nil {
				errs = append(errs, checkSubtotal(*p.LineItems, *subtotal)...)
			} else {
				sum := sumLineTotals(*p.LineItems)
				subtotal = &sum
			}
		}
		if subtotal != nil && p.Tax != nil {
			errs = append(errs, checkTotal(*subtotal, *p.Tax, *p.Total)...)
		}
	}

	if p.Attachments.Replaces() {
		errs = append(errs, v.checkAttachments(p.Attachments.List())...)
	}
	return newResult(entity, errs)
}

// ValidateLineItem validates a single line item.
func (v *Validator) ValidateLineItem(item *domain.LineItem) (res Result) {
	const entity = "line item"
	defer recoverInto(entity, &res)
	if item == nil {
		return newResult(entity, []domain.FieldError{{Field: "lineItem", Message: "is required"}})
	}

	errs := v.structuralErrors(item)
	errs = append(errs, checkLineTotal(item, "")...)
	return newResult(entity, errs)
}

// ValidateDerived checks a complete, merged invoice for the cross-field rules a stored
// record must always satisfy.
func (v *Validator) ValidateDerived(inv *domain.Invoice) (res Result) {
	const entity = "invoice"
	defer recoverInto(entity, &res)
	if inv == nil {
		return newResult(entity, []domain.FieldError{{Field: "invoice", Message: "is required"}})
	}

	var errs []domain.FieldError
	errs = append(errs, checkLineItems(inv.LineItems, "lineItems")...)
	errs = append(errs, checkSubtotal(inv.LineItems, inv.Subtotal)...)
	errs = append(errs, checkTotal(inv.Subtotal, inv.Tax, inv.Total)...)
	errs = append(errs, v.checkAttachments(inv.Attachments)...)
	return newResult(entity, errs)
}

// recoverInto turns a panic inside a check into a failed result.
func recoverInto(entity string, res *Result) {
	if r := recover(); r != nil {
		*res = newResult(entity, []domain.FieldError{{Field: entity, Message: fmt.Sprintf("could not be validated: %v", r)}})
	}
}
