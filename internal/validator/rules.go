package validator

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicestore/internal/domain"
)

// Tolerance is the largest difference allowed between a derived amount and its expected value.
var Tolerance = decimal.RequireFromString("0.01")

// Round2 rounds f to two decimal places.
func Round2(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

func approxEqual(a, b decimal.Decimal) bool {
	return a.Round(2).Sub(b.Round(2)).Abs().LessThanOrEqual(Tolerance)
}

func mismatch(field, rule string, expected, actual decimal.Decimal) domain.FieldError {
	return domain.FieldError{
		Field:   field,
		Message: fmt.Sprintf("must equal %s (expected %s, got %s)", rule, expected.StringFixed(2), actual.StringFixed(2)),
	}
}

// ExpectedLineTotal is quantity times unit price rounded to cents.
func ExpectedLineTotal(quantity, unitPrice float64) decimal.Decimal {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice)).Round(2)
}

func checkLineTotal(item *domain.LineItem, prefix string) []domain.FieldError {
	expected := ExpectedLineTotal(item.Quantity, item.UnitPrice)
	actual := decimal.NewFromFloat(item.Total)
	if approxEqual(expected, actual) {
		return nil
	}
	return []domain.FieldError{mismatch(prefix+"total", "quantity * unitPrice", expected, actual)}
}

// checkLineItems checks each item's total and that non-empty ids are unique.
func checkLineItems(items []domain.LineItem, path string) []domain.FieldError {
	var errs []domain.FieldError
	seen := make(map[string]int, len(items))
	for i := range items {
		prefix := fmt.Sprintf("%s.%d.", path, i)
		errs = append(errs, checkLineTotal(&items[i], prefix)...)

		id := items[i].ID
		if id == "" {
			continue
		}
		if first, dup := seen[id]; dup {
			errs = append(errs, domain.FieldError{
				Field:   prefix + "id",
				Message: fmt.Sprintf("duplicates the id of %s.%d", path, first),
			})
			continue
		}
		seen[id] = i
	}
	return errs
}

func sumLineTotals(items []domain.LineItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(Round2(item.Total))
	}
	return sum.Round(2).InexactFloat64()
}

func checkSubtotal(items []domain.LineItem, subtotal float64) []domain.FieldError {
	if len(items) == 0 {
		return nil
	}
	expected := decimal.NewFromFloat(sumLineTotals(items))
	actual := decimal.NewFromFloat(subtotal)
	if approxEqual(expected, actual) {
		return nil
	}
	return []domain.FieldError{mismatch("subtotal", "the sum of line item totals", expected, actual)}
}

func checkTotal(subtotal, tax, total float64) []domain.FieldError {
	expected := Round2(subtotal).Add(Round2(tax)).Round(2)
	actual := decimal.NewFromFloat(total)
	if approxEqual(expected, actual) {
		return nil
	}
	return []domain.FieldError{mismatch("total", "subtotal + tax", expected, actual)}
}

// checkDateWindow requires date to fall within one calendar year either side of today.
func (v *Validator) checkDateWindow(date time.Time) []domain.FieldError {
	now := v.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	earliest := today.AddDate(-1, 0, 0)
	latest := today.AddDate(1, 0, 1)

	d := date.UTC()
	if d.Before(earliest) || !d.Before(latest) {
		return []domain.FieldError{{
			Field:   "date",
			Message: fmt.Sprintf("must be between %s and %s", earliest.Format(time.DateOnly), latest.AddDate(0, 0, -1).Format(time.DateOnly)),
		}}
	}
	return nil
}

func (v *Validator) checkAttachments(list []domain.FileAttachment) []domain.FieldError {
	var errs []domain.FieldError
	var stored int64
	if len(list) > v.maxAttachments {
		errs = append(errs, domain.FieldError{
			Field:   "attachments",
			Message: fmt.Sprintf("must have at most %d item(s)", v.maxAttachments),
		})
	}
	for i := range list {
		a := &list[i]
		prefix := fmt.Sprintf("attachments.%d.", i)
		if a.Filename == "" {
			errs = append(errs, domain.FieldError{Field: prefix + "filename", Message: "is required"})
		} else if len(a.Filename) > MaxFilenameLength {
			errs = append(errs, domain.FieldError{Field: prefix + "filename", Message: fmt.Sprintf("must be at most %d characters", MaxFilenameLength)})
		}
		if a.Size <= 0 {
			errs = append(errs, domain.FieldError{Field: prefix + "size", Message: "must be greater than 0"})
		} else if a.Size > v.maxFileSize {
			errs = append(errs, domain.FieldError{Field: prefix + "size", Message: fmt.Sprintf("must be at most %d bytes", v.maxFileSize)})
		}
		if !domain.IsAllowedAttachmentType(a.Type) {
			errs = append(errs, domain.FieldError{Field: prefix + "type", Message: fmt.Sprintf("type %q is not allowed", a.Type)})
		}
		if n, ok := decodedLen(a.Data); !ok {
			errs = append(errs, domain.FieldError{Field: prefix + "data", Message: "must be base64 encoded"})
		} else if int64(n) > v.maxFileSize {
			errs = append(errs, domain.FieldError{Field: prefix + "data", Message: fmt.Sprintf("decodes to more than %d bytes", v.maxFileSize)})
		}
		stored += int64(len(a.Data))
	}
	if stored > v.maxTotalSize {
		errs = append(errs, domain.FieldError{
			Field:   "attachments",
			Message: fmt.Sprintf("encoded size %d bytes exceeds the %d byte budget", stored, v.maxTotalSize),
		})
	}
	return errs
}

// decodedLen reports the decoded length of base64 text, accepting a "data:<type>;base64," prefix.
func decodedLen(text string) (int, bool) {
	if strings.HasPrefix(text, "data:") {
		i := strings.Index(text, ";base64,")
		if i < 0 {
			return 0, false
		}
		text = text[i+len(";base64,"):]
	}
	n, err := base64.StdEncoding.Decode(make([]byte, base64.StdEncoding.DecodedLen(len(text))), []byte(text))
	if err != nil {
		return 0, false
	}
	return n, true
}
