package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"invoicestore/internal/domain"
)

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// structuralErrors runs the struct tags on s and converts failures to field errors.
func (v *Validator) structuralErrors(s any) []domain.FieldError {
	err := v.structural.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []domain.FieldError{{Field: "invoice", Message: err.Error()}}
	}
	out := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, domain.FieldError{Field: fieldPath(fe.Namespace()), Message: message(fe)})
	}
	return out
}

// fieldPath turns "InvoiceInput.lineItems[0].total" into "lineItems.0.total".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	return indexPattern.ReplaceAllString(namespace, ".$1")
}

func message(fe validator.FieldError) string {
	kind := fe.Kind()
	if kind == reflect.Ptr {
		kind = fe.Type().Elem().Kind()
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if kind == reflect.Slice {
			return fmt.Sprintf("must have at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		switch kind {
		case reflect.Slice:
			return fmt.Sprintf("must have at most %s items", fe.Param())
		case reflect.String:
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "payment_status":
		names := make([]string, len(domain.PaymentStatuses))
		for i, s := range domain.PaymentStatuses {
			names[i] = string(s)
		}
		return "must be one of " + strings.Join(names, ", ")
	case "invoice_email":
		return "must be a valid email address"
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}
