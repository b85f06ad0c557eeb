package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"invoicestore/internal/domain"
	"invoicestore/internal/port"
	"invoicestore/internal/repository"
)

// listQuery is the parsed form of the invoice list query string:
// status (repeated or comma separated), from and to (YYYY-MM-DD), q, sort and order.
type listQuery struct {
	criteria domain.FilterCriteria
	search   string
	sortBy   domain.SortField
	order    domain.SortOrder
	sorted   bool
}

func parseListQuery(c *gin.Context) (*listQuery, error) {
	q := &listQuery{search: c.Query("q")}
	var errs []domain.FieldError

	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			status := domain.PaymentStatus(s)
			if !status.Valid() {
				errs = append(errs, domain.FieldError{Field: "status", Message: fmt.Sprintf("unknown payment status %q", s)})
				continue
			}
			q.criteria.Statuses = append(q.criteria.Statuses, status)
		}
	}

	from, fromErr := parseDay(c.Query("from"))
	if fromErr != nil {
		errs = append(errs, domain.FieldError{Field: "from", Message: fromErr.Error()})
	}
	to, toErr := parseDay(c.Query("to"))
	if toErr != nil {
		errs = append(errs, domain.FieldError{Field: "to", Message: toErr.Error()})
	}
	if !from.IsZero() || !to.IsZero() {
		q.criteria.DateRange = &domain.DateRange{Start: from, End: to}
	}

	sortBy, order := c.Query("sort"), c.Query("order")
	if sortBy != "" || order != "" {
		q.sorted = true
		q.sortBy, q.order = domain.SortByDate, domain.SortDesc
		if sortBy != "" {
			q.sortBy = domain.SortField(sortBy)
		}
		if order != "" {
			q.order = domain.SortOrder(strings.ToLower(order))
		}
		if !q.sortBy.Valid() {
			errs = append(errs, domain.FieldError{Field: "sort", Message: fmt.Sprintf("unknown sort field %q", sortBy)})
		}
		if !q.order.Valid() {
			errs = append(errs, domain.FieldError{Field: "order", Message: fmt.Sprintf("unknown sort order %q", order)})
		}
	}

	if len(errs) > 0 {
		return nil, &domain.ValidationError{Entity: "query", Errors: errs}
	}
	return q, nil
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// run applies the query: filter through the repository, then search and sort in memory.
func (q *listQuery) run(ctx context.Context, invoices port.InvoiceRepository) ([]domain.Invoice, error) {
	list, err := invoices.Filter(ctx, q.criteria)
	if err != nil {
		return nil, err
	}
	list = repository.SearchInvoices(list, q.search)
	if q.sorted {
		repository.SortInvoices(list, q.sortBy, q.order)
	}
	return list, nil
}
