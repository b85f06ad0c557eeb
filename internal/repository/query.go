package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"invoicestore/internal/domain"
)

// Filter returns the invoices matching criteria. Invoices with a zero date or an
// unknown status are left out when the matching criterion is set. If filtering
// itself fails the whole collection is returned and a warning is logged.
func (r *InvoiceRepo) Filter(ctx context.Context, criteria domain.FilterCriteria) ([]domain.Invoice, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	filtered, err := filterInvoices(list, criteria)
	if err != nil {
		r.logger.Warn().Err(err).Msg("filter failed, returning unfiltered collection")
		return list, nil
	}
	return filtered, nil
}

func filterInvoices(list []domain.Invoice, criteria domain.FilterCriteria) (out []domain.Invoice, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("filter panicked: %v", rec)
		}
	}()

	var start, end time.Time
	if dr := criteria.DateRange; dr != nil {
		if !dr.Start.IsZero() {
			start = StartOfDay(dr.Start)
		}
		if !dr.End.IsZero() {
			end = EndOfDay(dr.End)
		}
		if !start.IsZero() && !end.IsZero() && start.After(end) {
			return nil, fmt.Errorf("date range starts %s after it ends %s",
				start.Format(time.DateOnly), end.Format(time.DateOnly))
		}
	}

	statuses := make(map[domain.PaymentStatus]bool, len(criteria.Statuses))
	for _, s := range criteria.Statuses {
		statuses[s] = true
	}

	out = make([]domain.Invoice, 0, len(list))
	for i := range list {
		inv := &list[i]
		if criteria.DateRange != nil {
			if inv.Date.IsZero() {
				continue
			}
			if !start.IsZero() && inv.Date.Before(start) {
				continue
			}
			if !end.IsZero() && inv.Date.After(end) {
				continue
			}
		}
		if len(statuses) > 0 && (!inv.PaymentStatus.Valid() || !statuses[inv.PaymentStatus]) {
			continue
		}
		out = append(out, *inv)
	}
	return out, nil
}

// StartOfDay returns 00:00:00.000 on t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 on t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// Sort returns the collection ordered by the given field. Equal keys keep their
// collection order. An empty field sorts by date and an empty order is descending.
func (r *InvoiceRepo) Sort(ctx context.Context, by domain.SortField, order domain.SortOrder) ([]domain.Invoice, error) {
	if by == "" {
		by = domain.SortByDate
	}
	if order == "" {
		order = domain.SortDesc
	}
	if !by.Valid() {
		return nil, domain.NewValidationError("sort", "sortBy", fmt.Sprintf("unknown sort field %q", by))
	}
	if !order.Valid() {
		return nil, domain.NewValidationError("sort", "sortOrder", fmt.Sprintf("unknown sort order %q", order))
	}

	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	SortInvoices(list, by, order)
	return list, nil
}

// SortInvoices sorts list in place with a stable sort.
func SortInvoices(list []domain.Invoice, by domain.SortField, order domain.SortOrder) {
	compare := comparator(by)
	sort.SliceStable(list, func(i, j int) bool {
		if order == domain.SortDesc {
			return compare(&list[j], &list[i]) < 0
		}
		return compare(&list[i], &list[j]) < 0
	})
}

func comparator(by domain.SortField) func(a, b *domain.Invoice) int {
	switch by {
	case domain.SortByInvoiceNumber:
		c := collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
		return func(a, b *domain.Invoice) int { return c.CompareString(a.InvoiceNumber, b.InvoiceNumber) }
	case domain.SortByCustomerName:
		c := collate.New(language.Und, collate.IgnoreCase)
		return func(a, b *domain.Invoice) int { return c.CompareString(a.CustomerName, b.CustomerName) }
	case domain.SortByTotal:
		return func(a, b *domain.Invoice) int {
			switch {
			case a.Total < b.Total:
				return -1
			case a.Total > b.Total:
				return 1
			}
			return 0
		}
	default:
		return func(a, b *domain.Invoice) int { return a.Date.Compare(b.Date) }
	}
}

// Search returns invoices whose number, customer name, email or any line item
// description contains term, ignoring case. A blank term returns everything.
func (r *InvoiceRepo) Search(ctx context.Context, term string) ([]domain.Invoice, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return SearchInvoices(list, term), nil
}

// SearchInvoices filters list by term without touching storage.
func SearchInvoices(list []domain.Invoice, term string) []domain.Invoice {
	term = strings.TrimSpace(term)
	if term == "" {
		return list
	}

	fold := cases.Fold()
	needle := fold.String(term)
	contains := func(s string) bool { return s != "" && strings.Contains(fold.String(s), needle) }

	out := make([]domain.Invoice, 0, len(list))
	for i := range list {
		inv := &list[i]
		if contains(inv.InvoiceNumber) || contains(inv.CustomerName) || contains(inv.CustomerEmail) || anyDescription(inv, contains) {
			out = append(out, *inv)
		}
	}
	return out
}

func anyDescription(inv *domain.Invoice, match func(string) bool) bool {
	for _, item := range inv.LineItems {
		if match(item.Description) {
			return true
		}
	}
	return false
}
