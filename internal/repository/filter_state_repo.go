package repository

import (
	"context"
	"fmt"

	"invoicestore/internal/domain"
	"invoicestore/internal/port"
)

// DefaultFilterStateKey holds the filter panel state.
const DefaultFilterStateKey = "invoice_filters"

// FilterStateRepo persists the filter panel state under its own key.
type FilterStateRepo struct {
	store port.DocumentStore
	key   string
}

// NewFilterStateRepo creates a FilterStateRepo. An empty key uses DefaultFilterStateKey.
func NewFilterStateRepo(store port.DocumentStore, key string) *FilterStateRepo {
	if key == "" {
		key = DefaultFilterStateKey
	}
	return &FilterStateRepo{store: store, key: key}
}

var _ port.FilterStateRepository = (*FilterStateRepo)(nil)

// DefaultFilterState is what the filter panel shows before anything is saved.
func DefaultFilterState() domain.FilterState {
	return domain.FilterState{
		Statuses:  []domain.PaymentStatus{},
		SortBy:    domain.SortByDate,
		SortOrder: domain.SortDesc,
	}
}

func (r *FilterStateRepo) Load(ctx context.Context) (*domain.FilterState, error) {
	state := DefaultFilterState()
	if _, err := r.store.Read(ctx, r.key, &state); err != nil {
		return nil, err
	}
	if state.Statuses == nil {
		state.Statuses = []domain.PaymentStatus{}
	}
	return &state, nil
}

func (r *FilterStateRepo) Save(ctx context.Context, state domain.FilterState) error {
	var errs []domain.FieldError
	if !state.SortBy.Valid() {
		errs = append(errs, domain.FieldError{Field: "sortBy", Message: fmt.Sprintf("unknown sort field %q", state.SortBy)})
	}
	if !state.SortOrder.Valid() {
		errs = append(errs, domain.FieldError{Field: "sortOrder", Message: fmt.Sprintf("unknown sort order %q", state.SortOrder)})
	}
	for i, s := range state.Statuses {
		if !s.Valid() {
			errs = append(errs, domain.FieldError{Field: fmt.Sprintf("statuses.%d", i), Message: fmt.Sprintf("unknown payment status %q", s)})
		}
	}
	if dr := state.DateRange; dr != nil && !dr.Start.IsZero() && !dr.End.IsZero() && StartOfDay(dr.Start).After(EndOfDay(dr.End)) {
		errs = append(errs, domain.FieldError{Field: "dateRange", Message: "start must not be after end"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Entity: "filter state", Errors: errs}
	}
	if state.Statuses == nil {
		state.Statuses = []domain.PaymentStatus{}
	}
	return r.store.Write(ctx, r.key, state)
}

func (r *FilterStateRepo) Clear(ctx context.Context) error {
	return r.store.Remove(ctx, r.key)
}
