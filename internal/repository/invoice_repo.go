// Package repository turns a key-value document store into the invoice data layer.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoicestore/internal/domain"
	"invoicestore/internal/port"
	"invoicestore/internal/validator"
)

// DefaultCollectionKey holds the whole invoice collection as a JSON array.
const DefaultCollectionKey = "invoices"

// InvoiceRepo is the only code that creates, changes or destroys invoices.
// Every call re-reads the collection, so changes made through other repositories
// sharing the store are visible immediately.
type InvoiceRepo struct {
	store     port.DocumentStore
	validator *validator.Validator
	key       string
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string

	// mu serialises read-modify-write cycles on the collection key.
	mu sync.Mutex
}

// InvoiceOption configures an InvoiceRepo.
type InvoiceOption func(*InvoiceRepo)

// WithCollectionKey overrides DefaultCollectionKey.
func WithCollectionKey(key string) InvoiceOption {
	return func(r *InvoiceRepo) { r.key = key }
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) InvoiceOption {
	return func(r *InvoiceRepo) { r.now = now }
}

// WithIDGenerator overrides how invoice and line item ids are generated.
func WithIDGenerator(newID func() string) InvoiceOption {
	return func(r *InvoiceRepo) { r.newID = newID }
}

// NewInvoiceRepo creates an InvoiceRepo.
func NewInvoiceRepo(store port.DocumentStore, v *validator.Validator, logger zerolog.Logger, opts ...InvoiceOption) *InvoiceRepo {
	r := &InvoiceRepo{
		store:     store,
		validator: v,
		key:       DefaultCollectionKey,
		logger:    logger.With().Str("component", "invoice_repository").Logger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ port.InvoiceRepository = (*InvoiceRepo)(nil)

// timestamp is the current time as stored: UTC with millisecond precision.
func (r *InvoiceRepo) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

// load reads the collection, normalising invoices stored without attachments.
// When any record needed normalising the collection is written back once.
func (r *InvoiceRepo) load(ctx context.Context) ([]domain.Invoice, error) {
	list, _, err := r.loadAndMigrate(ctx)
	return list, err
}

func (r *InvoiceRepo) loadAndMigrate(ctx context.Context) ([]domain.Invoice, bool, error) {
	list := []domain.Invoice{}
	raw, found, err := r.store.ReadRaw(ctx, r.key)
	if err != nil {
		return nil, false, err
	}
	if found {
		if list, err = r.decodeCollection(raw); err != nil {
			return nil, false, err
		}
	}

	migrated := 0
	for i := range list {
		if list[i].Attachments == nil {
			list[i].Attachments = []domain.FileAttachment{}
			migrated++
		}
	}
	if migrated == 0 {
		return list, false, nil
	}

	if err := r.store.Write(ctx, r.key, list); err != nil {
		return nil, false, fmt.Errorf("saving migrated collection: %w", err)
	}
	r.logger.Info().Int("invoices", migrated).Msg("normalised missing attachment lists")
	return list, true, nil
}

// decodeCollection decodes the stored array element by element. An invoice whose
// timestamps do not parse is kept with those timestamps zeroed, so date filters
// leave it out instead of the whole collection failing.
func (r *InvoiceRepo) decodeCollection(raw string) ([]domain.Invoice, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		r.logger.Error().Err(err).Str("key", r.key).Msg("stored collection failed to parse")
		return nil, &domain.DataCorruptionError{Key: r.key, Err: err}
	}

	list := make([]domain.Invoice, 0, len(elements))
	for i, el := range elements {
		inv, dropped, err := decodeInvoice(el, isTimeField)
		if err != nil {
			r.logger.Error().Err(err).Str("key", r.key).Int("index", i).Msg("stored invoice failed to parse")
			return nil, &domain.DataCorruptionError{Key: r.key, Err: fmt.Errorf("element %d: %w", i, err)}
		}
		if len(dropped) > 0 {
			r.logger.Warn().Str("invoice_id", inv.ID).Strs("fields", dropped).Msg("unparseable timestamps left empty")
		}
		list = append(list, inv)
	}
	return list, nil
}

func (r *InvoiceRepo) save(ctx context.Context, list []domain.Invoice) error {
	return r.store.Write(ctx, r.key, list)
}

func indexOf(list []domain.Invoice, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func numberTaken(list []domain.Invoice, number, exceptID string) bool {
	for i := range list {
		if list[i].InvoiceNumber == number && list[i].ID != exceptID {
			return true
		}
	}
	return false
}

// withLineItemIDs copies items, giving every item without an id a fresh one.
func (r *InvoiceRepo) withLineItemIDs(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = r.newID()
		}
	}
	return out
}

// Create validates input and appends a new invoice to the collection.
func (r *InvoiceRepo) Create(ctx context.Context, input domain.InvoiceInput) (*domain.Invoice, error) {
	if err := r.validator.ValidateForCreate(&input).Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if numberTaken(list, input.InvoiceNumber, "") {
		return nil, &domain.DuplicateInvoiceNumberError{InvoiceNumber: input.InvoiceNumber}
	}

	attachments := make([]domain.FileAttachment, len(input.Attachments))
	copy(attachments, input.Attachments)

	now := r.timestamp()
	inv := domain.Invoice{
		ID:              r.newID(),
		InvoiceNumber:   input.InvoiceNumber,
		Date:            input.Date.UTC(),
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		CustomerAddress: input.CustomerAddress,
		LineItems:       r.withLineItemIDs(input.LineItems),
		Subtotal:        input.Subtotal,
		Tax:             input.Tax,
		Total:           input.Total,
		PaymentStatus:   input.PaymentStatus,
		Attachments:     attachments,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := r.save(ctx, append(list, inv)); err != nil {
		return nil, err
	}
	r.logger.Info().Str("invoice_id", inv.ID).Str("invoice_number", inv.InvoiceNumber).Msg("invoice created")
	return &inv, nil
}

// Get returns the invoice with id, or nil when there is none.
func (r *InvoiceRepo) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(list, id)
	if i < 0 {
		return nil, nil
	}
	inv := list[i]
	return &inv, nil
}

// List returns the collection in insertion order.
func (r *InvoiceRepo) List(ctx context.Context) ([]domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Update merges patch over the stored invoice. id and createdAt never change,
// updatedAt always moves forward, and attachments are only replaced when the
// patch says so.
func (r *InvoiceRepo) Update(ctx context.Context, id string, patch domain.InvoicePatch) (*domain.Invoice, error) {
	if err := r.validator.ValidateForUpdate(&patch).Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(list, id)
	if i < 0 {
		return nil, &domain.InvoiceNotFoundError{ID: id}
	}
	if patch.InvoiceNumber != nil && numberTaken(list, *patch.InvoiceNumber, id) {
		return nil, &domain.DuplicateInvoiceNumberError{InvoiceNumber: *patch.InvoiceNumber}
	}

	merged := r.merge(list[i], &patch)
	if err := r.validator.ValidateDerived(&merged).Err(); err != nil {
		return nil, err
	}

	updatedAt := r.timestamp()
	if !updatedAt.After(list[i].UpdatedAt) {
		updatedAt = list[i].UpdatedAt.Add(time.Millisecond)
	}
	merged.UpdatedAt = updatedAt

	list[i] = merged
	if err := r.save(ctx, list); err != nil {
		return nil, err
	}
	r.logger.Info().Str("invoice_id", id).Msg("invoice updated")
	return &merged, nil
}

func (r *InvoiceRepo) merge(inv domain.Invoice, p *domain.InvoicePatch) domain.Invoice {
	if p.InvoiceNumber != nil {
		inv.InvoiceNumber = *p.InvoiceNumber
	}
	if p.Date != nil {
		inv.Date = p.Date.UTC()
	}
	if p.CustomerName != nil {
		inv.CustomerName = *p.CustomerName
	}
	if p.CustomerEmail != nil {
		inv.CustomerEmail = *p.CustomerEmail
	}
	if p.CustomerAddress != nil {
		inv.CustomerAddress = *p.CustomerAddress
	}
	if p.LineItems != nil {
		inv.LineItems = r.withLineItemIDs(*p.LineItems)
	}
	if p.Subtotal != nil {
		inv.Subtotal = *p.Subtotal
	}
	if p.Tax != nil {
		inv.Tax = *p.Tax
	}
	if p.Total != nil {
		inv.Total = *p.Total
	}
	if p.PaymentStatus != nil {
		inv.PaymentStatus = *p.PaymentStatus
	}
	if p.Attachments.Replaces() {
		list := p.Attachments.List()
		inv.Attachments = make([]domain.FileAttachment, len(list))
		copy(inv.Attachments, list)
	}
	return inv
}

// Delete removes the invoice with id.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return false, err
	}
	i := indexOf(list, id)
	if i < 0 {
		return false, &domain.InvoiceNotFoundError{ID: id}
	}

	list = append(list[:i], list[i+1:]...)
	if err := r.save(ctx, list); err != nil {
		return false, err
	}
	r.logger.Info().Str("invoice_id", id).Msg("invoice deleted")
	return true, nil
}

// Stats counts invoices and sums their totals per payment status.
func (r *InvoiceRepo) Stats(ctx context.Context) (*domain.InvoiceStats, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	byStatus := make(map[domain.PaymentStatus]decimal.Decimal, len(domain.PaymentStatuses))
	counts := make(map[domain.PaymentStatus]int, len(domain.PaymentStatuses))
	for _, s := range domain.PaymentStatuses {
		byStatus[s] = decimal.Zero
		counts[s] = 0
	}
	for i := range list {
		amount := decimal.NewFromFloat(list[i].Total)
		total = total.Add(amount)
		s := list[i].PaymentStatus
		byStatus[s] = byStatus[s].Add(amount)
		counts[s]++
	}

	stats := &domain.InvoiceStats{
		TotalCount:  len(list),
		TotalAmount: total.Round(2).InexactFloat64(),
		ByStatus:    make(map[domain.PaymentStatus]domain.StatusStats, len(byStatus)),
	}
	for s, amount := range byStatus {
		stats.ByStatus[s] = domain.StatusStats{Count: counts[s], Amount: amount.Round(2).InexactFloat64()}
	}
	return stats, nil
}

// Migrate runs the attachment-list normalisation and reports whether the collection was rewritten.
func (r *InvoiceRepo) Migrate(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, changed, err := r.loadAndMigrate(ctx)
	return changed, err
}
