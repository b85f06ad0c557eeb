package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"invoicestore/internal/domain"
	"invoicestore/internal/persistence"
	"invoicestore/internal/port"
	"invoicestore/internal/storage/memory"
	"invoicestore/internal/validator"
)

var today = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// testClock returns a fixed time until advanced.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// countingStore counts writes on the wrapped store.
type countingStore struct {
	port.DocumentStore
	mu     sync.Mutex
	writes int
}

func (s *countingStore) Write(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.DocumentStore.Write(ctx, key, value)
}

func (s *countingStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type fixture struct {
	kv      *memory.Store
	store   *countingStore
	clock   *testClock
	invoice *InvoiceRepo
}

func newFixture(t *testing.T, maxAttachments int) *fixture {
	t.Helper()
	kv := memory.New(0)
	store := &countingStore{DocumentStore: persistence.New(kv, zerolog.Nop())}
	clock := &testClock{t: today}
	v := validator.New(validator.WithClock(clock.Now), validator.WithMaxAttachments(maxAttachments))

	seq := 0
	var seqMu sync.Mutex
	ids := func() string {
		seqMu.Lock()
		defer seqMu.Unlock()
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}

	return &fixture{
		kv:      kv,
		store:   store,
		clock:   clock,
		invoice: NewInvoiceRepo(store, v, zerolog.Nop(), WithClock(clock.Now), WithIDGenerator(ids)),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newInput(number, customer string, date time.Time, amount float64, status domain.PaymentStatus) domain.InvoiceInput {
	return domain.InvoiceInput{
		InvoiceNumber: number,
		Date:          date,
		CustomerName:  customer,
		LineItems: []domain.LineItem{
			{Description: "Service", Quantity: 1, UnitPrice: amount, Total: amount},
		},
		Subtotal:      amount,
		Tax:           0,
		Total:         amount,
		PaymentStatus: status,
	}
}

func ptr[T any](v T) *T { return &v }

func fieldNames(err *domain.ValidationError) []string {
	out := make([]string, len(err.Errors))
	for i, fe := range err.Errors {
		out[i] = fe.Field
	}
	return out
}
