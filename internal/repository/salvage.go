package repository

import (
	"context"
	"encoding/json"

	"invoicestore/internal/domain"
)

// SalvageReport says what Salvage recovered.
type SalvageReport struct {
	Kept     int  `json:"kept"`
	Repaired int  `json:"repaired"`
	Dropped  int  `json:"dropped"`
	Reset    bool `json:"reset"`
}

// Salvage rewrites a damaged collection. Every object that carries an id is kept,
// with fields that cannot be read removed (counted as Repaired); anything else is
// dropped. When the stored text is not a JSON array at all the collection is reset
// to empty.
func (r *InvoiceRepo) Salvage(ctx context.Context) (SalvageReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var report SalvageReport
	raw, found, err := r.store.ReadRaw(ctx, r.key)
	if err != nil || !found {
		return report, err
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		r.logger.Warn().Err(err).Msg("collection unreadable, resetting to empty")
		report.Reset = true
		return report, r.save(ctx, []domain.Invoice{})
	}

	kept := make([]domain.Invoice, 0, len(elements))
	for _, el := range elements {
		inv, dropped, err := decodeInvoice(el, func(name string) bool { return name != "id" })
		if err != nil || inv.ID == "" {
			report.Dropped++
			continue
		}
		if len(dropped) > 0 {
			report.Repaired++
			r.logger.Warn().Str("invoice_id", inv.ID).Strs("fields", dropped).Msg("unreadable fields removed")
		}
		if inv.Attachments == nil {
			inv.Attachments = []domain.FileAttachment{}
		}
		kept = append(kept, inv)
	}
	report.Kept = len(kept)

	if err := r.save(ctx, kept); err != nil {
		return report, err
	}
	r.logger.Info().Int("kept", report.Kept).Int("dropped", report.Dropped).Msg("collection salvaged")
	return report, nil
}
