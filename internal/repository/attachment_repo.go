package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"invoicestore/internal/attachment"
	"invoicestore/internal/domain"
	"invoicestore/internal/port"
)

// AttachmentRepo manages the attachment list embedded in each invoice. It checks
// limits before doing any encoding work and saves through the invoice repository.
type AttachmentRepo struct {
	invoices    port.InvoiceRepository
	policy      attachment.Policy
	encoder     attachment.Encoder
	concurrency int
	logger      zerolog.Logger
	now         func() time.Time
	newID       func() string

	mu sync.Mutex
}

// AttachmentOption configures an AttachmentRepo.
type AttachmentOption func(*AttachmentRepo)

// WithEncoder overrides the default chunked encoder.
func WithEncoder(e attachment.Encoder) AttachmentOption {
	return func(r *AttachmentRepo) { r.encoder = e }
}

// WithEncodeConcurrency bounds how many files UploadMany encodes at once.
func WithEncodeConcurrency(n int) AttachmentOption {
	return func(r *AttachmentRepo) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithAttachmentClock overrides the clock used for uploadedAt.
func WithAttachmentClock(now func() time.Time) AttachmentOption {
	return func(r *AttachmentRepo) { r.now = now }
}

// WithAttachmentIDGenerator overrides how attachment ids are generated.
func WithAttachmentIDGenerator(newID func() string) AttachmentOption {
	return func(r *AttachmentRepo) { r.newID = newID }
}

// NewAttachmentRepo creates an AttachmentRepo.
func NewAttachmentRepo(invoices port.InvoiceRepository, policy attachment.Policy, logger zerolog.Logger, opts ...AttachmentOption) *AttachmentRepo {
	r := &AttachmentRepo{
		invoices:    invoices,
		policy:      policy,
		encoder:     attachment.Encoder{ChunkSize: attachment.DefaultChunkSize},
		concurrency: 4,
		logger:      logger.With().Str("component", "attachment_repository").Logger(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ port.AttachmentRepository = (*AttachmentRepo)(nil)

func (r *AttachmentRepo) invoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	inv, err := r.invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, &domain.InvoiceNotFoundError{ID: invoiceID}
	}
	return inv, nil
}

// checkLimits enforces the count and storage budget for adding candidates to inv.
func (r *AttachmentRepo) checkLimits(inv *domain.Invoice, candidates []domain.FileUpload) error {
	if len(inv.Attachments)+len(candidates) > r.policy.MaxFiles {
		return &domain.FileAttachmentError{InvoiceID: inv.ID, Limit: r.policy.MaxFiles, Requested: len(candidates)}
	}
	return attachment.CheckQuota(inv.Attachments, candidates, r.policy.MaxTotalSize).Err()
}

func (r *AttachmentRepo) save(ctx context.Context, invoiceID string, list []domain.FileAttachment) error {
	_, err := r.invoices.Update(ctx, invoiceID, domain.InvoicePatch{Attachments: domain.ReplaceAttachments(list)})
	return err
}

// prepare runs the per-file gates, reads and encodes file into an attachment record.
func (r *AttachmentRepo) prepare(ctx context.Context, file domain.FileUpload, progress domain.ProgressFunc) (*domain.FileAttachment, error) {
	if err := r.policy.ValidateSize(&file); err != nil {
		return nil, err
	}
	data, err := r.policy.ReadContent(&file)
	if err != nil {
		return nil, err
	}
	if err := r.policy.ValidateType(&file); err != nil {
		return nil, err
	}

	encoded, err := r.encoder.Encode(ctx, data, progress)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", file.Filename, err)
	}
	return &domain.FileAttachment{
		ID:         r.newID(),
		Filename:   file.Filename,
		Size:       file.Size,
		Type:       file.Type,
		Data:       encoded,
		UploadedAt: r.now().UTC().Truncate(time.Millisecond),
	}, nil
}

// Upload attaches one file. Count and storage limits are checked before the file is read.
func (r *AttachmentRepo) Upload(ctx context.Context, invoiceID string, file domain.FileUpload, progress domain.ProgressFunc) (*domain.FileAttachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, err := r.invoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := r.checkLimits(inv, []domain.FileUpload{file}); err != nil {
		return nil, err
	}

	att, err := r.prepare(ctx, file, progress)
	if err != nil {
		return nil, err
	}
	// the declared size may have been wrong; check the budget against what was read
	if err := attachment.CheckQuota(inv.Attachments, []domain.FileUpload{{Size: att.Size}}, r.policy.MaxTotalSize).Err(); err != nil {
		return nil, err
	}

	list := append(append([]domain.FileAttachment{}, inv.Attachments...), *att)
	if err := r.save(ctx, invoiceID, list); err != nil {
		return nil, err
	}
	r.logger.Info().Str("invoice_id", invoiceID).Str("attachment_id", att.ID).
		Str("type", att.Type).Int64("size", att.Size).Msg("attachment uploaded")
	return att, nil
}

// UploadMany attaches several files with one write. Count and storage limits are
// checked for the whole batch first, so a batch that would overflow is rejected
// without attaching anything. Files that then fail their own checks are reported
// in Failed and the rest are attached.
func (r *AttachmentRepo) UploadMany(ctx context.Context, invoiceID string, files []domain.FileUpload) (*domain.BatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := &domain.BatchResult{Successful: []domain.FileAttachment{}, Failed: []domain.FailedUpload{}}
	inv, err := r.invoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return result, nil
	}
	if err := r.checkLimits(inv, files); err != nil {
		return nil, err
	}

	prepared := make([]*domain.FileAttachment, len(files))
	failures := make([]error, len(files))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range files {
		g.Go(func() error {
			prepared[i], failures[i] = r.prepare(ctx, files[i], nil)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range files {
		if failures[i] != nil {
			result.Failed = append(result.Failed, domain.FailedUpload{
				Filename: files[i].Filename,
				Err:      failures[i],
				Message:  failures[i].Error(),
			})
			continue
		}
		result.Successful = append(result.Successful, *prepared[i])
	}
	if len(result.Successful) == 0 {
		return result, nil
	}
	read := make([]domain.FileUpload, len(result.Successful))
	for i, a := range result.Successful {
		read[i] = domain.FileUpload{Size: a.Size}
	}
	if err := attachment.CheckQuota(inv.Attachments, read, r.policy.MaxTotalSize).Err(); err != nil {
		return nil, err
	}

	list := append(append([]domain.FileAttachment{}, inv.Attachments...), result.Successful...)
	if err := r.save(ctx, invoiceID, list); err != nil {
		return nil, err
	}
	r.logger.Info().Str("invoice_id", invoiceID).Int("successful", len(result.Successful)).
		Int("failed", len(result.Failed)).Msg("attachments uploaded")
	return result, nil
}

// Get returns one attachment of an invoice.
func (r *AttachmentRepo) Get(ctx context.Context, invoiceID, attachmentID string) (*domain.FileAttachment, error) {
	inv, err := r.invoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	for i := range inv.Attachments {
		if inv.Attachments[i].ID == attachmentID {
			a := inv.Attachments[i]
			return &a, nil
		}
	}
	return nil, &domain.FileNotFoundError{InvoiceID: invoiceID, AttachmentID: attachmentID}
}

// List returns the attachments of an invoice.
func (r *AttachmentRepo) List(ctx context.Context, invoiceID string) ([]domain.FileAttachment, error) {
	inv, err := r.invoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Attachments == nil {
		return []domain.FileAttachment{}, nil
	}
	return inv.Attachments, nil
}

// Delete removes one attachment.
func (r *AttachmentRepo) Delete(ctx context.Context, invoiceID, attachmentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, err := r.invoice(ctx, invoiceID)
	if err != nil {
		return false, err
	}
	kept, removed := without(inv.Attachments, map[string]bool{attachmentID: true})
	if removed == 0 {
		return false, &domain.FileNotFoundError{InvoiceID: invoiceID, AttachmentID: attachmentID}
	}
	if err := r.save(ctx, invoiceID, kept); err != nil {
		return false, err
	}
	r.logger.Info().Str("invoice_id", invoiceID).Str("attachment_id", attachmentID).Msg("attachment deleted")
	return true, nil
}

// BulkDelete removes every listed attachment with a single write and returns how
// many were removed. Ids not on the invoice are ignored.
func (r *AttachmentRepo) BulkDelete(ctx context.Context, invoiceID string, attachmentIDs []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, err := r.invoice(ctx, invoiceID)
	if err != nil {
		return 0, err
	}
	ids := make(map[string]bool, len(attachmentIDs))
	for _, id := range attachmentIDs {
		ids[id] = true
	}
	kept, removed := without(inv.Attachments, ids)
	if removed == 0 {
		return 0, nil
	}
	if err := r.save(ctx, invoiceID, kept); err != nil {
		return 0, err
	}
	r.logger.Info().Str("invoice_id", invoiceID).Int("removed", removed).Msg("attachments deleted")
	return removed, nil
}

func without(list []domain.FileAttachment, ids map[string]bool) ([]domain.FileAttachment, int) {
	kept := make([]domain.FileAttachment, 0, len(list))
	for _, a := range list {
		if !ids[a.ID] {
			kept = append(kept, a)
		}
	}
	return kept, len(list) - len(kept)
}

// Download decodes a and hands it to sink under a sanitised filename.
func (r *AttachmentRepo) Download(ctx context.Context, a *domain.FileAttachment, sink port.DownloadSink) error {
	if a == nil {
		return domain.NewValidationError("attachment", "attachment", "is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	blob, err := attachment.Decode(a.Data, a.Type)
	if err != nil {
		return &domain.DataCorruptionError{Key: a.ID, Err: err}
	}
	return sink.Save(attachment.SanitizeFilename(a.Filename), blob.Type, blob.Data)
}

// Stats describes the attachments of an invoice against the configured limits.
func (r *AttachmentRepo) Stats(ctx context.Context, invoiceID string) (*domain.AttachmentStats, error) {
	inv, err := r.invoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	stats := &domain.AttachmentStats{
		Count:        len(inv.Attachments),
		ByType:       make(map[string]int),
		MaxFiles:     r.policy.MaxFiles,
		MaxTotalSize: r.policy.MaxTotalSize,
	}
	for i := range inv.Attachments {
		a := &inv.Attachments[i]
		stats.TotalSize += a.Size
		stats.StoredSize += attachment.StoredSize(a)
		stats.ByType[a.Type]++
	}
	stats.RemainingSlots = max(r.policy.MaxFiles-stats.Count, 0)
	if r.policy.MaxTotalSize > 0 {
		stats.UsagePercent = decimal.NewFromInt(stats.StoredSize * 100).
			Div(decimal.NewFromInt(r.policy.MaxTotalSize)).Round(2).InexactFloat64()
	}
	return stats, nil
}
