package attachment

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/docker/go-units"
	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"

	"invoicestore/internal/config"
	"invoicestore/internal/domain"
)

var encodingOverhead = decimal.RequireFromString("1.33")

// EstimateStoredSize predicts the encoded size of n raw bytes as ceil(n * 1.33).
func EstimateStoredSize(n int64) int64 {
	return decimal.NewFromInt(n).Mul(encodingOverhead).Ceil().IntPart()
}

// QuotaCheck is the outcome of CheckQuota.
type QuotaCheck struct {
	WithinLimit bool  `json:"withinLimit"`
	CurrentSize int64 `json:"currentSize"`
	AddedSize   int64 `json:"addedSize"`
	MaxSize     int64 `json:"maxSize"`
}

// Err returns a *domain.StorageLimitError when the check failed.
func (q QuotaCheck) Err() error {
	if q.WithinLimit {
		return nil
	}
	return &domain.StorageLimitError{CurrentSize: q.CurrentSize, AddedSize: q.AddedSize, MaxSize: q.MaxSize}
}

// StoredSize is the encoded size an existing attachment occupies. Records saved
// without data fall back to the estimate for their original size.
func StoredSize(a *domain.FileAttachment) int64 {
	if a.Data == "" {
		return EstimateStoredSize(a.Size)
	}
	return a.StoredSize()
}

// CheckQuota adds the stored size of existing attachments to the estimated size of
// the candidates. The limit is inclusive.
func CheckQuota(existing []domain.FileAttachment, candidates []domain.FileUpload, maxTotalBytes int64) QuotaCheck {
	var current, added int64
	for i := range existing {
		current += StoredSize(&existing[i])
	}
	for _, c := range candidates {
		added += EstimateStoredSize(c.Size)
	}
	return QuotaCheck{
		WithinLimit: current+added <= maxTotalBytes,
		CurrentSize: current,
		AddedSize:   added,
		MaxSize:     maxTotalBytes,
	}
}

// Policy holds the attachment limits of one deployment.
type Policy struct {
	MaxFileSize  int64
	MaxTotalSize int64
	MaxFiles     int
}

// NewPolicy reads limits from configuration.
func NewPolicy(cfg config.AttachmentConfig) Policy {
	return Policy{
		MaxFileSize:  cfg.MaxFileSizeBytes(),
		MaxTotalSize: cfg.MaxTotalSizeBytes(),
		MaxFiles:     cfg.MaxFiles,
	}
}

func fileError(field, format string, args ...any) error {
	return domain.NewValidationError("attachment", field, fmt.Sprintf(format, args...))
}

// ValidateSize checks the filename and declared size of f.
func (p Policy) ValidateSize(f *domain.FileUpload) error {
	if strings.TrimSpace(f.Filename) == "" {
		return fileError("filename", "is required")
	}
	if len(f.Filename) > maxFilenameBytes {
		return fileError("filename", "must be at most %d characters", maxFilenameBytes)
	}
	if f.Size <= 0 {
		return fileError("size", "file %q is empty", f.Filename)
	}
	if f.Size > p.MaxFileSize {
		return fileError("size", "file %q is %s, maximum is %s",
			f.Filename, units.BytesSize(float64(f.Size)), units.BytesSize(float64(p.MaxFileSize)))
	}
	return nil
}

// ValidateType checks the MIME type of f against the allow-list.
func (p Policy) ValidateType(f *domain.FileUpload) error {
	if !domain.IsAllowedAttachmentType(f.Type) {
		return fileError("type", "file %q has type %q, which is not allowed", f.Filename, f.Type)
	}
	return nil
}

// ValidateFile runs the size and type gates.
func (p Policy) ValidateFile(f *domain.FileUpload) error {
	if err := p.ValidateSize(f); err != nil {
		return err
	}
	return p.ValidateType(f)
}

// ReadContent reads the content of f, refusing to read past the per-file limit.
// Size is corrected to the number of bytes actually read and an empty Type is
// filled in by sniffing the content.
func (p Policy) ReadContent(f *domain.FileUpload) ([]byte, error) {
	if f.Content == nil {
		return nil, fileError("content", "file %q has no content", f.Filename)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(f.Content, p.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", f.Filename, err)
	}
	if n > p.MaxFileSize {
		return nil, fileError("size", "file %q exceeds the maximum of %s", f.Filename, units.BytesSize(float64(p.MaxFileSize)))
	}
	if n == 0 {
		return nil, fileError("size", "file %q is empty", f.Filename)
	}
	f.Size = n
	if f.Type == "" {
		f.Type = DetectType(buf.Bytes())
	}
	return buf.Bytes(), nil
}

// DetectType sniffs the MIME type of data, without parameters such as charset.
func DetectType(data []byte) string {
	mt := mimetype.Detect(data).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(mt)
}
