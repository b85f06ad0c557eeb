package attachment

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicestore/internal/config"
	"invoicestore/internal/domain"
)

func TestEstimateStoredSize(t *testing.T) {
	tests := []struct {
		in, want int64
	}{
		{0, 0},
		{1, 2},
		{100, 133},
		{101, 135},
		{1000, 1330},
		{10 * 1024 * 1024, 13946061},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateStoredSize(tt.in), "n=%d", tt.in)
	}
}

func TestCheckQuota_Boundary(t *testing.T) {
	existing := []domain.FileAttachment{{Data: strings.Repeat("A", 67)}}
	candidates := []domain.FileUpload{{Size: 100}}

	exact := CheckQuota(existing, candidates, 200)
	assert.True(t, exact.WithinLimit)
	assert.Equal(t, QuotaCheck{WithinLimit: true, CurrentSize: 67, AddedSize: 133, MaxSize: 200}, exact)
	assert.NoError(t, exact.Err())

	over := CheckQuota(existing, candidates, 199)
	assert.False(t, over.WithinLimit)
	err := over.Err()
	assert.True(t, errors.Is(err, domain.ErrStorageLimit))
	var limitErr *domain.StorageLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, int64(199), limitErr.MaxSize)
}

func TestCheckQuota_SumsEveryCandidate(t *testing.T) {
	q := CheckQuota(nil, []domain.FileUpload{{Size: 100}, {Size: 100}, {Size: 1}}, 1000)
	assert.Equal(t, int64(268), q.AddedSize)
	assert.Equal(t, int64(0), q.CurrentSize)
}

func TestStoredSize_FallsBackToEstimate(t *testing.T) {
	assert.Equal(t, int64(133), StoredSize(&domain.FileAttachment{Size: 100}))
	assert.Equal(t, int64(4), StoredSize(&domain.FileAttachment{Size: 100, Data: "AAAA"}))
}

func testPolicy() Policy {
	return NewPolicy(config.NewAttachmentConfig(1024, 4096, 1))
}

func TestPolicy_ValidateFile(t *testing.T) {
	tests := []struct {
		name  string
		file  domain.FileUpload
		field string
	}{
		{"ok", domain.FileUpload{Filename: "a.pdf", Type: domain.MimePDF, Size: 1024}, ""},
		{"too big", domain.FileUpload{Filename: "a.pdf", Type: domain.MimePDF, Size: 1025}, "size"},
		{"empty", domain.FileUpload{Filename: "a.pdf", Type: domain.MimePDF, Size: 0}, "size"},
		{"bad type", domain.FileUpload{Filename: "a.exe", Type: "application/x-msdownload", Size: 10}, "type"},
		{"no name", domain.FileUpload{Type: domain.MimePDF, Size: 10}, "filename"},
	}
	p := testPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.ValidateFile(&tt.file)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "attachment", verr.Entity)
			assert.Equal(t, tt.field, verr.Errors[0].Field)
		})
	}
}

func TestPolicy_ReadContent_SniffsType(t *testing.T) {
	f := domain.FileUpload{Filename: "scan", Size: 999, Content: strings.NewReader("%PDF-1.4\n%âãÏÓ\n1 0 obj\n")}
	data, err := testPolicy().ReadContent(&f)
	require.NoError(t, err)
	assert.Equal(t, domain.MimePDF, f.Type)
	assert.Equal(t, int64(len(data)), f.Size)
}

func TestPolicy_ReadContent_KeepsDeclaredType(t *testing.T) {
	f := domain.FileUpload{Filename: "notes.txt", Type: domain.MimeText, Size: 5, Content: strings.NewReader("hello")}
	_, err := testPolicy().ReadContent(&f)
	require.NoError(t, err)
	assert.Equal(t, domain.MimeText, f.Type)
}

func TestPolicy_ReadContent_StopsAtLimit(t *testing.T) {
	f := domain.FileUpload{Filename: "big.txt", Size: 10, Content: strings.NewReader(strings.Repeat("x", 2000))}
	_, err := testPolicy().ReadContent(&f)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "size", verr.Errors[0].Field)
}

func TestDetectType_StripsParameters(t *testing.T) {
	assert.Equal(t, domain.MimeText, DetectType([]byte("plain words")))
	assert.Equal(t, domain.MimePNG, DetectType([]byte("\x89PNG\r\n\x1a\n0000")))
}
