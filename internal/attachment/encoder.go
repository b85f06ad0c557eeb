// Package attachment encodes attachment bytes for inline storage and accounts for
// the storage they will take up.
package attachment

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"invoicestore/internal/domain"
)

// DefaultChunkSize is the number of raw bytes encoded between progress reports.
const DefaultChunkSize = 3 * 64 * 1024

// Encoder turns bytes into base64 text in chunks so progress can be reported and
// a cancelled context stops the work.
type Encoder struct {
	// ChunkSize is rounded down to a multiple of 3 so chunks encode without padding.
	ChunkSize int
}

var defaultEncoder = Encoder{ChunkSize: DefaultChunkSize}

// Encode encodes data with the default chunk size.
func Encode(ctx context.Context, data []byte, progress domain.ProgressFunc) (string, error) {
	return defaultEncoder.Encode(ctx, data, progress)
}

// Encode base64-encodes data, calling progress after every chunk.
func (e Encoder) Encode(ctx context.Context, data []byte, progress domain.ProgressFunc) (string, error) {
	chunk := e.ChunkSize - e.ChunkSize%3
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	total := int64(len(data))

	var sb strings.Builder
	sb.Grow(base64.StdEncoding.EncodedLen(len(data)))
	buf := make([]byte, base64.StdEncoding.EncodedLen(min(chunk, len(data))))

	for off := 0; off < len(data); off += chunk {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		end := min(off+chunk, len(data))
		n := base64.StdEncoding.EncodedLen(end - off)
		base64.StdEncoding.Encode(buf[:n], data[off:end])
		sb.Write(buf[:n])
		report(progress, int64(end), total)
	}
	if total == 0 {
		report(progress, 0, 0)
	}
	return sb.String(), nil
}

func report(progress domain.ProgressFunc, loaded, total int64) {
	if progress == nil {
		return
	}
	pct := 100.0
	if total > 0 {
		pct = float64(loaded*100) / float64(total)
	}
	progress(domain.Progress{Loaded: loaded, Total: total, Percentage: pct})
}

// Blob is decoded attachment content tagged with its MIME type.
type Blob struct {
	Type string
	Data []byte
}

// Decode reverses Encode. A "data:<type>;base64," prefix is accepted and dropped.
func Decode(text, mimeType string) (*Blob, error) {
	if strings.HasPrefix(text, "data:") {
		if i := strings.Index(text, ";base64,"); i >= 0 {
			text = text[i+len(";base64,"):]
		}
	}
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decoding attachment: %w", err)
	}
	return &Blob{Type: mimeType, Data: data}, nil
}
