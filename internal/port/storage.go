package port

import "context"

// KeyValueStore is a synchronous string key-value store such as browser localStorage.
// Set returns storage.ErrQuotaExceeded when the value does not fit, and every method
// returns storage.ErrUnavailable when the store cannot be reached.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Available(ctx context.Context) bool
}

// DownloadSink receives decoded attachment bytes for client-side saving.
type DownloadSink interface {
	Save(filename, mimeType string, data []byte) error
}

// DownloadSinkFunc adapts a function to DownloadSink.
type DownloadSinkFunc func(filename, mimeType string, data []byte) error

// Save calls f.
func (f DownloadSinkFunc) Save(filename, mimeType string, data []byte) error {
	return f(filename, mimeType, data)
}

// DocumentStore reads and writes JSON documents by key. persistence.Adapter implements it.
type DocumentStore interface {
	Read(ctx context.Context, key string, dest any) (found bool, err error)
	ReadRaw(ctx context.Context, key string) (text string, found bool, err error)
	Write(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
}
