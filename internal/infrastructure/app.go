// Package infrastructure assembles the storage backend and repositories from configuration.
package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"invoicestore/internal/attachment"
	"invoicestore/internal/config"
	"invoicestore/internal/persistence"
	"invoicestore/internal/port"
	"invoicestore/internal/repository"
	"invoicestore/internal/storage/filesystem"
	"invoicestore/internal/storage/memory"
	"invoicestore/internal/storage/redis"
	"invoicestore/internal/storage/sqlite"
	"invoicestore/internal/validator"
)

// App holds the wired repositories. Close releases the storage backend.
type App struct {
	Store       port.KeyValueStore
	Documents   *persistence.Adapter
	Invoices    *repository.InvoiceRepo
	Attachments *repository.AttachmentRepo
	Filters     *repository.FilterStateRepo

	closers []func() error
}

// OpenStore builds the key-value backend selected by cfg.Backend. The returned
// close function is never nil.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (port.KeyValueStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "memory":
		return memory.New(cfg.CapacityBytes), noop, nil
	case "filesystem":
		store, err := filesystem.New(cfg.Path, cfg.CapacityBytes, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("opening filesystem store: %w", err)
		}
		return store, noop, nil
	case "sqlite":
		store, err := sqlite.Open(filepath.Join(cfg.Path, "invoicestore.db"), cfg.CapacityBytes, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, store.Close, nil
	case "redis":
		store, err := redis.Connect(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
			Capacity: cfg.CapacityBytes,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// New opens the configured store and wires the repositories on top of it.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	store, closeStore, err := OpenStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	app := Wire(store, cfg, logger)
	app.closers = append(app.closers, closeStore)
	return app, nil
}

// Wire builds the repositories over an already opened store.
func Wire(store port.KeyValueStore, cfg *config.Config, logger zerolog.Logger) *App {
	docs := persistence.New(store, logger)
	v := validator.New(
		validator.WithMaxAttachments(cfg.Attachments.MaxFiles),
		validator.WithAttachmentLimits(cfg.Attachments.MaxFileSizeBytes(), cfg.Attachments.MaxTotalSizeBytes()),
	)
	invoices := repository.NewInvoiceRepo(docs, v, logger,
		repository.WithCollectionKey(cfg.Storage.CollectionKey))
	attachments := repository.NewAttachmentRepo(invoices, attachment.NewPolicy(cfg.Attachments), logger,
		repository.WithEncodeConcurrency(cfg.Attachments.EncodeConcurrency))

	return &App{
		Store:       store,
		Documents:   docs,
		Invoices:    invoices,
		Attachments: attachments,
		Filters:     repository.NewFilterStateRepo(docs, cfg.Storage.FilterStateKey),
	}
}

// Close releases everything New opened.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
