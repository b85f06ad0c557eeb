package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"invoicestore/internal/config"
	"invoicestore/internal/handler"
	"invoicestore/internal/infrastructure"
	"invoicestore/internal/logger"
	"invoicestore/internal/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Setup(cfg.Log); err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	serverLog := logger.WithComponent("server")
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage and repositories
	app, err := infrastructure.New(ctx, cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			serverLog.Error().Err(err).Msg("failed to close storage")
		}
	}()

	if changed, err := app.Invoices.Migrate(ctx); err != nil {
		serverLog.Warn().Err(err).Msg("collection migration failed; run invoicectl salvage")
	} else if changed {
		serverLog.Info().Msg("collection migrated")
	}

	// Initialize handlers
	r := router.Setup(router.Handlers{
		Invoice:    handler.NewInvoiceHandler(app.Invoices),
		Attachment: handler.NewAttachmentHandler(app.Attachments),
		Filter:     handler.NewFilterHandler(app.Filters),
		Export:     handler.NewExportHandler(app.Invoices),
		Health:     handler.NewHealthHandler(app.Store),
	}, cfg.CORS.AllowedOrigins, log.Logger)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serverLog.Info().Str("addr", srv.Addr).Str("backend", cfg.Storage.Backend).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	serverLog.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	serverLog.Info().Msg("server stopped")
	return nil
}
