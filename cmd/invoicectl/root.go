package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"invoicestore/internal/config"
	"invoicestore/internal/infrastructure"
	"invoicestore/internal/logger"
)

// opener builds the wired application a command runs against.
type opener func(ctx context.Context) (*infrastructure.App, error)

func openFromEnv(ctx context.Context) (*infrastructure.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Setup(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return infrastructure.New(ctx, cfg, log.Logger)
}

// session is shared by the subcommands for one invocation.
type session struct {
	open opener
	app  *infrastructure.App
}

func newRootCmd(open opener) *cobra.Command {
	s := &session{open: open}

	root := &cobra.Command{
		Use:   "invoicectl",
		Short: "Operate on a local invoice store",
		Long: `invoicectl inspects and repairs the invoice collection held by the configured
storage backend. It reads the same INVOICESTORE_* environment variables as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			s.app = app
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if s.app == nil {
				return nil
			}
			return s.app.Close()
		},
	}

	root.AddCommand(
		newMigrateCmd(s),
		newSalvageCmd(s),
		newStatsCmd(s),
		newSeedCmd(s),
		newExportCmd(s),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
