package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"invoicestore/internal/domain"
)

func newMigrateCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Normalise stored invoices written by older versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed, err := s.app.Invoices.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if changed {
				fmt.Fprintln(cmd.OutOrStdout(), "collection migrated")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "collection already up to date")
			}
			return nil
		},
	}
}

func newSalvageCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "salvage",
		Short: "Recover a corrupted invoice collection",
		Long: `salvage rewrites the stored collection keeping every element that still decodes
as an invoice with an id. When the stored text is not a list at all the collection is reset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := s.app.Invoices.Salvage(cmd.Context())
			if err != nil {
				return fmt.Errorf("salvage failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newStatsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print invoice totals by payment status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := s.app.Invoices.Stats(cmd.Context())
			if err != nil {
				return err
			}
			size, err := s.app.Documents.SizeEstimate(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				Invoices     *domain.InvoiceStats `json:"invoices"`
				StorageBytes int64                `json:"storageBytes"`
			}{stats, size})
		},
	}
}
