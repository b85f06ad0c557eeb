package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"invoicestore/internal/csvexport"
	"invoicestore/internal/domain"
	"invoicestore/internal/repository"
)

func newExportCmd(s *session) *cobra.Command {
	var (
		format   string
		output   string
		statuses []string
		search   string
		sortBy   string
		order    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export invoices to CSV or XLSX",
		Example: `  # All invoices as CSV to stdout
  invoicectl export

  # Overdue invoices as a spreadsheet
  invoicectl export --format xlsx --status Overdue -o overdue.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var write func(io.Writer, []domain.Invoice) error
			switch format {
			case "csv":
				write = csvexport.WriteCSV
			case "xlsx":
				write = csvexport.WriteXLSX
			default:
				return fmt.Errorf("unknown format %q (want csv or xlsx)", format)
			}

			var criteria domain.FilterCriteria
			for _, st := range statuses {
				status := domain.PaymentStatus(st)
				if !status.Valid() {
					return fmt.Errorf("unknown payment status %q", st)
				}
				criteria.Statuses = append(criteria.Statuses, status)
			}
			list, err := s.app.Invoices.Filter(cmd.Context(), criteria)
			if err != nil {
				return err
			}
			list = repository.SearchInvoices(list, search)
			by, ord := domain.SortField(sortBy), domain.SortOrder(order)
			if !by.Valid() || !ord.Valid() {
				return fmt.Errorf("invalid sort %q %q", sortBy, order)
			}
			repository.SortInvoices(list, by, ord)

			if output == "" || output == "-" {
				if format == "xlsx" {
					output = csvexport.BuildFilename("invoices", "xlsx", time.Now())
				} else {
					return write(cmd.OutOrStdout(), list)
				}
			}

			f, err := os.Create(filepath.Clean(output))
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := write(f, list); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d invoice(s) to %s\n", len(list), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format: csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (csv defaults to stdout)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "payment statuses to include (repeatable)")
	cmd.Flags().StringVarP(&search, "search", "q", "", "search term")
	cmd.Flags().StringVar(&sortBy, "sort", string(domain.SortByDate), "sort field")
	cmd.Flags().StringVar(&order, "order", string(domain.SortDesc), "sort order: asc or desc")
	return cmd
}
