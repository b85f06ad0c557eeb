package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"invoicestore/internal/domain"
	"invoicestore/internal/validator"
)

var seedCustomers = []struct{ name, email, address string }{
	{"Acme Corporation", "billing@acme.example", "1 Industrial Way, Springfield"},
	{"Globex Ltd", "accounts@globex.example", "42 Harbour Road, Shelbyville"},
	{"Initech", "ap@initech.example", ""},
	{"Umbrella Services", "", "7 Hill Street, Raccoon City"},
	{"John Smith", "john.smith@mail.example", ""},
}

var seedItems = []struct {
	description string
	unitPrice   float64
}{
	{"Consulting services", 125},
	{"Website maintenance", 89.5},
	{"Hosting (monthly)", 24.99},
	{"Design work", 60},
	{"Support hours", 45.25},
}

// sampleInvoices builds n valid invoices dated within the past year of now.
// Numbers start at INV-<start> so repeated seeding can skip taken numbers.
func sampleInvoices(n, start int, now time.Time) []domain.InvoiceInput {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]domain.InvoiceInput, 0, n)
	for i := 0; i < n; i++ {
		c := seedCustomers[i%len(seedCustomers)]

		var items []domain.LineItem
		for j := 0; j <= i%3; j++ {
			item := seedItems[(i+j)%len(seedItems)]
			qty := float64(j + 1 + i%4)
			items = append(items, domain.LineItem{
				Description: item.description,
				Quantity:    qty,
				UnitPrice:   item.unitPrice,
				Total:       validator.ExpectedLineTotal(qty, item.unitPrice).InexactFloat64(),
			})
		}
		subtotal := 0.0
		for _, item := range items {
			subtotal += item.Total
		}
		sub := validator.Round2(subtotal)
		tax := sub.Mul(validator.Round2(0.1)).Round(2)

		out = append(out, domain.InvoiceInput{
			InvoiceNumber:   fmt.Sprintf("INV-%03d", start+i),
			Date:            today.AddDate(0, 0, -((i * 11) % 360)),
			CustomerName:    c.name,
			CustomerEmail:   c.email,
			CustomerAddress: c.address,
			LineItems:       items,
			Subtotal:        sub.InexactFloat64(),
			Tax:             tax.InexactFloat64(),
			Total:           sub.Add(tax).InexactFloat64(),
			PaymentStatus:   domain.PaymentStatuses[i%len(domain.PaymentStatuses)],
		})
	}
	return out
}

func newSeedCmd(s *session) *cobra.Command {
	var count, start int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create sample invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			created, skipped := 0, 0
			for _, in := range sampleInvoices(count, start, time.Now()) {
				_, err := s.app.Invoices.Create(cmd.Context(), in)
				if errors.Is(err, domain.ErrDuplicateInvoiceNumber) {
					skipped++
					continue
				}
				if err != nil {
					return fmt.Errorf("creating %s: %w", in.InvoiceNumber, err)
				}
				created++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d invoice(s), skipped %d existing\n", created, skipped)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of invoices to create")
	cmd.Flags().IntVar(&start, "start", 1, "first invoice number")
	return cmd
}
