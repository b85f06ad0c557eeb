package csvexport

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"invoicestore/internal/domain"
)

// Sheet names in the XLSX export.
const (
	InvoicesSheet  = "Invoices"
	LineItemsSheet = "Line Items"
)

var lineItemColumns = []string{
	"Invoice Number",
	"Line Item ID",
	"Description",
	"Quantity",
	"Unit Price",
	"Total",
}

// WriteXLSX writes a workbook with an Invoices sheet holding the same columns as
// the CSV export and a Line Items sheet with one row per line item.
func WriteXLSX(w io.Writer, invoices []domain.Invoice) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), InvoicesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(LineItemsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := writeHeaderRow(f, InvoicesSheet, columns, bold); err != nil {
		return err
	}
	if err := writeHeaderRow(f, LineItemsSheet, lineItemColumns, bold); err != nil {
		return err
	}

	itemRow := 2
	for i := range invoices {
		inv := &invoices[i]
		row := []any{
			inv.InvoiceNumber,
			formatDate(inv.Date),
			inv.CustomerName,
			inv.CustomerEmail,
			inv.CustomerAddress,
			string(inv.PaymentStatus),
			inv.Subtotal,
			inv.Tax,
			inv.Total,
			len(inv.LineItems),
			len(inv.Attachments),
			formatTime(inv.CreatedAt),
			formatTime(inv.UpdatedAt),
		}
		if err := setRow(f, InvoicesSheet, i+2, row); err != nil {
			return err
		}

		for _, item := range inv.LineItems {
			row := []any{inv.InvoiceNumber, item.ID, item.Description, item.Quantity, item.UnitPrice, item.Total}
			if err := setRow(f, LineItemsSheet, itemRow, row); err != nil {
				return err
			}
			itemRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeaderRow(f *excelize.File, sheet string, headings []string, style int) error {
	row := make([]any, len(headings))
	for i, h := range headings {
		row[i] = h
	}
	if err := setRow(f, sheet, 1, row); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headings), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, rowNo int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, rowNo, err)
	}
	return nil
}
