package csvexport

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"invoicestore/internal/domain"
)

func sampleInvoices() []domain.Invoice {
	created := time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)
	return []domain.Invoice{
		{
			ID:              "inv-1",
			InvoiceNumber:   "INV-001",
			Date:            time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
			CustomerName:    "John Doe",
			CustomerEmail:   "john@example.com",
			CustomerAddress: "1 Main St, Springfield",
			LineItems: []domain.LineItem{
				{ID: "li-1", Description: "Service", Quantity: 1, UnitPrice: 100, Total: 100},
				{ID: "li-2", Description: "Parts", Quantity: 2, UnitPrice: 2.5, Total: 5},
			},
			Subtotal:      105,
			Tax:           10.5,
			Total:         115.5,
			PaymentStatus: domain.PaymentStatusPartiallyPaid,
			Attachments:   []domain.FileAttachment{{ID: "att-1"}},
			CreatedAt:     created,
			UpdatedAt:     created.Add(time.Hour),
		},
		{
			ID:            "inv-2",
			InvoiceNumber: "INV-002",
			CustomerName:  "Jane",
			LineItems:     []domain.LineItem{{ID: "li-3", Description: "Audit", Quantity: 1, UnitPrice: 0.1, Total: 0.1}},
			Subtotal:      0.1,
			Total:         0.1,
			PaymentStatus: domain.PaymentStatusPaid,
			Attachments:   []domain.FileAttachment{},
		},
	}
}

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader())
	w.Flush()
	require.NoError(t, w.Error())

	r := csv.NewReader(&buf)
	row, err := r.Read()
	require.NoError(t, err)

	assert.Len(t, row, 13)
	assert.Equal(t, "Invoice Number", row[0])
	assert.Equal(t, "Payment Status", row[5])
	assert.Equal(t, "Updated At", row[12])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleInvoices()))

	require.True(t, bytes.HasPrefix(buf.Bytes(), BOM))
	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"INV-001", "2024-05-20", "John Doe", "john@example.com", "1 Main St, Springfield",
		"Partially Paid", "105.00", "10.50", "115.50", "2", "1",
		"2024-05-20T09:30:00Z", "2024-05-20T10:30:00Z",
	}, rows[1])
}

func TestWriteCSV_EmptyFieldsForZeroValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleInvoices()[1:]))

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "", row[1])
	assert.Equal(t, "", row[3])
	assert.Equal(t, "0.10", row[6])
	assert.Equal(t, "0.00", row[7])
	assert.Equal(t, "0", row[10])
	assert.Equal(t, "", row[11])
}

func TestWriteCSV_NoInvoices(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleInvoices()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{InvoicesSheet, LineItemsSheet}, f.GetSheetList())

	invoices, err := f.GetRows(InvoicesSheet)
	require.NoError(t, err)
	require.Len(t, invoices, 3)
	assert.Equal(t, "Invoice Number", invoices[0][0])
	assert.Equal(t, "INV-001", invoices[1][0])
	assert.Equal(t, "Partially Paid", invoices[1][5])
	assert.Equal(t, "INV-002", invoices[2][0])

	items, err := f.GetRows(LineItemsSheet)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, []string{"INV-001", "li-1", "Service"}, items[1][:3])
	assert.Equal(t, []string{"INV-001", "li-2", "Parts"}, items[2][:3])
	assert.Equal(t, []string{"INV-002", "li-3", "Audit"}, items[3][:3])
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Q3 Customer Invoices", "Q3_Customer_Invoices"},
		{"special chars", "FY 2024-25 / Q3 (Oct–Dec)", "FY_2024-25_Q3_Oct_Dec"},
		{"hyphens and underscores preserved", "my-invoices_2025", "my-invoices_2025"},
		{"consecutive underscores collapsed", "test___invoices", "test_invoices"},
		{"leading/trailing cleaned", "  hello  ", "hello"},
		{
			"long name truncated",
			"abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrstuvwxyz-extra",
			"abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrs",
		},
		{"empty", "", "invoices"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeName(tt.input))
		})
	}
}

func TestBuildFilename(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "Q3_Invoices_2024-06-01.csv", BuildFilename("Q3 Invoices", "csv", now))
	assert.Equal(t, "invoices_2024-06-01.xlsx", BuildFilename("", "xlsx", now))
}
