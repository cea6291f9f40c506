package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// CSVContentType is the MIME type of a CSV download
	CSVContentType = "text/csv;charset=utf-8"

	// XLSXContentType is the MIME type of a workbook download
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	notAvailable    = "N/A"
	defaultCurrency = "USD"
)

// ExportHeader is the fixed column order of every export
var ExportHeader = []string{
	"Receipt ID",
	"Date",
	"Merchant",
	"Receipt Total",
	"Currency",
	"Item Name",
	"Quantity",
	"Unit Price",
	"Item Total",
	"Category",
	"Scanned Date",
}

// exportRow is one flattened receipt/item line
type exportRow struct {
	ReceiptID   string
	Date        string
	Merchant    string
	Total       decimal.Decimal
	Currency    string
	ItemName    string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	ItemTotal   decimal.Decimal
	Category    string
	ScannedDate string
}

func (r exportRow) fields() []string {
	return []string{
		r.ReceiptID,
		r.Date,
		r.Merchant,
		r.Total.String(),
		r.Currency,
		r.ItemName,
		r.Quantity.String(),
		r.UnitPrice.StringFixed(2),
		r.ItemTotal.StringFixed(2),
		r.Category,
		r.ScannedDate,
	}
}

// flatten emits one row per item, or a single "No items" row for a receipt
// without items. Missing values are replaced by export placeholders.
func flatten(receipts []Receipt) []exportRow {
	rows := make([]exportRow, 0, len(receipts))
	for _, r := range receipts {
		base := exportRow{
			ReceiptID:   orDefault(r.ID, notAvailable),
			Date:        orDefault(r.Date.String(), notAvailable),
			Merchant:    orDefault(r.Merchant, notAvailable),
			Total:       r.Total,
			Currency:    orDefault(r.Currency, defaultCurrency),
			ScannedDate: orDefault(r.CreatedAt.String(), notAvailable),
		}

		if len(r.Items) == 0 {
			row := base
			row.ItemName = "No items"
			row.Quantity = decimal.Zero
			row.UnitPrice = decimal.Zero
			row.ItemTotal = decimal.Zero
			row.Category = notAvailable
			rows = append(rows, row)
			continue
		}

		for _, item := range r.Items {
			row := base
			row.ItemName = orDefault(item.Name, "Unknown Item")
			row.Quantity = item.Quantity
			row.UnitPrice = item.UnitPrice
			row.ItemTotal = item.TotalPrice
			row.Category = orDefault(item.Category, notAvailable)
			rows = append(rows, row)
		}
	}
	return rows
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ToCSV serializes receipts to CSV text: a header row followed by one row
// per item. Rows are joined by "\n" with no trailing newline.
func ToCSV(receipts []Receipt) string {
	var b strings.Builder
	writeCSVRow(&b, ExportHeader)
	for _, row := range flatten(receipts) {
		b.WriteByte('\n')
		writeCSVRow(&b, row.fields())
	}
	return b.String()
}

func writeCSVRow(b *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeCSVField(field))
	}
}

// escapeCSVField quotes a field only when it holds a comma, a double quote or
// a newline, doubling any inner quotes.
func escapeCSVField(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// ExportFilename returns the download name for an export created at now.
func ExportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("receipts-detailed-export-%s.%s", now.Format(DateLayout), ext)
}
