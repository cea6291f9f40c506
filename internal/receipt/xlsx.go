package receipt

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Receipts"

// ToXLSX writes the same rows as ToCSV into a workbook and returns its bytes.
// Amount and quantity columns are stored as numbers.
func ToXLSX(receipts []Receipt) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range ExportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(xlsxSheet, cell, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for i, row := range flatten(receipts) {
		values := []any{
			row.ReceiptID,
			row.Date,
			row.Merchant,
			row.Total.InexactFloat64(),
			row.Currency,
			row.ItemName,
			row.Quantity.InexactFloat64(),
			row.UnitPrice.Round(2).InexactFloat64(),
			row.ItemTotal.Round(2).InexactFloat64(),
			row.Category,
			row.ScannedDate,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(xlsxSheet, "A", "A", 38) // id
	_ = f.SetColWidth(xlsxSheet, "B", "B", 12) // date
	_ = f.SetColWidth(xlsxSheet, "C", "C", 28) // merchant
	_ = f.SetColWidth(xlsxSheet, "F", "F", 32) // item
	_ = f.SetColWidth(xlsxSheet, "K", "K", 14) // scanned

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
