package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/zombor/scanly/internal/receipt"
)

// Receipts writes the history list as a table
func Receipts(w io.Writer, receipts []receipt.Receipt) {
	if len(receipts) == 0 {
		fmt.Fprintln(w, SubtleStyle.Render("No receipts found"))
		return
	}

	table := newTable(w)
	table.SetHeader([]string{"ID", "Date", "Merchant", "Items", "Total"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})
	for _, r := range receipts {
		table.Append([]string{
			r.ID,
			displayDate(r.Date),
			r.Merchant,
			strconv.Itoa(len(r.Items)),
			receipt.FormatMoney(r.Currency, r.Total),
		})
	}
	table.Render()
}

// Receipt writes a single receipt with its items
func Receipt(w io.Writer, r receipt.Receipt) {
	fmt.Fprintln(w, TitleStyle.Render(r.Merchant))
	fmt.Fprintln(w, SubtleStyle.Render(fmt.Sprintf("Receipt %s · %s · scanned %s",
		r.ID, displayDate(r.Date), displayDate(r.CreatedAt))))
	fmt.Fprintln(w)
	items(w, r.Items, r.Currency, r.Total)
}

// Extracted writes an extraction result
func Extracted(w io.Writer, ex *receipt.Extracted) {
	fmt.Fprintln(w, Success("Receipt extracted and saved"))
	fmt.Fprintln(w, TitleStyle.Render(ex.Merchant))
	fmt.Fprintln(w, SubtleStyle.Render(displayDate(ex.Date)))
	fmt.Fprintln(w)
	items(w, ex.Items, ex.Currency, ex.Total)
}

func items(w io.Writer, list []receipt.Item, currency string, total decimal.Decimal) {
	withCategory := receipt.HasCategories(list)

	header := []string{"Item", "Qty", "Unit Price", "Total"}
	if withCategory {
		header = append(header, "Category")
	}

	table := newTable(w)
	table.SetHeader(header)
	for _, item := range list {
		row := []string{
			item.Name,
			item.Quantity.String(),
			receipt.FormatMoney(currency, item.UnitPrice),
			receipt.FormatMoney(currency, item.TotalPrice),
		}
		if withCategory {
			row = append(row, item.Category)
		}
		table.Append(row)
	}

	footer := make([]string, len(header))
	footer[2] = "Total"
	footer[3] = receipt.FormatMoney(currency, total)
	table.SetFooter(footer)
	table.Render()
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorders(tablewriter.Border{Left: true, Right: true, Top: false, Bottom: false})
	table.SetCenterSeparator("|")
	return table
}

func displayDate(d receipt.Date) string {
	if !d.Valid() {
		return "N/A"
	}
	return d.String()
}
