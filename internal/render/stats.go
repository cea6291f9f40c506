package render

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/zombor/scanly/internal/receipt"
)

// Stats renders the four history statistics as cards side by side
func Stats(s receipt.Summary) string {
	cards := []string{
		card("Total Amount", "$"+s.TotalAmount.StringFixed(2)),
		card("Total Receipts", strconv.Itoa(s.TotalCount)),
		card("Unique Merchants", strconv.Itoa(s.UniqueMerchants)),
		card("This Month", strconv.Itoa(s.CurrentMonthCount)),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func card(title, value string) string {
	return CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		SubtleStyle.Render(title),
		cardValueStyle.Render(value),
	))
}
