package receipt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary holds the history statistics cards
type Summary struct {
	TotalAmount       decimal.Decimal
	TotalCount        int
	UniqueMerchants   int
	CurrentMonthCount int
}

// Summarize computes statistics relative to the current time.
func Summarize(receipts []Receipt) Summary {
	return SummarizeAt(receipts, time.Now())
}

// SummarizeAt computes statistics relative to now. Totals are summed as-is
// across currencies. Merchants are distinct by exact string.
func SummarizeAt(receipts []Receipt, now time.Time) Summary {
	s := Summary{TotalAmount: decimal.Zero}
	merchants := make(map[string]struct{}, len(receipts))

	for _, r := range receipts {
		s.TotalAmount = s.TotalAmount.Add(r.Total)
		merchants[r.Merchant] = struct{}{}
		if r.Date.InMonthOf(now) {
			s.CurrentMonthCount++
		}
	}

	s.TotalCount = len(receipts)
	s.UniqueMerchants = len(merchants)
	return s
}
