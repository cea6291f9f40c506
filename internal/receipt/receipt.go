package receipt

import (
	"github.com/shopspring/decimal"
)

// Receipt is a persisted receipt as returned by the receipts API
type Receipt struct {
	ID        string          `json:"id"`
	Merchant  string          `json:"merchant"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	Date      Date            `json:"date"`
	CreatedAt Date            `json:"createdAt"`
	UserID    string          `json:"userId"`
	Items     []Item          `json:"items"`
}

// Item is a single line on a receipt. ID is empty for extraction results
// that have not been persisted yet.
type Item struct {
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Category   string          `json:"category,omitempty"`
}

// Extracted is the structured result of an extraction call. It has no
// identifiers and no owner; the server persists it as a side effect.
type Extracted struct {
	Merchant string          `json:"merchant"`
	Total    decimal.Decimal `json:"total"`
	Date     Date            `json:"date"`
	Currency string          `json:"currency"`
	Items    []Item          `json:"items"`
}

// HasCategories reports whether any item carries a category, which decides
// whether views render the category column.
func HasCategories(items []Item) bool {
	for _, item := range items {
		if item.Category != "" {
			return true
		}
	}
	return false
}

// FormatMoney renders an amount with two decimals after its currency code
func FormatMoney(currency string, amount decimal.Decimal) string {
	if currency == "" {
		currency = defaultCurrency
	}
	return currency + " " + amount.StringFixed(2)
}
