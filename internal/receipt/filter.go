package receipt

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Filters narrows the history list. A nil or empty field places no
// constraint on that dimension.
type Filters struct {
	DateFrom  *Date
	DateTo    *Date
	Merchant  string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.DateFrom == nil && f.DateTo == nil && f.Merchant == "" &&
		f.MinAmount == nil && f.MaxAmount == nil
}

// FilterInput holds filter values as typed by a user, before normalization
type FilterInput struct {
	DateFrom  string
	DateTo    string
	Merchant  string
	MinAmount string
	MaxAmount string
}

// ParseFilters normalizes raw input. Empty values, malformed amounts and
// unparsable dates all become unset; a malformed amount is never zero.
func ParseFilters(in FilterInput) Filters {
	var f Filters

	if d := ParseDate(in.DateFrom); d.Valid() {
		f.DateFrom = &d
	}
	if d := ParseDate(in.DateTo); d.Valid() {
		f.DateTo = &d
	}
	f.Merchant = strings.TrimSpace(in.Merchant)
	f.MinAmount = parseAmount(in.MinAmount)
	f.MaxAmount = parseAmount(in.MaxAmount)

	return f
}

// Input renders f back into its raw form, for refilling forms.
func (f Filters) Input() FilterInput {
	var in FilterInput
	if f.DateFrom != nil {
		in.DateFrom = f.DateFrom.String()
	}
	if f.DateTo != nil {
		in.DateTo = f.DateTo.String()
	}
	in.Merchant = f.Merchant
	if f.MinAmount != nil {
		in.MinAmount = f.MinAmount.String()
	}
	if f.MaxAmount != nil {
		in.MaxAmount = f.MaxAmount.String()
	}
	return in
}

func parseAmount(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// Matches reports whether r satisfies every set filter. Receipts whose date
// could not be parsed are never excluded by the date bounds.
func Matches(r Receipt, f Filters) bool {
	if f.DateFrom != nil && r.Date.Valid() && r.Date.Compare(*f.DateFrom) < 0 {
		return false
	}
	if f.DateTo != nil && r.Date.Valid() && r.Date.Compare(*f.DateTo) > 0 {
		return false
	}
	if f.Merchant != "" && !strings.Contains(strings.ToLower(r.Merchant), strings.ToLower(f.Merchant)) {
		return false
	}
	if f.MinAmount != nil && r.Total.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && r.Total.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}

// Apply returns the receipts matching f, in input order.
func Apply(receipts []Receipt, f Filters) []Receipt {
	out := make([]Receipt, 0, len(receipts))
	for _, r := range receipts {
		if Matches(r, f) {
			out = append(out, r)
		}
	}
	return out
}
