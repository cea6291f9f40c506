package receipt

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the calendar date layout used on the wire and in exports
const DateLayout = "2006-01-02"

// dateLayouts are tried in order when parsing server or user supplied dates
var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// Date is a calendar date as reported by the API. Timestamps keep their time
// of day for display, but comparisons only look at year, month and day.
// A Date that could not be parsed is not Valid and keeps the raw text.
type Date struct {
	t     time.Time
	raw   string
	valid bool
}

// ParseDate parses s using the accepted layouts. Unparsable input yields an
// invalid Date rather than an error.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t: t, raw: s, valid: true}
		}
	}
	return Date{raw: s}
}

// NewDate returns the calendar date y-m-d.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{t: t, raw: t.Format(DateLayout), valid: true}
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date{t: t, raw: t.Format(time.RFC3339), valid: true}
}

// Valid reports whether the date was parsed successfully.
func (d Date) Valid() bool {
	return d.valid
}

// Raw returns the text the date was parsed from.
func (d Date) Raw() string {
	return d.raw
}

// Time returns the parsed instant. It is the zero time for invalid dates.
func (d Date) Time() time.Time {
	return d.t
}

// String formats the calendar date as YYYY-MM-DD, or "" when invalid.
func (d Date) String() string {
	if !d.valid {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Compare returns -1, 0 or +1 comparing calendar dates only. Both dates
// must be valid.
func (d Date) Compare(other Date) int {
	ay, am, ad := d.t.Date()
	by, bm, bd := other.t.Date()
	switch {
	case ay != by:
		return cmpInt(ay, by)
	case am != bm:
		return cmpInt(int(am), int(bm))
	default:
		return cmpInt(ad, bd)
	}
}

// InMonthOf reports whether d falls in the calendar month and year of t.
func (d Date) InMonthOf(t time.Time) bool {
	if !d.valid {
		return false
	}
	return d.t.Year() == t.Year() && d.t.Month() == t.Month()
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// MarshalJSON writes the raw server text so values survive a round trip.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(d.raw)
}

// UnmarshalJSON accepts a string or null; anything else becomes an invalid Date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*d = Date{}
		return nil
	}
	*d = ParseDate(s)
	return nil
}
