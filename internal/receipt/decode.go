package receipt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/zombor/scanly/internal/common"
)

// amountSchema accepts JSON numbers and decimal strings
const amountSchema = `{"anyOf": [{"type": "number"}, {"type": "string", "pattern": "^-?\\d+(\\.\\d+)?$"}]}`

const itemSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"id": {"type": ["string", "integer", "null"]},
		"name": {"type": "string", "minLength": 1},
		"quantity": ` + amountSchema + `,
		"unitPrice": ` + amountSchema + `,
		"totalPrice": ` + amountSchema + `,
		"category": {"type": ["string", "null"]}
	}
}`

var (
	receiptSchema = jsonschema.MustCompileString("receipt.json", `{
	"type": "object",
	"required": ["id", "merchant", "total", "date", "items"],
	"properties": {
		"id": {"type": ["string", "integer"]},
		"merchant": {"type": "string"},
		"total": `+amountSchema+`,
		"currency": {"type": "string"},
		"date": {"type": "string"},
		"items": {"type": "array", "items": `+itemSchema+`}
	}
}`)

	extractedSchema = jsonschema.MustCompileString("extracted.json", `{
	"type": "object",
	"required": ["merchant", "total", "date", "currency", "items"],
	"properties": {
		"merchant": {"type": "string", "minLength": 1},
		"total": `+amountSchema+`,
		"currency": {"type": "string", "minLength": 3, "maxLength": 3},
		"date": {"type": "string"},
		"items": {"type": "array", "items": `+itemSchema+`}
	}
}`)
)

// Decoder turns API responses into typed values. Responses that do not match
// the expected shape are logged as malformed and sanitized to safe defaults;
// only undecodable JSON is an error.
type Decoder struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewDecoder creates a Decoder. A nil logger uses slog.Default().
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger, now: time.Now}
}

// NewDecoderWithClock creates a Decoder with a custom clock for testing
func NewDecoderWithClock(logger *slog.Logger, now func() time.Time) *Decoder {
	d := NewDecoder(logger)
	d.now = now
	return d
}

// DecodeReceipt decodes a single persisted receipt.
func (d *Decoder) DecodeReceipt(data []byte) (Receipt, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return Receipt{}, err
	}
	d.validate(receiptSchema, obj, "receipt")
	return receiptFromObject(obj), nil
}

// DecodeReceipts decodes a receipt list. Entries that are not objects are
// skipped.
func (d *Decoder) DecodeReceipts(data []byte) ([]Receipt, error) {
	v, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return []Receipt{}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of receipts", common.ErrMalformed)
	}

	receipts := make([]Receipt, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			d.logger.Warn("Skipping malformed receipt", "index", i)
			continue
		}
		d.validate(receiptSchema, obj, "receipt")
		receipts = append(receipts, receiptFromObject(obj))
	}
	return receipts, nil
}

// DecodeExtracted decodes an extraction result, filling display defaults for
// anything missing: "Unknown Merchant", today's date, total 0, "USD",
// "Unknown Item", quantity 1 and zero prices.
func (d *Decoder) DecodeExtracted(data []byte) (Extracted, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return Extracted{}, err
	}
	d.validate(extractedSchema, obj, "extraction result")

	ex := Extracted{
		Merchant: orDefault(stringField(obj, "merchant"), "Unknown Merchant"),
		Currency: orDefault(stringField(obj, "currency"), defaultCurrency),
		Total:    amountField(obj, decimal.Zero, "total"),
		Date:     ParseDate(stringField(obj, "date")),
	}
	if !ex.Date.Valid() {
		ex.Date = DateOf(d.now())
	}

	for _, itemObj := range objectList(obj, "items") {
		ex.Items = append(ex.Items, Item{
			Name:       orDefault(stringField(itemObj, "name"), "Unknown Item"),
			Quantity:   amountField(itemObj, decimal.NewFromInt(1), "quantity"),
			UnitPrice:  amountField(itemObj, decimal.Zero, "unitPrice", "unit_price"),
			TotalPrice: amountField(itemObj, decimal.Zero, "totalPrice", "total_price"),
			Category:   stringField(itemObj, "category"),
		})
	}
	return ex, nil
}

func (d *Decoder) validate(schema *jsonschema.Schema, obj map[string]any, what string) {
	if err := schema.Validate(obj); err != nil {
		d.logger.Warn("Sanitizing malformed API response",
			"kind", what,
			"error", fmt.Errorf("%w: %v", common.ErrMalformed, err),
		)
	}
}

func receiptFromObject(obj map[string]any) Receipt {
	r := Receipt{
		ID:        stringField(obj, "id"),
		Merchant:  stringField(obj, "merchant"),
		Total:     amountField(obj, decimal.Zero, "total"),
		Currency:  stringField(obj, "currency"),
		Date:      ParseDate(stringField(obj, "date")),
		CreatedAt: ParseDate(stringField(obj, "createdAt", "created_at")),
		UserID:    stringField(obj, "userId", "user_id"),
	}
	for _, itemObj := range objectList(obj, "items") {
		r.Items = append(r.Items, Item{
			ID:         stringField(itemObj, "id"),
			Name:       stringField(itemObj, "name"),
			Quantity:   amountField(itemObj, decimal.Zero, "quantity"),
			UnitPrice:  amountField(itemObj, decimal.Zero, "unitPrice", "unit_price"),
			TotalPrice: amountField(itemObj, decimal.Zero, "totalPrice", "total_price"),
			Category:   stringField(itemObj, "category"),
		})
	}
	return r
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformed, err)
	}
	return v, nil
}

func decodeObject(data []byte) (map[string]any, error) {
	v, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an object", common.ErrMalformed)
	}
	return obj, nil
}

// stringField returns the first of keys holding a string or number.
func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			return strings.TrimSpace(v)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// amountField returns the first of keys holding a number or numeric string,
// or def when none does.
func amountField(obj map[string]any, def decimal.Decimal, keys ...string) decimal.Decimal {
	for _, key := range keys {
		var s string
		switch v := obj[key].(type) {
		case json.Number:
			s = v.String()
		case string:
			s = strings.TrimSpace(v)
		default:
			continue
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return def
}

func objectList(obj map[string]any, key string) []map[string]any {
	list, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
