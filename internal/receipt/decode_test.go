package receipt

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/scanly/internal/common"
)

var _ = Describe("Decoder", func() {
	var (
		decoder *Decoder
		today   time.Time
	)

	BeforeEach(func() {
		today = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
		decoder = NewDecoderWithClock(nil, func() time.Time { return today })
	})

	Describe("DecodeReceipt", func() {
		It("decodes a well-formed receipt", func() {
			r, err := decoder.DecodeReceipt([]byte(`{
				"id": "abc", "merchant": "CVS", "total": 12.5, "currency": "USD",
				"date": "2024-01-15", "createdAt": "2024-01-16T08:00:00Z", "userId": "u1",
				"items": [{"id": "i1", "name": "Gum", "quantity": 2, "unitPrice": 1.25, "totalPrice": 2.5, "category": "Food"}]
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(r.ID).To(Equal("abc"))
			Expect(r.Merchant).To(Equal("CVS"))
			Expect(r.Total.String()).To(Equal("12.5"))
			Expect(r.Date.String()).To(Equal("2024-01-15"))
			Expect(r.CreatedAt.String()).To(Equal("2024-01-16"))
			Expect(r.UserID).To(Equal("u1"))
			Expect(r.Items).To(HaveLen(1))
			Expect(r.Items[0].UnitPrice.String()).To(Equal("1.25"))
			Expect(r.Items[0].Category).To(Equal("Food"))
		})

		It("accepts numeric ids, snake_case keys and decimal strings", func() {
			r, err := decoder.DecodeReceipt([]byte(`{
				"id": 42, "merchant": "CVS", "total": "19.99", "date": "2024-01-15",
				"created_at": "2024-01-16T08:00:00", "user_id": 7,
				"items": [{"name": "Gum", "quantity": 1, "unit_price": "19.99", "total_price": "19.99"}]
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(r.ID).To(Equal("42"))
			Expect(r.UserID).To(Equal("7"))
			Expect(r.Total.String()).To(Equal("19.99"))
			Expect(r.CreatedAt.Valid()).To(BeTrue())
			Expect(r.Items[0].TotalPrice.String()).To(Equal("19.99"))
		})

		It("treats missing and non-numeric amounts as zero", func() {
			r, err := decoder.DecodeReceipt([]byte(`{"id": "x", "total": "lots", "items": [{"name": "Thing", "unitPrice": true}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Total.IsZero()).To(BeTrue())
			Expect(r.Items[0].Quantity.IsZero()).To(BeTrue())
			Expect(r.Items[0].UnitPrice.IsZero()).To(BeTrue())
		})

		It("fails on invalid JSON", func() {
			_, err := decoder.DecodeReceipt([]byte(`{not json`))
			Expect(errors.Is(err, common.ErrMalformed)).To(BeTrue())
		})

		It("fails when the payload is not an object", func() {
			_, err := decoder.DecodeReceipt([]byte(`[1, 2]`))
			Expect(errors.Is(err, common.ErrMalformed)).To(BeTrue())
		})
	})

	Describe("DecodeReceipts", func() {
		It("decodes a list and skips non-object entries", func() {
			list, err := decoder.DecodeReceipts([]byte(`[{"id": "a", "merchant": "A", "total": 1, "date": "2024-01-01", "items": []}, "oops", {"id": "b"}]`))
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].ID).To(Equal("a"))
			Expect(list[1].ID).To(Equal("b"))
			Expect(list[1].Items).To(BeEmpty())
		})

		It("returns an empty list for null", func() {
			list, err := decoder.DecodeReceipts([]byte(`null`))
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})

		It("fails when the payload is an object", func() {
			_, err := decoder.DecodeReceipts([]byte(`{"detail": "nope"}`))
			Expect(errors.Is(err, common.ErrMalformed)).To(BeTrue())
		})
	})

	Describe("DecodeExtracted", func() {
		It("decodes a well-formed result", func() {
			ex, err := decoder.DecodeExtracted([]byte(`{
				"merchant": "Trader Joe's", "total": 7.98, "date": "2024-05-30", "currency": "EUR",
				"items": [{"name": "Bananas", "quantity": 2, "unitPrice": 3.99, "totalPrice": 7.98, "category": "Produce"}]
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(ex.Merchant).To(Equal("Trader Joe's"))
			Expect(ex.Currency).To(Equal("EUR"))
			Expect(ex.Total.String()).To(Equal("7.98"))
			Expect(ex.Date.String()).To(Equal("2024-05-30"))
			Expect(ex.Items).To(HaveLen(1))
			Expect(ex.Items[0].ID).To(BeEmpty())
		})

		It("fills defaults for missing or wrong-typed fields", func() {
			ex, err := decoder.DecodeExtracted([]byte(`{"merchant": null, "total": "n/a", "items": [{"quantity": "two"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(ex.Merchant).To(Equal("Unknown Merchant"))
			Expect(ex.Currency).To(Equal("USD"))
			Expect(ex.Total.IsZero()).To(BeTrue())
			Expect(ex.Date.String()).To(Equal("2024-06-01"))
			Expect(ex.Items).To(HaveLen(1))
			Expect(ex.Items[0].Name).To(Equal("Unknown Item"))
			Expect(ex.Items[0].Quantity.String()).To(Equal("1"))
			Expect(ex.Items[0].UnitPrice.IsZero()).To(BeTrue())
			Expect(ex.Items[0].TotalPrice.IsZero()).To(BeTrue())
		})

		It("treats a missing item list as no items", func() {
			ex, err := decoder.DecodeExtracted([]byte(`{"merchant": "A", "items": "none"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(ex.Items).To(BeEmpty())
		})
	})
})
