package receipt

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SummarizeAt", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)
	})

	When("there are no receipts", func() {
		It("returns all zeros", func() {
			s := SummarizeAt(nil, now)
			Expect(s.TotalAmount.IsZero()).To(BeTrue())
			Expect(s.TotalCount).To(Equal(0))
			Expect(s.UniqueMerchants).To(Equal(0))
			Expect(s.CurrentMonthCount).To(Equal(0))
		})
	})

	When("totals have fractional parts", func() {
		It("sums exactly", func() {
			s := SummarizeAt([]Receipt{
				{Merchant: "A", Total: amount("10")},
				{Merchant: "B", Total: amount("5.5")},
			}, now)
			Expect(s.TotalAmount.Equal(amount("15.5"))).To(BeTrue())
			Expect(s.TotalCount).To(Equal(2))
		})
	})

	When("receipts use different currencies", func() {
		It("sums the numbers as-is", func() {
			s := SummarizeAt([]Receipt{
				{Currency: "USD", Total: amount("10")},
				{Currency: "EUR", Total: amount("10")},
			}, now)
			Expect(s.TotalAmount.String()).To(Equal("20"))
		})
	})

	It("counts merchants case-sensitively", func() {
		s := SummarizeAt([]Receipt{
			{Merchant: "Target"},
			{Merchant: "target"},
			{Merchant: "Target"},
		}, now)
		Expect(s.UniqueMerchants).To(Equal(2))
	})

	It("counts receipts dated in the current month and year", func() {
		s := SummarizeAt([]Receipt{
			{Date: ParseDate("2024-03-01")},
			{Date: ParseDate("2024-03-31T22:00:00Z")},
			{Date: ParseDate("2023-03-15")},
			{Date: ParseDate("2024-02-29")},
			{Date: ParseDate("unknown")},
		}, now)
		Expect(s.CurrentMonthCount).To(Equal(2))
		Expect(s.TotalCount).To(Equal(5))
	})
})

var _ = Describe("Summarize", func() {
	It("uses the current time", func() {
		s := Summarize([]Receipt{{Date: DateOf(time.Now())}})
		Expect(s.CurrentMonthCount).To(Equal(1))
	})
})
