package receipt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Matches", func() {
	var (
		r       Receipt
		filters Filters
		matched bool
	)

	BeforeEach(func() {
		r = Receipt{
			ID:       "r1",
			Merchant: "Whole Foods Market",
			Total:    amount("42.50"),
			Currency: "USD",
			Date:     ParseDate("2024-03-15"),
		}
		filters = Filters{}
	})

	JustBeforeEach(func() {
		matched = Matches(r, filters)
	})

	When("no filters are set", func() {
		It("matches", func() {
			Expect(matched).To(BeTrue())
		})

		It("matches a receipt with no data at all", func() {
			Expect(Matches(Receipt{}, Filters{})).To(BeTrue())
		})
	})

	Describe("dateFrom", func() {
		When("the receipt is on the boundary day", func() {
			BeforeEach(func() {
				filters.DateFrom = datePtr("2024-03-15")
			})

			It("matches", func() {
				Expect(matched).To(BeTrue())
			})
		})

		When("the receipt timestamp is late on the boundary day", func() {
			BeforeEach(func() {
				r.Date = ParseDate("2024-03-15T23:59:00Z")
				filters.DateFrom = datePtr("2024-03-15")
			})

			It("compares calendar dates only", func() {
				Expect(matched).To(BeTrue())
			})
		})

		When("the receipt is before the bound", func() {
			BeforeEach(func() {
				filters.DateFrom = datePtr("2024-03-16")
			})

			It("does not match", func() {
				Expect(matched).To(BeFalse())
			})
		})
	})

	Describe("dateTo", func() {
		When("the receipt is on the boundary day", func() {
			BeforeEach(func() {
				r.Date = ParseDate("2024-03-15T18:00:00Z")
				filters.DateTo = datePtr("2024-03-15")
			})

			It("matches", func() {
				Expect(matched).To(BeTrue())
			})
		})

		When("the receipt is after the bound", func() {
			BeforeEach(func() {
				filters.DateTo = datePtr("2024-03-14")
			})

			It("does not match", func() {
				Expect(matched).To(BeFalse())
			})
		})
	})

	When("the receipt date is unparsable", func() {
		BeforeEach(func() {
			r.Date = ParseDate("not a date")
			filters.DateFrom = datePtr("2024-01-01")
			filters.DateTo = datePtr("2024-12-31")
		})

		It("is not excluded by date bounds", func() {
			Expect(matched).To(BeTrue())
		})
	})

	Describe("merchant", func() {
		When("the filter is a case-insensitive substring", func() {
			BeforeEach(func() {
				filters.Merchant = "FOODS"
			})

			It("matches", func() {
				Expect(matched).To(BeTrue())
			})
		})

		When("the filter is not a substring", func() {
			BeforeEach(func() {
				filters.Merchant = "target"
			})

			It("does not match", func() {
				Expect(matched).To(BeFalse())
			})
		})
	})

	Describe("amount bounds", func() {
		When("the total equals both bounds", func() {
			BeforeEach(func() {
				filters.MinAmount = amountPtr("42.5")
				filters.MaxAmount = amountPtr("42.50")
			})

			It("matches", func() {
				Expect(matched).To(BeTrue())
			})
		})

		When("the total is below the minimum", func() {
			BeforeEach(func() {
				filters.MinAmount = amountPtr("42.51")
			})

			It("does not match", func() {
				Expect(matched).To(BeFalse())
			})
		})

		When("the total is above the maximum", func() {
			BeforeEach(func() {
				filters.MaxAmount = amountPtr("42.49")
			})

			It("does not match", func() {
				Expect(matched).To(BeFalse())
			})
		})

		When("the minimum is zero", func() {
			BeforeEach(func() {
				r.Total = amount("0")
				filters.MinAmount = amountPtr("0")
			})

			It("still matches a zero total", func() {
				Expect(matched).To(BeTrue())
			})
		})
	})

	When("the merchant never matches whatever the other filters say", func() {
		It("does not match", func() {
			f := Filters{
				DateFrom:  datePtr("2000-01-01"),
				MinAmount: amountPtr("0"),
				Merchant:  "costco",
			}
			for _, merchant := range []string{"Target", "Walmart", "CVS Pharmacy", ""} {
				r.Merchant = merchant
				Expect(Matches(r, f)).To(BeFalse(), merchant)
			}
		})
	})
})

var _ = Describe("Apply", func() {
	It("keeps matching receipts in input order", func() {
		receipts := []Receipt{
			{ID: "a", Merchant: "Target", Total: amount("10")},
			{ID: "b", Merchant: "Walmart", Total: amount("20")},
			{ID: "c", Merchant: "Target Optical", Total: amount("30")},
		}
		out := Apply(receipts, Filters{Merchant: "target"})
		Expect(out).To(HaveLen(2))
		Expect(out[0].ID).To(Equal("a"))
		Expect(out[1].ID).To(Equal("c"))
	})

	It("returns an empty, non-nil slice for no input", func() {
		out := Apply(nil, Filters{})
		Expect(out).NotTo(BeNil())
		Expect(out).To(BeEmpty())
	})
})

var _ = Describe("ParseFilters", func() {
	It("leaves empty input unset", func() {
		f := ParseFilters(FilterInput{})
		Expect(f.IsZero()).To(BeTrue())
	})

	It("turns malformed amounts into unset rather than zero", func() {
		f := ParseFilters(FilterInput{MinAmount: "abc", MaxAmount: "12,50"})
		Expect(f.MinAmount).To(BeNil())
		Expect(f.MaxAmount).To(BeNil())
	})

	It("parses valid amounts", func() {
		f := ParseFilters(FilterInput{MinAmount: " 5 ", MaxAmount: "99.99"})
		Expect(f.MinAmount.String()).To(Equal("5"))
		Expect(f.MaxAmount.String()).To(Equal("99.99"))
	})

	It("turns unparsable dates into unset", func() {
		f := ParseFilters(FilterInput{DateFrom: "soon", DateTo: "2024-02-30"})
		Expect(f.DateFrom).To(BeNil())
		Expect(f.DateTo).To(BeNil())
	})

	It("parses dates and trims the merchant", func() {
		f := ParseFilters(FilterInput{DateFrom: "2024-01-01", DateTo: "2024-01-31", Merchant: "  cvs "})
		Expect(f.DateFrom.String()).To(Equal("2024-01-01"))
		Expect(f.DateTo.String()).To(Equal("2024-01-31"))
		Expect(f.Merchant).To(Equal("cvs"))
	})

	It("round trips through Input", func() {
		in := FilterInput{DateFrom: "2024-01-01", Merchant: "cvs", MaxAmount: "10.5"}
		Expect(ParseFilters(in).Input()).To(Equal(in))
	})
})
