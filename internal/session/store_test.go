package session

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltTokenStore", func() {
	var (
		dbPath string
		store  *BoltTokenStore
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		store, err = NewBoltTokenStore(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("LoadToken", func() {
		When("nothing has been saved", func() {
			It("returns an empty token", func() {
				token, err := store.LoadToken()
				Expect(err).NotTo(HaveOccurred())
				Expect(token).To(BeEmpty())
			})
		})

		When("a token has been saved", func() {
			BeforeEach(func() {
				Expect(store.SaveToken("tok-1")).To(Succeed())
			})

			It("returns it", func() {
				token, err := store.LoadToken()
				Expect(err).NotTo(HaveOccurred())
				Expect(token).To(Equal("tok-1"))
			})
		})
	})

	Describe("SaveToken", func() {
		It("replaces the previous token", func() {
			Expect(store.SaveToken("tok-1")).To(Succeed())
			Expect(store.SaveToken("tok-2")).To(Succeed())
			Expect(store.LoadToken()).To(Equal("tok-2"))
		})

		It("survives reopening the database", func() {
			Expect(store.SaveToken("tok-1")).To(Succeed())
			Expect(store.Close()).To(Succeed())

			var err error
			store, err = NewBoltTokenStore(dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.LoadToken()).To(Equal("tok-1"))
		})
	})

	Describe("ClearToken", func() {
		It("removes the token", func() {
			Expect(store.SaveToken("tok-1")).To(Succeed())
			Expect(store.ClearToken()).To(Succeed())
			Expect(store.LoadToken()).To(BeEmpty())
		})

		It("succeeds when nothing is stored", func() {
			Expect(store.ClearToken()).To(Succeed())
		})
	})

	When("the path cannot be opened", func() {
		It("returns an error", func() {
			_, err := NewBoltTokenStore(filepath.Join(GinkgoT().TempDir(), "missing", "dir", "test.db"))
			Expect(err).To(HaveOccurred())
		})
	})
})
