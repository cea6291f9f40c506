package web

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/scanly/internal/api"
	"github.com/zombor/scanly/internal/session"
)

var _ = Describe("Integration", func() {
	var (
		dbPath    string
		store     *session.BoltTokenStore
		apiServer *ghttp.Server
		frontend  *ghttp.Server
		browser   *http.Client
		err       error
	)

	// start builds a front end over a fresh session restored from the bolt file
	start := func() *session.Session {
		store, err = session.NewBoltTokenStore(dbPath)
		Expect(err).NotTo(HaveOccurred())

		sess := session.New(store, nil)
		client := api.NewClient(apiServer.URL(), sess, nil)
		Expect(session.NewAuthenticator(sess, client).Init(context.Background())).To(Succeed())

		frontend = ghttp.NewServer()
		server := NewServer(client, sess, nil)
		frontend.RouteToHandler("GET", "/history", server.ServeHTTP)
		frontend.RouteToHandler("POST", "/login", server.ServeHTTP)
		return sess
	}

	stop := func() {
		frontend.Close()
		Expect(store.Close()).To(Succeed())
	}

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "scanly.db")
		apiServer = ghttp.NewServer()
		browser = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	})

	AfterEach(func() {
		apiServer.Close()
	})

	It("keeps the user signed in across restarts", func() {
		apiServer.AppendHandlers(
			// first run: login
			ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/auth/login-json"),
				ghttp.RespondWith(http.StatusOK, `{"access_token": "opaque-token"}`),
			),
			ghttp.CombineHandlers(
				ghttp.VerifyRequest("GET", "/auth/me"),
				ghttp.RespondWith(http.StatusOK, `{"id": "u1", "email": "a@b.co"}`),
			),
			// second run: restore then list
			ghttp.CombineHandlers(
				ghttp.VerifyRequest("GET", "/auth/me"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer opaque-token"),
				ghttp.RespondWith(http.StatusOK, `{"id": "u1", "email": "a@b.co"}`),
			),
			ghttp.CombineHandlers(
				ghttp.VerifyRequest("GET", "/receipts"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer opaque-token"),
				ghttp.RespondWith(http.StatusOK, receiptsJSON),
			),
		)

		// --- First run: nobody is signed in ---
		sess := start()
		Expect(sess.Authenticated()).To(BeFalse())

		resp, err := browser.Get(frontend.URL() + "/history")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/login"))

		resp, err = browser.PostForm(frontend.URL()+"/login", url.Values{"email": {"a@b.co"}, "password": {"secret1"}})
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(sess.Authenticated()).To(BeTrue())
		stop()

		// --- Second run: the token comes back from disk ---
		sess = start()
		Expect(sess.Authenticated()).To(BeTrue())
		Expect(sess.User().Email).To(Equal("a@b.co"))

		resp, err = browser.Get(frontend.URL() + "/history")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Contains(string(body), "Corner Cafe")).To(BeTrue())
		stop()
	})

	It("forgets a token the API no longer accepts", func() {
		store, err = session.NewBoltTokenStore(dbPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(store.SaveToken("revoked")).To(Succeed())
		Expect(store.Close()).To(Succeed())

		apiServer.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized, `{"detail": "Could not validate credentials"}`))

		store, err = session.NewBoltTokenStore(dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		sess := session.New(store, nil)
		client := api.NewClient(apiServer.URL(), sess, nil)
		Expect(session.NewAuthenticator(sess, client).Init(context.Background())).NotTo(Succeed())
		Expect(sess.Authenticated()).To(BeFalse())
		Expect(store.LoadToken()).To(BeEmpty())
	})
})
