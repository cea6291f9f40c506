// Package web serves the browser front end: server-rendered pages over the
// remote receipts API, with route guards driven by the session.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/zombor/scanly/internal/api"
	"github.com/zombor/scanly/internal/extraction"
	"github.com/zombor/scanly/internal/history"
	"github.com/zombor/scanly/internal/receipt"
	"github.com/zombor/scanly/internal/session"
)

// ReceiptFinder loads a single receipt for the detail page
type ReceiptFinder interface {
	GetReceipt(ctx context.Context, id string) (*receipt.Receipt, error)
}

// Deps holds everything the Server needs
type Deps struct {
	Session    *session.Session
	Auth       *session.Authenticator
	History    *history.Controller
	Extraction *extraction.Controller
	Receipts   ReceiptFinder
	Logger     *slog.Logger
	Now        func() time.Time
}

// Server handles HTTP requests for the front end
type Server struct {
	session    *session.Session
	auth       *session.Authenticator
	history    *history.Controller
	extraction *extraction.Controller
	receipts   ReceiptFinder
	logger     *slog.Logger
	now        func() time.Time
	mux        *http.ServeMux
}

// NewServer creates a Server wired to the remote API client
func NewServer(client *api.Client, sess *session.Session, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return NewServerWithDeps(Deps{
		Session:    sess,
		Auth:       session.NewAuthenticator(sess, client),
		History:    history.New(client, logger),
		Extraction: extraction.New(client, logger),
		Receipts:   client,
		Logger:     logger,
	}, http.NewServeMux())
}

// NewServerWithDeps creates a Server with custom dependencies and mux for testing
func NewServerWithDeps(deps Deps, mux *http.ServeMux) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		session:    deps.Session,
		auth:       deps.Auth,
		history:    deps.History,
		extraction: deps.Extraction,
		receipts:   deps.Receipts,
		logger:     deps.Logger,
		now:        deps.Now,
		mux:        mux,
	}
	s.registerRoutes()
	return s
}

// requireAuth redirects to the login page unless a user is signed in. The
// check runs on every request.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.session.Authenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// logRequests logs each request at debug level
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /static/app.css", s.handleStaticCSS)

	// Public pages
	s.mux.HandleFunc("GET /{$}", s.handleHome)
	s.mux.HandleFunc("GET /login", s.handleLoginPage)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("GET /signup", s.handleSignupPage)
	s.mux.HandleFunc("POST /signup", s.handleSignup)
	s.mux.HandleFunc("POST /logout", s.handleLogout)

	// Extraction (signed-out uploads are sent to the login page)
	s.mux.HandleFunc("POST /extract", s.requireAuth(s.handleExtract))
	s.mux.HandleFunc("POST /extract/reset", s.handleExtractReset)

	// Protected pages
	s.mux.HandleFunc("GET /history/export.csv", s.requireAuth(s.handleExportCSV))
	s.mux.HandleFunc("GET /history/export.xlsx", s.requireAuth(s.handleExportXLSX))
	s.mux.HandleFunc("GET /history", s.requireAuth(s.handleHistory))
	s.mux.HandleFunc("POST /history/refresh", s.requireAuth(s.handleRefresh))
	s.mux.HandleFunc("POST /receipts/{id}/delete", s.requireAuth(s.handleDelete))
	s.mux.HandleFunc("GET /receipt/{id}", s.requireAuth(s.handleReceipt))

	// Anything else goes home
	s.mux.HandleFunc("GET /", s.handleCatchAll)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.logRequests(s.mux))
}

// Close detaches the controllers so late responses are dropped
func (s *Server) Close() {
	s.history.Close()
	s.extraction.Close()
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
