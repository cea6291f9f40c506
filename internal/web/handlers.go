package web

import (
	"bytes"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/zombor/scanly/internal/api"
	"github.com/zombor/scanly/internal/common"
	"github.com/zombor/scanly/internal/extraction"
	"github.com/zombor/scanly/internal/history"
	"github.com/zombor/scanly/internal/receipt"
)

// notices are the flash messages a redirect can ask for
var notices = map[string]string{
	"registered": "Account created successfully! Please sign in.",
	"deleted":    "Receipt deleted successfully!",
	"signed-out": "You have been signed out.",
}

type layoutData struct {
	Title  string
	User   *api.User
	Notice string
	Error  string
}

type homePage struct {
	layoutData
	Result *receipt.Extracted
}

type authPage struct {
	layoutData
	Email string
}

type historyPage struct {
	layoutData
	Receipts []receipt.Receipt
	Summary  receipt.Summary
	Filters  receipt.FilterInput
	Search   string
	Query    template.URL
	Loaded   bool
}

type receiptPage struct {
	layoutData
	Receipt *receipt.Receipt
}

type notFoundPage struct {
	layoutData
	Message string
}

func (s *Server) layout(r *http.Request, title string) layoutData {
	return layoutData{
		Title:  title,
		User:   s.session.User(),
		Notice: notices[r.URL.Query().Get("notice")],
	}
}

// render executes a page into a buffer first so a template error never
// produces a half-written response
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("Error rendering page", "page", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("Error writing response", "error", err)
	}
}

// signOutOnUnauthorized ends the session when the API rejected the token.
// It reports whether it redirected.
func (s *Server) signOutOnUnauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, common.ErrUnauthorized) {
		return false
	}
	s.logger.Info("Token rejected by API, signing out")
	if logoutErr := s.session.Logout(); logoutErr != nil {
		s.logger.Error("Error clearing session", "error", logoutErr)
	}
	s.history.Reset()
	s.extraction.Reset()
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return true
}

// handleStaticCSS serves the stylesheet
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write(appCSS)
}

// handleCatchAll sends unknown paths home
func (s *Server) handleCatchAll(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleHome shows the landing page, or the upload form and the latest
// extraction for a signed-in user
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	data := homePage{layoutData: s.layout(r, "Scan a receipt")}
	if data.User != nil {
		data.Result = s.extraction.Result()
		data.Error = s.extraction.Err()
	}
	s.render(w, http.StatusOK, "home.html", data)
}

// handleExtract uploads the chosen file and shows the outcome on the home page
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, extraction.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.logger.Error("Error parsing multipart form", "error", err)
		msg := "Error parsing form"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			msg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		s.renderHomeError(w, r, http.StatusBadRequest, msg)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		s.renderHomeError(w, r, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.logger.Error("Error reading file data", "error", err, "filename", header.Filename)
		s.renderHomeError(w, r, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	_, err = s.extraction.Extract(r.Context(), extraction.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil && s.signOutOnUnauthorized(w, r, err) {
		return
	}

	// The controller holds the result or the error; the home page shows it.
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) renderHomeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	data := homePage{layoutData: s.layout(r, "Scan a receipt")}
	data.Error = msg
	s.render(w, status, "home.html", data)
}

// handleExtractReset discards the extraction result
func (s *Server) handleExtractReset(w http.ResponseWriter, r *http.Request) {
	s.extraction.Reset()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login.html", authPage{layoutData: s.layout(r, "Sign in")})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	if _, err := s.auth.Authenticate(r.Context(), email, r.FormValue("password")); err != nil {
		s.logger.Info("Login failed", "error", err)
		data := authPage{layoutData: s.layout(r, "Sign in"), Email: email}
		data.Error = common.Message(err, "Invalid username or password")
		s.render(w, http.StatusUnauthorized, "login.html", data)
		return
	}

	// A different user may have signed in
	s.history.Reset()
	s.extraction.Reset()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "signup.html", authPage{layoutData: s.layout(r, "Create account")})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	if _, err := s.auth.Register(r.Context(), email, r.FormValue("password")); err != nil {
		data := authPage{layoutData: s.layout(r, "Create account"), Email: email}
		data.Error = common.Message(err, "Failed to create account. Please try again.")
		status := http.StatusBadGateway
		if errors.Is(err, common.ErrValidation) {
			status = http.StatusUnprocessableEntity
		}
		s.render(w, status, "signup.html", data)
		return
	}
	http.Redirect(w, r, "/login?notice=registered", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Logout(); err != nil {
		s.logger.Error("Error clearing session", "error", err)
	}
	s.history.Reset()
	s.extraction.Reset()
	http.Redirect(w, r, "/?notice=signed-out", http.StatusSeeOther)
}

// filterInput reads the history filters from the query string
func filterInput(q url.Values) receipt.FilterInput {
	return receipt.FilterInput{
		DateFrom:  q.Get("dateFrom"),
		DateTo:    q.Get("dateTo"),
		Merchant:  q.Get("merchant"),
		MinAmount: q.Get("minAmount"),
		MaxAmount: q.Get("maxAmount"),
	}
}

// search narrows a list by the merchant search box
func search(receipts []receipt.Receipt, term string) []receipt.Receipt {
	term = strings.TrimSpace(term)
	if term == "" {
		return receipts
	}
	return receipt.Apply(receipts, receipt.Filters{Merchant: term})
}

// handleHistory loads the list each time the page is opened. The view comes
// from this request's query string, not from the shared controller's filters.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	filters := receipt.ParseFilters(filterInput(r.URL.Query()))
	s.history.SetFilters(filters)
	if err := s.history.Load(r.Context()); err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		s.renderHistory(w, r, filters, http.StatusBadGateway)
		return
	}
	s.renderHistory(w, r, filters, http.StatusOK)
}

func (s *Server) renderHistory(w http.ResponseWriter, r *http.Request, filters receipt.Filters, status int) {
	q := r.URL.Query()
	filtered := receipt.Apply(s.history.All(), filters)
	data := historyPage{
		layoutData: s.layout(r, "Receipt History"),
		Receipts:   search(filtered, q.Get("q")),
		Summary:    receipt.SummarizeAt(filtered, s.now()),
		Filters:    filters.Input(),
		Search:     q.Get("q"),
		Query:      template.URL(exportQuery(q)),
		Loaded:     s.history.State() == history.Ready,
	}
	data.Error = s.history.Err()
	s.render(w, status, "history.html", data)
}

// exportQuery keeps only the filter parameters so export links reproduce
// the visible list
func exportQuery(q url.Values) string {
	out := url.Values{}
	for _, key := range []string{"dateFrom", "dateTo", "merchant", "minAmount", "maxAmount", "q"} {
		if v := q.Get(key); v != "" {
			out.Set(key, v)
		}
	}
	return out.Encode()
}

// handleRefresh reloads the list
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	target := "/history"
	if q := exportQuery(r.URL.Query()); q != "" {
		target += "?" + q
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// exportReceipts returns the receipts the history page shows for the request's filters
func (s *Server) exportReceipts(r *http.Request) ([]receipt.Receipt, error) {
	if s.history.State() != history.Ready {
		if err := s.history.Load(r.Context()); err != nil {
			return nil, err
		}
	}
	q := r.URL.Query()
	filtered := receipt.Apply(s.history.All(), receipt.ParseFilters(filterInput(q)))
	return search(filtered, q.Get("q")), nil
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.exportReceipts(r)
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		http.Error(w, common.Message(err, "Failed to fetch receipts"), http.StatusBadGateway)
		return
	}

	s.logger.Info("Exporting receipts", "format", "csv", "count", len(receipts))
	s.attach(w, receipt.CSVContentType, receipt.ExportFilename(s.now(), "csv"))
	io.WriteString(w, receipt.ToCSV(receipts))
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.exportReceipts(r)
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		http.Error(w, common.Message(err, "Failed to fetch receipts"), http.StatusBadGateway)
		return
	}

	data, err := receipt.ToXLSX(receipts)
	if err != nil {
		s.logger.Error("Error building workbook", "error", err)
		http.Error(w, "Error exporting receipts", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Exporting receipts", "format", "xlsx", "count", len(receipts))
	s.attach(w, receipt.XLSXContentType, receipt.ExportFilename(s.now(), "xlsx"))
	w.Write(data)
}

func (s *Server) attach(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// handleDelete deletes a receipt. The list only changes once the API has
// confirmed; on failure the unchanged list is shown with the error.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.history.DeleteByID(r.Context(), id); err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		s.renderHistory(w, r, receipt.ParseFilters(filterInput(r.URL.Query())), http.StatusBadGateway)
		return
	}
	http.Redirect(w, r, "/history?notice=deleted", http.StatusSeeOther)
}

// handleReceipt shows a single receipt
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	rec, err := s.receipts.GetReceipt(r.Context(), r.PathValue("id"))
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		data := notFoundPage{layoutData: s.layout(r, "Receipt not found")}
		if errors.Is(err, common.ErrNotFound) {
			data.Message = "The requested receipt could not be found."
			s.render(w, http.StatusNotFound, "notfound.html", data)
			return
		}
		s.logger.Error("Error loading receipt", "id", r.PathValue("id"), "error", err)
		data.Message = "Failed to load receipt"
		s.render(w, http.StatusBadGateway, "notfound.html", data)
		return
	}

	s.render(w, http.StatusOK, "receipt.html", receiptPage{
		layoutData: s.layout(r, rec.Merchant),
		Receipt:    rec,
	})
}
