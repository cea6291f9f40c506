package session

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/zombor/scanly/internal/api"
	"github.com/zombor/scanly/internal/common"
)

// MinPasswordLength is the shortest password accepted at signup
const MinPasswordLength = 6

// AuthAPI is the part of the remote API used for authentication
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, email, password string) (api.User, error)
	Me(ctx context.Context) (api.User, error)
}

// Authenticator runs the login, signup and startup flows against the API
// and records the outcome in a Session.
type Authenticator struct {
	session *Session
	auth    AuthAPI
	now     func() time.Time
}

// NewAuthenticator creates an Authenticator
func NewAuthenticator(session *Session, auth AuthAPI) *Authenticator {
	return &Authenticator{session: session, auth: auth, now: time.Now}
}

// NewAuthenticatorWithClock creates an Authenticator with a custom clock for testing
func NewAuthenticatorWithClock(session *Session, auth AuthAPI, now func() time.Time) *Authenticator {
	return &Authenticator{session: session, auth: auth, now: now}
}

// Init restores the session from the persisted token. An expired JWT is
// dropped without contacting the server; a token the server rejects is
// removed. Having no token is not an error.
func (a *Authenticator) Init(ctx context.Context) error {
	token, err := a.session.store.LoadToken()
	if err != nil {
		return fmt.Errorf("loading token: %w", err)
	}
	if token == "" {
		return nil
	}

	if tokenExpired(token, a.now()) {
		a.session.logger.Info("Stored token has expired")
		return a.session.Logout()
	}

	a.session.stage(token)
	user, err := a.auth.Me(ctx)
	if err != nil {
		a.session.logger.Warn("Stored token rejected", "error", err)
		if clearErr := a.session.Logout(); clearErr != nil {
			return clearErr
		}
		return fmt.Errorf("restoring session: %w", err)
	}

	return a.session.Login(token, user)
}

// Authenticate signs in with email and password: obtain a token, fetch the
// user with it, then record both. Any failure leaves the session signed out.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*api.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, common.NewValidationError("email", "Email is required")
	}
	if password == "" {
		return nil, common.NewValidationError("password", "Password is required")
	}

	token, err := a.auth.Login(ctx, email, password)
	if err != nil {
		a.signOut()
		return nil, common.NewUserError("Invalid username or password", err)
	}

	a.session.stage(token)
	user, err := a.auth.Me(ctx)
	if err != nil {
		a.signOut()
		return nil, common.NewUserError("Invalid username or password", err)
	}

	if err := a.session.Login(token, user); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return &user, nil
}

// signOut clears the session after a failed sign-in. The sign-in error is
// what the caller reports, so a storage failure here is only logged.
func (a *Authenticator) signOut() {
	if err := a.session.Logout(); err != nil {
		a.session.logger.Warn("Failed to clear session after sign-in failure", "error", err)
	}
}

// Register validates the credentials locally and creates the account. It
// does not sign the new user in.
func (a *Authenticator) Register(ctx context.Context, email, password string) (*api.User, error) {
	if err := ValidateSignup(email, password); err != nil {
		return nil, err
	}

	user, err := a.auth.Register(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, common.NewUserError(common.Message(err, "Failed to create account. Please try again."), err)
	}
	return &user, nil
}

// ValidateSignup checks signup input before anything is sent.
func ValidateSignup(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return common.NewValidationError("email", "Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return common.NewValidationError("email", "Please enter a valid email address")
	}
	if len(password) < MinPasswordLength {
		return common.NewValidationError("password",
			fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	return nil
}
