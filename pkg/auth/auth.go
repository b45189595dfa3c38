// Package auth authenticates users against the Vezor auth service (a
// GoTrue-compatible endpoint) and persists the resulting session in the
// OS keyring.
package auth

import (
	"context"
	"errors"
	"time"
)

// SessionKey is the keyring entry holding the JSON-encoded session.
const SessionKey = "session"

// DefaultAuthURL is the hosted Vezor auth endpoint.
const DefaultAuthURL = "https://auth.vezor.io"

// ErrNotLoggedIn is returned when no session is stored.
var ErrNotLoggedIn = errors.New("not logged in, run 'vezor login' first")

// Session is a stored login.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
}

// Expired reports whether the session is expired or about to expire.
// The margin keeps a token from dying mid-request.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Until(s.ExpiresAt) < time.Minute
}

// Provider hands out API tokens for the current user.
type Provider interface {
	// Login exchanges credentials for a session and stores it.
	Login(ctx context.Context, email, password string) (*Session, error)
	// Token returns a valid access token, refreshing the stored session
	// when it is about to expire. Returns ErrNotLoggedIn when nothing is
	// stored.
	Token(ctx context.Context) (string, error)
	// Session returns the stored session without refreshing it.
	Session(ctx context.Context) (*Session, error)
	// Logout revokes the session server side (best effort) and removes
	// it from the keyring.
	Logout(ctx context.Context) error
}
