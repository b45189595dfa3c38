package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vezor/vezor-go/pkg/oskeyring"
)

// Config holds settings for the password provider.
type Config struct {
	// AuthURL is the auth service endpoint. Defaults to DefaultAuthURL.
	AuthURL string
	// AnonKey is the public API key sent with every auth request.
	AnonKey string
	// HTTPClient overrides the transport.
	HTTPClient *http.Client
	// Logger receives debug logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// PasswordProvider implements Provider with the email+password grant.
type PasswordProvider struct {
	authURL    string
	anonKey    string
	httpClient *http.Client
	keyring    oskeyring.Service
	logger     *slog.Logger
}

// NewPasswordProvider creates a provider that stores sessions in the
// given keyring.
func NewPasswordProvider(cfg Config, keyring oskeyring.Service) *PasswordProvider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &PasswordProvider{
		authURL:    strings.TrimRight(cfg.AuthURL, "/"),
		anonKey:    cfg.AnonKey,
		httpClient: cfg.HTTPClient,
		keyring:    keyring,
		logger:     cfg.Logger,
	}
}

// Login exchanges credentials for a session and stores it in the keyring.
func (p *PasswordProvider) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	session, err := p.tokenGrant(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	if err := p.storeSession(session); err != nil {
		return nil, err
	}
	p.logger.Debug("login succeeded", "email", session.Email)
	return session, nil
}

// Token returns a valid access token, refreshing the stored session when
// it is about to expire.
func (p *PasswordProvider) Token(ctx context.Context) (string, error) {
	session, err := p.loadSession()
	if err != nil {
		return "", err
	}
	if session.Expired() && session.RefreshToken != "" {
		p.logger.Debug("session expiring, refreshing", "email", session.Email)
		session, err = p.refresh(ctx, session)
		if err != nil {
			return "", err
		}
	}
	return session.AccessToken, nil
}

// Session returns the stored session without refreshing it.
func (p *PasswordProvider) Session(ctx context.Context) (*Session, error) {
	return p.loadSession()
}

// Logout revokes the session server side (best effort) and removes it
// from the keyring.
func (p *PasswordProvider) Logout(ctx context.Context) error {
	session, err := p.loadSession()
	if err != nil {
		if errors.Is(err, ErrNotLoggedIn) {
			return nil
		}
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.authURL+"/auth/v1/logout", nil)
	if err == nil {
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)
		req.Header.Set("apikey", p.anonKey)
		if resp, err := p.httpClient.Do(req); err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		} else {
			p.logger.Debug("server-side logout failed", "error", err)
		}
	}
	return p.keyring.Delete(SessionKey)
}

// refresh exchanges the refresh token for a new session and stores it.
func (p *PasswordProvider) refresh(ctx context.Context, old *Session) (*Session, error) {
	session, err := p.tokenGrant(ctx, "refresh_token", map[string]string{
		"refresh_token": old.RefreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	if session.Email == "" {
		session.Email = old.Email
	}
	if session.UserID == "" {
		session.UserID = old.UserID
	}
	if err := p.storeSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (p *PasswordProvider) tokenGrant(ctx context.Context, grantType string, payload map[string]string) (*Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	url := p.authURL + "/auth/v1/token?grant_type=" + grantType
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.anonKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()
	respBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("authentication failed: %s", authErrorMessage(resp.StatusCode, respBytes))
	}

	var tr struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		ExpiresAt    int64  `json:"expires_at"`
		User         struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(respBytes, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, errors.New("auth response contained no access token")
	}

	expiresAt := time.Time{}
	if tr.ExpiresAt > 0 {
		expiresAt = time.Unix(tr.ExpiresAt, 0)
	} else if tr.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    expiresAt,
		UserID:       tr.User.ID,
		Email:        tr.User.Email,
	}, nil
}

// authErrorMessage pulls the human-readable part out of a GoTrue error
// body.
func authErrorMessage(status int, body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, field := range []string{"error_description", "msg", "error", "message"} {
			if v, ok := payload[field].(string); ok && v != "" {
				return v
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

func (p *PasswordProvider) loadSession() (*Session, error) {
	raw, err := p.keyring.Get(SessionKey)
	if err != nil {
		if errors.Is(err, oskeyring.ErrNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to read session from keyring: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("stored session is corrupt: %w", err)
	}
	return &s, nil
}

func (p *PasswordProvider) storeSession(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := p.keyring.Set(SessionKey, string(data)); err != nil {
		return fmt.Errorf("failed to store session in keyring: %w", err)
	}
	return nil
}

var _ Provider = (*PasswordProvider)(nil)
