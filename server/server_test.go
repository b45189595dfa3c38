package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	vezor "github.com/vezor/vezor-go"
	"github.com/vezor/vezor-go/server/stores"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := New(Config{
		Store:     stores.NewMemoryStore(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		JWTSecret: "test-secret",
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

// login signs in (or signs up) through the password grant.
func login(t *testing.T, ts *httptest.Server, email, password string) tokenResponse {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/auth/v1/token?grant_type=password", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tr tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	return tr
}

// doReq sends an authenticated JSON request to the test server.
func doReq(t *testing.T, method, url, token, orgID string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if orgID != "" {
		req.Header.Set("X-Organization-Id", orgID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthIsOpen(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decodeJSON[vezor.Health](t, resp)
	require.Equal(t, "ok", health.Status)
	require.NotEmpty(t, health.Version)
}

func TestPasswordGrant(t *testing.T) {
	ts := newTestServer(t)

	// First login signs the account up.
	first := login(t, ts, "dev@vezor.io", "hunter2hunter2")
	require.NotEmpty(t, first.AccessToken)
	require.NotEmpty(t, first.RefreshToken)
	require.Equal(t, "bearer", first.TokenType)
	require.Equal(t, "dev@vezor.io", first.User.Email)
	require.Greater(t, first.ExpiresIn, int64(0))

	// Second login authenticates the same account.
	second := login(t, ts, "dev@vezor.io", "hunter2hunter2")
	require.Equal(t, first.User.ID, second.User.ID)

	// Wrong password is rejected, not signed up again.
	body, _ := json.Marshal(map[string]string{"email": "dev@vezor.io", "password": "wrong"})
	resp, err := http.Post(ts.URL+"/auth/v1/token?grant_type=password", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordGrantValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing email", `{"password": "x"}`, http.StatusBadRequest},
		{"missing password", `{"email": "a@b.c"}`, http.StatusBadRequest},
		{"invalid json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/auth/v1/token?grant_type=password", "application/json", bytes.NewReader([]byte(tt.body)))
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	ts := newTestServer(t)
	session := login(t, ts, "dev@vezor.io", "hunter2hunter2")

	refresh := func(token string) *http.Response {
		body, _ := json.Marshal(map[string]string{"refresh_token": token})
		resp, err := http.Post(ts.URL+"/auth/v1/token?grant_type=refresh_token", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		return resp
	}

	resp := refresh(session.RefreshToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	renewed := decodeJSON[tokenResponse](t, resp)
	require.NotEmpty(t, renewed.AccessToken)
	require.NotEqual(t, session.RefreshToken, renewed.RefreshToken)
	require.Equal(t, session.User.ID, renewed.User.ID)

	// The used refresh token is gone.
	resp = refresh(session.RefreshToken)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnsupportedGrantType(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/auth/v1/token?grant_type=client_credentials", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutRevokesRefreshTokens(t *testing.T) {
	ts := newTestServer(t)
	session := login(t, ts, "dev@vezor.io", "hunter2hunter2")

	resp := doReq(t, http.MethodPost, ts.URL+"/auth/v1/logout", session.AccessToken, "", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	body, _ := json.Marshal(map[string]string{"refresh_token": session.RefreshToken})
	refreshResp, err := http.Post(ts.URL+"/auth/v1/token?grant_type=refresh_token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer refreshResp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, refreshResp.StatusCode)
}

func TestAPIRequiresSession(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/secrets")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doReq(t, http.MethodGet, ts.URL+"/api/v1/secrets", "not-a-real-token", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	errBody := decodeJSON[map[string]string](t, resp)
	require.Contains(t, errBody["error"], "invalid or expired")
}
