package vezor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	client, err := New(Config{
		BaseURL:        ts.URL,
		Token:          "test-token",
		OrganizationID: "org-1",
		HTTPClient:     ts.Client(),
	})
	assert.NoError(t, err)
	return client
}

func TestNewDefaults(t *testing.T) {
	client, err := New(Config{})
	assert.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, client.BaseURL())

	client, err = New(Config{BaseURL: "https://vezor.example.com/"})
	assert.NoError(t, err)
	assert.Equal(t, "https://vezor.example.com", client.BaseURL())
}

func TestNewRejectsBadScheme(t *testing.T) {
	_, err := New(Config{BaseURL: "ftp://vezor.example.com"})
	assert.Error(t, err)
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		json.NewEncoder(w).Encode(SecretList{})
	}))

	_, err := client.ListSecrets(context.Background(), ListSecretsOptions{})
	assert.NoError(t, err)
	assert.Equal(t, "Bearer test-token", got.Get("Authorization"))
	assert.Equal(t, "vezor-go/"+Version, got.Get("User-Agent"))
	assert.Equal(t, "org-1", got.Get("X-Organization-Id"))
	assert.Equal(t, "application/json", got.Get("Accept"))
}

func TestOrganizationHeaderOmittedWhenUnset(t *testing.T) {
	var got http.Header
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		json.NewEncoder(w).Encode(SecretList{})
	}))
	client.SetOrganization("")

	_, err := client.ListSecrets(context.Background(), ListSecretsOptions{})
	assert.NoError(t, err)
	assert.Equal(t, "", got.Get("X-Organization-Id"))
}

func TestListSecretsTagFilterParams(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(SecretList{})
	}))

	tags := map[string]string{"env": "prod", "app": "api"}
	_, err := client.ListSecrets(context.Background(), ListSecretsOptions{Tags: tags})
	assert.NoError(t, err)

	// One parameter per tag key, nothing extra beyond the paging defaults.
	for k, v := range tags {
		assert.Equal(t, []string{v}, gotQuery[k])
	}
	assert.Equal(t, []string{"0"}, gotQuery["offset"])
	assert.Equal(t, 0, len(gotQuery["limit"]))
	assert.Equal(t, 0, len(gotQuery["search"]))
}

func TestListSecretsPagingParams(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(SecretList{})
	}))

	_, err := client.ListSecrets(context.Background(), ListSecretsOptions{Search: "DATABASE", Limit: 10, Offset: 20})
	assert.NoError(t, err)
	assert.Equal(t, []string{"DATABASE"}, gotQuery["search"])
	assert.Equal(t, []string{"10"}, gotQuery["limit"])
	assert.Equal(t, []string{"20"}, gotQuery["offset"])
}

func TestGetSecretVersionParam(t *testing.T) {
	var gotPath, gotVersion string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.URL.Query().Get("version")
		json.NewEncoder(w).Encode(Secret{ID: "s1", Version: 2})
	}))

	_, err := client.GetSecret(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Equal(t, "/api/v1/secrets/s1", gotPath)
	assert.Equal(t, "", gotVersion)

	_, err = client.GetSecretVersion(context.Background(), "s1", 2)
	assert.NoError(t, err)
	assert.Equal(t, "2", gotVersion)

	_, err = client.GetSecretVersion(context.Background(), "s1", 0)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"401 auth", http.StatusUnauthorized, `{"error":"token expired"}`, ErrAuth},
		{"403 permission", http.StatusForbidden, `{"error":"read only"}`, ErrPermission},
		{"404 not found", http.StatusNotFound, `{"error":"no such secret"}`, ErrNotFound},
		{"422 validation", http.StatusUnprocessableEntity, `{"error":"bad value_type"}`, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			_, err := client.GetSecret(context.Background(), "s1")
			assert.True(t, errors.Is(err, tt.kind))
			var apiErr *Error
			assert.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestServerErrorKeepsStatusAndMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
	}))
	_, err := client.GetSecret(context.Background(), "s1")
	var apiErr *Error
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "database unavailable", apiErr.Message)
}

func TestTransportFailureClassified(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client, err := New(Config{BaseURL: url, Token: "test-token"})
	assert.NoError(t, err)
	_, err = client.GetSecret(context.Background(), "s1")
	assert.True(t, errors.Is(err, ErrTransport))
	var apiErr *Error
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.StatusCode)
}

func TestMissingTokenFailsBeforeNetwork(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(SecretList{})
	}))
	t.Cleanup(ts.Close)

	client, err := New(Config{BaseURL: ts.URL})
	assert.NoError(t, err)

	ctx := context.Background()
	_, listErr := client.ListSecrets(ctx, ListSecretsOptions{})
	_, getErr := client.GetSecret(ctx, "s1")
	delErr := client.DeleteSecret(ctx, "s1")
	for _, err := range []error{listErr, getErr, delErr} {
		assert.True(t, errors.Is(err, ErrAuth))
	}
	assert.Equal(t, int64(0), calls.Load())

	// Setting a token afterwards makes the same client usable.
	client.SetToken("test-token")
	_, err = client.ListSecrets(ctx, ListSecretsOptions{})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestHealthWorksWithoutToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Health{Status: "ok", Version: "1.2.3"})
	}))
	t.Cleanup(ts.Close)

	client, err := New(Config{BaseURL: ts.URL})
	assert.NoError(t, err)
	health, err := client.Health(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}

func TestGetSecretByName(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/secrets":
			json.NewEncoder(w).Encode(SecretList{Secrets: []Secret{
				{ID: "s1", KeyName: "DATABASE_URL_OLD"},
				{ID: "s2", KeyName: "DATABASE_URL"},
			}, Total: 2})
		case "/api/v1/secrets/s2":
			json.NewEncoder(w).Encode(Secret{ID: "s2", KeyName: "DATABASE_URL", Value: "postgres://localhost", Version: 1})
		default:
			http.NotFound(w, r)
		}
	}))

	secret, err := client.GetSecretByName(context.Background(), "DATABASE_URL", nil)
	assert.NoError(t, err)
	assert.Equal(t, "s2", secret.ID)
	assert.Equal(t, "postgres://localhost", secret.Value)

	_, err = client.GetSecretByName(context.Background(), "MISSING_KEY", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestImportEnvSendsPlainText(t *testing.T) {
	var gotContentType, gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(ImportResult{Imported: 2})
	}))

	result, err := client.ImportEnv(context.Background(), "staging", "A=1\nB=2\n")
	assert.NoError(t, err)
	assert.Equal(t, "text/plain", gotContentType)
	assert.Equal(t, "/api/v1/import/staging", gotPath)
	assert.Equal(t, 2, result.Imported)
}

func TestGroupNameEscapedInPath(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(Group{Name: "team/api one"})
	}))

	_, err := client.GetGroup(context.Background(), "team/api one")
	assert.NoError(t, err)
	assert.Equal(t, "/api/v1/groups/team%2Fapi%20one", gotPath)
}

func TestPullGroupEnvFormats(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("A=1\n"))
	}))

	out, err := client.PullGroupEnv(context.Background(), "backend", "env")
	assert.NoError(t, err)
	assert.Equal(t, "A=1\n", out)

	_, err = client.PullGroupEnv(context.Background(), "backend", "toml")
	assert.True(t, errors.Is(err, ErrValidation))
}
