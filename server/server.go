// Package server implements the Vezor dev server, a self-contained
// stand-in for the hosted API. The CLI's local mode and the e2e tests run
// against it; it speaks the same REST surface and issues its own session
// tokens, so no hosted account is needed during development.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-michi/michi"
	"golang.org/x/time/rate"

	vezor "github.com/vezor/vezor-go"
	"github.com/vezor/vezor-go/pkg/session"
	"github.com/vezor/vezor-go/server/middleware"
	"github.com/vezor/vezor-go/server/model"
	"github.com/vezor/vezor-go/server/stores"
)

const (
	maxHeaderBytes    = 1 << 20
	readTimeout       = 30 * time.Second
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 30 * time.Second

	defaultRateLimit = rate.Limit(50)
	defaultRateBurst = 100
)

// DefaultJWTSecret signs session tokens when no secret is configured.
// Fine for local development, never for anything reachable from outside.
const DefaultJWTSecret = "vezor-dev-secret"

type Config struct {
	Store        stores.Store
	Logger       *slog.Logger
	JWTSecret    string
	SessionHours int
}

// Server holds the handler state. Refresh tokens are kept in memory only;
// restarting the dev server signs everyone out, which is acceptable for
// its purpose.
type Server struct {
	store  stores.Store
	logger *slog.Logger
	signer *session.Signer

	refreshMu sync.Mutex
	refresh   map[string]string // refresh token -> user ID
}

func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	secret := cfg.JWTSecret
	if secret == "" {
		secret = DefaultJWTSecret
	}
	signer, err := session.NewSigner(secret, time.Duration(cfg.SessionHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &Server{
		store:   cfg.Store,
		logger:  cfg.Logger,
		signer:  signer,
		refresh: make(map[string]string),
	}, nil
}

// Router assembles the full handler chain: recovery, request logging,
// CORS and rate limiting around a router that keeps /api/v1/health and
// the auth endpoints open and session-guards everything else.
func (s *Server) Router() http.Handler {
	api := michi.NewRouter()
	api.HandleFunc("GET /api/v1/secrets", s.handleListSecrets)
	api.HandleFunc("POST /api/v1/secrets", s.handleCreateSecret)
	api.HandleFunc("GET /api/v1/secrets/{id}", s.handleGetSecret)
	api.HandleFunc("PUT /api/v1/secrets/{id}", s.handleUpdateSecret)
	api.HandleFunc("DELETE /api/v1/secrets/{id}", s.handleDeleteSecret)
	api.HandleFunc("GET /api/v1/secrets/{id}/versions", s.handleListVersions)
	api.HandleFunc("GET /api/v1/tags", s.handleTags)
	api.HandleFunc("GET /api/v1/export", s.handleExport)
	api.HandleFunc("POST /api/v1/import/{environment}", s.handleImport)
	api.HandleFunc("GET /api/v1/groups", s.handleListGroups)
	api.HandleFunc("POST /api/v1/groups", s.handleCreateGroup)
	api.HandleFunc("GET /api/v1/groups/{name}", s.handleGetGroup)
	api.HandleFunc("GET /api/v1/groups/{name}/count", s.handleGroupCount)
	api.HandleFunc("GET /api/v1/groups/{name}/secrets", s.handleGroupSecrets)
	api.HandleFunc("GET /api/v1/organizations", s.handleListOrganizations)
	api.HandleFunc("POST /api/v1/organizations", s.handleCreateOrganization)
	api.HandleFunc("GET /api/v1/organizations/{id}", s.handleGetOrganization)
	api.HandleFunc("GET /api/v1/audit", s.handleAuditLog)
	api.HandleFunc("POST /api/v1/validate", s.handleValidate)

	protected := middleware.RequireSession(s.validateSession, s.logger)(api)

	root := michi.NewRouter()
	root.HandleFunc("GET /api/v1/health", s.handleHealth)
	root.HandleFunc("POST /auth/v1/token", s.handleToken)
	root.HandleFunc("POST /auth/v1/logout", s.handleLogout)
	root.Handle("/api/v1/", protected)

	limiter := middleware.NewRateLimiter(s.logger, defaultRateLimit, defaultRateBurst,
		middleware.WithSkip(func(r *http.Request) bool {
			return r.URL.Path == "/api/v1/health"
		}))

	return middleware.Chain(root,
		middleware.Recovery(s.logger),
		middleware.Logging(s.logger),
		middleware.CORS(),
		limiter.Limit,
	)
}

// HTTPServer wraps the router in an http.Server with timeouts suited to
// a local API.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, vezor.Health{Status: "ok", Version: vezor.Version})
}

func (s *Server) validateSession(token string) (middleware.User, bool) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return middleware.User{}, false
	}
	return middleware.User{ID: claims.UserID(), Email: claims.Email}, true
}

// requestOrg resolves the organization scope of a request: the
// X-Organization-Id header when present, else the caller's default
// organization. Membership is always checked.
func (s *Server) requestOrg(w http.ResponseWriter, r *http.Request) (*model.Organization, middleware.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user info missing from context")
		return nil, middleware.User{}, false
	}
	orgID := r.Header.Get("X-Organization-Id")
	if orgID == "" {
		account, err := s.store.GetUser(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return nil, user, false
		}
		orgID = account.DefaultOrgID
	}
	org, err := s.store.GetOrganization(r.Context(), orgID)
	if err != nil {
		writeError(w, http.StatusNotFound, "organization not found")
		return nil, user, false
	}
	if _, member := org.RoleOf(user.ID); !member {
		writeError(w, http.StatusForbidden, "not a member of this organization")
		return nil, user, false
	}
	return org, user, true
}

func (s *Server) recordAudit(ctx context.Context, org *model.Organization, user middleware.User, action, path string) {
	entry := model.AuditEntry{
		Timestamp:  time.Now().UTC(),
		OrgID:      org.ID,
		Action:     action,
		UserEmail:  user.Email,
		SecretPath: path,
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.logger.Error("failed to append audit entry", "action", action, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(text))
}

// intQuery parses a non-negative integer query parameter, falling back
// to def when absent or malformed.
func intQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
