package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// User identifies the authenticated caller for downstream handlers.
type User struct {
	ID    string
	Email string
}

// TokenValidator checks a bearer token and resolves it to a user.
type TokenValidator func(token string) (User, bool)

type userContextKey struct{}

// RequireSession wraps handlers with bearer token validation. Requests
// without a valid session token are rejected with a JSON 401 before the
// handler runs.
func RequireSession(validate TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r.Header.Get("Authorization"))
			if token == "" {
				unauthorized(w, "missing or invalid Authorization header")
				return
			}
			user, valid := validate(token)
			if !valid {
				logger.Debug("rejected session token", "path", r.URL.Path)
				unauthorized(w, "invalid or expired session token")
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user stored by RequireSession.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userContextKey{}).(User)
	return user, ok
}

// ExtractBearerToken pulls the token out of an Authorization header.
func ExtractBearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
