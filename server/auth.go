package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vezor/vezor-go/pkg/session"
	"github.com/vezor/vezor-go/server/middleware"
	"github.com/vezor/vezor-go/server/model"
	"github.com/vezor/vezor-go/server/stores"
)

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	User         tokenUser `json:"user"`
}

type tokenUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// handleToken implements the password and refresh_token grants of the
// auth endpoint. Unknown emails are signed up on the spot with a
// personal organization, so a fresh dev server needs no provisioning.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("grant_type") {
	case "password":
		s.passwordGrant(w, r)
	case "refresh_token":
		s.refreshGrant(w, r)
	default:
		writeError(w, http.StatusBadRequest, "unsupported grant type")
	}
}

func (s *Server) passwordGrant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
			writeError(w, http.StatusUnauthorized, "invalid login credentials")
			return
		}
	case errors.Is(err, stores.ErrUserNotFound):
		user, err = s.signup(r, req.Email, req.Password)
		if err != nil {
			s.logger.Error("failed to create dev account", "email", req.Email, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create account")
			return
		}
	default:
		s.logger.Error("failed to look up user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.issueSession(w, user)
}

// signup creates a user plus a personal organization named after the
// email's local part.
func (s *Server) signup(r *http.Request, email, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	userID := uuid.NewString()
	org := &model.Organization{
		ID:        uuid.NewString(),
		Name:      orgNameFromEmail(email),
		OwnerID:   userID,
		Members:   map[string]string{userID: model.RoleAdmin},
		CreatedAt: time.Now().UTC(),
	}
	user := model.User{
		ID:           userID,
		Email:        email,
		PasswordHash: hash,
		DefaultOrgID: org.ID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		return nil, err
	}
	if err := s.store.CreateOrganization(r.Context(), org); err != nil {
		return nil, err
	}
	s.logger.Info("created dev account", "email", email, "org", org.Name)
	return &user, nil
}

func orgNameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

func (s *Server) refreshGrant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	s.refreshMu.Lock()
	userID, ok := s.refresh[req.RefreshToken]
	if ok {
		delete(s.refresh, req.RefreshToken)
	}
	s.refreshMu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	s.issueSession(w, user)
}

// issueSession mints an access token and a single-use refresh token.
// Refresh tokens rotate: each grant invalidates the one it was made
// with.
func (s *Server) issueSession(w http.ResponseWriter, user *model.User) {
	token, expiresAt, err := s.signer.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to sign session token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	refreshToken, err := session.NewRefreshToken()
	if err != nil {
		s.logger.Error("failed to mint refresh token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	s.refreshMu.Lock()
	s.refresh[refreshToken] = user.ID
	s.refreshMu.Unlock()

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  token,
		TokenType:    "bearer",
		ExpiresIn:    expiresAt - time.Now().Unix(),
		ExpiresAt:    expiresAt,
		RefreshToken: refreshToken,
		User:         tokenUser{ID: user.ID, Email: user.Email},
	})
}

// handleLogout drops every refresh token belonging to the caller. The
// access token itself stays valid until it expires; this matches how
// stateless JWT sessions behave.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
		return
	}
	claims, err := s.signer.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired session token")
		return
	}

	s.refreshMu.Lock()
	for rt, uid := range s.refresh {
		if uid == claims.UserID() {
			delete(s.refresh, rt)
		}
	}
	s.refreshMu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}
