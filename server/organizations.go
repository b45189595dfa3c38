package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	vezor "github.com/vezor/vezor-go"
	"github.com/vezor/vezor-go/server/middleware"
	"github.com/vezor/vezor-go/server/model"
)

func wireOrganization(org *model.Organization, userID string) vezor.Organization {
	role, _ := org.RoleOf(userID)
	return vezor.Organization{
		ID:          org.ID,
		Name:        org.Name,
		Description: org.Description,
		Role:        role,
		CreatedAt:   org.CreatedAt,
	}
}

// handleListOrganizations ignores the organization header: it always
// lists every organization the caller belongs to.
func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user info missing from context")
		return
	}
	orgs, err := s.store.ListOrganizations(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("failed to list organizations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list organizations")
		return
	}
	out := make([]vezor.Organization, 0, len(orgs))
	for _, org := range orgs {
		out = append(out, wireOrganization(org, user.ID))
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": out})
}

func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user info missing from context")
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	org := &model.Organization{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     user.ID,
		Members:     map[string]string{user.ID: model.RoleAdmin},
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateOrganization(r.Context(), org); err != nil {
		s.logger.Error("failed to create organization", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create organization")
		return
	}

	s.recordAudit(r.Context(), org, middleware.User{ID: user.ID, Email: user.Email}, "create_organization", org.Name)
	writeJSON(w, http.StatusCreated, wireOrganization(org, user.ID))
}

func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user info missing from context")
		return
	}
	org, err := s.store.GetOrganization(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "organization not found")
		return
	}
	if _, member := org.RoleOf(user.ID); !member {
		writeError(w, http.StatusForbidden, "not a member of this organization")
		return
	}
	writeJSON(w, http.StatusOK, wireOrganization(org, user.ID))
}
