package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	vezor "github.com/vezor/vezor-go"
	"github.com/vezor/vezor-go/pkg/dotenv"
	"github.com/vezor/vezor-go/server/model"
	"github.com/vezor/vezor-go/server/stores"
)

func wireGroup(g *model.Group) vezor.Group {
	return vezor.Group{
		Name:        g.Name,
		Tags:        g.Tags,
		Description: g.Description,
		CreatedAt:   g.CreatedAt,
	}
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	org, user, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	var req struct {
		Name        string            `json:"name"`
		Tags        map[string]string `json:"tags"`
		Description string            `json:"description"`
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

	group := &model.Group{
		Name:        req.Name,
		OrgID:       org.ID,
		Tags:        req.Tags,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		if errors.Is(err, stores.ErrGroupExists) {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("group %q already exists", req.Name))
			return
		}
		s.logger.Error("failed to create group", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create group")
		return
	}

	s.recordAudit(r.Context(), org, user, "create_group", group.Name)
	writeJSON(w, http.StatusCreated, wireGroup(group))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	org, _, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	groups, err := s.store.ListGroups(r.Context(), org.ID)
	if err != nil {
		s.logger.Error("failed to list groups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}
	out := make([]vezor.Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, wireGroup(g))
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": out})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	org, _, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	group, err := s.store.GetGroup(r.Context(), org.ID, r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	writeJSON(w, http.StatusOK, wireGroup(group))
}

func (s *Server) handleGroupCount(w http.ResponseWriter, r *http.Request) {
	org, _, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	group, err := s.store.GetGroup(r.Context(), org.ID, r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	secrets, err := s.groupSecrets(r, group)
	if err != nil {
		s.logger.Error("failed to resolve group", "group", group.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve group")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": group.Name, "count": len(secrets)})
}

// handleGroupSecrets resolves a group to its current values in one of
// three formats: json (the default), env, or export.
func (s *Server) handleGroupSecrets(w http.ResponseWriter, r *http.Request) {
	org, _, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	group, err := s.store.GetGroup(r.Context(), org.ID, r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	values, err := s.groupSecrets(r, group)
	if err != nil {
		s.logger.Error("failed to resolve group", "group", group.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve group")
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		writeJSON(w, http.StatusOK, vezor.GroupSecrets{
			Group:   group.Name,
			Tags:    group.Tags,
			Secrets: values,
			Count:   len(values),
		})
	case "env":
		writeText(w, http.StatusOK, dotenv.Encode(values))
	case "export":
		writeText(w, http.StatusOK, dotenv.EncodeExport(values))
	default:
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("unsupported format: %s", format))
	}
}

// groupSecrets returns the current value of every secret whose tags
// cover the group's tag set.
func (s *Server) groupSecrets(r *http.Request, group *model.Group) (map[string]string, error) {
	all, err := s.store.ListSecrets(r.Context(), group.OrgID)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string)
	for _, sec := range all {
		if sec.MatchesTags(group.Tags) {
			values[sec.KeyName] = sec.Current().Value
		}
	}
	return values, nil
}
