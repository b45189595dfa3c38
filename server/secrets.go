package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	vezor "github.com/vezor/vezor-go"
	"github.com/vezor/vezor-go/pkg/dotenv"
	"github.com/vezor/vezor-go/server/model"
	"github.com/vezor/vezor-go/server/stores"
)

const defaultSecretPageSize = 100

var validValueTypes = map[string]bool{
	string(vezor.ValueTypeString):           true,
	string(vezor.ValueTypePassword):         true,
	string(vezor.ValueTypeURL):              true,
	string(vezor.ValueTypeConnectionString): true,
}

// wireSecret maps a stored secret to its API shape. List responses leave
// out the value; single-secret responses include it.
func wireSecret(sec *model.Secret, includeValue bool) vezor.Secret {
	out := vezor.Secret{
		ID:          sec.ID,
		KeyName:     sec.KeyName,
		Version:     len(sec.Versions),
		Tags:        sec.Tags,
		Description: sec.Description,
		ValueType:   vezor.ValueType(sec.ValueType),
		CreatedAt:   sec.CreatedAt,
		UpdatedAt:   sec.UpdatedAt,
	}
	if includeValue {
		out.Value = sec.Current().Value
	}
	return out
}

// wireSecretVersion renders a secret pinned to one historical version.
func wireSecretVersion(sec *model.Secret, v model.SecretVersion) vezor.Secret {
	return vezor.Secret{
		ID:          sec.ID,
		KeyName:     sec.KeyName,
		Value:       v.Value,
		Version:     v.Version,
		Tags:        sec.Tags,
		Description: sec.Description,
		ValueType:   vezor.ValueType(sec.ValueType),
		CreatedAt:   sec.CreatedAt,
		UpdatedAt:   v.CreatedAt,
	}
}

// tagFilter reads every query parameter that is not a reserved list
// control as a tag filter.
func tagFilter(r *http.Request, reserved ...string) map[string]string {
	skip := make(map[string]bool, len(reserved))
	for _, k := range reserved {
		skip[k] = true
	}
	tags := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if skip[k] || len(vs) == 0 {
			continue
		}
		tags[k] = vs[0]
	}
	return tags
}

func (s *Server) handleListSecrets(w http.ResponseWriter, r *http.Request) {
	org, _, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	all, err := s.store.ListSecrets(r.Context(), org.ID)
	if err != nil {
		s.logger.Error("failed to list secrets", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list secrets")
		return
	}

	tags := tagFilter(r, "limit", "offset", "search")
	search := strings.ToLower(r.URL.Query().Get("search"))
	matched := make([]*model.Secret, 0, len(all))
	for _, sec := range all {
		if !sec.MatchesTags(tags) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(sec.KeyName), search) {
			continue
		}
		matched = append(matched, sec)
	}

	total := len(matched)
	limit := intQuery(r, "limit", defaultSecretPageSize)
	if limit == 0 {
		limit = defaultSecretPageSize
	}
	offset := intQuery(r, "offset", 0)
	if offset > total {
		offset = total
	}
	page := matched[offset:]
	if len(page) > limit {
		page = page[:limit]
	}

	out := vezor.SecretList{
		Secrets: make([]vezor.Secret, 0, len(page)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	for _, sec := range page {
		out.Secrets = append(out.Secrets, wireSecret(sec, false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSecret(w http.ResponseWriter, r *http.Request) {
	org, _, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	sec, err := s.store.GetSecret(r.Context(), org.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "secret not found")
		return
	}

	if raw := r.URL.Query().Get("version"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusUnprocessableEntity, "invalid version")
			return
		}
		if n > len(sec.Versions) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("version %d not found", n))
			return
		}
		writeJSON(w, http.StatusOK, wireSecretVersion(sec, sec.Versions[n-1]))
		return
	}
	writeJSON(w, http.StatusOK, wireSecret(sec, true))
}

func (s *Server) handleCreateSecret(w http.ResponseWriter, r *http.Request) {
	org, user, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	var req struct {
		KeyName     string            `json:"key_name"`
		Value       string            `json:"value"`
		Tags        map[string]string `json:"tags"`
		Description string            `json:"description"`
		ValueType   string            `json:"value_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.KeyName = strings.TrimSpace(req.KeyName)
	if req.KeyName == "" {
		writeError(w, http.StatusUnprocessableEntity, "key_name is required")
		return
	}
	if req.ValueType == "" {
		req.ValueType = string(vezor.ValueTypeString)
	}
	if !validValueTypes[req.ValueType] {
		writeError(w, http.StatusUnprocessableEntity, "invalid value_type")
		return
	}

	now := time.Now().UTC()
	sec := &model.Secret{
		ID:      uuid.NewString(),
		OrgID:   org.ID,
		KeyName: req.KeyName,
		Versions: []model.SecretVersion{{
			Version:   1,
			Value:     req.Value,
			CreatedAt: now,
			CreatedBy: user.Email,
		}},
		Tags:        req.Tags,
		Description: req.Description,
		ValueType:   req.ValueType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateSecret(r.Context(), sec); err != nil {
		if errors.Is(err, stores.ErrSecretExists) {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("secret with key name %q already exists", req.KeyName))
			return
		}
		s.logger.Error("failed to create secret", "key", req.KeyName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create secret")
		return
	}

	s.recordAudit(r.Context(), org, user, "create_secret", sec.KeyName)
	writeJSON(w, http.StatusCreated, wireSecret(sec, true))
}

func (s *Server) handleUpdateSecret(w http.ResponseWriter, r *http.Request) {
	org, user, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	var req struct {
		Value       *string           `json:"value"`
		Description *string           `json:"description"`
		Tags        map[string]string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Value == nil && req.Description == nil && req.Tags == nil {
		writeError(w, http.StatusUnprocessableEntity, "nothing to update")
		return
	}

	var updated model.Secret
	err := s.store.UpdateSecret(r.Context(), org.ID, r.PathValue("id"), func(sec model.Secret) (model.Secret, error) {
		now := time.Now().UTC()
		if req.Value != nil {
			sec.Versions = append(sec.Versions, model.SecretVersion{
				Version:   len(sec.Versions) + 1,
				Value:     *req.Value,
				CreatedAt: now,
				CreatedBy: user.Email,
			})
		}
		if req.Description != nil {
			sec.Description = *req.Description
		}
		if req.Tags != nil {
			sec.Tags = req.Tags
		}
		sec.UpdatedAt = now
		updated = sec
		return sec, nil
	})
	if err != nil {
		if errors.Is(err, stores.ErrSecretNotFound) {
			writeError(w, http.StatusNotFound, "secret not found")
			return
		}
		s.logger.Error("failed to update secret", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update secret")
		return
	}

	s.recordAudit(r.Context(), org, user, "update_secret", updated.KeyName)
	writeJSON(w, http.StatusOK, wireSecret(&updated, true))
}

func (s *Server) handleDeleteSecret(w http.ResponseWriter, r *http.Request) {
	org, user, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	sec, err := s.store.GetSecret(r.Context(), org.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "secret not found")
		return
	}
	if err := s.store.DeleteSecret(r.Context(), org.ID, sec.ID); err != nil {
		writeError(w, http.StatusNotFound, "secret not found")
		return
	}

	s.recordAudit(r.Context(), org, user, "delete_secret", sec.KeyName)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	org, _, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	sec, err := s.store.GetSecret(r.Context(), org.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "secret not found")
		return
	}

	out := vezor.VersionList{
		Versions:       make([]vezor.SecretVersion, 0, len(sec.Versions)),
		CurrentVersion: len(sec.Versions),
	}
	for i := len(sec.Versions) - 1; i >= 0; i-- {
		v := sec.Versions[i]
		out.Versions = append(out.Versions, vezor.SecretVersion{
			Version:   v.Version,
			Value:     v.Value,
			CreatedAt: v.CreatedAt,
			CreatedBy: v.CreatedBy,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	org, _, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	all, err := s.store.ListSecrets(r.Context(), org.ID)
	if err != nil {
		s.logger.Error("failed to list secrets", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tags")
		return
	}

	seen := make(map[string]map[string]bool)
	for _, sec := range all {
		for k, v := range sec.Tags {
			if seen[k] == nil {
				seen[k] = make(map[string]bool)
			}
			seen[k][v] = true
		}
	}
	tags := make(map[string][]string, len(seen))
	for k, vs := range seen {
		values := make([]string, 0, len(vs))
		for v := range vs {
			values = append(values, v)
		}
		sort.Strings(values)
		tags[k] = values
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	org, _, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	all, err := s.store.ListSecrets(r.Context(), org.ID)
	if err != nil {
		s.logger.Error("failed to list secrets", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export secrets")
		return
	}

	tags := tagFilter(r)
	values := make(map[string]string)
	for _, sec := range all {
		if sec.MatchesTags(tags) {
			values[sec.KeyName] = sec.Current().Value
		}
	}
	writeText(w, http.StatusOK, dotenv.Encode(values))
}

// handleImport upserts every entry of a dotenv body as a secret tagged
// env=<environment>. Existing secrets get a new version; their other
// tags are kept.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	org, user, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	environment := r.PathValue("environment")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	values := dotenv.Decode(string(body))

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var imported int
	var errs []string
	for _, key := range keys {
		value := values[key]
		existing, err := s.store.GetSecretByName(r.Context(), org.ID, key)
		switch {
		case err == nil:
			err = s.store.UpdateSecret(r.Context(), org.ID, existing.ID, func(sec model.Secret) (model.Secret, error) {
				now := time.Now().UTC()
				sec.Versions = append(sec.Versions, model.SecretVersion{
					Version:   len(sec.Versions) + 1,
					Value:     value,
					CreatedAt: now,
					CreatedBy: user.Email,
				})
				if sec.Tags == nil {
					sec.Tags = make(map[string]string)
				}
				sec.Tags["env"] = environment
				sec.UpdatedAt = now
				return sec, nil
			})
		case errors.Is(err, stores.ErrSecretNotFound):
			now := time.Now().UTC()
			err = s.store.CreateSecret(r.Context(), &model.Secret{
				ID:      uuid.NewString(),
				OrgID:   org.ID,
				KeyName: key,
				Versions: []model.SecretVersion{{
					Version:   1,
					Value:     value,
					CreatedAt: now,
					CreatedBy: user.Email,
				}},
				Tags:      map[string]string{"env": environment},
				ValueType: string(vezor.ValueTypeString),
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		imported++
	}

	s.recordAudit(r.Context(), org, user, "import_secrets", environment)
	writeJSON(w, http.StatusOK, vezor.ImportResult{Imported: imported, Errors: errs})
}
