package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	vezor "github.com/vezor/vezor-go"
	"github.com/vezor/vezor-go/pkg/schema"
)

const defaultAuditPageSize = 50

// handleAuditLog pages through the organization's audit trail, newest
// entries first.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	org, _, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	entries, err := s.store.ListAudit(r.Context(), org.ID)
	if err != nil {
		s.logger.Error("failed to list audit entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	// Stored oldest first; the API serves newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	total := len(entries)
	limit := intQuery(r, "limit", defaultAuditPageSize)
	if limit == 0 {
		limit = defaultAuditPageSize
	}
	offset := intQuery(r, "offset", 0)
	if offset > total {
		offset = total
	}
	page := entries[offset:]
	if len(page) > limit {
		page = page[:limit]
	}

	out := vezor.AuditLog{Entries: make([]vezor.AuditEntry, 0, len(page)), Total: total}
	for _, e := range page {
		out.Entries = append(out.Entries, vezor.AuditEntry{
			Timestamp:  e.Timestamp,
			Action:     e.Action,
			UserEmail:  e.UserEmail,
			SecretPath: e.SecretPath,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleValidate checks the secrets tagged env=<environment> against a
// submitted schema. Only required keys count as failures; optional keys
// are simply absent from the result when unset.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	org, _, ok := s.requestOrg(w, r)
	if !ok {
		return
	}
	var req struct {
		Schema      string `json:"schema"`
		Environment string `json:"environment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Schema) == "" {
		writeError(w, http.StatusUnprocessableEntity, "schema is required")
		return
	}
	if req.Environment == "" {
		writeError(w, http.StatusUnprocessableEntity, "environment is required")
		return
	}

	sch, err := schema.Parse([]byte(req.Schema))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	resolved, err := sch.Resolve(req.Environment)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	all, err := s.store.ListSecrets(r.Context(), org.ID)
	if err != nil {
		s.logger.Error("failed to list secrets", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to validate")
		return
	}
	envTags := map[string]string{"env": req.Environment}
	present := make(map[string]bool)
	for _, sec := range all {
		if sec.MatchesTags(envTags) {
			present[sec.KeyName] = true
		}
	}

	keys := make([]string, 0, len(resolved))
	for k := range resolved {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := vezor.ValidationResult{}
	for _, key := range keys {
		if present[key] {
			result.ValidSecrets = append(result.ValidSecrets, key)
			continue
		}
		if resolved[key].Required {
			result.Missing = append(result.Missing, vezor.ValidationIssue{Key: key, Reason: "required key missing"})
		}
	}
	result.Valid = len(result.Missing) == 0
	writeJSON(w, http.StatusOK, result)
}
