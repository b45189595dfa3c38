package vezor

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// GetAuditLog returns recent audit entries, newest first. A limit of
// zero uses the server default page size.
func (c *Client) GetAuditLog(ctx context.Context, limit, offset int) (*AuditLog, error) {
	if err := c.requireToken("GetAuditLog"); err != nil {
		return nil, err
	}
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	query.Set("offset", strconv.Itoa(offset))
	var out AuditLog
	if err := c.doJSON(ctx, http.MethodGet, "/audit", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateSchema submits schema YAML for validation against the secrets
// stored for an environment.
func (c *Client) ValidateSchema(ctx context.Context, schemaYAML, environment string) (*ValidationResult, error) {
	if err := c.requireToken("ValidateSchema"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(schemaYAML) == "" {
		return nil, validationError("schema is required")
	}
	if environment == "" {
		return nil, validationError("environment is required")
	}
	body := map[string]string{"schema": schemaYAML, "environment": environment}
	var out ValidationResult
	if err := c.doJSON(ctx, http.MethodPost, "/validate", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
