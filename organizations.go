package vezor

import (
	"context"
	"net/http"
	"net/url"
)

// ListOrganizations returns the organizations the token has access to.
func (c *Client) ListOrganizations(ctx context.Context) ([]Organization, error) {
	if err := c.requireToken("ListOrganizations"); err != nil {
		return nil, err
	}
	var out struct {
		Organizations []Organization `json:"organizations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/organizations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Organizations, nil
}

// GetOrganization fetches one organization by id.
func (c *Client) GetOrganization(ctx context.Context, orgID string) (*Organization, error) {
	if err := c.requireToken("GetOrganization"); err != nil {
		return nil, err
	}
	if orgID == "" {
		return nil, validationError("organization id is required")
	}
	var out Organization
	if err := c.doJSON(ctx, http.MethodGet, "/organizations/"+url.PathEscape(orgID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrganization registers a new organization owned by the caller.
func (c *Client) CreateOrganization(ctx context.Context, name, description string) (*Organization, error) {
	if err := c.requireToken("CreateOrganization"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, validationError("organization name is required")
	}
	body := map[string]string{"name": name}
	if description != "" {
		body["description"] = description
	}
	var out Organization
	if err := c.doJSON(ctx, http.MethodPost, "/organizations", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
