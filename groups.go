package vezor

import (
	"context"
	"net/http"
	"net/url"
)

// ListGroups returns the groups defined for the organization.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	if err := c.requireToken("ListGroups"); err != nil {
		return nil, err
	}
	var out struct {
		Groups []Group `json:"groups"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/groups", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Groups, nil
}

// GetGroup fetches one group by name.
func (c *Client) GetGroup(ctx context.Context, name string) (*Group, error) {
	if err := c.requireToken("GetGroup"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, validationError("group name is required")
	}
	var out Group
	if err := c.doJSON(ctx, http.MethodGet, "/groups/"+url.PathEscape(name), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GroupSecretCount reports how many secrets currently match the group's
// tags, without fetching any values.
func (c *Client) GroupSecretCount(ctx context.Context, name string) (int, error) {
	if err := c.requireToken("GroupSecretCount"); err != nil {
		return 0, err
	}
	if name == "" {
		return 0, validationError("group name is required")
	}
	var out struct {
		Group string `json:"group"`
		Count int    `json:"count"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/groups/"+url.PathEscape(name)+"/count", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// PullGroupSecrets resolves a group to its current secret values.
func (c *Client) PullGroupSecrets(ctx context.Context, name string) (*GroupSecrets, error) {
	if err := c.requireToken("PullGroupSecrets"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, validationError("group name is required")
	}
	query := url.Values{"format": []string{"json"}}
	var out GroupSecrets
	if err := c.doJSON(ctx, http.MethodGet, "/groups/"+url.PathEscape(name)+"/secrets", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PullGroupEnv resolves a group to text: "env" for plain KEY=VALUE lines,
// "export" for shell-sourceable export statements.
func (c *Client) PullGroupEnv(ctx context.Context, name, format string) (string, error) {
	if err := c.requireToken("PullGroupEnv"); err != nil {
		return "", err
	}
	if name == "" {
		return "", validationError("group name is required")
	}
	if format != "env" && format != "export" {
		return "", validationError(`format must be "env" or "export"`)
	}
	query := url.Values{"format": []string{format}}
	return c.doText(ctx, http.MethodGet, "/groups/"+url.PathEscape(name)+"/secrets", query, "")
}
