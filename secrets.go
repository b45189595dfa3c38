package vezor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ListSecretsOptions narrows and pages ListSecrets. The zero value lists
// everything.
type ListSecretsOptions struct {
	// Tags filters to secrets carrying every given tag. Each tag key
	// becomes its own query parameter.
	Tags map[string]string
	// Search matches against key names.
	Search string
	// Limit caps the page size; zero means the server default.
	Limit int
	// Offset skips into the result set.
	Offset int
}

// CreateSecretParams describes a new secret.
type CreateSecretParams struct {
	KeyName     string            `json:"key_name"`
	Value       string            `json:"value"`
	Tags        map[string]string `json:"tags,omitempty"`
	Description string            `json:"description,omitempty"`
	ValueType   ValueType         `json:"value_type,omitempty"`
}

// UpdateSecretParams carries the fields to change. Nil fields are left
// untouched; a non-nil Tags replaces the whole tag set.
type UpdateSecretParams struct {
	Value       *string           `json:"value,omitempty"`
	Description *string           `json:"description,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// ListSecrets returns secrets matching opts. Tag filters are sent as one
// query parameter per tag key; offset is always sent so pages stay stable.
func (c *Client) ListSecrets(ctx context.Context, opts ListSecretsOptions) (*SecretList, error) {
	if err := c.requireToken("ListSecrets"); err != nil {
		return nil, err
	}
	query := url.Values{}
	for k, v := range opts.Tags {
		query.Set(k, v)
	}
	if opts.Search != "" {
		query.Set("search", opts.Search)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	query.Set("offset", strconv.Itoa(opts.Offset))
	var out SecretList
	if err := c.doJSON(ctx, http.MethodGet, "/secrets", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSecret fetches the latest version of a secret by id.
func (c *Client) GetSecret(ctx context.Context, secretID string) (*Secret, error) {
	return c.getSecret(ctx, secretID, 0)
}

// GetSecretVersion fetches one historical version of a secret.
func (c *Client) GetSecretVersion(ctx context.Context, secretID string, version int) (*Secret, error) {
	if version < 1 {
		return nil, validationError("version must be 1 or greater")
	}
	return c.getSecret(ctx, secretID, version)
}

func (c *Client) getSecret(ctx context.Context, secretID string, version int) (*Secret, error) {
	if err := c.requireToken("GetSecret"); err != nil {
		return nil, err
	}
	if secretID == "" {
		return nil, validationError("secret id is required")
	}
	var query url.Values
	if version > 0 {
		query = url.Values{"version": []string{strconv.Itoa(version)}}
	}
	var out Secret
	if err := c.doJSON(ctx, http.MethodGet, "/secrets/"+url.PathEscape(secretID), query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSecretByName resolves a secret by exact key name, optionally
// narrowed by tags. The name match happens client side over a list call,
// so this performs up to two round trips.
func (c *Client) GetSecretByName(ctx context.Context, keyName string, tags map[string]string) (*Secret, error) {
	if keyName == "" {
		return nil, validationError("key name is required")
	}
	list, err := c.ListSecrets(ctx, ListSecretsOptions{Tags: tags, Search: keyName})
	if err != nil {
		return nil, err
	}
	for _, s := range list.Secrets {
		if s.KeyName == keyName {
			return c.GetSecret(ctx, s.ID)
		}
	}
	return nil, notFoundError(fmt.Sprintf("secret %q not found", keyName))
}

// CreateSecret stores a new secret. The server assigns the id and starts
// the version count at 1.
func (c *Client) CreateSecret(ctx context.Context, params CreateSecretParams) (*Secret, error) {
	if err := c.requireToken("CreateSecret"); err != nil {
		return nil, err
	}
	if params.KeyName == "" {
		return nil, validationError("key name is required")
	}
	var out Secret
	if err := c.doJSON(ctx, http.MethodPost, "/secrets", nil, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSecret changes a secret's value, description or tags. A value
// change bumps the version by one; the old value stays in the history.
func (c *Client) UpdateSecret(ctx context.Context, secretID string, params UpdateSecretParams) (*Secret, error) {
	if err := c.requireToken("UpdateSecret"); err != nil {
		return nil, err
	}
	if secretID == "" {
		return nil, validationError("secret id is required")
	}
	var out Secret
	if err := c.doJSON(ctx, http.MethodPut, "/secrets/"+url.PathEscape(secretID), nil, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSecret removes a secret and its version history.
func (c *Client) DeleteSecret(ctx context.Context, secretID string) error {
	if err := c.requireToken("DeleteSecret"); err != nil {
		return err
	}
	if secretID == "" {
		return validationError("secret id is required")
	}
	return c.doJSON(ctx, http.MethodDelete, "/secrets/"+url.PathEscape(secretID), nil, nil, nil)
}

// ListSecretVersions returns a secret's full version history, newest
// first.
func (c *Client) ListSecretVersions(ctx context.Context, secretID string) (*VersionList, error) {
	if err := c.requireToken("ListSecretVersions"); err != nil {
		return nil, err
	}
	if secretID == "" {
		return nil, validationError("secret id is required")
	}
	var out VersionList
	if err := c.doJSON(ctx, http.MethodGet, "/secrets/"+url.PathEscape(secretID)+"/versions", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTags returns every tag key in the organization with its known
// values, sorted.
func (c *Client) GetTags(ctx context.Context) (map[string][]string, error) {
	if err := c.requireToken("GetTags"); err != nil {
		return nil, err
	}
	var out struct {
		Tags map[string][]string `json:"tags"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/tags", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

// ExportEnv renders the secrets matching tags as dotenv text, server
// side. An empty tag set exports the whole organization.
func (c *Client) ExportEnv(ctx context.Context, tags map[string]string) (string, error) {
	if err := c.requireToken("ExportEnv"); err != nil {
		return "", err
	}
	query := url.Values{}
	for k, v := range tags {
		query.Set(k, v)
	}
	return c.doText(ctx, http.MethodGet, "/export", query, "")
}

// ImportEnv uploads dotenv text; every entry is upserted as a secret
// tagged env=environment.
func (c *Client) ImportEnv(ctx context.Context, environment, content string) (*ImportResult, error) {
	if err := c.requireToken("ImportEnv"); err != nil {
		return nil, err
	}
	if environment == "" {
		return nil, validationError("environment is required")
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/import/"+url.PathEscape(environment), nil, strings.NewReader(content), "text/plain")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out ImportResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
