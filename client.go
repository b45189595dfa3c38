package vezor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds the settings for constructing a Client. Only BaseURL has
// a default; Token and OrganizationID may also be supplied later through
// the setters.
type Config struct {
	// BaseURL is the API endpoint. Defaults to DefaultBaseURL.
	BaseURL string
	// Token is the bearer token attached to every request.
	Token string
	// OrganizationID scopes secret operations to one organization.
	OrganizationID string
	// HTTPClient overrides the transport. Defaults to a client with a
	// 30 second timeout. The Client itself never retries.
	HTTPClient *http.Client
	// Logger receives debug-level request logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client talks to the Vezor API. Calls are synchronous and blocking;
// configure the client fully before sharing it across goroutines, as the
// setters are not synchronized with in-flight requests.
type Client struct {
	baseURL    *url.URL
	token      string
	orgID      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client. The base URL is validated up front; token and
// organization can be set later.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	baseURL, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", config.BaseURL, err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", config.BaseURL)
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		token:      config.Token,
		orgID:      config.OrganizationID,
		httpClient: httpClient,
		logger:     config.Logger,
	}, nil
}

// SetToken replaces the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// SetOrganization scopes subsequent requests to the given organization.
func (c *Client) SetOrganization(id string) {
	c.orgID = id
}

// Organization returns the currently selected organization id.
func (c *Client) Organization() string {
	return c.orgID
}

// BaseURL returns the endpoint the client is configured against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Health checks service liveness. It is the only call that works without
// a token.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// requireToken fails fast, before any network I/O, when no token is set.
func (c *Client) requireToken(op string) error {
	if c.token == "" {
		return authRequiredError(op)
	}
	return nil
}

// newRequest builds a request against the API prefix. Variable path
// segments must arrive already escaped with url.PathEscape.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	target := c.baseURL.String() + apiPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent())
	if c.orgID != "" {
		req.Header.Set("X-Organization-Id", c.orgID)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// send performs the single round trip behind every call. Transport
// failures and error statuses come back classified; any non-error
// response is returned with its body still open.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, transportError(err)
	}
	c.logger.Debug("request complete", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start))
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBytes, _ := io.ReadAll(resp.Body)
		return nil, classifyResponse(resp.StatusCode, respBytes)
	}
	return resp, nil
}

// doJSON sends an optional JSON body and decodes a JSON response into
// out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reqBody io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, query, reqBody, contentType)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doText sends an optional text/plain body and returns the raw response
// body, for the endpoints that speak dotenv text rather than JSON.
func (c *Client) doText(ctx context.Context, method, path string, query url.Values, body string) (string, error) {
	var reqBody io.Reader
	contentType := ""
	if body != "" {
		reqBody = strings.NewReader(body)
		contentType = "text/plain"
	}
	req, err := c.newRequest(ctx, method, path, query, reqBody, contentType)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(data), nil
}
