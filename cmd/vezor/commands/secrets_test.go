package commands

import (
	"encoding/json"
	"testing"

	"github.com/alecthomas/assert/v2"
	vezor "github.com/vezor/vezor-go"
)

// set creates or updates a secret through the CLI and returns the
// command output.
func set(t *testing.T, ctx *cliCtx, cmd *SetCmd) string {
	t.Helper()
	out, errString := captureOutput(func() error {
		return cmd.Run(ctx)
	})
	assert.Equal(t, errString, "")
	return out
}

func TestSetCreatesThenUpdates(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")

	out := set(t, ctx, &SetCmd{Key: "API_KEY", Value: "one", Tag: []string{"env=dev"}, Type: "password"})
	assert.Equal(t, out, "Created API_KEY (version 1)\n")

	out = set(t, ctx, &SetCmd{Key: "API_KEY", Value: "two"})
	assert.Equal(t, out, "Updated API_KEY to version 2\n")

	out, errString := captureOutput(func() error {
		return (&GetCmd{Key: "API_KEY", Format: "value"}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Equal(t, out, "two")
}

func TestGetTextAndVersionFlag(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")
	set(t, ctx, &SetCmd{Key: "DATABASE_URL", Value: "postgres://one", Type: "connection_string"})
	set(t, ctx, &SetCmd{Key: "DATABASE_URL", Value: "postgres://two"})

	out, errString := captureOutput(func() error {
		return (&GetCmd{Key: "DATABASE_URL", Format: "text"}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Contains(t, out, "Key:     DATABASE_URL")
	assert.Contains(t, out, "Value:   postgres://two")
	assert.Contains(t, out, "Version: 2")
	assert.Contains(t, out, "Type:    connection_string")

	out, errString = captureOutput(func() error {
		return (&GetCmd{Key: "DATABASE_URL", Version: 1, Format: "value"}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Equal(t, out, "postgres://one")
}

func TestGetJSON(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")
	set(t, ctx, &SetCmd{Key: "API_KEY", Value: "abc", Type: "string"})

	out, errString := captureOutput(func() error {
		return (&GetCmd{Key: "API_KEY", Format: "json"}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	var secret vezor.Secret
	assert.NoError(t, json.Unmarshal([]byte(out), &secret))
	assert.Equal(t, secret.KeyName, "API_KEY")
	assert.Equal(t, secret.Value, "abc")
}

func TestGetMissingSecret(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")

	_, errString := captureOutput(func() error {
		return (&GetCmd{Key: "NOPE", Format: "text"}).Run(ctx)
	})
	assert.Contains(t, errString, "not found")
}

func TestListTableAndFilters(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")
	set(t, ctx, &SetCmd{Key: "API_KEY", Value: "a", Tag: []string{"env=dev"}, Type: "string"})
	set(t, ctx, &SetCmd{Key: "DATABASE_URL", Value: "b", Tag: []string{"env=prod"}, Type: "string"})

	out, errString := captureOutput(func() error {
		return (&ListCmd{Format: "table"}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "API_KEY")
	assert.Contains(t, out, "DATABASE_URL")
	assert.Contains(t, out, "Showing 2 of 2 secrets")

	out, errString = captureOutput(func() error {
		return (&ListCmd{Env: "dev", Format: "table"}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Contains(t, out, "API_KEY")
	assert.NotContains(t, out, "DATABASE_URL")
}

func TestListEmpty(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")

	out, errString := captureOutput(func() error {
		return (&ListCmd{Format: "table"}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Equal(t, out, "No secrets found.\n")
}

func TestListCSV(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")
	set(t, ctx, &SetCmd{Key: "API_KEY", Value: "a", Tag: []string{"env=dev"}, Type: "string"})

	out, errString := captureOutput(func() error {
		return (&ListCmd{Format: "csv"}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Contains(t, out, "key_name,version,value_type,tags,updated_at")
	assert.Contains(t, out, "API_KEY,1,string,env=dev,")
}

func TestDeleteForce(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")
	set(t, ctx, &SetCmd{Key: "API_KEY", Value: "a", Type: "string"})

	out, errString := captureOutput(func() error {
		return (&DeleteCmd{Key: "API_KEY", Force: true}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Equal(t, out, "Deleted API_KEY\n")

	_, errString = captureOutput(func() error {
		return (&GetCmd{Key: "API_KEY", Format: "text"}).Run(ctx)
	})
	assert.Contains(t, errString, "not found")
}

func TestVersionsTable(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")
	set(t, ctx, &SetCmd{Key: "API_KEY", Value: "one", Type: "string"})
	set(t, ctx, &SetCmd{Key: "API_KEY", Value: "two"})

	out, errString := captureOutput(func() error {
		return (&VersionsCmd{Key: "API_KEY", Format: "table"}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Contains(t, out, "Version history for API_KEY:")
	assert.Contains(t, out, "2 (current)")
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "two")
	assert.Contains(t, out, "dev@example.com")
}

func TestTagsCmd(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")
	set(t, ctx, &SetCmd{Key: "A", Value: "1", Tag: []string{"env=dev", "team=core"}, Type: "string"})
	set(t, ctx, &SetCmd{Key: "B", Value: "2", Tag: []string{"env=prod"}, Type: "string"})

	out, errString := captureOutput(func() error {
		return (&TagsCmd{}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Contains(t, out, "env: dev, prod")
	assert.Contains(t, out, "team: core")
}

func TestParseTagArgs(t *testing.T) {
	tags, err := parseTagArgs([]string{"env=dev", "team=core"})
	assert.NoError(t, err)
	assert.Equal(t, tags, map[string]string{"env": "dev", "team": "core"})

	for _, bad := range []string{"nodelimiter", "=value", "key=", "  =  "} {
		_, err := parseTagArgs([]string{bad})
		assert.Error(t, err)
	}
}
