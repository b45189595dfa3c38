package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestExportPlainAndShell(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")
	set(t, ctx, &SetCmd{Key: "API_KEY", Value: "abc", Tag: []string{"env=staging"}, Type: "string"})
	set(t, ctx, &SetCmd{Key: "DATABASE_URL", Value: "postgres://stag", Tag: []string{"env=staging"}, Type: "string"})
	set(t, ctx, &SetCmd{Key: "OTHER", Value: "x", Tag: []string{"env=prod"}, Type: "string"})

	out, errString := captureOutput(func() error {
		return (&ExportCmd{Env: "staging"}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Equal(t, out, "API_KEY=abc\nDATABASE_URL=postgres://stag\n")

	out, errString = captureOutput(func() error {
		return (&ExportCmd{Env: "staging", Shell: true}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Equal(t, out, "export API_KEY='abc'\nexport DATABASE_URL='postgres://stag'\n")
}

func TestImportCmd(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")

	envFile := filepath.Join(t.TempDir(), ".env")
	assert.NoError(t, os.WriteFile(envFile, []byte("API_KEY=abc\nDATABASE_URL=postgres://dev\n"), 0o600))

	out, errString := captureOutput(func() error {
		return (&ImportCmd{Environment: "dev", File: envFile}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Contains(t, out, `Imported 2 secrets into "dev"`)

	out, errString = captureOutput(func() error {
		return (&GetCmd{Key: "API_KEY", Format: "value"}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Equal(t, out, "abc")
}

func TestImportMissingFile(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")

	_, errString := captureOutput(func() error {
		return (&ImportCmd{Environment: "dev", File: filepath.Join(t.TempDir(), "nope.env")}).Run(ctx)
	})
	assert.Contains(t, errString, "failed to read")
}

func TestPullWritesFile(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")
	set(t, ctx, &SetCmd{Key: "CACHE_URL", Value: "redis://dev", Tag: []string{"env=dev"}, Type: "url"})

	output := filepath.Join(t.TempDir(), ".env")
	out, errString := captureOutput(func() error {
		return (&PullCmd{Env: "dev", Output: output}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Contains(t, out, "Wrote 1 secrets to "+output)

	data, err := os.ReadFile(output)
	assert.NoError(t, err)
	assert.Equal(t, string(data), "CACHE_URL=redis://dev\n")

	// A second pull refuses to clobber the file without --force.
	_, errString = captureOutput(func() error {
		return (&PullCmd{Env: "dev", Output: output}).Run(ctx)
	})
	assert.Contains(t, errString, "already exists")

	out, errString = captureOutput(func() error {
		return (&PullCmd{Env: "dev", Output: output, Force: true}).Run(ctx)
	})
	assert.Equal(t, errString, "")
	assert.Contains(t, out, "Wrote 1 secrets")
}

func TestPullRequiresSelection(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")

	_, errString := captureOutput(func() error {
		return (&PullCmd{Output: filepath.Join(t.TempDir(), ".env")}).Run(ctx)
	})
	assert.Contains(t, errString, "select secrets with --group, --tag or --env")
}

func TestPullGroupConflictsWithTags(t *testing.T) {
	baseURL := testServer(t)
	ctx := testCtx(t, baseURL)
	login(t, ctx, "dev@example.com")

	_, errString := captureOutput(func() error {
		return (&PullCmd{Group: "g", Env: "dev", Output: filepath.Join(t.TempDir(), ".env")}).Run(ctx)
	})
	assert.Contains(t, errString, "--group cannot be combined")
}
