// Package commands implements the vezor CLI command tree.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/vezor/vezor-go/pkg/oskeyring"
)

// cliCtx is passed to every command's Run method. It carries the parsed
// global flags plus the shared services commands need.
type cliCtx struct {
	context.Context
	Debug     bool
	Logger    *slog.Logger
	OSKeyring oskeyring.Service

	// Connection overrides from global flags or the environment. Empty
	// values fall back to the config file and the built-in defaults.
	APIURL  string
	AuthURL string
	AnonKey string
	Token   string
	OrgID   string
}

type cli struct {
	APIURL  string `help:"Vezor API endpoint. Overrides the configured endpoint." env:"VEZOR_API_URL" placeholder:"URL"`
	AuthURL string `help:"Vezor auth endpoint. Overrides the configured endpoint." env:"VEZOR_AUTH_URL" placeholder:"URL"`
	AnonKey string `name:"auth-anon-key" help:"Public API key sent with auth requests." env:"VEZOR_AUTH_ANON_KEY"`
	Token   string `help:"API token. Overrides the stored login session." env:"VEZOR_TOKEN"`
	Org     string `help:"Organization id to scope requests to." env:"VEZOR_ORGANIZATION_ID" short:"o"`
	Debug   bool   `help:"Enable debug logging."`

	Login      LoginCmd         `cmd:"" help:"Log in and store the session in the OS keyring."`
	Logout     LogoutCmd        `cmd:"" help:"Log out and remove the stored session."`
	Whoami     WhoamiCmd        `cmd:"" help:"Show the logged-in user and selected organization."`
	Orgs       OrgsCmd          `cmd:"" help:"List, create and switch organizations."`
	List       ListCmd          `cmd:"" help:"List secrets."`
	Get        GetCmd           `cmd:"" help:"Show one secret."`
	Set        SetCmd           `cmd:"" help:"Create a secret or push a new version of it."`
	Delete     DeleteCmd        `cmd:"" help:"Delete a secret and its version history."`
	Versions   VersionsCmd      `cmd:"" help:"Show a secret's version history."`
	Tags       TagsCmd          `cmd:"" help:"List the tag keys and values in use."`
	Groups     GroupsCmd        `cmd:"" help:"Inspect server-defined secret groups."`
	Pull       PullCmd          `cmd:"" help:"Write secrets to a local dotenv file."`
	Export     ExportCmd        `cmd:"" help:"Print secrets as dotenv text."`
	Import     ImportCmd        `cmd:"" help:"Upload a dotenv file into an environment."`
	Run        RunCmd           `cmd:"" help:"Run a command with secrets injected into its environment."`
	InitSchema InitSchemaCmd    `cmd:"" name:"init-schema" help:"Write a starter schema file."`
	Validate   ValidateCmd      `cmd:"" help:"Check stored secrets against a schema file."`
	Audit      AuditCmd         `cmd:"" help:"Show the audit log."`
	Version    kong.VersionFlag `help:"Show version."`
}

func Execute(version string) {
	var cli cli
	ctx := kong.Parse(&cli,
		kong.UsageOnError(),
		kong.Name("vezor"),
		kong.Description("vezor manages application secrets in the Vezor vault"),
		kong.Vars{"version": version},
	)

	level := slog.LevelWarn
	if cli.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	err := ctx.Run(&cliCtx{
		Context:   context.Background(),
		Debug:     cli.Debug,
		Logger:    logger,
		OSKeyring: oskeyring.NewOSService(),
		APIURL:    cli.APIURL,
		AuthURL:   cli.AuthURL,
		AnonKey:   cli.AnonKey,
		Token:     cli.Token,
		OrgID:     cli.Org,
	})
	ctx.FatalIfErrorf(err)
}
