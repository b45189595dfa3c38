package commands

import (
	vezor "github.com/vezor/vezor-go"
	"github.com/vezor/vezor-go/pkg/auth"
	"github.com/vezor/vezor-go/pkg/config"
)

// setupClient builds an API client from the global flags, the stored
// session and the config file, in that order of precedence.
func setupClient(ctx *cliCtx) (*vezor.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	token := ctx.Token
	if token == "" {
		token, err = sessionProvider(ctx, cfg).Token(ctx)
		if err != nil {
			return nil, err
		}
	}

	orgID := ctx.OrgID
	if orgID == "" {
		orgID = cfg.OrganizationID()
	}

	return vezor.New(vezor.Config{
		BaseURL:        apiURL(ctx, cfg),
		Token:          token,
		OrganizationID: orgID,
		Logger:         ctx.Logger,
	})
}

// sessionProvider builds the auth provider used for login, logout and
// session refresh.
func sessionProvider(ctx *cliCtx, cfg *config.Config) auth.Provider {
	return auth.NewPasswordProvider(auth.Config{
		AuthURL: authURL(ctx, cfg),
		AnonKey: ctx.AnonKey,
		Logger:  ctx.Logger,
	}, ctx.OSKeyring)
}

func apiURL(ctx *cliCtx, cfg *config.Config) string {
	if ctx.APIURL != "" {
		return ctx.APIURL
	}
	if v := cfg.APIURL(); v != "" {
		return v
	}
	return vezor.DefaultBaseURL
}

// authURL falls back to the API endpoint when only that one is set. The
// dev server runs that way, serving the API and auth routes on a single
// listener.
func authURL(ctx *cliCtx, cfg *config.Config) string {
	if ctx.AuthURL != "" {
		return ctx.AuthURL
	}
	if v := cfg.Get(config.KeyAuthURL); v != "" {
		return v
	}
	if ctx.APIURL != "" {
		return ctx.APIURL
	}
	if v := cfg.APIURL(); v != "" {
		return v
	}
	return auth.DefaultAuthURL
}
