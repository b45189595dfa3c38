package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vezor/vezor-go/pkg/config"
)

type LoginCmd struct {
	Email    string `help:"Account email. Prompted for when omitted." short:"e"`
	Password string `help:"Account password. Prompted for when omitted." env:"VEZOR_PASSWORD" short:"p"`
}

func (c *LoginCmd) Run(ctx *cliCtx) error {
	email, password := c.Email, c.Password
	reader := bufio.NewReader(os.Stdin)
	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Print("Password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	session, err := sessionProvider(ctx, cfg).Login(ctx, email, password)
	if err != nil {
		return err
	}

	name := session.Email
	if name == "" {
		name = email
	}
	fmt.Printf("Logged in as %s\n", name)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *cliCtx) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := sessionProvider(ctx, cfg).Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	fmt.Println("Logged out.")
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx *cliCtx) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	session, err := sessionProvider(ctx, cfg).Session(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Logged in user:\n")
	fmt.Printf("  Email:   %s\n", session.Email)
	fmt.Printf("  User ID: %s\n", session.UserID)
	switch {
	case session.Expired():
		fmt.Printf("  Session: expired, refreshes on next use\n")
	case !session.ExpiresAt.IsZero():
		fmt.Printf("  Session: valid until %s\n", session.ExpiresAt.Format(time.RFC3339))
	}
	if id := cfg.OrganizationID(); id != "" {
		if name := cfg.OrganizationName(); name != "" {
			fmt.Printf("  Org:     %s (%s)\n", name, id)
		} else {
			fmt.Printf("  Org:     %s\n", id)
		}
	} else {
		fmt.Printf("  Org:     personal (default)\n")
	}
	return nil
}
