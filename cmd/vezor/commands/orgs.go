package commands

import (
	"fmt"

	"github.com/vezor/vezor-go/pkg/config"
)

type OrgsCmd struct {
	List   OrgsListCmd   `cmd:"" default:"1" help:"List organizations you belong to."`
	Use    OrgsUseCmd    `cmd:"" help:"Select the organization used by later commands."`
	Create OrgsCreateCmd `cmd:"" help:"Create a new organization."`
}

type OrgsListCmd struct{}

func (c *OrgsListCmd) Run(ctx *cliCtx) error {
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	orgs, err := client.ListOrganizations(ctx)
	if err != nil {
		return err
	}
	if len(orgs) == 0 {
		fmt.Println("No organizations found.")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	current := cfg.OrganizationID()
	if ctx.OrgID != "" {
		current = ctx.OrgID
	}

	fmt.Printf("Organizations:\n")
	for _, org := range orgs {
		marker := ""
		if org.ID == current {
			marker = " (current)"
		}
		fmt.Printf("  - ID: %s, Name: %s, Role: %s%s\n", org.ID, org.Name, org.Role, marker)
	}
	return nil
}

type OrgsUseCmd struct {
	Org string `arg:"" optional:"" help:"Organization id or name. Omit to reset to the personal default."`
}

func (c *OrgsUseCmd) Run(ctx *cliCtx) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.Org == "" {
		cfg.ClearOrganization()
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println("Using the personal organization.")
		return nil
	}

	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	orgs, err := client.ListOrganizations(ctx)
	if err != nil {
		return err
	}
	for _, org := range orgs {
		if org.ID == c.Org || org.Name == c.Org {
			cfg.SetOrganization(org.ID, org.Name)
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Printf("Now using organization %s (%s)\n", org.Name, org.ID)
			return nil
		}
	}
	return fmt.Errorf("no organization matching %q, run 'vezor orgs list'", c.Org)
}

type OrgsCreateCmd struct {
	Name        string `arg:"" help:"Organization name."`
	Description string `help:"Optional description." short:"d"`
	Use         bool   `help:"Select the new organization right away."`
}

func (c *OrgsCreateCmd) Run(ctx *cliCtx) error {
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	org, err := client.CreateOrganization(ctx, c.Name, c.Description)
	if err != nil {
		return err
	}
	fmt.Printf("Created organization %s (%s)\n", org.Name, org.ID)

	if c.Use {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		cfg.SetOrganization(org.ID, org.Name)
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Now using organization %s (%s)\n", org.Name, org.ID)
	}
	return nil
}
