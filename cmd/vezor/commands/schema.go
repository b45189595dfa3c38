package commands

import (
	"fmt"
	"os"

	"github.com/vezor/vezor-go/pkg/schema"
)

type InitSchemaCmd struct {
	Service string `arg:"" optional:"" help:"Service name recorded in the schema."`
	Output  string `help:"Destination path." default:"vezor.schema.yml"`
	Force   bool   `help:"Overwrite an existing schema file." short:"f"`
}

func (c *InitSchemaCmd) Run(ctx *cliCtx) error {
	if !c.Force {
		if _, err := os.Stat(c.Output); err == nil {
			return fmt.Errorf("%s already exists, pass --force to overwrite", c.Output)
		}
	}
	if err := os.WriteFile(c.Output, schema.Template(c.Service), 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", c.Output)
	return nil
}

type ValidateCmd struct {
	Environment string `arg:"" help:"Environment to validate against."`
	Schema      string `help:"Schema file to check." default:"vezor.schema.yml" short:"s"`
}

func (c *ValidateCmd) Run(ctx *cliCtx) error {
	data, err := os.ReadFile(c.Schema)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.Schema, err)
	}
	if _, err := schema.Parse(data); err != nil {
		return fmt.Errorf("%s: %w", c.Schema, err)
	}

	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	result, err := client.ValidateSchema(ctx, string(data), c.Environment)
	if err != nil {
		return err
	}
	if result.Valid {
		fmt.Printf("OK: %d keys present for %q\n", len(result.ValidSecrets), c.Environment)
		return nil
	}

	fmt.Printf("Missing %d required keys for %q:\n", len(result.Missing), c.Environment)
	for _, m := range result.Missing {
		fmt.Printf("  - %s (%s)\n", m.Key, m.Reason)
	}
	return fmt.Errorf("validation failed")
}
