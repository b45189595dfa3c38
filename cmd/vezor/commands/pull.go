package commands

import (
	"context"
	"fmt"
	"os"

	vezor "github.com/vezor/vezor-go"
	"github.com/vezor/vezor-go/pkg/dotenv"
)

type PullCmd struct {
	Group  string   `help:"Pull a server-defined group." short:"g"`
	Tag    []string `help:"Pull secrets matching a tag (key=value). Repeatable." short:"t"`
	Env    string   `help:"Shorthand for --tag env=<name>." short:"e"`
	Output string   `help:"Destination file." default:".env"`
	Force  bool     `help:"Overwrite the destination file if it already exists." short:"f"`
}

func (c *PullCmd) Run(ctx *cliCtx) error {
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	values, err := resolveSecrets(ctx, client, c.Group, c.Tag, c.Env)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("no secrets matched")
	}
	if !c.Force {
		if _, err := os.Stat(c.Output); err == nil {
			return fmt.Errorf("%s already exists, pass --force to overwrite", c.Output)
		}
	}
	if err := dotenv.WriteFile(c.Output, values); err != nil {
		return err
	}
	fmt.Printf("Wrote %d secrets to %s\n", len(values), c.Output)
	return nil
}

type ExportCmd struct {
	Group string   `help:"Export a server-defined group." short:"g"`
	Tag   []string `help:"Filter by tag (key=value). Repeatable. No filter exports everything." short:"t"`
	Env   string   `help:"Shorthand for --tag env=<name>." short:"e"`
	Shell bool     `help:"Print shell export statements instead of plain KEY=VALUE lines."`
}

func (c *ExportCmd) Run(ctx *cliCtx) error {
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}

	if c.Group != "" {
		format := "env"
		if c.Shell {
			format = "export"
		}
		out, err := client.PullGroupEnv(ctx, c.Group, format)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	tags, err := parseTagArgs(c.Tag)
	if err != nil {
		return err
	}
	if c.Env != "" {
		tags["env"] = c.Env
	}
	out, err := client.ExportEnv(ctx, tags)
	if err != nil {
		return err
	}
	if c.Shell {
		out = dotenv.EncodeExport(dotenv.Decode(out))
	}
	fmt.Print(out)
	return nil
}

type ImportCmd struct {
	Environment string `arg:"" help:"Environment the imported secrets are tagged with (env=<name>)."`
	File        string `arg:"" optional:"" default:".env" help:"Dotenv file to import."`
}

func (c *ImportCmd) Run(ctx *cliCtx) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	result, err := client.ImportEnv(ctx, c.Environment, string(data))
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d secrets into %q\n", result.Imported, c.Environment)
	for _, e := range result.Errors {
		fmt.Printf("  warning: %s\n", e)
	}
	return nil
}

// resolveSecrets fetches the secrets selected by a group name or by tag
// filters as a key/value map. An explicit selection is required.
func resolveSecrets(ctx context.Context, client *vezor.Client, group string, tagArgs []string, env string) (map[string]string, error) {
	if group != "" {
		if len(tagArgs) > 0 || env != "" {
			return nil, fmt.Errorf("--group cannot be combined with --tag or --env")
		}
		gs, err := client.PullGroupSecrets(ctx, group)
		if err != nil {
			return nil, err
		}
		return gs.Secrets, nil
	}
	tags, err := parseTagArgs(tagArgs)
	if err != nil {
		return nil, err
	}
	if env != "" {
		tags["env"] = env
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("select secrets with --group, --tag or --env")
	}
	out, err := client.ExportEnv(ctx, tags)
	if err != nil {
		return nil, err
	}
	return dotenv.Decode(out), nil
}
