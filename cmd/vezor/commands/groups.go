package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
)

type GroupsCmd struct {
	List GroupsListCmd `cmd:"" default:"1" help:"List groups."`
	Show GroupsShowCmd `cmd:"" help:"Show a group and its current secrets."`
}

type GroupsListCmd struct{}

func (c *GroupsListCmd) Run(ctx *cliCtx) error {
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	groups, err := client.ListGroups(ctx)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Println("No groups defined.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTAGS\tDESCRIPTION")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\t%s\n", g.Name, formatTags(g.Tags), g.Description)
	}
	return w.Flush()
}

type GroupsShowCmd struct {
	Name   string `arg:"" help:"Group name."`
	Format string `help:"Output format." enum:"text,json,env,export" default:"text" short:"f"`
}

func (c *GroupsShowCmd) Run(ctx *cliCtx) error {
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}

	switch c.Format {
	case "env", "export":
		out, err := client.PullGroupEnv(ctx, c.Name, c.Format)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	case "json":
		secrets, err := client.PullGroupSecrets(ctx, c.Name)
		if err != nil {
			return err
		}
		return printJSON(secrets)
	}

	group, err := client.GetGroup(ctx, c.Name)
	if err != nil {
		return err
	}
	secrets, err := client.PullGroupSecrets(ctx, c.Name)
	if err != nil {
		return err
	}

	fmt.Printf("Group: %s\n", group.Name)
	if len(group.Tags) > 0 {
		fmt.Printf("Tags:  %s\n", formatTags(group.Tags))
	}
	if group.Description != "" {
		fmt.Printf("Desc:  %s\n", group.Description)
	}
	fmt.Printf("Secrets (%d):\n", secrets.Count)
	keys := make([]string, 0, len(secrets.Secrets))
	for k := range secrets.Secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s=%s\n", k, secrets.Secrets[k])
	}
	return nil
}
