package commands

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	vezor "github.com/vezor/vezor-go"
)

type ListCmd struct {
	Tag    []string `help:"Filter by tag (key=value). Repeatable." short:"t"`
	Env    string   `help:"Shorthand for --tag env=<name>." short:"e"`
	Search string   `help:"Filter by key name substring." short:"s"`
	Limit  int      `help:"Page size. Zero uses the server default."`
	Offset int      `help:"Page offset."`
	Format string   `help:"Output format." enum:"table,json,csv" default:"table" short:"f"`
}

func (c *ListCmd) Run(ctx *cliCtx) error {
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	tags, err := parseTagArgs(c.Tag)
	if err != nil {
		return err
	}
	if c.Env != "" {
		tags["env"] = c.Env
	}
	list, err := client.ListSecrets(ctx, vezor.ListSecretsOptions{
		Tags:   tags,
		Search: c.Search,
		Limit:  c.Limit,
		Offset: c.Offset,
	})
	if err != nil {
		return err
	}

	switch c.Format {
	case "json":
		return printJSON(list)
	case "csv":
		w := csv.NewWriter(os.Stdout)
		w.Write([]string{"key_name", "version", "value_type", "tags", "updated_at"})
		for _, s := range list.Secrets {
			w.Write([]string{s.KeyName, strconv.Itoa(s.Version), string(s.ValueType), formatTags(s.Tags), s.UpdatedAt.Format(time.RFC3339)})
		}
		w.Flush()
		return w.Error()
	}

	if len(list.Secrets) == 0 {
		fmt.Println("No secrets found.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVERSION\tTYPE\tTAGS\tUPDATED")
	for _, s := range list.Secrets {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", s.KeyName, s.Version, s.ValueType, formatTags(s.Tags), s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nShowing %d of %d secrets\n", len(list.Secrets), list.Total)
	return nil
}

type GetCmd struct {
	Key     string   `arg:"" help:"Secret key name."`
	Version int      `help:"Fetch a historical version instead of the latest." short:"n"`
	Tag     []string `help:"Narrow the lookup by tag (key=value). Repeatable." short:"t"`
	Format  string   `help:"Output format. value prints the raw value with no trailing newline." enum:"text,json,value" default:"text" short:"f"`
}

func (c *GetCmd) Run(ctx *cliCtx) error {
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	tags, err := parseTagArgs(c.Tag)
	if err != nil {
		return err
	}
	secret, err := client.GetSecretByName(ctx, c.Key, tags)
	if err != nil {
		return err
	}
	if c.Version > 0 && c.Version != secret.Version {
		secret, err = client.GetSecretVersion(ctx, secret.ID, c.Version)
		if err != nil {
			return err
		}
	}

	switch c.Format {
	case "value":
		fmt.Print(secret.Value)
		return nil
	case "json":
		return printJSON(secret)
	}

	fmt.Printf("  Key:     %s\n", secret.KeyName)
	fmt.Printf("  Value:   %s\n", secret.Value)
	fmt.Printf("  Version: %d\n", secret.Version)
	fmt.Printf("  Type:    %s\n", secret.ValueType)
	if len(secret.Tags) > 0 {
		fmt.Printf("  Tags:    %s\n", formatTags(secret.Tags))
	}
	if secret.Description != "" {
		fmt.Printf("  Desc:    %s\n", secret.Description)
	}
	fmt.Printf("  Updated: %s\n", secret.UpdatedAt.Format(time.RFC3339))
	return nil
}

type SetCmd struct {
	Key         string   `arg:"" help:"Secret key name."`
	Value       string   `arg:"" optional:"" help:"Secret value. Read from stdin when omitted."`
	Tag         []string `help:"Tag to attach (key=value). Repeatable. Replaces existing tags." short:"t"`
	Description string   `help:"Human-readable description." short:"d"`
	Type        string   `help:"Value type for new secrets." enum:"string,password,url,connection_string" default:"string"`
}

func (c *SetCmd) Run(ctx *cliCtx) error {
	value := c.Value
	if value == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read value from stdin: %w", err)
		}
		value = strings.TrimSpace(string(data))
	}
	if value == "" {
		return fmt.Errorf("no value given, pass it as an argument or on stdin")
	}

	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	tags, err := parseTagArgs(c.Tag)
	if err != nil {
		return err
	}

	existing, err := client.GetSecretByName(ctx, c.Key, nil)
	switch {
	case err == nil:
		params := vezor.UpdateSecretParams{Value: &value}
		if c.Description != "" {
			params.Description = &c.Description
		}
		if len(tags) > 0 {
			params.Tags = tags
		}
		updated, err := client.UpdateSecret(ctx, existing.ID, params)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %s to version %d\n", updated.KeyName, updated.Version)
		return nil
	case errors.Is(err, vezor.ErrNotFound):
		created, err := client.CreateSecret(ctx, vezor.CreateSecretParams{
			KeyName:     c.Key,
			Value:       value,
			Tags:        tags,
			Description: c.Description,
			ValueType:   vezor.ValueType(c.Type),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created %s (version %d)\n", created.KeyName, created.Version)
		return nil
	default:
		return err
	}
}

type DeleteCmd struct {
	Key   string `arg:"" help:"Secret key name."`
	Force bool   `help:"Skip the confirmation prompt." short:"f"`
}

func (c *DeleteCmd) Run(ctx *cliCtx) error {
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	secret, err := client.GetSecretByName(ctx, c.Key, nil)
	if err != nil {
		return err
	}
	if !c.Force {
		fmt.Printf("Delete %q and its %d version(s)? [y/N]: ", secret.KeyName, secret.Version)
		var confirm string
		fmt.Scanln(&confirm)
		if !strings.EqualFold(confirm, "y") && !strings.EqualFold(confirm, "yes") {
			fmt.Println("Aborted.")
			return nil
		}
	}
	if err := client.DeleteSecret(ctx, secret.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", secret.KeyName)
	return nil
}

type VersionsCmd struct {
	Key    string `arg:"" help:"Secret key name."`
	Format string `help:"Output format." enum:"table,json" default:"table" short:"f"`
}

func (c *VersionsCmd) Run(ctx *cliCtx) error {
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	secret, err := client.GetSecretByName(ctx, c.Key, nil)
	if err != nil {
		return err
	}
	history, err := client.ListSecretVersions(ctx, secret.ID)
	if err != nil {
		return err
	}
	if c.Format == "json" {
		return printJSON(history)
	}

	fmt.Printf("Version history for %s:\n", secret.KeyName)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tVALUE\tCREATED\tBY")
	for _, v := range history.Versions {
		marker := ""
		if v.Version == history.CurrentVersion {
			marker = " (current)"
		}
		fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\n", v.Version, marker, v.Value, v.CreatedAt.Format("2006-01-02 15:04"), v.CreatedBy)
	}
	return w.Flush()
}

type TagsCmd struct{}

func (c *TagsCmd) Run(ctx *cliCtx) error {
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	tags, err := client.GetTags(ctx)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		fmt.Println("No tags in use.")
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %s\n", k, strings.Join(tags[k], ", "))
	}
	return nil
}

// parseTagArgs turns repeated key=value flags into a tag map.
func parseTagArgs(args []string) (map[string]string, error) {
	tags := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("invalid tag %q, want key=value", arg)
		}
		tags[k] = v
	}
	return tags, nil
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// formatTags renders a tag map as "k=v" pairs, sorted by key.
func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+tags[k])
	}
	return strings.Join(pairs, ",")
}
