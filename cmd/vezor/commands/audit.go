package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
)

type AuditCmd struct {
	Limit  int    `help:"Number of entries to show." default:"20"`
	Offset int    `help:"Entries to skip."`
	Format string `help:"Output format." enum:"table,json" default:"table" short:"f"`
}

func (c *AuditCmd) Run(ctx *cliCtx) error {
	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	log, err := client.GetAuditLog(ctx, c.Limit, c.Offset)
	if err != nil {
		return err
	}
	if c.Format == "json" {
		return printJSON(log)
	}
	if len(log.Entries) == 0 {
		fmt.Println("No audit entries.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tUSER\tPATH")
	for _, e := range log.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.UserEmail, e.SecretPath)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nShowing %d of %d entries\n", len(log.Entries), log.Total)
	return nil
}
