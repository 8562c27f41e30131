package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type exportCmd struct {
	app   *App
	month string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "append a month's transactions to the Google Sheet" }
func (*exportCmd) Usage() string    { return "fintrack export [-m YYYY-MM]\n" }

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "m", "", "Month to export (defaults to the current month).")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.app.Exporter == nil {
		return c.app.fail(errors.New("export is not configured: set GOOGLE_SPREADSHEET_ID"))
	}
	month, err := c.app.month(c.month)
	if err != nil {
		return c.app.fail(err)
	}
	txs, err := c.app.Tracker.Balance.TransactionsForMonth(ctx, month)
	if err != nil {
		return c.app.fail(err)
	}
	ref, err := c.app.Exporter.ExportMonth(ctx, month, txs)
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out(), "Exported %d transaction(s) to %s\n", len(txs), ref)
	return subcommands.ExitSuccess
}
