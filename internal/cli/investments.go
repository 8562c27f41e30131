package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/engine"

	"github.com/google/subcommands"
)

type investmentsCmd struct {
	app *App
}

func (*investmentsCmd) Name() string           { return "investments" }
func (*investmentsCmd) Synopsis() string       { return "list investments" }
func (*investmentsCmd) Usage() string          { return "fintrack investments\n" }
func (*investmentsCmd) SetFlags(*flag.FlagSet) {}

func (c *investmentsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	invs, err := c.app.Tracker.Yields.Investments(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	total := core.Zero
	tw := c.app.table()
	fmt.Fprintln(tw, "ID\tNAME\tPRINCIPAL\tRATE\tSTART\tLAST YIELD")
	for _, inv := range invs {
		total = total.Add(inv.Principal)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s%%\t%s\t%s\n",
			inv.ID, inv.Name, c.app.money(inv.Principal), inv.YieldRate, inv.StartDate, inv.LastYieldMonth)
	}
	tw.Flush()
	fmt.Fprintf(c.app.out(), "Total invested: %s\n", c.app.money(total))
	return subcommands.ExitSuccess
}

type investCmd struct {
	app    *App
	name   string
	amount moneyFlag
	rate   rateFlag
	start  string
}

func (*investCmd) Name() string     { return "invest" }
func (*investCmd) Synopsis() string { return "create an investment" }
func (*investCmd) Usage() string {
	return `fintrack invest -name <name> -amount <amount> [-rate <monthly %>] [-start YYYY-MM-DD]

  Without -rate the default yield rate from the settings is used.
`
}

func (c *investCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Investment name.")
	f.Var(&c.amount, "amount", "Initial principal.")
	f.Var(&c.rate, "rate", "Monthly yield rate in percent.")
	f.StringVar(&c.start, "start", "", "Start date (defaults to today).")
}

func (c *investCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.amount.set {
		return c.app.fail(errors.New("-amount is required"))
	}
	start, err := c.app.date(c.start)
	if err != nil {
		return c.app.fail(err)
	}
	inv, err := c.app.Tracker.Yields.CreateInvestment(ctx, engine.InvestmentParams{
		Name:      c.name,
		Amount:    c.amount.value,
		Rate:      c.rate.NullDecimal,
		StartDate: start,
	})
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out(), "Created investment %s at %s%% (%s)\n", inv.Name, inv.YieldRate, inv.ID)
	return subcommands.ExitSuccess
}

// adjustCmd backs both deposit and withdraw.
type adjustCmd struct {
	app    *App
	amount moneyFlag
}

func (c *adjustCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.amount, "amount", "Amount to move.")
}

func (c *adjustCmd) run(ctx context.Context, f *flag.FlagSet, fn func(context.Context, string, core.Money) (core.Investment, error)) subcommands.ExitStatus {
	id, err := oneArg(f, "investment id")
	if err != nil {
		return c.app.fail(err)
	}
	if !c.amount.set {
		return c.app.fail(errors.New("-amount is required"))
	}
	inv, err := fn(ctx, id, c.amount.value)
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out(), "%s principal is now %s\n", inv.Name, c.app.money(inv.Principal))
	return subcommands.ExitSuccess
}

type depositCmd struct {
	adjustCmd
}

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "add money to an investment" }
func (*depositCmd) Usage() string    { return "fintrack deposit -amount <amount> <investment id>\n" }

func (c *depositCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, c.app.Tracker.Yields.AddToInvestment)
}

type withdrawCmd struct {
	adjustCmd
}

func (*withdrawCmd) Name() string     { return "withdraw" }
func (*withdrawCmd) Synopsis() string { return "take money out of an investment" }
func (*withdrawCmd) Usage() string    { return "fintrack withdraw -amount <amount> <investment id>\n" }

func (c *withdrawCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, c.app.Tracker.Yields.WithdrawFromInvestment)
}

type deleteInvestmentCmd struct {
	app *App
}

func (*deleteInvestmentCmd) Name() string           { return "delete-investment" }
func (*deleteInvestmentCmd) Synopsis() string       { return "delete an investment and its yield history" }
func (*deleteInvestmentCmd) Usage() string          { return "fintrack delete-investment <investment id>\n" }
func (*deleteInvestmentCmd) SetFlags(*flag.FlagSet) {}

func (c *deleteInvestmentCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := oneArg(f, "investment id")
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.Tracker.Yields.DeleteInvestment(ctx, id); err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out(), "Deleted investment %s\n", id)
	return subcommands.ExitSuccess
}

type yieldsCmd struct {
	app *App
}

func (*yieldsCmd) Name() string           { return "yields" }
func (*yieldsCmd) Synopsis() string       { return "show an investment's yield history" }
func (*yieldsCmd) Usage() string          { return "fintrack yields <investment id>\n" }
func (*yieldsCmd) SetFlags(*flag.FlagSet) {}

func (c *yieldsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := oneArg(f, "investment id")
	if err != nil {
		return c.app.fail(err)
	}
	history, err := c.app.Tracker.Yields.YieldHistory(ctx, id)
	if err != nil {
		return c.app.fail(err)
	}
	tw := c.app.table()
	for _, y := range history {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\n", y.Month, c.app.money(y.Amount), y.RateApplied)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}
