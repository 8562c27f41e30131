package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"fintrack/internal/core"

	"github.com/google/subcommands"
)

type monthCmd struct {
	app   *App
	month string
	tx    bool
}

func (*monthCmd) Name() string     { return "month" }
func (*monthCmd) Synopsis() string { return "bring a month up to date and show its balance" }
func (*monthCmd) Usage() string {
	return `fintrack month [-m YYYY-MM] [-tx]

  Applies pending investment yields, pays closed card cycles and covers a
  negative balance from an investment, then shows the month.
`
}

func (c *monthCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "m", "", "Month to view (defaults to the current month).")
	f.BoolVar(&c.tx, "tx", false, "Also list the month's transactions.")
}

func (c *monthCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	month, err := c.app.month(c.month)
	if err != nil {
		return c.app.fail(err)
	}

	report, err := c.app.Tracker.ViewMonth(ctx, month)
	var shortfall *core.InsufficientFundsError
	switch {
	case errors.As(err, &shortfall):
		// The month is still shown, with the alert on top.
		fmt.Fprintf(c.app.out(), "ALERT: balance for %s is %s and no investment can cover it (largest holds %s)\n",
			month, c.app.money(report.Summary.CurrentBalance), c.app.money(shortfall.Available))
	case err != nil:
		return c.app.fail(err)
	}

	w := c.app.out()
	for _, y := range report.YieldsApplied {
		fmt.Fprintf(w, "Yield %s: %s on %s\n", y.Month, c.app.money(y.Amount), y.InvestmentID)
	}
	for _, p := range report.Payments {
		fmt.Fprintf(w, "Paid %s: %s due %s\n", p.Description, c.app.money(p.Amount), p.Date)
	}
	if report.Coverage != nil {
		fmt.Fprintln(w, report.Coverage.Message())
	}

	ov, err := c.app.Tracker.Overview(ctx, month)
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(w, "\n%s\n", month)
	tw := c.app.table()
	fmt.Fprintf(tw, "Balance\t%s\n", c.app.money(ov.Summary.CurrentBalance))
	fmt.Fprintf(tw, "Income\t%s\n", c.app.money(ov.Summary.Income))
	fmt.Fprintf(tw, "Projected expenses\t%s\n", c.app.money(ov.Summary.ProjectedExpenses))
	fmt.Fprintf(tw, "Invested\t%s\n", c.app.money(ov.TotalInvested))
	tw.Flush()

	if len(ov.Cycles) > 0 {
		fmt.Fprintln(w, "\nCards")
		tw = c.app.table()
		for _, cy := range ov.Cycles {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", cy.Card.Name, c.app.money(cy.Total), cy.State)
		}
		tw.Flush()
	}

	if c.tx {
		txs, err := c.app.Tracker.Balance.TransactionsForMonth(ctx, month)
		if err != nil {
			return c.app.fail(err)
		}
		fmt.Fprintln(w, "\nTransactions")
		printTransactions(c.app, txs)
	}
	return subcommands.ExitSuccess
}

func printTransactions(app *App, txs []core.Transaction) {
	tw := app.table()
	for _, t := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Date, t.Type, app.money(t.Amount), t.Category, t.Description)
	}
	tw.Flush()
}

type monthsCmd struct {
	app *App
}

func (*monthsCmd) Name() string           { return "months" }
func (*monthsCmd) Synopsis() string       { return "list the months that have transactions" }
func (*monthsCmd) Usage() string          { return "fintrack months\n" }
func (*monthsCmd) SetFlags(*flag.FlagSet) {}

func (c *monthsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	months, err := c.app.Tracker.Balance.MonthsWithTransactions(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	for _, m := range months {
		fmt.Fprintln(c.app.out(), m)
	}
	return subcommands.ExitSuccess
}

type recordCmd struct {
	app         *App
	typ         string
	amount      moneyFlag
	date        string
	category    string
	description string
}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "record an income or expense" }
func (*recordCmd) Usage() string {
	return `fintrack record -type income|expense -amount <amount> -category <category> [-d YYYY-MM-DD] [-desc <text>]
`
}

func (c *recordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.typ, "type", string(core.Expense), "Transaction type: income or expense.")
	f.Var(&c.amount, "amount", "Amount of the transaction.")
	f.StringVar(&c.date, "d", "", "Date of the transaction (defaults to today).")
	f.StringVar(&c.category, "category", "", "Category of the transaction.")
	f.StringVar(&c.description, "desc", "", "Free text description.")
}

func (c *recordCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.amount.set {
		return c.app.fail(errors.New("-amount is required"))
	}
	date, err := c.app.date(c.date)
	if err != nil {
		return c.app.fail(err)
	}
	t, err := c.app.Tracker.Balance.RecordTransaction(ctx, core.TransactionType(c.typ), c.amount.value, date, c.category, c.description)
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out(), "Recorded %s %s on %s (%s)\n", t.Type, c.app.money(t.Amount), t.Date, t.ID)
	return subcommands.ExitSuccess
}

type deleteTxCmd struct {
	app *App
}

func (*deleteTxCmd) Name() string           { return "delete-tx" }
func (*deleteTxCmd) Synopsis() string       { return "delete a recorded income or expense" }
func (*deleteTxCmd) Usage() string          { return "fintrack delete-tx <transaction id>\n" }
func (*deleteTxCmd) SetFlags(*flag.FlagSet) {}

func (c *deleteTxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := oneArg(f, "transaction id")
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.Tracker.Balance.DeleteTransaction(ctx, id); err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out(), "Deleted %s\n", id)
	return subcommands.ExitSuccess
}
