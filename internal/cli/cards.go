package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"fintrack/internal/engine"

	"github.com/google/subcommands"
)

type cardsCmd struct {
	app   *App
	month string
}

func (*cardsCmd) Name() string     { return "cards" }
func (*cardsCmd) Synopsis() string { return "list credit cards and their cycle for a month" }
func (*cardsCmd) Usage() string    { return "fintrack cards [-m YYYY-MM]\n" }

func (c *cardsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "m", "", "Billing month (defaults to the current month).")
}

func (c *cardsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	month, err := c.app.month(c.month)
	if err != nil {
		return c.app.fail(err)
	}
	ov, err := c.app.Tracker.Overview(ctx, month)
	if err != nil {
		return c.app.fail(err)
	}
	tw := c.app.table()
	fmt.Fprintln(tw, "ID\tNAME\tLIMIT\tAVAILABLE\tCLOSES\tDUE\tBILLED\tCYCLE\tPAYER")
	for _, cy := range ov.Cycles {
		card := cy.Card
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			card.ID, card.Name, c.app.money(card.Limit), c.app.money(card.AvailableLimit),
			card.ClosingDay, card.DueDay, c.app.money(cy.Total), cy.State, card.DefaultPayerCardID)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}

// cardFlags are shared by add-card and update-card.
type cardFlags struct {
	name    string
	limit   moneyFlag
	closing int
	due     int
	payer   string
}

func (c *cardFlags) register(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Card name.")
	f.Var(&c.limit, "limit", "Credit limit.")
	f.IntVar(&c.closing, "closing", 0, "Day of the month the cycle closes (1-31).")
	f.IntVar(&c.due, "due", 0, "Day of the month the bill is due (1-31).")
	f.StringVar(&c.payer, "payer", "", "Id of the card that pays this card's bill.")
}

func (c *cardFlags) params() engine.CardParams {
	return engine.CardParams{
		Name:               c.name,
		Limit:              c.limit.value,
		ClosingDay:         c.closing,
		DueDay:             c.due,
		DefaultPayerCardID: c.payer,
	}
}

type addCardCmd struct {
	app *App
	cardFlags
}

func (*addCardCmd) Name() string     { return "add-card" }
func (*addCardCmd) Synopsis() string { return "add a credit card" }
func (*addCardCmd) Usage() string {
	return "fintrack add-card -name <name> -limit <amount> -closing <day> -due <day> [-payer <card id>]\n"
}
func (c *addCardCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *addCardCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.limit.set {
		return c.app.fail(errors.New("-limit is required"))
	}
	card, err := c.app.Tracker.Cards.AddCard(ctx, c.params())
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out(), "Added card %s (%s)\n", card.Name, card.ID)
	return subcommands.ExitSuccess
}

type updateCardCmd struct {
	app *App
	cardFlags
}

func (*updateCardCmd) Name() string     { return "update-card" }
func (*updateCardCmd) Synopsis() string { return "change a credit card's settings" }
func (*updateCardCmd) Usage() string {
	return `fintrack update-card [-name <name>] [-limit <amount>] [-closing <day>] [-due <day>] [-payer <card id>] <card id>

  Unset flags keep their current value. Setting a payer pays every closed
  cycle that is still pending.
`
}
func (c *updateCardCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *updateCardCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := oneArg(f, "card id")
	if err != nil {
		return c.app.fail(err)
	}
	current, err := c.app.Tracker.Cards.Card(ctx, id)
	if err != nil {
		return c.app.fail(err)
	}

	p := engine.CardParams{
		Name:               current.Name,
		Limit:              current.Limit,
		ClosingDay:         current.ClosingDay,
		DueDay:             current.DueDay,
		DefaultPayerCardID: current.DefaultPayerCardID,
	}
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "name":
			p.Name = c.name
		case "limit":
			p.Limit = c.limit.value
		case "closing":
			p.ClosingDay = c.closing
		case "due":
			p.DueDay = c.due
		case "payer":
			p.DefaultPayerCardID = c.payer
		}
	})

	card, payments, err := c.app.Tracker.Cards.UpdateCard(ctx, id, p)
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out(), "Updated card %s, available %s\n", card.Name, c.app.money(card.AvailableLimit))
	for _, pay := range payments {
		fmt.Fprintf(c.app.out(), "Paid %s cycle: %s\n", pay.Month, c.app.money(pay.Amount))
	}
	return subcommands.ExitSuccess
}

type deleteCardCmd struct {
	app *App
}

func (*deleteCardCmd) Name() string           { return "delete-card" }
func (*deleteCardCmd) Synopsis() string       { return "delete a credit card with nothing outstanding" }
func (*deleteCardCmd) Usage() string          { return "fintrack delete-card <card id>\n" }
func (*deleteCardCmd) SetFlags(*flag.FlagSet) {}

func (c *deleteCardCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := oneArg(f, "card id")
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.Tracker.Cards.DeleteCard(ctx, id); err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out(), "Deleted card %s\n", id)
	return subcommands.ExitSuccess
}

type purchaseCmd struct {
	app         *App
	card        string
	amount      moneyFlag
	date        string
	category    string
	description string
}

func (*purchaseCmd) Name() string     { return "purchase" }
func (*purchaseCmd) Synopsis() string { return "charge a purchase to a credit card" }
func (*purchaseCmd) Usage() string {
	return `fintrack purchase -card <card id> -amount <amount> -category <category> [-d YYYY-MM-DD] [-desc <text>]

  The purchase is billed in the cycle its date falls in and reduces the
  card's available limit.
`
}

func (c *purchaseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.card, "card", "", "Card to charge.")
	f.Var(&c.amount, "amount", "Amount of the purchase.")
	f.StringVar(&c.date, "d", "", "Date of the purchase (defaults to today).")
	f.StringVar(&c.category, "category", "", "Category of the purchase.")
	f.StringVar(&c.description, "desc", "", "Free text description.")
}

func (c *purchaseCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.amount.set {
		return c.app.fail(errors.New("-amount is required"))
	}
	date, err := c.app.date(c.date)
	if err != nil {
		return c.app.fail(err)
	}
	t, err := c.app.Tracker.Cards.PostPurchase(ctx, c.card, c.amount.value, date, c.category, c.description)
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out(), "Charged %s, billed in %s (%s)\n", c.app.money(t.Amount), t.Month, t.ID)
	return subcommands.ExitSuccess
}

type cancelPurchaseCmd struct {
	app *App
}

func (*cancelPurchaseCmd) Name() string           { return "cancel-purchase" }
func (*cancelPurchaseCmd) Synopsis() string       { return "cancel a purchase whose cycle is not paid" }
func (*cancelPurchaseCmd) Usage() string          { return "fintrack cancel-purchase <transaction id>\n" }
func (*cancelPurchaseCmd) SetFlags(*flag.FlagSet) {}

func (c *cancelPurchaseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := oneArg(f, "transaction id")
	if err != nil {
		return c.app.fail(err)
	}
	if err := c.app.Tracker.Cards.CancelPurchase(ctx, id); err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out(), "Cancelled %s\n", id)
	return subcommands.ExitSuccess
}

type reconcileCmd struct {
	app *App
}

func (*reconcileCmd) Name() string           { return "reconcile" }
func (*reconcileCmd) Synopsis() string       { return "pay every closed card cycle that is still pending" }
func (*reconcileCmd) Usage() string          { return "fintrack reconcile\n" }
func (*reconcileCmd) SetFlags(*flag.FlagSet) {}

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	payments, err := c.app.Tracker.Cards.ReconcilePayments(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	for _, p := range payments {
		fmt.Fprintf(c.app.out(), "Paid %s for %s: %s\n", p.SourceCardID, p.Month, c.app.money(p.Amount))
	}
	fmt.Fprintf(c.app.out(), "%d payment(s) generated\n", len(payments))
	return subcommands.ExitSuccess
}
