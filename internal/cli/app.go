package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"fintrack/internal/core"
	"fintrack/internal/engine"
	"fintrack/internal/sheets"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// App is what every command runs against.
type App struct {
	Tracker  *engine.Tracker
	Exporter sheets.MonthExporter // nil when exporting is not configured
	Clock    core.Clock
	Currency string
	Out      io.Writer
	Err      io.Writer
}

func (a *App) out() io.Writer {
	if a.Out == nil {
		return os.Stdout
	}
	return a.Out
}

func (a *App) fail(err error) subcommands.ExitStatus {
	w := a.Err
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintln(w, "error:", err)
	return subcommands.ExitFailure
}

func (a *App) money(m core.Money) string { return m.Format(a.Currency) }

func (a *App) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out(), 0, 0, 2, ' ', 0)
}

// month parses s, defaulting to the current month.
func (a *App) month(s string) (core.Month, error) {
	if s == "" {
		return core.CurrentMonth(a.Clock), nil
	}
	return core.ParseMonth(s)
}

// date parses s, defaulting to today.
func (a *App) date(s string) (core.Date, error) {
	if s == "" {
		return core.Today(a.Clock), nil
	}
	return core.ParseDate(s)
}

// Commands returns every command bound to app, grouped for help output.
func Commands(app *App) map[string][]subcommands.Command {
	return map[string][]subcommands.Command{
		"ledger": {
			&monthCmd{app: app},
			&monthsCmd{app: app},
			&recordCmd{app: app},
			&deleteTxCmd{app: app},
			&exportCmd{app: app},
		},
		"cards": {
			&cardsCmd{app: app},
			&addCardCmd{app: app},
			&updateCardCmd{app: app},
			&deleteCardCmd{app: app},
			&purchaseCmd{app: app},
			&cancelPurchaseCmd{app: app},
			&reconcileCmd{app: app},
		},
		"investments": {
			&investmentsCmd{app: app},
			&investCmd{app: app},
			&depositCmd{adjustCmd{app: app}},
			&withdrawCmd{adjustCmd{app: app}},
			&deleteInvestmentCmd{app: app},
			&yieldsCmd{app: app},
		},
		"settings": {
			&settingsCmd{app: app},
		},
	}
}

// Register adds app's commands to commander.
func Register(commander *subcommands.Commander, app *App) {
	for group, cmds := range Commands(app) {
		for _, c := range cmds {
			commander.Register(c, group)
		}
	}
}

// moneyFlag is a flag.Value holding an amount.
type moneyFlag struct {
	set   bool
	value core.Money
}

func (m *moneyFlag) String() string {
	if !m.set {
		return ""
	}
	return m.value.String()
}

func (m *moneyFlag) Set(s string) error {
	v, err := core.ParseMoney(s)
	if err != nil {
		return err
	}
	m.value, m.set = v, true
	return nil
}

// rateFlag is a flag.Value holding an optional monthly rate percentage.
type rateFlag struct {
	decimal.NullDecimal
}

func (r *rateFlag) String() string {
	if !r.Valid {
		return ""
	}
	return r.Decimal.String()
}

func (r *rateFlag) Set(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid rate %q", s)
	}
	r.NullDecimal = decimal.NewNullDecimal(d)
	return nil
}

// oneArg returns the single positional argument of f.
func oneArg(f *flag.FlagSet, what string) (string, error) {
	if f.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one %s argument", what)
	}
	return f.Arg(0), nil
}
