package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type settingsCmd struct {
	app      *App
	rate     rateFlag
	yields   string
	coverage string
}

func (*settingsCmd) Name() string     { return "settings" }
func (*settingsCmd) Synopsis() string { return "show or change yield and coverage settings" }
func (*settingsCmd) Usage() string {
	return `fintrack settings [-rate <monthly %>] [-yields on|off] [-coverage <investment id>]

  Without flags the current settings are shown. -coverage "" goes back to
  covering from the investment with the largest principal.
`
}

func (c *settingsCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.rate, "rate", "Default monthly yield rate for new investments.")
	f.StringVar(&c.yields, "yields", "", "Turn monthly yield processing on or off.")
	f.StringVar(&c.coverage, "coverage", "", "Investment tried first when covering a negative balance.")
}

func (c *settingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	yields := c.app.Tracker.Yields
	var err error
	f.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "rate":
			err = yields.SetDefaultYieldRate(ctx, c.rate.Decimal)
		case "yields":
			switch c.yields {
			case "on":
				err = yields.SetYieldEnabled(ctx, true)
			case "off":
				err = yields.SetYieldEnabled(ctx, false)
			default:
				err = fmt.Errorf("-yields must be on or off, got %q", c.yields)
			}
		case "coverage":
			err = c.app.Tracker.Coverage.SetCoverageInvestment(ctx, c.coverage)
		}
	})
	if err != nil {
		return c.app.fail(err)
	}

	s, err := c.app.Tracker.Settings(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	source := s.CoverageInvestmentID
	if source == "" {
		source = "(largest principal)"
	}
	tw := c.app.table()
	fmt.Fprintf(tw, "Default yield rate\t%s%%\n", s.DefaultYieldRate)
	fmt.Fprintf(tw, "Yields enabled\t%t\n", s.YieldEnabled)
	fmt.Fprintf(tw, "Coverage source\t%s\n", source)
	fmt.Fprintf(tw, "Currency\t%s\n", s.Currency)
	tw.Flush()
	return subcommands.ExitSuccess
}
