package engine

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
)

// InvestmentParams describes a new investment. A null Rate uses the default
// yield rate and a zero StartDate means today.
type InvestmentParams struct {
	Name      string
	Amount    core.Money
	Rate      decimal.NullDecimal
	StartDate core.Date
}

// YieldEngine manages investments and compounds their monthly yield.
type YieldEngine struct {
	deps
}

func NewYieldEngine(repo storage.Repository, opts Options) *YieldEngine {
	return &YieldEngine{deps: newDeps(repo, opts)}
}

func (e *YieldEngine) Investments(ctx context.Context) ([]core.Investment, error) {
	return e.repo.Investments(ctx)
}

func (e *YieldEngine) Investment(ctx context.Context, id string) (core.Investment, error) {
	return e.repo.Investment(ctx, id)
}

func (e *YieldEngine) CreateInvestment(ctx context.Context, p InvestmentParams) (core.Investment, error) {
	if p.Amount.IsNegative() {
		return core.Investment{}, core.ErrInvalidAmount
	}
	rate := p.Rate.Decimal
	if !p.Rate.Valid {
		settings, err := e.repo.Settings(ctx)
		if err != nil {
			return core.Investment{}, fmt.Errorf("load settings: %w", err)
		}
		rate = settings.DefaultYieldRate
	}
	start := p.StartDate
	if start.IsZero() {
		start = e.today()
	}

	inv := core.Investment{
		ID:        e.newID(),
		Name:      p.Name,
		Principal: p.Amount,
		YieldRate: rate,
		StartDate: start,
	}
	if err := inv.Validate(); err != nil {
		return core.Investment{}, err
	}
	if err := e.repo.AddInvestment(ctx, inv); err != nil {
		return core.Investment{}, fmt.Errorf("add investment: %w", err)
	}
	slog.InfoContext(ctx, "Created investment",
		"investment_id", inv.ID,
		"principal", inv.Principal.String(),
		"rate", inv.YieldRate.String())
	return inv, nil
}

// DeleteInvestment removes the investment and its yield history. It stops
// being the coverage source if it was one.
func (e *YieldEngine) DeleteInvestment(ctx context.Context, id string) error {
	unlock, err := e.locks.Lock(ctx, investmentKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	return e.repo.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.DeleteInvestment(ctx, id); err != nil {
			return err
		}
		settings, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		if settings.CoverageInvestmentID != id {
			return nil
		}
		settings.CoverageInvestmentID = ""
		return tx.SaveSettings(ctx, settings)
	})
}

// TotalInvested sums every investment's principal.
func (e *YieldEngine) TotalInvested(ctx context.Context) (core.Money, error) {
	invs, err := e.repo.Investments(ctx)
	if err != nil {
		return core.Zero, err
	}
	total := core.Zero
	for _, inv := range invs {
		total = total.Add(inv.Principal)
	}
	return total, nil
}

func (e *YieldEngine) DefaultYieldRate(ctx context.Context) (decimal.Decimal, error) {
	settings, err := e.repo.Settings(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return settings.DefaultYieldRate, nil
}

// SetDefaultYieldRate changes the rate new investments get. Existing
// investments keep theirs.
func (e *YieldEngine) SetDefaultYieldRate(ctx context.Context, rate decimal.Decimal) error {
	return e.updateSettings(ctx, func(s *core.Settings) { s.DefaultYieldRate = rate })
}

// SetYieldEnabled turns monthly yield processing on or off.
func (e *YieldEngine) SetYieldEnabled(ctx context.Context, enabled bool) error {
	return e.updateSettings(ctx, func(s *core.Settings) { s.YieldEnabled = enabled })
}

func (e *YieldEngine) updateSettings(ctx context.Context, fn func(s *core.Settings)) error {
	return e.repo.WithTx(ctx, func(tx storage.Store) error {
		settings, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		fn(&settings)
		if err := settings.Validate(); err != nil {
			return err
		}
		return tx.SaveSettings(ctx, settings)
	})
}

func (e *YieldEngine) YieldHistory(ctx context.Context, investmentID string) ([]core.YieldEntry, error) {
	if _, err := e.repo.Investment(ctx, investmentID); err != nil {
		return nil, err
	}
	return e.repo.YieldHistory(ctx, investmentID)
}

// ProcessMonthlyYields compounds every investment up to and including month,
// one month at a time so each month's yield is computed on the principal the
// previous month left. Months after the current one have not elapsed and are
// left alone, whatever month asks. Months already compounded are never
// applied again. Nothing happens while yields are disabled in the settings.
func (e *YieldEngine) ProcessMonthlyYields(ctx context.Context, month core.Month) ([]core.YieldEntry, error) {
	if err := validMonth(month); err != nil {
		return nil, err
	}
	settings, err := e.repo.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.YieldEnabled {
		slog.DebugContext(ctx, "Yield processing disabled", "month", month)
		return nil, nil
	}

	through := month
	if current := core.CurrentMonth(e.clock); current.Before(through) {
		through = current
	}

	invs, err := e.repo.Investments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load investments: %w", err)
	}

	var applied []core.YieldEntry
	for _, inv := range invs {
		if !inv.YieldBaseline().Before(through) {
			continue
		}
		entries, err := e.compound(ctx, inv.ID, through)
		if err != nil {
			return applied, fmt.Errorf("compound investment %s: %w", inv.ID, err)
		}
		if len(entries) == 0 {
			continue
		}
		applied = append(applied, entries...)

		total := core.Zero
		for _, y := range entries {
			total = total.Add(y.Amount)
		}
		slog.InfoContext(ctx, "Applied investment yield",
			"investment_id", inv.ID,
			"months", len(entries),
			"through", through,
			"amount", total.String())
		e.publish(ctx, core.Event{
			Type:     core.EventInvestmentYieldApplied,
			Month:    through,
			EntityID: inv.ID,
			Amount:   total,
			Message:  fmt.Sprintf("%s earned %s", inv.Name, total.Format(settings.Currency)),
		})
	}
	return applied, nil
}

// compound applies the missing months of one investment in a single unit
// of work.
func (e *YieldEngine) compound(ctx context.Context, id string, month core.Month) ([]core.YieldEntry, error) {
	unlock, err := e.locks.Lock(ctx, investmentKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var entries []core.YieldEntry
	err = e.repo.WithTx(ctx, func(tx storage.Store) error {
		entries = nil
		inv, err := tx.Investment(ctx, id)
		if err != nil {
			return err
		}
		baseline := inv.YieldBaseline()
		if !baseline.Before(month) {
			return nil
		}
		history, err := tx.YieldHistory(ctx, id)
		if err != nil {
			return err
		}
		done := make(map[core.Month]bool, len(history))
		for _, y := range history {
			done[y.Month] = true
		}

		for _, m := range core.MonthRange(baseline.Next(), month) {
			inv.LastYieldMonth = m
			if done[m] {
				continue
			}
			y := core.YieldEntry{
				InvestmentID: id,
				Month:        m,
				Amount:       inv.Principal.Percent(inv.YieldRate),
				RateApplied:  inv.YieldRate,
			}
			inv.Deposit(y.Amount)
			if err := tx.AppendYield(ctx, y); err != nil {
				return err
			}
			entries = append(entries, y)
		}
		return tx.UpdateInvestment(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// AddToInvestment deposits amount into the investment.
func (e *YieldEngine) AddToInvestment(ctx context.Context, id string, amount core.Money) (core.Investment, error) {
	if err := amount.Validate(); err != nil {
		return core.Investment{}, err
	}
	return e.adjust(ctx, id, func(inv *core.Investment) error {
		inv.Deposit(amount)
		return nil
	})
}

// WithdrawFromInvestment takes amount out of the investment. It fails with
// *core.InsufficientFundsError when the principal is smaller.
func (e *YieldEngine) WithdrawFromInvestment(ctx context.Context, id string, amount core.Money) (core.Investment, error) {
	if err := amount.Validate(); err != nil {
		return core.Investment{}, err
	}
	return e.adjust(ctx, id, func(inv *core.Investment) error {
		return inv.Withdraw(amount)
	})
}

func (e *YieldEngine) adjust(ctx context.Context, id string, fn func(inv *core.Investment) error) (core.Investment, error) {
	unlock, err := e.locks.Lock(ctx, investmentKey(id))
	if err != nil {
		return core.Investment{}, err
	}
	defer unlock()

	var inv core.Investment
	err = e.repo.WithTx(ctx, func(tx storage.Store) error {
		loaded, err := tx.Investment(ctx, id)
		if err != nil {
			return err
		}
		inv = loaded
		if err := fn(&inv); err != nil {
			return err
		}
		return tx.UpdateInvestment(ctx, inv)
	})
	if err != nil {
		return core.Investment{}, err
	}
	slog.InfoContext(ctx, "Adjusted investment", "investment_id", id, "principal", inv.Principal.String())
	return inv, nil
}
