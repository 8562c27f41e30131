package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/storage"

	"golang.org/x/sync/errgroup"
)

const (
	summaryCacheSize = 64
	summaryCacheTTL  = 10 * time.Minute
)

// MonthReport is what viewing a month produced.
type MonthReport struct {
	Month         core.Month
	Summary       core.MonthSummary
	YieldsApplied []core.YieldEntry
	Payments      []core.Transaction
	Coverage      *CoverageResult
}

// CardCycle is one card's billing cycle for a month.
type CardCycle struct {
	Card  core.CreditCard
	Total core.Money
	State core.CycleState
}

// MonthOverview is a read-only picture of a month across the ledger.
type MonthOverview struct {
	Summary       core.MonthSummary
	Cycles        []CardCycle
	Investments   []core.Investment
	TotalInvested core.Money
}

// Tracker runs the engines over a shared repository, lock set and clock.
type Tracker struct {
	Balance  *BalanceEngine
	Cards    *CardEngine
	Yields   *YieldEngine
	Coverage *CoverageEngine

	repo      storage.Repository
	clock     core.Clock
	summaries *cache.SummaryCache
	gen       atomic.Uint64
}

func NewTracker(repo storage.Repository, opts Options) *Tracker {
	t := &Tracker{
		repo:      repo,
		summaries: cache.NewSummaryCache(summaryCacheSize, summaryCacheTTL),
	}
	if opts.Clock == nil {
		opts.Clock = core.SystemClock{}
	}
	if opts.Locker == nil {
		opts.Locker = NewLocker()
	}
	next := opts.Changed
	opts.Changed = func(from core.Month) {
		t.gen.Add(1)
		t.summaries.InvalidateFrom(from)
		if next != nil {
			next(from)
		}
	}

	t.clock = opts.Clock
	t.Balance = NewBalanceEngine(repo, opts)
	t.Cards = NewCardEngine(repo, opts)
	t.Yields = NewYieldEngine(repo, opts)
	t.Coverage = NewCoverageEngine(repo, opts)
	return t
}

// Summary returns the month summary, served from cache until a mutation
// touches month or an earlier one.
func (t *Tracker) Summary(ctx context.Context, month core.Month) (core.MonthSummary, error) {
	today := core.Today(t.clock)
	if s, ok := t.summaries.Get(month, today); ok {
		return s, nil
	}
	gen := t.gen.Load()
	s, err := t.Balance.MonthSummary(ctx, month)
	if err != nil {
		return core.MonthSummary{}, err
	}
	// A mutation that landed while computing may have made s stale.
	if t.gen.Load() == gen {
		n := t.summaries.Set(month, today, s)
		slog.DebugContext(ctx, "Cached month summary", "month", month, "entries", n)
	}
	return s, nil
}

// Settings returns the stored settings, or the defaults when none were saved.
func (t *Tracker) Settings(ctx context.Context) (core.Settings, error) {
	return t.repo.Settings(ctx)
}

// ViewMonth brings month up to date and reports its balance: yields are
// compounded first so coverage sees current principals, then closed card
// cycles are paid, then a negative balance is covered and recomputed.
//
// When coverage fails the report still carries the negative summary and the
// error is returned alongside it.
func (t *Tracker) ViewMonth(ctx context.Context, month core.Month) (MonthReport, error) {
	report := MonthReport{Month: month}
	if err := validMonth(month); err != nil {
		return report, err
	}

	yields, err := t.Yields.ProcessMonthlyYields(ctx, month)
	report.YieldsApplied = yields
	if err != nil {
		return report, fmt.Errorf("process yields: %w", err)
	}

	payments, err := t.Cards.GenerateAutoPayments(ctx, month)
	report.Payments = payments
	if err != nil {
		return report, fmt.Errorf("generate payments: %w", err)
	}

	report.Summary, err = t.Summary(ctx, month)
	if err != nil {
		return report, fmt.Errorf("month summary: %w", err)
	}
	if !report.Summary.CurrentBalance.IsNegative() {
		return report, nil
	}

	coverage, err := t.Coverage.CoverNegativeBalance(ctx, month)
	if err != nil {
		if errors.Is(err, core.ErrInsufficientFunds) {
			return report, err
		}
		return report, fmt.Errorf("cover negative balance: %w", err)
	}
	if coverage == nil {
		return report, nil
	}
	report.Coverage = coverage

	report.Summary, err = t.Summary(ctx, month)
	if err != nil {
		return report, fmt.Errorf("month summary: %w", err)
	}
	slog.InfoContext(ctx, "Viewed month",
		"month", month,
		"balance", report.Summary.CurrentBalance.String(),
		"covered", coverage.Amount.String())
	return report, nil
}

// Overview loads the month summary, card cycles and investments
// concurrently. It changes nothing.
func (t *Tracker) Overview(ctx context.Context, month core.Month) (MonthOverview, error) {
	if err := validMonth(month); err != nil {
		return MonthOverview{}, err
	}

	var ov MonthOverview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := t.Summary(gctx, month)
		ov.Summary = s
		return err
	})
	g.Go(func() error {
		cycles, err := t.cycles(gctx, month)
		ov.Cycles = cycles
		return err
	})
	g.Go(func() error {
		invs, err := t.Yields.Investments(gctx)
		if err != nil {
			return err
		}
		ov.Investments = invs
		ov.TotalInvested = core.Zero
		for _, inv := range invs {
			ov.TotalInvested = ov.TotalInvested.Add(inv.Principal)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return MonthOverview{}, err
	}
	return ov, nil
}

func (t *Tracker) cycles(ctx context.Context, month core.Month) ([]CardCycle, error) {
	cards, err := t.Cards.Cards(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CardCycle, 0, len(cards))
	for _, c := range cards {
		total, err := t.Cards.CardMonthlyTotal(ctx, c.ID, month)
		if err != nil {
			return nil, err
		}
		state, err := t.Cards.CycleState(ctx, c.ID, month)
		if err != nil {
			return nil, err
		}
		out = append(out, CardCycle{Card: c, Total: total, State: state})
	}
	return out, nil
}
