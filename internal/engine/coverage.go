package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// CoverageResult describes a withdrawal made to cover a negative balance.
type CoverageResult struct {
	Amount         core.Money
	InvestmentID   string
	InvestmentName string
	Month          core.Month
	TransactionID  string
	Currency       string
}

// Message is the alert shown to the user.
func (r *CoverageResult) Message() string {
	return fmt.Sprintf("Negative balance in %s covered: %s withdrawn from %s",
		r.Month, r.Amount.Format(r.Currency), r.InvestmentName)
}

// CoverageEngine withdraws from an investment when a month's balance goes
// negative and records the withdrawal as income.
type CoverageEngine struct {
	deps
}

func NewCoverageEngine(repo storage.Repository, opts Options) *CoverageEngine {
	return &CoverageEngine{deps: newDeps(repo, opts)}
}

// SetCoverageInvestment picks the investment tried first when covering. An
// empty id goes back to picking by balance.
func (e *CoverageEngine) SetCoverageInvestment(ctx context.Context, id string) error {
	return e.repo.WithTx(ctx, func(tx storage.Store) error {
		if id != "" {
			if _, err := tx.Investment(ctx, id); err != nil {
				return err
			}
		}
		settings, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		settings.CoverageInvestmentID = id
		return tx.SaveSettings(ctx, settings)
	})
}

// coverageCandidates orders investments the way coverage tries them: the
// designated one first, then by descending principal.
func coverageCandidates(invs []core.Investment, designated string) []core.Investment {
	out := append([]core.Investment(nil), invs...)
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].ID == designated) != (out[j].ID == designated) {
			return out[i].ID == designated
		}
		return out[i].Principal.GreaterThan(out[j].Principal)
	})
	return out
}

// deficitSpan finds the earliest month up to month whose running balance is
// negative, and the largest deficit from there through month. A single
// income in the earliest month at least that large leaves none of them
// negative.
func deficitSpan(month core.Month, today core.Date, txs []core.Transaction) (core.Month, core.Money) {
	var first core.Month
	for _, t := range txs {
		if !t.Month.After(month) && (first.IsZero() || t.Month.Before(first)) {
			first = t.Month
		}
	}
	var from core.Month
	deficit := core.Zero
	if first.IsZero() {
		return from, deficit
	}
	for _, m := range core.MonthRange(first, month) {
		bal := Summarize(m, today, txs).CurrentBalance
		if !bal.IsNegative() {
			continue
		}
		if from.IsZero() {
			from = m
		}
		if bal.Neg().GreaterThan(deficit) {
			deficit = bal.Neg()
		}
	}
	return from, deficit
}

// findCoverage returns a coverage income with effective month in [from, to].
func findCoverage(txs []core.Transaction, from, to core.Month) (core.Transaction, bool) {
	for _, t := range txs {
		if t.IsCoverage() && !t.Month.Before(from) && !t.Month.After(to) {
			return t, true
		}
	}
	return core.Transaction{}, false
}

// CoverNegativeBalance brings month's balance back to zero from an
// investment. The withdrawal is booked in the earliest month whose running
// balance went negative, so viewing months in any order covers a shortfall
// once. It returns nil when the balance is not negative or that span was
// already covered. When no investment holds enough it returns
// *core.InsufficientFundsError and writes nothing.
func (e *CoverageEngine) CoverNegativeBalance(ctx context.Context, month core.Month) (*CoverageResult, error) {
	if err := validMonth(month); err != nil {
		return nil, err
	}
	unlock, err := e.locks.Lock(ctx, coverageKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	txs, err := e.repo.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	today := e.today()
	summary := Summarize(month, today, txs)
	if !summary.CurrentBalance.IsNegative() {
		return nil, nil
	}

	from, shortfall := deficitSpan(month, today, txs)
	if prior, ok := findCoverage(txs, from, month); ok {
		slog.InfoContext(ctx, "Shortfall already covered",
			"month", month,
			"covered_month", prior.Month,
			"transaction_id", prior.ID)
		return nil, nil
	}

	settings, err := e.repo.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	invs, err := e.repo.Investments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load investments: %w", err)
	}

	largest := core.Zero
	var source *core.Investment
	for _, inv := range coverageCandidates(invs, settings.CoverageInvestmentID) {
		if inv.Principal.GreaterThan(largest) {
			largest = inv.Principal
		}
		if source == nil && inv.Principal.GreaterThanOrEqual(shortfall) {
			source = &inv
		}
	}
	if source == nil {
		err := &core.InsufficientFundsError{Requested: shortfall, Available: largest}
		slog.WarnContext(ctx, "Cannot cover negative balance",
			"month", month,
			"shortfall", shortfall.String(),
			"largest_investment", largest.String())
		e.publish(ctx, core.Event{
			Type:    core.EventCoverageFailed,
			Month:   month,
			Amount:  shortfall,
			Message: fmt.Sprintf("Balance for %s is %s and no investment can cover it", month, summary.CurrentBalance.Format(settings.Currency)),
		})
		return nil, err
	}

	result, err := e.withdraw(ctx, *source, shortfall, from, today)
	if err != nil {
		return nil, err
	}
	result.Currency = settings.Currency

	e.changed(from)
	slog.InfoContext(ctx, "Covered negative balance",
		"month", from,
		"viewed_month", month,
		"investment_id", result.InvestmentID,
		"amount", result.Amount.String())
	e.publish(ctx, core.Event{
		Type:     core.EventCoverageApplied,
		Month:    from,
		EntityID: result.InvestmentID,
		Amount:   result.Amount,
		Message:  result.Message(),
	})
	return result, nil
}

// withdraw takes amount out of inv and posts the matching income in one
// unit of work, so neither happens without the other.
func (e *CoverageEngine) withdraw(ctx context.Context, inv core.Investment, amount core.Money, month core.Month, today core.Date) (*CoverageResult, error) {
	unlock, err := e.locks.Lock(ctx, investmentKey(inv.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	date := month.End()
	if today.Before(date) {
		date = today
	}
	income := core.Transaction{
		ID:                 e.newID(),
		Type:               core.Income,
		Amount:             amount,
		Date:               date,
		Month:              month,
		Category:           core.CategoryCoverage,
		Description:        "Coverage from " + inv.Name,
		SourceInvestmentID: inv.ID,
		AutoGenerated:      true,
		CreatedAt:          e.clock.Now().UTC(),
	}

	err = e.repo.WithTx(ctx, func(tx storage.Store) error {
		current, err := tx.Investment(ctx, inv.ID)
		if err != nil {
			return err
		}
		if err := current.Withdraw(amount); err != nil {
			return err
		}
		if err := tx.UpdateInvestment(ctx, current); err != nil {
			return err
		}
		return tx.AddTransaction(ctx, income)
	})
	if err != nil {
		return nil, err
	}

	return &CoverageResult{
		Amount:         amount,
		InvestmentID:   inv.ID,
		InvestmentName: inv.Name,
		Month:          month,
		TransactionID:  income.ID,
	}, nil
}
