package engine

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// BalanceEngine derives month summaries from the transaction ledger.
type BalanceEngine struct {
	deps
}

func NewBalanceEngine(repo storage.Repository, opts Options) *BalanceEngine {
	return &BalanceEngine{deps: newDeps(repo, opts)}
}

// MonthSummary computes the balance of month as of today. Card purchases
// count in their billing month; automatic card payments settle purchases
// already counted and are left out.
func (e *BalanceEngine) MonthSummary(ctx context.Context, month core.Month) (core.MonthSummary, error) {
	if err := validMonth(month); err != nil {
		return core.MonthSummary{}, err
	}
	txs, err := e.repo.Transactions(ctx)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("load transactions: %w", err)
	}
	return Summarize(month, e.today(), txs), nil
}

// Summarize is the pure computation behind MonthSummary.
func Summarize(month core.Month, today core.Date, txs []core.Transaction) core.MonthSummary {
	s := core.MonthSummary{
		Month:             month,
		CurrentBalance:    core.Zero,
		Income:            core.Zero,
		ProjectedExpenses: core.Zero,
	}
	for _, t := range txs {
		if t.IsCardPayment() || t.Month.After(month) {
			continue
		}
		if t.Date.After(today) {
			if t.Type == core.Expense && t.Month == month {
				s.ProjectedExpenses = s.ProjectedExpenses.Add(t.Amount)
			}
			continue
		}
		if t.Type == core.Income {
			s.Income = s.Income.Add(t.Amount)
		}
		s.CurrentBalance = s.CurrentBalance.Add(t.Signed())
	}
	return s
}

// MonthsWithTransactions lists the months that have any transaction.
func (e *BalanceEngine) MonthsWithTransactions(ctx context.Context) ([]core.Month, error) {
	return e.repo.MonthsWithTransactions(ctx)
}

// TransactionsForMonth returns the transactions whose effective month is month.
func (e *BalanceEngine) TransactionsForMonth(ctx context.Context, month core.Month) ([]core.Transaction, error) {
	if err := validMonth(month); err != nil {
		return nil, err
	}
	return e.repo.TransactionsByMonth(ctx, month)
}

// RecordTransaction posts a user-entered income or expense. Reserved
// categories belong to transactions the engines generate.
func (e *BalanceEngine) RecordTransaction(ctx context.Context, typ core.TransactionType, amount core.Money, date core.Date, category, description string) (core.Transaction, error) {
	if category == core.CategoryCardPayment || category == core.CategoryCoverage {
		return core.Transaction{}, core.ErrReservedCategory
	}
	t := core.Transaction{
		ID:          e.newID(),
		Type:        typ,
		Amount:      amount,
		Date:        date,
		Month:       date.Key(),
		Category:    category,
		Description: description,
		CreatedAt:   e.clock.Now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := e.repo.AddTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	e.changed(t.Month)
	slog.InfoContext(ctx, "Recorded transaction",
		"id", t.ID,
		"type", t.Type,
		"month", t.Month,
		"amount", t.Amount.String())
	return t, nil
}

// DeleteTransaction removes a user-entered transaction. Card purchases are
// removed through CardEngine.CancelPurchase so the limit is restored.
func (e *BalanceEngine) DeleteTransaction(ctx context.Context, id string) error {
	t, err := e.repo.Transaction(ctx, id)
	if err != nil {
		return err
	}
	if t.SourceCardID != "" || t.AutoGenerated {
		return fmt.Errorf("transaction %s is managed by the engine: %w", id, core.ErrReservedCategory)
	}
	if err := e.repo.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	e.changed(t.Month)
	return nil
}
