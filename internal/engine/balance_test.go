package engine

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(typ core.TransactionType, amount, day string, month core.Month) core.Transaction {
	return core.Transaction{
		Type:     typ,
		Amount:   core.MustParseMoney(amount),
		Date:     core.MustParseDate(day),
		Month:    month,
		Category: "misc",
	}
}

func TestSummarize(t *testing.T) {
	today := core.MustParseDate("2025-03-15")

	payment := tx(core.Expense, "300", "2025-03-10", "2025-03")
	payment.AutoGenerated = true
	payment.Category = core.CategoryCardPayment
	payment.SourceCardID = "c1"

	purchaseNextCycle := tx(core.Expense, "40", "2025-03-12", "2025-04")
	purchaseNextCycle.SourceCardID = "c1"

	txs := []core.Transaction{
		tx(core.Income, "1000", "2025-02-01", "2025-02"),
		tx(core.Expense, "200", "2025-02-10", "2025-02"),
		tx(core.Income, "500", "2025-03-01", "2025-03"),
		tx(core.Expense, "100", "2025-03-15", "2025-03"),
		tx(core.Expense, "80", "2025-03-20", "2025-03"), // future
		tx(core.Income, "900", "2025-03-25", "2025-03"), // future income is ignored
		tx(core.Expense, "70", "2025-04-02", "2025-04"), // later month
		payment,
		purchaseNextCycle,
	}

	tests := []struct {
		month     core.Month
		balance   string
		income    string
		projected string
	}{
		{"2025-01", "0.00", "0.00", "0.00"},
		{"2025-02", "800.00", "1000.00", "0.00"},
		{"2025-03", "1200.00", "1500.00", "80.00"},
		{"2025-04", "1160.00", "1500.00", "70.00"},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			s := Summarize(tt.month, today, txs)
			assert.Equal(t, tt.balance, s.CurrentBalance.String(), "balance")
			assert.Equal(t, tt.income, s.Income.String(), "income")
			assert.Equal(t, tt.projected, s.ProjectedExpenses.String(), "projected")
		})
	}
}

func TestBalanceEngine_RecordTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2025-03-15")
	b := f.tracker.Balance

	f.record(t, core.Income, "100", "2025-03-01")
	exp := f.record(t, core.Expense, "30.50", "2025-03-02")

	s, err := b.MonthSummary(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, "69.50", s.CurrentBalance.String())

	_, err = b.RecordTransaction(ctx, core.Income, core.MustParseMoney("1"), core.MustParseDate("2025-03-01"), core.CategoryCoverage, "")
	assert.ErrorIs(t, err, core.ErrReservedCategory)

	require.NoError(t, b.DeleteTransaction(ctx, exp.ID))
	s, err = b.MonthSummary(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, "100.00", s.CurrentBalance.String())

	_, err = b.MonthSummary(ctx, "2025-3")
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	months, err := b.MonthsWithTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Month{"2025-03"}, months)
}

func TestBalanceEngine_DeleteRefusesCardPurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2025-03-15")
	card := f.addCard(t, "Visa", "500", 10, 20, "")

	p, err := f.tracker.Cards.PostPurchase(ctx, card.ID, core.MustParseMoney("50"), core.MustParseDate("2025-03-01"), "food", "")
	require.NoError(t, err)

	err = f.tracker.Balance.DeleteTransaction(ctx, p.ID)
	assert.True(t, errors.Is(err, core.ErrReservedCategory))
}

func TestBalanceEngine_RepositoryFailure(t *testing.T) {
	f := newFixture(t, "2025-03-15")
	f.store.FailOn("Transactions", errors.New("disk gone"))

	_, err := f.tracker.Balance.MonthSummary(context.Background(), "2025-03")
	assert.ErrorIs(t, err, core.ErrRepository)
}
