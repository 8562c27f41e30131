package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_Transactions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tx := core.Transaction{
		ID:           "t1",
		Type:         core.Expense,
		Amount:       core.MustParseMoney("12.34"),
		Date:         core.MustParseDate("2025-03-10"),
		Month:        "2025-04",
		Category:     "groceries",
		Description:  "market",
		SourceCardID: "card-1",
		CreatedAt:    time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.AddTransaction(ctx, tx))
	require.NoError(t, repo.AddTransaction(ctx, core.Transaction{
		ID: "t2", Type: core.Income, Amount: core.MustParseMoney("100"),
		Date: core.MustParseDate("2025-03-01"), Month: "2025-03", Category: "salary",
	}))

	got, err := repo.Transaction(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "12.34", got.Amount.String())
	assert.Equal(t, core.Month("2025-04"), got.Month)
	assert.Equal(t, "2025-03-10", got.Date.String())
	assert.Equal(t, "card-1", got.SourceCardID)
	assert.True(t, got.IsCardPurchase())

	all, err := repo.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "t2", all[0].ID, "ordered by date")

	months, err := repo.MonthsWithTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Month{"2025-03", "2025-04"}, months)

	purchases, err := repo.CardPurchases(ctx, "card-1", "2025-04")
	require.NoError(t, err)
	require.Len(t, purchases, 1)

	got.Description = "supermarket"
	require.NoError(t, repo.UpdateTransaction(ctx, got))
	got, err = repo.Transaction(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "supermarket", got.Description)

	require.NoError(t, repo.DeleteTransaction(ctx, "t1"))
	_, err = repo.Transaction(ctx, "t1")
	assert.True(t, errors.Is(err, core.ErrNotFound))
	assert.True(t, errors.Is(repo.DeleteTransaction(ctx, "t1"), core.ErrNotFound))
}

func TestSQLiteRepository_CardsAndInvestments(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	card := core.CreditCard{
		ID: "c1", Name: "Visa", Limit: core.MustParseMoney("1000"), AvailableLimit: core.MustParseMoney("750"),
		ClosingDay: 25, DueDay: 5, DefaultPayerCardID: "c2",
	}
	require.NoError(t, repo.AddCard(ctx, card))
	got, err := repo.Card(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "750.00", got.AvailableLimit.String())
	assert.Equal(t, "c2", got.DefaultPayerCardID)

	got.DefaultPayerCardID = ""
	require.NoError(t, repo.UpdateCard(ctx, got))
	cards, err := repo.Cards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.False(t, cards[0].HasPayer())

	_, err = repo.Card(ctx, "missing")
	var nf *core.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "card", nf.Kind)

	inv := core.Investment{
		ID: "i1", Name: "CDB", Principal: core.MustParseMoney("1000"),
		YieldRate: decimal.RequireFromString("6.5"), StartDate: core.MustParseDate("2025-01-15"),
	}
	require.NoError(t, repo.AddInvestment(ctx, inv))
	require.NoError(t, repo.AppendYield(ctx, core.YieldEntry{
		InvestmentID: "i1", Month: "2025-02", Amount: core.MustParseMoney("65"), RateApplied: inv.YieldRate,
	}))
	// (investment_id, month) is unique
	assert.Error(t, repo.AppendYield(ctx, core.YieldEntry{
		InvestmentID: "i1", Month: "2025-02", Amount: core.MustParseMoney("65"), RateApplied: inv.YieldRate,
	}))

	history, err := repo.YieldHistory(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "65.00", history[0].Amount.String())
	assert.True(t, history[0].RateApplied.Equal(decimal.RequireFromString("6.5")))

	inv.Principal = core.MustParseMoney("1065")
	inv.LastYieldMonth = "2025-02"
	require.NoError(t, repo.UpdateInvestment(ctx, inv))
	stored, err := repo.Investment(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "1065.00", stored.Principal.String())
	assert.Equal(t, core.Month("2025-02"), stored.LastYieldMonth)

	require.NoError(t, repo.DeleteInvestment(ctx, "i1"))
	history, err = repo.YieldHistory(ctx, "i1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSQLiteRepository_Settings(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	s, err := repo.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, s.YieldEnabled)
	assert.True(t, s.DefaultYieldRate.Equal(decimal.NewFromInt(1)))

	s.DefaultYieldRate = decimal.RequireFromString("0.85")
	s.CoverageInvestmentID = "i9"
	require.NoError(t, repo.SaveSettings(ctx, s))

	s, err = repo.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.85", s.DefaultYieldRate.String())
	assert.Equal(t, "i9", s.CoverageInvestmentID)
}

func TestSQLiteRepository_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(tx Store) error {
		if err := tx.AddCard(ctx, core.CreditCard{
			ID: "c1", Name: "Visa", Limit: core.MustParseMoney("100"), AvailableLimit: core.MustParseMoney("100"),
			ClosingDay: 1, DueDay: 10,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	cards, err := repo.Cards(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	version, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	again, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, version, again)
}
