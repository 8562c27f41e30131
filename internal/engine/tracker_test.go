package engine

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_ViewMonthRunsEnginesInOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2025-02-20")
	inv := f.addInvestment(t, "CDB", "1000", "1", "2025-01-10")
	checking := f.addCard(t, "Checking", "1", 1, 2, "")
	card := f.addCard(t, "Visa", "1000", 5, 15, checking.ID)

	_, err := f.tracker.Cards.PostPurchase(ctx, card.ID, core.MustParseMoney("120"), core.MustParseDate("2025-01-20"), "misc", "")
	require.NoError(t, err)
	f.record(t, core.Income, "100", "2025-02-01")
	f.record(t, core.Expense, "990", "2025-02-03")

	report, err := f.tracker.ViewMonth(ctx, "2025-02")
	require.NoError(t, err)

	require.Len(t, report.YieldsApplied, 1)
	assert.Equal(t, "10.00", report.YieldsApplied[0].Amount.String())
	require.Len(t, report.Payments, 1)
	assert.Equal(t, "120.00", report.Payments[0].Amount.String())

	// 100 - 990 - 120 = -1010, covered from 1010 after February's yield.
	require.NotNil(t, report.Coverage)
	assert.Equal(t, "1010.00", report.Coverage.Amount.String())
	assert.True(t, report.Summary.CurrentBalance.IsZero(), "balance = %s", report.Summary.CurrentBalance)

	got, err := f.tracker.Yields.Investment(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.Principal.IsZero())

	assert.Equal(t, []core.EventType{
		core.EventInvestmentYieldApplied,
		core.EventCardPaymentGenerated,
		core.EventCoverageApplied,
	}, f.events.Types())

	// Viewing again changes nothing.
	again, err := f.tracker.ViewMonth(ctx, "2025-02")
	require.NoError(t, err)
	assert.Empty(t, again.YieldsApplied)
	assert.Empty(t, again.Payments)
	assert.Nil(t, again.Coverage)
	assert.True(t, again.Summary.CurrentBalance.IsZero())
}

func TestTracker_ViewMonthCoverageFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2025-03-15")
	f.record(t, core.Expense, "75", "2025-03-02")

	report, err := f.tracker.ViewMonth(ctx, "2025-03")
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	assert.Equal(t, "-75.00", report.Summary.CurrentBalance.String())
	assert.Nil(t, report.Coverage)
}

func TestTracker_SummaryCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2025-03-15")
	f.record(t, core.Income, "100", "2025-02-01")

	s, err := f.tracker.Summary(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, "100.00", s.CurrentBalance.String())

	// An earlier month's change reaches March through the running balance.
	f.record(t, core.Expense, "40", "2025-02-10")
	s, err = f.tracker.Summary(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, "60.00", s.CurrentBalance.String())

	// Writes behind the engines' back are not seen until the next day.
	require.NoError(t, f.store.AddTransaction(ctx, core.Transaction{
		ID: "direct", Type: core.Income, Amount: core.MustParseMoney("1"),
		Date: core.MustParseDate("2025-03-01"), Month: "2025-03", Category: "misc",
	}))
	s, err = f.tracker.Summary(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, "60.00", s.CurrentBalance.String())

	f.clock.Set("2025-03-16")
	s, err = f.tracker.Summary(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, "61.00", s.CurrentBalance.String())
}

func TestTracker_Overview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2025-03-20")
	f.addInvestment(t, "CDB", "1000", "1", "2025-01-10")
	f.addInvestment(t, "LCI", "500", "1", "2025-01-10")
	card := f.addCard(t, "Visa", "1000", 5, 15, "")
	_, err := f.tracker.Cards.PostPurchase(ctx, card.ID, core.MustParseMoney("30"), core.MustParseDate("2025-03-01"), "misc", "")
	require.NoError(t, err)

	ov, err := f.tracker.Overview(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, "-30.00", ov.Summary.CurrentBalance.String())
	assert.Equal(t, "1500.00", ov.TotalInvested.String())
	assert.Len(t, ov.Investments, 2)
	require.Len(t, ov.Cycles, 1)
	assert.Equal(t, "30.00", ov.Cycles[0].Total.String())
	assert.Equal(t, core.CycleUnpaid, ov.Cycles[0].State)
}

func TestLocker(t *testing.T) {
	l := NewLocker()
	unlock, err := l.Lock(context.Background(), "card:b", "card:a", "card:a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "card:a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := l.Lock(context.Background(), "card:a", "card:b")
	require.NoError(t, err)
	unlock2()
}
