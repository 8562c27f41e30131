package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(day string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = core.MustParseDate(day).Add(12 * time.Hour)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Types() []core.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	store   *memory.Store
	clock   *testClock
	events  *recordingPublisher
	tracker *Tracker
}

func newFixture(t *testing.T, today string) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.New(),
		clock:  &testClock{},
		events: &recordingPublisher{},
	}
	f.clock.Set(today)
	f.tracker = NewTracker(f.store, Options{Clock: f.clock, Publisher: f.events})
	return f
}

func (f *fixture) addCard(t *testing.T, name, limit string, closing, due int, payer string) core.CreditCard {
	t.Helper()
	c, err := f.tracker.Cards.AddCard(context.Background(), CardParams{
		Name:               name,
		Limit:              core.MustParseMoney(limit),
		ClosingDay:         closing,
		DueDay:             due,
		DefaultPayerCardID: payer,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) addInvestment(t *testing.T, name, amount, rate, start string) core.Investment {
	t.Helper()
	inv, err := f.tracker.Yields.CreateInvestment(context.Background(), InvestmentParams{
		Name:      name,
		Amount:    core.MustParseMoney(amount),
		Rate:      decimal.NewNullDecimal(decimal.RequireFromString(rate)),
		StartDate: core.MustParseDate(start),
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) record(t *testing.T, typ core.TransactionType, amount, day string) core.Transaction {
	t.Helper()
	tx, err := f.tracker.Balance.RecordTransaction(context.Background(), typ, core.MustParseMoney(amount), core.MustParseDate(day), "misc", "")
	require.NoError(t, err)
	return tx
}
