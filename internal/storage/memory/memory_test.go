package memory

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func card(id string) core.CreditCard {
	return core.CreditCard{
		ID: id, Name: "card " + id, Limit: core.MoneyFromCents(10000), AvailableLimit: core.MoneyFromCents(10000),
		ClosingDay: 10, DueDay: 20,
	}
}

func TestStoreCardsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.AddCard(ctx, card("a")); err != nil {
		t.Fatalf("add card: %v", err)
	}
	got, err := s.Card(ctx, "a")
	if err != nil || got.Name != "card a" {
		t.Fatalf("unexpected card: %+v err=%v", got, err)
	}
	if _, err := s.Card(ctx, "b"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.UpdateCard(ctx, card("b")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update of unknown card should fail, got %v", err)
	}
}

func TestStoreWithTxRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.AddCard(ctx, card("a")); err != nil {
		t.Fatalf("add card: %v", err)
	}

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx storage.Store) error {
		c, _ := tx.Card(ctx, "a")
		c.AvailableLimit = core.MoneyFromCents(1)
		if err := tx.UpdateCard(ctx, c); err != nil {
			return err
		}
		if err := tx.AddCard(ctx, card("b")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	cards, _ := s.Cards(ctx)
	if len(cards) != 1 || !cards[0].AvailableLimit.Equal(core.MoneyFromCents(10000)) {
		t.Fatalf("rollback did not restore state: %+v", cards)
	}
}

func TestStoreFailOn(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.FailOn("AddCard", errors.New("disk full"))
	err := s.AddCard(ctx, card("a"))
	if !errors.Is(err, core.ErrRepository) {
		t.Fatalf("expected repository error, got %v", err)
	}
	s.FailOn("AddCard", nil)
	if err := s.AddCard(ctx, card("a")); err != nil {
		t.Fatalf("add after clearing failure: %v", err)
	}
}

func TestStoreMonthsWithTransactions(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i, m := range []core.Month{"2025-03", "2025-01", "2025-03"} {
		err := s.AddTransaction(ctx, core.Transaction{
			ID: string(rune('a' + i)), Type: core.Income, Amount: core.MoneyFromCents(100),
			Date: m.Day(1), Month: m, Category: "salary",
		})
		if err != nil {
			t.Fatalf("add transaction: %v", err)
		}
	}
	months, err := s.MonthsWithTransactions(ctx)
	if err != nil || len(months) != 2 || months[0] != "2025-01" || months[1] != "2025-03" {
		t.Fatalf("unexpected months: %v err=%v", months, err)
	}
}
