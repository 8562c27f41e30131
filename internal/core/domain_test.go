package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := MoneyFromCents(1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := Zero.Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:     Expense,
		Amount:   MoneyFromCents(100),
		Date:     NewDate(2025, 1, 1),
		Month:    "2025-01",
		Category: "food",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Type: "transfer", Amount: MoneyFromCents(1), Date: NewDate(2025, 1, 1), Month: "2025-01", Category: "c"},
		{Type: Income, Amount: Zero, Date: NewDate(2025, 1, 1), Month: "2025-01", Category: "c"},
		{Type: Income, Amount: MoneyFromCents(1), Date: Date{}, Month: "2025-01", Category: "c"},
		{Type: Income, Amount: MoneyFromCents(1), Date: NewDate(2025, 1, 1), Month: "2025-1", Category: "c"},
		{Type: Income, Amount: MoneyFromCents(1), Date: NewDate(2025, 1, 1), Month: "2025-01", Category: " "},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCreditCardBillingMonth(t *testing.T) {
	card := CreditCard{ClosingDay: 10, DueDay: 20}
	cases := []struct {
		date string
		want Month
	}{
		{"2025-03-09", "2025-03"},
		{"2025-03-10", "2025-04"}, // closing day itself bills next cycle
		{"2025-03-31", "2025-04"},
		{"2025-12-15", "2026-01"},
	}
	for _, tc := range cases {
		if got := card.BillingMonth(MustParseDate(tc.date)); got != tc.want {
			t.Errorf("BillingMonth(%s) = %s, want %s", tc.date, got, tc.want)
		}
	}

	// closing day clamps in short months
	card.ClosingDay = 31
	if got := card.BillingMonth(MustParseDate("2025-02-28")); got != "2025-03" {
		t.Errorf("clamped closing day: got %s", got)
	}
}

func TestCreditCardDueDate(t *testing.T) {
	card := CreditCard{ClosingDay: 25, DueDay: 5}
	if got := card.DueDate("2025-03"); got.String() != "2025-04-05" {
		t.Fatalf("DueDate = %s, want 2025-04-05", got)
	}
	card.DueDay = 28
	if got := card.DueDate("2025-02"); got.String() != "2025-02-28" {
		t.Fatalf("DueDate = %s, want 2025-02-28", got)
	}
}

func TestCreditCardChargeAndRestore(t *testing.T) {
	card := CreditCard{ID: "c1", Limit: MoneyFromCents(10000), AvailableLimit: MoneyFromCents(10000)}
	err := card.Charge(MoneyFromCents(15000))
	var limitErr *InsufficientLimitError
	if !errors.As(err, &limitErr) || !errors.Is(err, ErrInsufficientLimit) {
		t.Fatalf("expected InsufficientLimitError, got %v", err)
	}
	if !card.AvailableLimit.Equal(MoneyFromCents(10000)) {
		t.Fatalf("rejected charge changed the limit: %s", card.AvailableLimit)
	}
	if err := card.Charge(MoneyFromCents(4000)); err != nil {
		t.Fatalf("charge: %v", err)
	}
	card.Restore(MoneyFromCents(9000))
	if !card.AvailableLimit.Equal(card.Limit) {
		t.Fatalf("restore must cap at the limit, got %s", card.AvailableLimit)
	}
}

func TestCreditCardValidate(t *testing.T) {
	good := CreditCard{ID: "a", Name: "Visa", Limit: MoneyFromCents(100), AvailableLimit: MoneyFromCents(100), ClosingDay: 1, DueDay: 10}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	self := good
	self.DefaultPayerCardID = "a"
	if err := self.Validate(); !errors.Is(err, ErrSelfPayer) {
		t.Fatalf("expected ErrSelfPayer, got %v", err)
	}
	over := good
	over.AvailableLimit = MoneyFromCents(101)
	if err := over.Validate(); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestInvestmentWithdraw(t *testing.T) {
	inv := Investment{ID: "i1", Principal: MoneyFromCents(100000)}
	if err := inv.Withdraw(MoneyFromCents(100001)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := inv.Withdraw(MoneyFromCents(100000)); err != nil {
		t.Fatalf("withdraw all: %v", err)
	}
	if !inv.Principal.IsZero() {
		t.Fatalf("principal = %s, want 0", inv.Principal)
	}
}

func TestInvestmentYieldBaseline(t *testing.T) {
	inv := Investment{StartDate: NewDate(2025, 3, 15), YieldRate: decimal.NewFromInt(1)}
	if inv.YieldBaseline() != "2025-03" {
		t.Fatalf("baseline without history = %s", inv.YieldBaseline())
	}
	inv.LastYieldMonth = "2025-06"
	if inv.YieldBaseline() != "2025-06" {
		t.Fatalf("baseline with history = %s", inv.YieldBaseline())
	}
}
