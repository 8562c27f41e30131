package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.50", true},
		{"-1", "", false},
		{"0", "", false},
		{"0.004", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyCents(t *testing.T) {
	if got := MoneyFromCents(106500).String(); got != "1065.00" {
		t.Fatalf("MoneyFromCents(106500) = %s", got)
	}
	if got := MustParseMoney("12.34").Cents(); got != 1234 {
		t.Fatalf("Cents() = %d, want 1234", got)
	}
	if got := MustParseMoney("200").Neg().Cents(); got != -20000 {
		t.Fatalf("negative Cents() = %d, want -20000", got)
	}
}

func TestMoneyPercent(t *testing.T) {
	cases := []struct {
		principal string
		rate      string
		want      string
	}{
		{"1000", "6.5", "65.00"},
		{"1065", "6.5", "69.23"}, // 69.225 rounds half-up
		{"100", "0", "0.00"},
		{"333.33", "1", "3.33"},
	}
	for _, tc := range cases {
		got := MustParseMoney(tc.principal).Percent(decimal.RequireFromString(tc.rate))
		if got.String() != tc.want {
			t.Errorf("%s at %s%% = %s, want %s", tc.principal, tc.rate, got, tc.want)
		}
	}
}

func TestMoneyFormat(t *testing.T) {
	got := MustParseMoney("1234.5").Format("EUR")
	if got == "" || got == "1234.50" {
		t.Fatalf("expected currency formatting, got %q", got)
	}
	if MustParseMoney("10").Format("") != MustParseMoney("10").Format(DefaultCurrency) {
		t.Fatalf("empty currency should fall back to %s", DefaultCurrency)
	}
}
