package core

import (
	"testing"
	"time"
)

func TestMonthOrdering(t *testing.T) {
	a, b, c := MustParseMonth("2025-09"), MustParseMonth("2025-10"), MustParseMonth("2026-01")
	if !(a < b && b < c) {
		t.Fatalf("expected %s < %s < %s by string comparison", a, b, c)
	}
	if !a.Before(c) || !c.After(b) {
		t.Fatalf("Before/After disagree with string ordering")
	}
}

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01", true},
		{"2025-12", true},
		{"2025-1", false},
		{"2025-13", false},
		{"25-01", false},
		{"2025/01", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := ParseMonth(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMonthNavigation(t *testing.T) {
	m := MustParseMonth("2025-12")
	if m.Next() != "2026-01" {
		t.Fatalf("Next() = %s", m.Next())
	}
	if MustParseMonth("2025-01").Prev() != "2024-12" {
		t.Fatalf("Prev() across year boundary failed")
	}
	if got := MustParseMonth("2025-02").End(); got.Day() != 28 {
		t.Fatalf("End() of Feb 2025 = %s", got)
	}
	if got := MustParseMonth("2024-02").Day(31); got.String() != "2024-02-29" {
		t.Fatalf("Day(31) in Feb 2024 = %s", got)
	}
}

func TestMonthRange(t *testing.T) {
	got := MonthRange("2025-11", "2026-02")
	want := []Month{"2025-11", "2025-12", "2026-01", "2026-02"}
	if len(got) != len(want) {
		t.Fatalf("MonthRange = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MonthRange = %v, want %v", got, want)
		}
	}
	if MonthRange("2026-02", "2025-11") != nil {
		t.Fatalf("reversed range should be empty")
	}
	if MonthRange("", "2025-11") != nil {
		t.Fatalf("invalid range should be empty")
	}
}

func TestClock(t *testing.T) {
	now := time.Date(2025, 10, 31, 23, 30, 0, 0, time.UTC)
	c := FixedClock(now)
	if Today(c).String() != "2025-10-31" {
		t.Fatalf("Today() = %s", Today(c))
	}
	if CurrentMonth(c) != "2025-10" {
		t.Fatalf("CurrentMonth() = %s", CurrentMonth(c))
	}
}
