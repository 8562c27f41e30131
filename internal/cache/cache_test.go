package cache

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("got %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}

	c.Set("x", "1")
	c.Set("y", "2")
	now = now.Add(2 * time.Minute)
	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("cleaned %d, want 2", n)
	}
}

func TestSummaryCacheInvalidateFrom(t *testing.T) {
	c := NewSummaryCache(16, 0)
	today := core.NewDate(2025, 10, 15)
	for _, m := range []core.Month{"2025-08", "2025-09", "2025-10", "2026-01"} {
		c.Set(m, today, core.MonthSummary{Month: m, CurrentBalance: core.MoneyFromCents(100)})
	}

	if _, ok := c.Get("2025-09", core.NewDate(2025, 10, 16)); ok {
		t.Fatal("summary from another day must not match")
	}

	if n := c.InvalidateFrom("2025-09"); n != 3 {
		t.Fatalf("invalidated %d, want 3", n)
	}
	if _, ok := c.Get("2025-08", today); !ok {
		t.Fatal("earlier month should survive")
	}
	if _, ok := c.Get("2026-01", today); ok {
		t.Fatal("later month should be gone")
	}
}

func TestSummaryCacheSetDropsStaleEntries(t *testing.T) {
	c := NewSummaryCache(16, 0)
	monday := core.NewDate(2025, 10, 13)
	tuesday := core.NewDate(2025, 10, 14)

	c.Set("2025-09", monday, core.MonthSummary{Month: "2025-09"})
	c.Set("2025-10", monday, core.MonthSummary{Month: "2025-10"})
	if n := c.Set("2025-10", tuesday, core.MonthSummary{Month: "2025-10"}); n != 1 {
		t.Fatalf("entries = %d, want only tuesday's", n)
	}
	if _, ok := c.Get("2025-10", tuesday); !ok {
		t.Fatal("fresh entry missing")
	}
}

func TestSummaryCacheSetCleansExpired(t *testing.T) {
	now := time.Date(2025, 10, 13, 9, 0, 0, 0, time.UTC)
	c := NewSummaryCache(16, time.Minute)
	c.lru.now = func() time.Time { return now }
	day := core.NewDate(2025, 10, 13)

	c.Set("2025-08", day, core.MonthSummary{})
	c.Set("2025-09", day, core.MonthSummary{})
	now = now.Add(2 * time.Minute)
	if n := c.Set("2025-10", day, core.MonthSummary{}); n != 1 {
		t.Fatalf("entries = %d, want 1", n)
	}
}
