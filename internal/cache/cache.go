// Package cache holds month summaries between ledger mutations.
package cache

import (
	"strings"
	"time"

	"fintrack/internal/core"
)

// SummaryCache stores month summaries keyed by month and the day they were
// computed on. A summary depends on "today", so entries from another day
// never match.
type SummaryCache struct {
	lru *LRUCache[core.MonthSummary]
}

// NewSummaryCache creates a summary cache holding up to size entries.
func NewSummaryCache(size int, ttl time.Duration) *SummaryCache {
	return &SummaryCache{lru: NewLRUCache[core.MonthSummary](size, ttl)}
}

func summaryKey(month core.Month, today core.Date) string {
	return month.String() + "|" + today.String()
}

func (c *SummaryCache) Get(month core.Month, today core.Date) (core.MonthSummary, bool) {
	return c.lru.Get(summaryKey(month, today))
}

// Set stores s and drops what can no longer be served: entries computed on
// another day and entries past their TTL. It returns the entries left.
func (c *SummaryCache) Set(month core.Month, today core.Date, s core.MonthSummary) int {
	day := today.String()
	c.lru.DeleteFunc(func(key string) bool {
		_, computed, _ := strings.Cut(key, "|")
		return computed != day
	})
	c.lru.CleanExpired()
	c.lru.Set(summaryKey(month, today), s)
	return c.lru.Size()
}

// InvalidateFrom drops the summaries of from and every later month. Balances
// are cumulative, so a change in one month shows up in all that follow.
func (c *SummaryCache) InvalidateFrom(from core.Month) int {
	return c.lru.DeleteFunc(func(key string) bool {
		month, _, _ := strings.Cut(key, "|")
		return !core.Month(month).Before(from)
	})
}

func (c *SummaryCache) Size() int { return c.lru.Size() }
