package engine

import (
	"context"
	"sort"
	"sync"

	"fintrack/internal/core"

	"golang.org/x/sync/semaphore"
)

// Locker serializes mutations per entity key ("card:<id>",
// "investment:<id>", ...). Keys are acquired in sorted order so two callers
// locking overlapping sets cannot deadlock.
type Locker struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func NewLocker() *Locker {
	return &Locker{sems: make(map[string]*semaphore.Weighted)}
}

func (l *Locker) sem(key string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[key]
	if !ok {
		s = semaphore.NewWeighted(1)
		l.sems[key] = s
	}
	return s
}

// Lock acquires every key and returns the function releasing them. It gives
// up when ctx is done.
func (l *Locker) Lock(ctx context.Context, keys ...string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make([]*semaphore.Weighted, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}

	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		s := l.sem(key)
		if err := s.Acquire(ctx, 1); err != nil {
			release()
			return nil, err
		}
		held = append(held, s)
	}
	return release, nil
}

// coverageKey is ledger-wide: covering one month changes the running
// balance of every later one.
const coverageKey = "coverage"

func cardKey(id string) string        { return "card:" + id }
func investmentKey(id string) string  { return "investment:" + id }
func paymentsKey(m core.Month) string { return "payments:" + m.String() }
