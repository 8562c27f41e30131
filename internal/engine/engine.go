// Package engine implements the ledger rules on top of a storage.Repository:
// month balances, credit-card billing cycles and their automatic payments,
// investment yield compounding, and covering a negative balance from an
// investment.
//
// The engines keep no state of their own. Mutations on the same card,
// investment or month are serialized through a shared Locker and every
// multi-step change runs inside one repository unit of work.
package engine

import (
	"context"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/google/uuid"
)

// Publisher receives the events engines emit after a committed change.
type Publisher interface {
	Publish(ctx context.Context, e core.Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, core.Event) error { return nil }

// Options configures the engines. Zero values fall back to the system
// clock, a private Locker, no event publishing and random UUIDs.
type Options struct {
	Clock     core.Clock
	Locker    *Locker
	Publisher Publisher
	NewID     func() string
	// Changed is told the earliest month whose balance a mutation touched.
	Changed func(from core.Month)
}

type deps struct {
	repo    storage.Repository
	clock   core.Clock
	locks   *Locker
	events  Publisher
	newID   func() string
	changed func(core.Month)
}

func newDeps(repo storage.Repository, opts Options) deps {
	d := deps{
		repo:    repo,
		clock:   opts.Clock,
		locks:   opts.Locker,
		events:  opts.Publisher,
		newID:   opts.NewID,
		changed: opts.Changed,
	}
	if d.clock == nil {
		d.clock = core.SystemClock{}
	}
	if d.locks == nil {
		d.locks = NewLocker()
	}
	if d.events == nil {
		d.events = nopPublisher{}
	}
	if d.newID == nil {
		d.newID = uuid.NewString
	}
	if d.changed == nil {
		d.changed = func(core.Month) {}
	}
	return d
}

func (d deps) today() core.Date { return core.Today(d.clock) }

// publish sends e and only logs failures: the change it describes is
// already committed.
func (d deps) publish(ctx context.Context, e core.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = d.clock.Now()
	}
	if err := d.events.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"type", e.Type,
			"entity_id", e.EntityID,
			"error", err)
	}
}

func validMonth(m core.Month) error {
	if !m.Valid() {
		return core.ErrInvalidMonth
	}
	return nil
}
