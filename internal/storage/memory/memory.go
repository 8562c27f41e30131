// Package memory is an in-process ledger repository. It backs the memory
// backend and the engine tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type state struct {
	txs         map[string]core.Transaction
	cards       map[string]core.CreditCard
	investments map[string]core.Investment
	yields      []core.YieldEntry
	settings    core.Settings
}

func (s *state) clone() *state {
	return &state{
		txs:         maps.Clone(s.txs),
		cards:       maps.Clone(s.cards),
		investments: maps.Clone(s.investments),
		yields:      slices.Clone(s.yields),
		settings:    s.settings,
	}
}

// Store keeps the ledger in maps. Units of work are serialized and rolled
// back by restoring a snapshot taken when they started.
type Store struct {
	work sync.Mutex // serializes writers
	mu   sync.RWMutex
	st   *state

	failures map[string]error
}

var (
	_ storage.Repository = (*Store)(nil)
	_ storage.Store      = (*view)(nil)
)

func New() *Store {
	return &Store{
		st: &state{
			txs:         map[string]core.Transaction{},
			cards:       map[string]core.CreditCard{},
			investments: map[string]core.Investment{},
			settings:    core.DefaultSettings(),
		},
		failures: map[string]error{},
	}
}

// FailOn makes the named operation (e.g. "AddTransaction") fail with err
// until cleared with a nil err. Used to exercise rollback paths.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) Close() error { return nil }

// WithTx runs fn against the store; any error restores the state fn saw.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Store) error) error {
	s.work.Lock()
	defer s.work.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(&view{s: s}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// write runs a single mutation as its own unit of work.
func (s *Store) write(ctx context.Context, fn func(v *view) error) error {
	return s.WithTx(ctx, func(tx storage.Store) error { return fn(tx.(*view)) })
}

func (s *Store) fail(op string) error {
	if err, ok := s.failures[op]; ok {
		return &core.RepositoryError{Op: op, Err: err}
	}
	return nil
}

// Reads go straight to the view; writes outside WithTx are single-op units.

func (s *Store) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return (&view{s: s}).Transactions(ctx)
}
func (s *Store) TransactionsByMonth(ctx context.Context, m core.Month) ([]core.Transaction, error) {
	return (&view{s: s}).TransactionsByMonth(ctx, m)
}
func (s *Store) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	return (&view{s: s}).Transaction(ctx, id)
}
func (s *Store) AddTransaction(ctx context.Context, t core.Transaction) error {
	return s.write(ctx, func(v *view) error { return v.AddTransaction(ctx, t) })
}
func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return s.write(ctx, func(v *view) error { return v.UpdateTransaction(ctx, t) })
}
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return s.write(ctx, func(v *view) error { return v.DeleteTransaction(ctx, id) })
}
func (s *Store) MonthsWithTransactions(ctx context.Context) ([]core.Month, error) {
	return (&view{s: s}).MonthsWithTransactions(ctx)
}
func (s *Store) Cards(ctx context.Context) ([]core.CreditCard, error) {
	return (&view{s: s}).Cards(ctx)
}
func (s *Store) Card(ctx context.Context, id string) (core.CreditCard, error) {
	return (&view{s: s}).Card(ctx, id)
}
func (s *Store) AddCard(ctx context.Context, c core.CreditCard) error {
	return s.write(ctx, func(v *view) error { return v.AddCard(ctx, c) })
}
func (s *Store) UpdateCard(ctx context.Context, c core.CreditCard) error {
	return s.write(ctx, func(v *view) error { return v.UpdateCard(ctx, c) })
}
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	return s.write(ctx, func(v *view) error { return v.DeleteCard(ctx, id) })
}
func (s *Store) CardPurchases(ctx context.Context, cardID string, m core.Month) ([]core.Transaction, error) {
	return (&view{s: s}).CardPurchases(ctx, cardID, m)
}
func (s *Store) Investments(ctx context.Context) ([]core.Investment, error) {
	return (&view{s: s}).Investments(ctx)
}
func (s *Store) Investment(ctx context.Context, id string) (core.Investment, error) {
	return (&view{s: s}).Investment(ctx, id)
}
func (s *Store) AddInvestment(ctx context.Context, i core.Investment) error {
	return s.write(ctx, func(v *view) error { return v.AddInvestment(ctx, i) })
}
func (s *Store) UpdateInvestment(ctx context.Context, i core.Investment) error {
	return s.write(ctx, func(v *view) error { return v.UpdateInvestment(ctx, i) })
}
func (s *Store) DeleteInvestment(ctx context.Context, id string) error {
	return s.write(ctx, func(v *view) error { return v.DeleteInvestment(ctx, id) })
}
func (s *Store) YieldHistory(ctx context.Context, investmentID string) ([]core.YieldEntry, error) {
	return (&view{s: s}).YieldHistory(ctx, investmentID)
}
func (s *Store) AppendYield(ctx context.Context, y core.YieldEntry) error {
	return s.write(ctx, func(v *view) error { return v.AppendYield(ctx, y) })
}
func (s *Store) Settings(ctx context.Context) (core.Settings, error) {
	return (&view{s: s}).Settings(ctx)
}
func (s *Store) SaveSettings(ctx context.Context, st core.Settings) error {
	return s.write(ctx, func(v *view) error { return v.SaveSettings(ctx, st) })
}

// view operates on the store's current state without taking the writer
// lock, so it is usable from inside WithTx.
type view struct {
	s *Store
}

func (v *view) read(op string, fn func(st *state)) error {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if err := v.s.fail(op); err != nil {
		return err
	}
	fn(v.s.st)
	return nil
}

func (v *view) mutate(op string, fn func(st *state) error) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.fail(op); err != nil {
		return err
	}
	return fn(v.s.st)
}

func (v *view) WithTx(ctx context.Context, fn func(tx storage.Store) error) error {
	return fn(v)
}

func sortTransactions(out []core.Transaction) {
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}

func (v *view) Transactions(_ context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	err := v.read("Transactions", func(st *state) {
		out = slices.Collect(maps.Values(st.txs))
	})
	sortTransactions(out)
	return out, err
}

func (v *view) TransactionsByMonth(_ context.Context, m core.Month) ([]core.Transaction, error) {
	var out []core.Transaction
	err := v.read("TransactionsByMonth", func(st *state) {
		for _, t := range st.txs {
			if t.Month == m {
				out = append(out, t)
			}
		}
	})
	sortTransactions(out)
	return out, err
}

func (v *view) Transaction(_ context.Context, id string) (core.Transaction, error) {
	var (
		t  core.Transaction
		ok bool
	)
	if err := v.read("Transaction", func(st *state) { t, ok = st.txs[id] }); err != nil {
		return t, err
	}
	if !ok {
		return t, &core.NotFoundError{Kind: "transaction", ID: id}
	}
	return t, nil
}

func (v *view) AddTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return v.mutate("AddTransaction", func(st *state) error {
		st.txs[t.ID] = t
		return nil
	})
}

func (v *view) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return v.mutate("UpdateTransaction", func(st *state) error {
		if _, ok := st.txs[t.ID]; !ok {
			return &core.NotFoundError{Kind: "transaction", ID: t.ID}
		}
		st.txs[t.ID] = t
		return nil
	})
}

func (v *view) DeleteTransaction(_ context.Context, id string) error {
	return v.mutate("DeleteTransaction", func(st *state) error {
		if _, ok := st.txs[id]; !ok {
			return &core.NotFoundError{Kind: "transaction", ID: id}
		}
		delete(st.txs, id)
		return nil
	})
}

func (v *view) MonthsWithTransactions(_ context.Context) ([]core.Month, error) {
	seen := map[core.Month]struct{}{}
	err := v.read("MonthsWithTransactions", func(st *state) {
		for _, t := range st.txs {
			seen[t.Month] = struct{}{}
		}
	})
	return slices.Sorted(maps.Keys(seen)), err
}

func (v *view) Cards(_ context.Context) ([]core.CreditCard, error) {
	var out []core.CreditCard
	err := v.read("Cards", func(st *state) {
		out = slices.Collect(maps.Values(st.cards))
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (v *view) Card(_ context.Context, id string) (core.CreditCard, error) {
	var (
		c  core.CreditCard
		ok bool
	)
	if err := v.read("Card", func(st *state) { c, ok = st.cards[id] }); err != nil {
		return c, err
	}
	if !ok {
		return c, &core.NotFoundError{Kind: "card", ID: id}
	}
	return c, nil
}

func (v *view) AddCard(_ context.Context, c core.CreditCard) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return v.mutate("AddCard", func(st *state) error {
		st.cards[c.ID] = c
		return nil
	})
}

func (v *view) UpdateCard(_ context.Context, c core.CreditCard) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return v.mutate("UpdateCard", func(st *state) error {
		if _, ok := st.cards[c.ID]; !ok {
			return &core.NotFoundError{Kind: "card", ID: c.ID}
		}
		st.cards[c.ID] = c
		return nil
	})
}

func (v *view) DeleteCard(_ context.Context, id string) error {
	return v.mutate("DeleteCard", func(st *state) error {
		if _, ok := st.cards[id]; !ok {
			return &core.NotFoundError{Kind: "card", ID: id}
		}
		delete(st.cards, id)
		return nil
	})
}

func (v *view) CardPurchases(_ context.Context, cardID string, m core.Month) ([]core.Transaction, error) {
	var out []core.Transaction
	err := v.read("CardPurchases", func(st *state) {
		for _, t := range st.txs {
			if t.SourceCardID == cardID && t.Month == m && t.IsCardPurchase() {
				out = append(out, t)
			}
		}
	})
	sortTransactions(out)
	return out, err
}

func (v *view) Investments(_ context.Context) ([]core.Investment, error) {
	var out []core.Investment
	err := v.read("Investments", func(st *state) {
		out = slices.Collect(maps.Values(st.investments))
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (v *view) Investment(_ context.Context, id string) (core.Investment, error) {
	var (
		i  core.Investment
		ok bool
	)
	if err := v.read("Investment", func(st *state) { i, ok = st.investments[id] }); err != nil {
		return i, err
	}
	if !ok {
		return i, &core.NotFoundError{Kind: "investment", ID: id}
	}
	return i, nil
}

func (v *view) AddInvestment(_ context.Context, i core.Investment) error {
	if err := i.Validate(); err != nil {
		return err
	}
	return v.mutate("AddInvestment", func(st *state) error {
		st.investments[i.ID] = i
		return nil
	})
}

func (v *view) UpdateInvestment(_ context.Context, i core.Investment) error {
	if err := i.Validate(); err != nil {
		return err
	}
	return v.mutate("UpdateInvestment", func(st *state) error {
		if _, ok := st.investments[i.ID]; !ok {
			return &core.NotFoundError{Kind: "investment", ID: i.ID}
		}
		st.investments[i.ID] = i
		return nil
	})
}

func (v *view) DeleteInvestment(_ context.Context, id string) error {
	return v.mutate("DeleteInvestment", func(st *state) error {
		if _, ok := st.investments[id]; !ok {
			return &core.NotFoundError{Kind: "investment", ID: id}
		}
		delete(st.investments, id)
		st.yields = slices.DeleteFunc(st.yields, func(y core.YieldEntry) bool { return y.InvestmentID == id })
		return nil
	})
}

func (v *view) YieldHistory(_ context.Context, investmentID string) ([]core.YieldEntry, error) {
	var out []core.YieldEntry
	err := v.read("YieldHistory", func(st *state) {
		for _, y := range st.yields {
			if y.InvestmentID == investmentID {
				out = append(out, y)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, err
}

func (v *view) AppendYield(_ context.Context, y core.YieldEntry) error {
	return v.mutate("AppendYield", func(st *state) error {
		st.yields = append(st.yields, y)
		return nil
	})
}

func (v *view) Settings(_ context.Context) (core.Settings, error) {
	var out core.Settings
	err := v.read("Settings", func(st *state) { out = st.settings })
	return out, err
}

func (v *view) SaveSettings(_ context.Context, s core.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return v.mutate("SaveSettings", func(st *state) error {
		st.settings = s
		return nil
	})
}
