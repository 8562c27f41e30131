package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries implements Store on top of any DBTX.
type Queries struct {
	db DBTX
}

var _ Store = (*Queries)(nil)

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func repoErr(op string, err error) error {
	return &core.RepositoryError{Op: op, Err: err}
}

// exec runs a mutation and reports NotFound when it touched no row.
func (q *Queries) exec(ctx context.Context, op, kind, id, query string, args ...any) error {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return repoErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return repoErr(op, err)
	}
	if n == 0 {
		return &core.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

const transactionColumns = `id, type, amount_cents, date, month, category, description,
	source_card_id, payer_card_id, source_investment_id, auto_generated, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		typ       string
		cents     int64
		date      string
		month     string
		auto      bool
		createdAt string
	)
	err := s.Scan(&t.ID, &typ, &cents, &date, &month, &t.Category, &t.Description,
		&t.SourceCardID, &t.PayerCardID, &t.SourceInvestmentID, &auto, &createdAt)
	if err != nil {
		return t, err
	}
	t.Type = core.TransactionType(typ)
	t.Amount = core.MoneyFromCents(cents)
	if t.Date, err = core.ParseDate(date); err != nil {
		return t, fmt.Errorf("transaction %s date %q: %w", t.ID, date, err)
	}
	t.Month = core.Month(month)
	t.AutoGenerated = auto
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return t, fmt.Errorf("transaction %s created_at %q: %w", t.ID, createdAt, err)
	}
	return t, nil
}

func (q *Queries) queryTransactions(ctx context.Context, op, query string, args ...any) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repoErr(op, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, repoErr(op, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, repoErr(op, err)
	}
	return out, nil
}

func (q *Queries) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return q.queryTransactions(ctx, "list transactions",
		`SELECT `+transactionColumns+` FROM transactions ORDER BY date, created_at`)
}

func (q *Queries) TransactionsByMonth(ctx context.Context, month core.Month) ([]core.Transaction, error) {
	return q.queryTransactions(ctx, "list transactions by month",
		`SELECT `+transactionColumns+` FROM transactions WHERE month = ? ORDER BY date, created_at`,
		string(month))
}

func (q *Queries) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, &core.NotFoundError{Kind: "transaction", ID: id}
	}
	if err != nil {
		return t, repoErr("get transaction", err)
	}
	return t, nil
}

func transactionArgs(t core.Transaction) []any {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return []any{
		string(t.Type), t.Amount.Cents(), t.Date.String(), string(t.Month), t.Category, t.Description,
		t.SourceCardID, t.PayerCardID, t.SourceInvestmentID, t.AutoGenerated,
		createdAt.UTC().Format(time.RFC3339Nano),
	}
}

func (q *Queries) AddTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append([]any{t.ID}, transactionArgs(t)...)...)
	if err != nil {
		return repoErr("create transaction", err)
	}
	return nil
}

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return q.exec(ctx, "update transaction", "transaction", t.ID,
		`UPDATE transactions SET type = ?, amount_cents = ?, date = ?, month = ?, category = ?, description = ?,
			source_card_id = ?, payer_card_id = ?, source_investment_id = ?, auto_generated = ?, created_at = ?
		WHERE id = ?`,
		append(transactionArgs(t), t.ID)...)
}

func (q *Queries) DeleteTransaction(ctx context.Context, id string) error {
	return q.exec(ctx, "delete transaction", "transaction", id, `DELETE FROM transactions WHERE id = ?`, id)
}

func (q *Queries) MonthsWithTransactions(ctx context.Context) ([]core.Month, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT DISTINCT month FROM transactions ORDER BY month`)
	if err != nil {
		return nil, repoErr("list months", err)
	}
	defer rows.Close()

	var out []core.Month
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, repoErr("list months", err)
		}
		out = append(out, core.Month(m))
	}
	if err := rows.Err(); err != nil {
		return nil, repoErr("list months", err)
	}
	return out, nil
}

const cardColumns = `id, name, limit_cents, available_limit_cents, closing_day, due_day, default_payer_card_id`

func scanCard(s scanner) (core.CreditCard, error) {
	var (
		c                core.CreditCard
		limit, available int64
	)
	if err := s.Scan(&c.ID, &c.Name, &limit, &available, &c.ClosingDay, &c.DueDay, &c.DefaultPayerCardID); err != nil {
		return c, err
	}
	c.Limit = core.MoneyFromCents(limit)
	c.AvailableLimit = core.MoneyFromCents(available)
	return c, nil
}

func (q *Queries) Cards(ctx context.Context) ([]core.CreditCard, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM credit_cards ORDER BY name`)
	if err != nil {
		return nil, repoErr("list cards", err)
	}
	defer rows.Close()

	var out []core.CreditCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, repoErr("list cards", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, repoErr("list cards", err)
	}
	return out, nil
}

func (q *Queries) Card(ctx context.Context, id string) (core.CreditCard, error) {
	c, err := scanCard(q.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM credit_cards WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, &core.NotFoundError{Kind: "card", ID: id}
	}
	if err != nil {
		return c, repoErr("get card", err)
	}
	return c, nil
}

func (q *Queries) AddCard(ctx context.Context, c core.CreditCard) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO credit_cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Limit.Cents(), c.AvailableLimit.Cents(), c.ClosingDay, c.DueDay, c.DefaultPayerCardID)
	if err != nil {
		return repoErr("create card", err)
	}
	return nil
}

func (q *Queries) UpdateCard(ctx context.Context, c core.CreditCard) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return q.exec(ctx, "update card", "card", c.ID,
		`UPDATE credit_cards SET name = ?, limit_cents = ?, available_limit_cents = ?, closing_day = ?, due_day = ?,
			default_payer_card_id = ?
		WHERE id = ?`,
		c.Name, c.Limit.Cents(), c.AvailableLimit.Cents(), c.ClosingDay, c.DueDay, c.DefaultPayerCardID, c.ID)
}

func (q *Queries) DeleteCard(ctx context.Context, id string) error {
	return q.exec(ctx, "delete card", "card", id, `DELETE FROM credit_cards WHERE id = ?`, id)
}

func (q *Queries) CardPurchases(ctx context.Context, cardID string, month core.Month) ([]core.Transaction, error) {
	return q.queryTransactions(ctx, "list card purchases",
		`SELECT `+transactionColumns+` FROM transactions
		WHERE source_card_id = ? AND month = ? AND NOT (auto_generated = 1 AND category = ?)
		ORDER BY date, created_at`,
		cardID, string(month), core.CategoryCardPayment)
}

const investmentColumns = `id, name, principal_cents, yield_rate, start_date, last_yield_month`

func scanInvestment(s scanner) (core.Investment, error) {
	var (
		i         core.Investment
		principal int64
		rate      string
		start     string
		last      string
	)
	if err := s.Scan(&i.ID, &i.Name, &principal, &rate, &start, &last); err != nil {
		return i, err
	}
	var err error
	i.Principal = core.MoneyFromCents(principal)
	if i.YieldRate, err = decimal.NewFromString(rate); err != nil {
		return i, fmt.Errorf("investment %s yield rate %q: %w", i.ID, rate, err)
	}
	if i.StartDate, err = core.ParseDate(start); err != nil {
		return i, fmt.Errorf("investment %s start date %q: %w", i.ID, start, err)
	}
	i.LastYieldMonth = core.Month(last)
	return i, nil
}

func (q *Queries) Investments(ctx context.Context) ([]core.Investment, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+investmentColumns+` FROM investments ORDER BY name`)
	if err != nil {
		return nil, repoErr("list investments", err)
	}
	defer rows.Close()

	var out []core.Investment
	for rows.Next() {
		i, err := scanInvestment(rows)
		if err != nil {
			return nil, repoErr("list investments", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, repoErr("list investments", err)
	}
	return out, nil
}

func (q *Queries) Investment(ctx context.Context, id string) (core.Investment, error) {
	i, err := scanInvestment(q.db.QueryRowContext(ctx, `SELECT `+investmentColumns+` FROM investments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return i, &core.NotFoundError{Kind: "investment", ID: id}
	}
	if err != nil {
		return i, repoErr("get investment", err)
	}
	return i, nil
}

func (q *Queries) AddInvestment(ctx context.Context, i core.Investment) error {
	if err := i.Validate(); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO investments (`+investmentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		i.ID, i.Name, i.Principal.Cents(), i.YieldRate.String(), i.StartDate.String(), string(i.LastYieldMonth))
	if err != nil {
		return repoErr("create investment", err)
	}
	return nil
}

func (q *Queries) UpdateInvestment(ctx context.Context, i core.Investment) error {
	if err := i.Validate(); err != nil {
		return err
	}
	return q.exec(ctx, "update investment", "investment", i.ID,
		`UPDATE investments SET name = ?, principal_cents = ?, yield_rate = ?, start_date = ?, last_yield_month = ?
		WHERE id = ?`,
		i.Name, i.Principal.Cents(), i.YieldRate.String(), i.StartDate.String(), string(i.LastYieldMonth), i.ID)
}

func (q *Queries) DeleteInvestment(ctx context.Context, id string) error {
	return q.exec(ctx, "delete investment", "investment", id, `DELETE FROM investments WHERE id = ?`, id)
}

func (q *Queries) YieldHistory(ctx context.Context, investmentID string) ([]core.YieldEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT investment_id, month, amount_cents, rate_applied FROM yield_history
		WHERE investment_id = ? ORDER BY month`, investmentID)
	if err != nil {
		return nil, repoErr("list yield history", err)
	}
	defer rows.Close()

	var out []core.YieldEntry
	for rows.Next() {
		var (
			y     core.YieldEntry
			month string
			cents int64
			rate  string
		)
		if err := rows.Scan(&y.InvestmentID, &month, &cents, &rate); err != nil {
			return nil, repoErr("list yield history", err)
		}
		y.Month = core.Month(month)
		y.Amount = core.MoneyFromCents(cents)
		if y.RateApplied, err = decimal.NewFromString(rate); err != nil {
			return nil, repoErr("list yield history", err)
		}
		out = append(out, y)
	}
	if err := rows.Err(); err != nil {
		return nil, repoErr("list yield history", err)
	}
	return out, nil
}

func (q *Queries) AppendYield(ctx context.Context, y core.YieldEntry) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO yield_history (investment_id, month, amount_cents, rate_applied) VALUES (?, ?, ?, ?)`,
		y.InvestmentID, string(y.Month), y.Amount.Cents(), y.RateApplied.String())
	if err != nil {
		return repoErr("append yield", err)
	}
	return nil
}

func (q *Queries) Settings(ctx context.Context) (core.Settings, error) {
	var (
		s       core.Settings
		rate    string
		enabled bool
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT default_yield_rate, balance_yield_enabled, coverage_investment_id, currency FROM settings WHERE id = 1`).
		Scan(&rate, &enabled, &s.CoverageInvestmentID, &s.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultSettings(), nil
	}
	if err != nil {
		return s, repoErr("get settings", err)
	}
	if s.DefaultYieldRate, err = decimal.NewFromString(rate); err != nil {
		return s, repoErr("get settings", err)
	}
	s.YieldEnabled = enabled
	return s, nil
}

func (q *Queries) SaveSettings(ctx context.Context, s core.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO settings (id, default_yield_rate, balance_yield_enabled, coverage_investment_id, currency)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			default_yield_rate = excluded.default_yield_rate,
			balance_yield_enabled = excluded.balance_yield_enabled,
			coverage_investment_id = excluded.coverage_investment_id,
			currency = excluded.currency`,
		s.DefaultYieldRate.String(), s.YieldEnabled, s.CoverageInvestmentID, s.Currency)
	if err != nil {
		return repoErr("save settings", err)
	}
	return nil
}
