package storage

import (
	"context"

	"fintrack/internal/core"
)

// Ports for the ledger repository. Implementations return *core.NotFoundError
// for unknown ids and *core.RepositoryError for I/O failures.
type (
	TransactionStore interface {
		Transactions(ctx context.Context) ([]core.Transaction, error)
		TransactionsByMonth(ctx context.Context, month core.Month) ([]core.Transaction, error)
		Transaction(ctx context.Context, id string) (core.Transaction, error)
		AddTransaction(ctx context.Context, t core.Transaction) error
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
		// MonthsWithTransactions returns the distinct effective months, ascending.
		MonthsWithTransactions(ctx context.Context) ([]core.Month, error)
	}

	CardStore interface {
		Cards(ctx context.Context) ([]core.CreditCard, error)
		Card(ctx context.Context, id string) (core.CreditCard, error)
		AddCard(ctx context.Context, c core.CreditCard) error
		UpdateCard(ctx context.Context, c core.CreditCard) error
		DeleteCard(ctx context.Context, id string) error
		// CardPurchases returns the purchases billed to cardID in month.
		CardPurchases(ctx context.Context, cardID string, month core.Month) ([]core.Transaction, error)
	}

	InvestmentStore interface {
		Investments(ctx context.Context) ([]core.Investment, error)
		Investment(ctx context.Context, id string) (core.Investment, error)
		AddInvestment(ctx context.Context, i core.Investment) error
		UpdateInvestment(ctx context.Context, i core.Investment) error
		DeleteInvestment(ctx context.Context, id string) error
		YieldHistory(ctx context.Context, investmentID string) ([]core.YieldEntry, error)
		AppendYield(ctx context.Context, y core.YieldEntry) error
	}

	SettingsStore interface {
		Settings(ctx context.Context) (core.Settings, error)
		SaveSettings(ctx context.Context, s core.Settings) error
	}

	// Store is the full read/write surface over persisted ledger state.
	Store interface {
		TransactionStore
		CardStore
		InvestmentStore
		SettingsStore
	}

	// Repository is a Store that can group mutations into a unit of work.
	// If fn returns an error nothing it wrote is kept.
	Repository interface {
		Store
		WithTx(ctx context.Context, fn func(tx Store) error) error
		Close() error
	}
)
