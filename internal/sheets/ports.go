package sheets

import (
	"context"

	"fintrack/internal/core"
)

// MonthExporter writes a month's ledger rows to an external spreadsheet and
// returns a reference to where they landed.
type MonthExporter interface {
	ExportMonth(ctx context.Context, month core.Month, txs []core.Transaction) (ref string, err error)
}
