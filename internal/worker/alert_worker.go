package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// AlertWorker turns ledger events from the queue into user alerts and, when
// an exporter is configured, pushes covered months to the spreadsheet.
type AlertWorker struct {
	transactions storage.TransactionStore
	exporter     sheets.MonthExporter
	logger       *slog.Logger

	mu       sync.Mutex
	exported map[core.Month]bool
}

func NewAlertWorker(transactions storage.TransactionStore, exporter sheets.MonthExporter, logger *slog.Logger) *AlertWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertWorker{
		transactions: transactions,
		exporter:     exporter,
		logger:       logger,
		exported:     make(map[core.Month]bool),
	}
}

// HandleLedgerEvent processes one message. A malformed message is logged and
// dropped; returning its error would only get it redelivered.
func (w *AlertWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	event, err := msg.Event()
	if err != nil {
		w.logger.WarnContext(ctx, "Dropping malformed ledger event", "type", msg.Type, "error", err)
		return nil
	}

	attrs := []any{
		"event_type", event.Type,
		"month", event.Month,
		"entity_id", event.EntityID,
		"amount", event.Amount.String(),
	}
	switch event.Type {
	case core.EventCoverageFailed:
		w.logger.WarnContext(ctx, "ALERT: "+event.Message, attrs...)
	case core.EventCoverageApplied:
		w.logger.InfoContext(ctx, "ALERT: "+event.Message, attrs...)
		return w.export(ctx, event.Month)
	case core.EventCardPaymentGenerated, core.EventInvestmentYieldApplied:
		w.logger.InfoContext(ctx, event.Message, attrs...)
	default:
		w.logger.DebugContext(ctx, "Ignoring ledger event", attrs...)
	}
	return nil
}

// export appends month to the sheet once per worker run.
func (w *AlertWorker) export(ctx context.Context, month core.Month) error {
	if w.exporter == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.exported[month] {
		return nil
	}

	txs, err := w.transactions.TransactionsByMonth(ctx, month)
	if err != nil {
		return fmt.Errorf("load transactions for %s: %w", month, err)
	}
	ref, err := w.exporter.ExportMonth(ctx, month, txs)
	if err != nil {
		return fmt.Errorf("export %s: %w", month, err)
	}
	w.exported[month] = true
	w.logger.InfoContext(ctx, "Exported covered month", "month", month, "rows", len(txs), "ref", ref)
	return nil
}
