// Package google exports ledger months to a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Header is the first row of every ledger sheet.
var Header = []any{"Date", "Month", "Type", "Category", "Description", "Amount", "Source"}

// Options configures the exporter. One of CredentialsJSON or
// CredentialsFile must hold a service account key.
type Options struct {
	SpreadsheetID   string
	SheetName       string // base name; the year is prefixed
	CredentialsJSON string
	CredentialsFile string
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

var _ ports.MonthExporter = (*Exporter)(nil)

func New(ctx context.Context, opts Options) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Ledger"
	}

	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, sheetBase: base}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials, inline JSON taking precedence over the file.
func newSheetsService(ctx context.Context, credentialsJSON, credentialsFile string) (*gsheet.Service, error) {
	var creds []byte
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		creds = []byte(credentialsJSON)
	case strings.TrimSpace(credentialsFile) != "":
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	slog.DebugContext(ctx, "Creating Google Sheets service", "credentials_size", len(creds))
	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// SheetName is the sheet a month is exported to.
func (e *Exporter) SheetName(month core.Month) string {
	return yearPrefixedName(e.sheetBase, month.Start().Year())
}

// Rows renders transactions as sheet rows. Expenses are negative.
func Rows(txs []core.Transaction) [][]any {
	rows := make([][]any, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, []any{
			t.Date.String(),
			t.Month.String(),
			string(t.Type),
			t.Category,
			t.Description,
			t.Signed().String(),
			source(t),
		})
	}
	return rows
}

func source(t core.Transaction) string {
	switch {
	case t.IsCardPayment():
		return "payment:" + t.SourceCardID
	case t.SourceCardID != "":
		return "card:" + t.SourceCardID
	case t.SourceInvestmentID != "":
		return "investment:" + t.SourceInvestmentID
	default:
		return ""
	}
}

// ExportMonth appends the month's transactions to the year's ledger sheet,
// writing the header first when the sheet is empty.
func (e *Exporter) ExportMonth(ctx context.Context, month core.Month, txs []core.Transaction) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := e.SheetName(month)

	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, sheet+"!A1:A1").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	rows := Rows(txs)
	if len(resp.Values) == 0 {
		rows = append([][]any{Header}, rows...)
	}
	if len(rows) == 0 {
		return sheet, nil
	}

	out, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, sheet+"!A:G", &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := sheet
	if out.Updates != nil {
		ref = out.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Exported month to Google Sheets",
		"month", month,
		"rows", len(txs),
		"range", ref)
	return ref, nil
}
