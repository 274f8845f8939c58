package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerlens/ledgerlens/internal/source"
)

// importColumns is the expected CSV header, in order. Exports from the
// provider's archive tool use exactly this layout.
var importColumns = []string{
	"invoice_id", "kind", "invoice_number", "contact_name", "reference",
	"status", "total", "amount_due", "amount_paid", "issue_date", "due_date",
	"currency", "is_credit_note",
}

// ImportRecord is one parsed CSV row.
type ImportRecord struct {
	Kind    source.InvoiceKind
	Invoice source.Invoice
}

// ImportReport summarises one import run.
type ImportReport struct {
	BatchID  uuid.UUID
	Inserted int
	Skipped  int
	Rejected int
}

// Importer loads archive CSV exports into the history tables.
type Importer struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewImporter constructs an importer.
func NewImporter(pool *pgxpool.Pool, logger *slog.Logger) *Importer {
	return &Importer{pool: pool, logger: logger}
}

// ParseRecords reads and validates the CSV stream. Rows that fail validation
// are returned as errors alongside the good rows; the caller decides whether
// a partially bad file should still import.
func ParseRecords(r io.Reader) ([]ImportRecord, []error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, []error{fmt.Errorf("read header: %w", err)}
	}
	if err := checkHeader(header); err != nil {
		return nil, []error{err}
	}

	var records []ImportRecord
	var rejects []error
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rejects = append(rejects, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			rejects = append(rejects, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		records = append(records, rec)
	}
	return records, rejects
}

func checkHeader(header []string) error {
	if len(header) != len(importColumns) {
		return fmt.Errorf("header has %d columns, want %d", len(header), len(importColumns))
	}
	for i, col := range importColumns {
		if strings.TrimSpace(strings.ToLower(header[i])) != col {
			return fmt.Errorf("header column %d is %q, want %q", i+1, header[i], col)
		}
	}
	return nil
}

func parseRow(row []string) (ImportRecord, error) {
	var rec ImportRecord
	if len(row) != len(importColumns) {
		return rec, fmt.Errorf("row has %d columns, want %d", len(row), len(importColumns))
	}

	kind := source.InvoiceKind(strings.ToLower(strings.TrimSpace(row[1])))
	if kind != source.KindReceivable && kind != source.KindPayable {
		return rec, fmt.Errorf("unknown kind %q", row[1])
	}
	rec.Kind = kind

	inv := &rec.Invoice
	inv.ID = strings.TrimSpace(row[0])
	if inv.ID == "" {
		return rec, errors.New("missing invoice_id")
	}
	inv.Number = strings.TrimSpace(row[2])
	inv.ContactName = strings.TrimSpace(row[3])
	inv.Reference = strings.TrimSpace(row[4])
	inv.Status = strings.ToUpper(strings.TrimSpace(row[5]))

	var err error
	if inv.Total, err = parseAmount(row[6]); err != nil {
		return rec, fmt.Errorf("total: %w", err)
	}
	if inv.AmountDue, err = parseAmount(row[7]); err != nil {
		return rec, fmt.Errorf("amount_due: %w", err)
	}
	if inv.AmountPaid, err = parseAmount(row[8]); err != nil {
		return rec, fmt.Errorf("amount_paid: %w", err)
	}
	if inv.IssueDate, err = parseDate(row[9]); err != nil {
		return rec, fmt.Errorf("issue_date: %w", err)
	}
	if inv.DueDate, err = parseDate(row[10]); err != nil {
		return rec, fmt.Errorf("due_date: %w", err)
	}
	inv.Currency = strings.ToUpper(strings.TrimSpace(row[11]))
	inv.IsCreditNote = parseFlag(row[12])
	return rec, nil
}

func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty date")
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		// Archive exports before 2019 use the provider's display format.
		t, err = time.Parse("02/01/2006", s)
		if err != nil {
			return "", fmt.Errorf("unparseable date %q", s)
		}
	}
	return t.Format("2006-01-02"), nil
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "y":
		return true
	}
	return false
}

// Import inserts parsed records under a fresh batch ID. Rows whose invoice_id
// is already present are counted as skipped rather than failing the run, so
// re-importing an overlapping export is safe.
func (im *Importer) Import(ctx context.Context, records []ImportRecord) (*ImportReport, error) {
	report := &ImportReport{BatchID: uuid.New()}

	for _, rec := range records {
		_, err := im.pool.Exec(ctx, `
			INSERT INTO history_invoices (
				invoice_id, kind, number, contact_name, reference, status,
				total, amount_due, amount_paid, issue_date, due_date,
				currency, is_credit_note, batch_id, imported_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::date, $11::date, $12, $13, $14, NOW())`,
			rec.Invoice.ID, string(rec.Kind), rec.Invoice.Number,
			rec.Invoice.ContactName, rec.Invoice.Reference, rec.Invoice.Status,
			rec.Invoice.Total, rec.Invoice.AmountDue, rec.Invoice.AmountPaid,
			rec.Invoice.IssueDate, rec.Invoice.DueDate,
			rec.Invoice.Currency, rec.Invoice.IsCreditNote, report.BatchID,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				report.Skipped++
				continue
			}
			return report, fmt.Errorf("insert %s: %w", rec.Invoice.ID, err)
		}
		report.Inserted++
	}

	if im.logger != nil {
		im.logger.InfoContext(ctx, "history import finished",
			"batch_id", report.BatchID.String(),
			"inserted", report.Inserted,
			"skipped", report.Skipped,
		)
	}
	return report, nil
}

// ImportCSV parses and imports in one step. Rejected rows are logged and
// counted but do not abort the batch.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader) (*ImportReport, error) {
	records, rejects := ParseRecords(r)
	if len(records) == 0 && len(rejects) > 0 {
		return nil, fmt.Errorf("no importable rows: %w", rejects[0])
	}
	for _, rej := range rejects {
		if im.logger != nil {
			im.logger.WarnContext(ctx, "history import row rejected", "error", rej)
		}
	}
	report, err := im.Import(ctx, records)
	if report != nil {
		report.Rejected = len(rejects)
	}
	return report, err
}
