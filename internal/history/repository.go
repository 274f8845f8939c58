// Package history serves invoice data imported from CSV archives. The
// upstream provider only retains a rolling window, so drill queries whose
// range predates the retention cutoff fall back to this store.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerlens/ledgerlens/internal/source"
)

// Repository provides PostgreSQL backed persistence for archived invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Stats summarises the archive contents for the import CLI and health checks.
type Stats struct {
	InvoiceCount    int64  `json:"invoice_count"`
	LineCount       int64  `json:"line_count"`
	EarliestIssue   string `json:"earliest_issue_date"`
	LatestIssue     string `json:"latest_issue_date"`
	ReceivableCount int64  `json:"receivable_count"`
	PayableCount    int64  `json:"payable_count"`
}

// Invoices lists archived invoices with the same query surface as the live
// provider, so the composite source can swap the two transparently.
func (r *Repository) Invoices(ctx context.Context, q source.InvoiceQuery) (*source.InvoicePage, error) {
	pageSize := source.ClampPageSize(q.PageSize)
	page := q.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	query := `
		SELECT invoice_id, number, contact_name, reference, status,
			total, amount_due, amount_paid, issue_date, due_date,
			currency, is_credit_note
		FROM history_invoices
		WHERE kind = $1
			AND ($2 = '' OR status = $2)
			AND ($3 = '' OR issue_date >= $3::date)
			AND ($4 = '' OR issue_date <= $4::date)
			AND (NOT $5 OR (status = 'AUTHORISED' AND due_date < CURRENT_DATE))
		ORDER BY issue_date DESC, number DESC
		LIMIT $6 OFFSET $7`

	rows, err := r.pool.Query(ctx, query,
		string(q.Kind), q.Status, q.FromDate, q.ToDate, q.OverdueOnly,
		pageSize+1, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]source.Invoice, 0, pageSize)
	for rows.Next() {
		var inv source.Invoice
		var issue, due time.Time
		if err := rows.Scan(
			&inv.ID, &inv.Number, &inv.ContactName, &inv.Reference, &inv.Status,
			&inv.Total, &inv.AmountDue, &inv.AmountPaid, &issue, &due,
			&inv.Currency, &inv.IsCreditNote,
		); err != nil {
			return nil, err
		}
		inv.IssueDate = issue.Format("2006-01-02")
		inv.DueDate = due.Format("2006-01-02")
		inv.Source = "history"
		if inv.Status == source.StatusOutstanding {
			today := time.Now().UTC().Truncate(24 * time.Hour)
			if due.Before(today) {
				inv.IsOverdue = true
				inv.DaysOverdue = int(today.Sub(due).Hours() / 24)
			}
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(invoices) > pageSize
	if hasMore {
		invoices = invoices[:pageSize]
	}
	return &source.InvoicePage{
		Invoices: invoices,
		HasMore:  hasMore,
		FromDate: q.FromDate,
		ToDate:   q.ToDate,
	}, nil
}

// InvoiceDetail loads one archived invoice with its line items.
func (r *Repository) InvoiceDetail(ctx context.Context, invoiceID string) (*source.InvoiceDetail, error) {
	var detail source.InvoiceDetail
	var issue, due time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT invoice_id, number, contact_name, reference, status,
			total, amount_due, amount_paid, issue_date, due_date,
			currency, is_credit_note
		FROM history_invoices
		WHERE invoice_id = $1`, invoiceID,
	).Scan(
		&detail.ID, &detail.Number, &detail.ContactName, &detail.Reference, &detail.Status,
		&detail.Total, &detail.AmountDue, &detail.AmountPaid, &issue, &due,
		&detail.Currency, &detail.IsCreditNote,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, source.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	detail.IssueDate = issue.Format("2006-01-02")
	detail.DueDate = due.Format("2006-01-02")
	detail.Source = "history"

	rows, err := r.pool.Query(ctx, `
		SELECT description, quantity, unit_amount, tax_amount, line_total, account_code
		FROM history_invoice_lines
		WHERE invoice_id = $1
		ORDER BY position`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line source.InvoiceLine
		if err := rows.Scan(
			&line.Description, &line.Quantity, &line.UnitAmount,
			&line.TaxAmount, &line.LineTotal, &line.AccountCode,
		); err != nil {
			return nil, err
		}
		detail.LineItems = append(detail.LineItems, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &detail, nil
}

// EarliestIssueDate returns the oldest archived issue date, or empty when the
// archive holds nothing.
func (r *Repository) EarliestIssueDate(ctx context.Context) (string, error) {
	var earliest *time.Time
	if err := r.pool.QueryRow(ctx, `SELECT MIN(issue_date) FROM history_invoices`).Scan(&earliest); err != nil {
		return "", err
	}
	if earliest == nil {
		return "", nil
	}
	return earliest.Format("2006-01-02"), nil
}

// Stats reports archive totals.
func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	var earliest, latest *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE kind = 'receivable'),
			COUNT(*) FILTER (WHERE kind = 'payable'),
			MIN(issue_date), MAX(issue_date)
		FROM history_invoices`,
	).Scan(&s.InvoiceCount, &s.ReceivableCount, &s.PayableCount, &earliest, &latest)
	if err != nil {
		return nil, err
	}
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM history_invoice_lines`).Scan(&s.LineCount); err != nil {
		return nil, err
	}
	if earliest != nil {
		s.EarliestIssue = earliest.Format("2006-01-02")
	}
	if latest != nil {
		s.LatestIssue = latest.Format("2006-01-02")
	}
	return &s, nil
}
