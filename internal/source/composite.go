package source

import (
	"context"
	"errors"
	"log/slog"
)

// HistoryStore is the archive-side contract. Only invoice data is archived;
// cash, P&L and journal drills always hit the live provider.
type HistoryStore interface {
	Invoices(ctx context.Context, q InvoiceQuery) (*InvoicePage, error)
	InvoiceDetail(ctx context.Context, invoiceID string) (*InvoiceDetail, error)
}

// Composite routes invoice queries between the live provider and the history
// archive. Ranges that start before the provider's retention cutoff are
// served from the archive; everything else goes live. Detail lookups try the
// provider first and fall back to the archive when the record has aged out.
type Composite struct {
	DataSource
	history HistoryStore
	cutoff  string
	logger  *slog.Logger
}

// NewComposite wraps live with archive routing. cutoff is the earliest ISO
// date the provider still serves; an empty cutoff disables routing.
func NewComposite(live DataSource, history HistoryStore, cutoff string, logger *slog.Logger) *Composite {
	return &Composite{DataSource: live, history: history, cutoff: cutoff, logger: logger}
}

func (c *Composite) useHistory(fromDate string) bool {
	if c.history == nil || c.cutoff == "" || fromDate == "" {
		return false
	}
	// ISO dates compare correctly as strings.
	return fromDate < c.cutoff
}

func (c *Composite) Invoices(ctx context.Context, q InvoiceQuery) (*InvoicePage, error) {
	if c.useHistory(q.FromDate) {
		if c.logger != nil {
			c.logger.DebugContext(ctx, "routing invoice query to archive",
				"from_date", q.FromDate, "cutoff", c.cutoff)
		}
		return c.history.Invoices(ctx, q)
	}
	return c.DataSource.Invoices(ctx, q)
}

func (c *Composite) InvoiceDetail(ctx context.Context, invoiceID string) (*InvoiceDetail, error) {
	detail, err := c.DataSource.InvoiceDetail(ctx, invoiceID)
	if err == nil || c.history == nil || !errors.Is(err, ErrNotFound) {
		return detail, err
	}
	return c.history.InvoiceDetail(ctx, invoiceID)
}

var _ DataSource = (*Composite)(nil)
