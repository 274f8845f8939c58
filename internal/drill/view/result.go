// Package view orchestrates the drill detail views: it translates the
// controller's navigation state into a concrete fetch, then layers search,
// pagination and CSV export over the fetched result.
package view

import (
	"github.com/ledgerlens/ledgerlens/internal/drill"
	"github.com/ledgerlens/ledgerlens/internal/source"
)

// CashSummary aggregates a page of bank transactions.
type CashSummary struct {
	TotalIn          float64 `json:"total_in"`
	TotalOut         float64 `json:"total_out"`
	NetChange        float64 `json:"net_change"`
	TransactionCount int     `json:"transaction_count"`
}

// InvoiceSummary aggregates a page of invoices or bills.
type InvoiceSummary struct {
	TotalOutstanding float64 `json:"total_outstanding"`
	TotalOverdue     float64 `json:"total_overdue"`
	InvoiceCount     int     `json:"invoice_count"`
	OverdueCount     int     `json:"overdue_count"`
}

// PnLSummary aggregates the P&L category breakdown.
type PnLSummary struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalExpenses float64 `json:"total_expenses"`
	NetProfit     float64 `json:"net_profit"`
	CategoryCount int     `json:"category_count"`
}

// JournalSummary aggregates a page of journal lines.
type JournalSummary struct {
	TotalDebits  float64 `json:"total_debits"`
	TotalCredits float64 `json:"total_credits"`
	NetAmount    float64 `json:"net_amount"`
	EntryCount   int     `json:"entry_count"`
}

// Result is the variant-tagged union of the drill result shapes. Exactly one
// of the row slices (or Invoice, for the detail variants) is populated,
// selected by Variant.
type Result struct {
	Variant drill.Variant `json:"variant"`

	Transactions []source.Transaction `json:"transactions,omitempty"`
	Invoices     []source.Invoice     `json:"invoices,omitempty"`
	Journals     []source.JournalLine `json:"journals,omitempty"`
	Categories   []source.Category    `json:"categories,omitempty"`
	Invoice      *source.InvoiceDetail `json:"invoice,omitempty"`

	// Summary blocks are serialised through ActiveSummary under a single
	// "summary" key, so only the populated one is marshalled.
	Cash        *CashSummary    `json:"-"`
	Outstanding *InvoiceSummary `json:"-"`
	PnL         *PnLSummary     `json:"-"`
	Journal     *JournalSummary `json:"-"`

	HasMore  bool   `json:"has_more"`
	FromDate string `json:"from_date,omitempty"`
	ToDate   string `json:"to_date,omitempty"`
}

// ActiveSummary returns whichever summary block matches the populated shape,
// or nil for the detail variants.
func (r *Result) ActiveSummary() any {
	switch {
	case r == nil:
		return nil
	case r.Cash != nil:
		return r.Cash
	case r.Outstanding != nil:
		return r.Outstanding
	case r.PnL != nil:
		return r.PnL
	case r.Journal != nil:
		return r.Journal
	}
	return nil
}

// RowCount returns the number of result rows, used to distinguish the empty
// state from an error. Detail variants count line items.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	switch r.Variant {
	case drill.VariantCash:
		return len(r.Transactions)
	case drill.VariantReceivables, drill.VariantPayables:
		return len(r.Invoices)
	case drill.VariantReceivablesDetail, drill.VariantPayablesDetail:
		if r.Invoice == nil {
			return 0
		}
		return len(r.Invoice.LineItems)
	case drill.VariantPnL:
		return len(r.Categories)
	case drill.VariantPnLAccount:
		return len(r.Journals)
	}
	return 0
}

// Summarize recomputes the per-variant summary block from the rows currently
// held. Called after a fetch and again after client-side filtering, so the
// figures always describe what is on screen.
func (r *Result) Summarize() {
	if r == nil {
		return
	}
	switch r.Variant {
	case drill.VariantCash:
		s := &CashSummary{TransactionCount: len(r.Transactions)}
		for _, tx := range r.Transactions {
			if tx.Amount > 0 {
				s.TotalIn += tx.Amount
			} else {
				s.TotalOut += tx.Amount
			}
		}
		s.NetChange = s.TotalIn + s.TotalOut
		r.Cash = s
	case drill.VariantReceivables, drill.VariantPayables:
		s := &InvoiceSummary{InvoiceCount: len(r.Invoices)}
		for _, inv := range r.Invoices {
			s.TotalOutstanding += inv.AmountDue
			if inv.IsOverdue {
				s.TotalOverdue += inv.AmountDue
				s.OverdueCount++
			}
		}
		r.Outstanding = s
	case drill.VariantPnL:
		s := &PnLSummary{CategoryCount: len(r.Categories)}
		for _, cat := range r.Categories {
			if isRevenueCategory(cat.Category) {
				s.TotalRevenue += cat.Total
			} else if isExpenseCategory(cat.Category) {
				s.TotalExpenses += abs(cat.Total)
			}
		}
		s.NetProfit = s.TotalRevenue - s.TotalExpenses
		r.PnL = s
	case drill.VariantPnLAccount:
		s := &JournalSummary{EntryCount: len(r.Journals)}
		for _, line := range r.Journals {
			s.TotalDebits += line.Debit
			s.TotalCredits += line.Credit
		}
		s.NetAmount = s.TotalDebits - s.TotalCredits
		r.Journal = s
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
