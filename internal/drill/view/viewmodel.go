package view

import (
	"github.com/ledgerlens/ledgerlens/internal/drill"
	"github.com/ledgerlens/ledgerlens/internal/source"
)

// Formatter is the display-formatting collaborator. Rendering delegates all
// currency and date presentation to it; no drill logic depends on the output.
type Formatter interface {
	Money(amount float64, currency string) string
	Date(iso string) string
}

// Table is the read-only render model shared by every drill variant: one
// column set and one row builder per result shape.
type Table struct {
	Columns []string
	Rows    [][]string
	Empty   bool
}

// BuildTable renders the result into the per-variant table. Pass the
// search-filtered result so the rows match the visible set.
func BuildTable(r *Result, f Formatter) Table {
	if r == nil {
		return Table{Empty: true}
	}
	var t Table
	switch r.Variant {
	case drill.VariantCash:
		t.Columns = []string{"Date", "Description", "Counterparty", "Amount"}
		for _, tx := range r.Transactions {
			t.Rows = append(t.Rows, []string{
				f.Date(tx.Date), tx.Description, tx.ContactName, f.Money(tx.Amount, ""),
			})
		}
	case drill.VariantReceivables, drill.VariantPayables:
		t.Columns = []string{"Number", "Counterparty", "Due Date", "Amount Due", "Status"}
		for _, inv := range r.Invoices {
			t.Rows = append(t.Rows, []string{
				inv.Number, inv.ContactName, f.Date(inv.DueDate), f.Money(inv.AmountDue, inv.Currency), inv.Status,
			})
		}
	case drill.VariantReceivablesDetail, drill.VariantPayablesDetail:
		t.Columns = []string{"Description", "Quantity", "Unit Amount", "Line Total"}
		if r.Invoice != nil {
			for _, line := range r.Invoice.LineItems {
				t.Rows = append(t.Rows, []string{
					line.Description,
					formatFloat(line.Quantity),
					f.Money(line.UnitAmount, r.Invoice.Currency),
					f.Money(line.LineTotal, r.Invoice.Currency),
				})
			}
		}
	case drill.VariantPnL:
		t.Columns = []string{"Category", "Total"}
		for _, cat := range r.Categories {
			t.Rows = append(t.Rows, []string{cat.Category, f.Money(cat.Total, "")})
		}
	case drill.VariantPnLAccount:
		t.Columns = []string{"Date", "Description", "Debit", "Credit"}
		for _, line := range r.Journals {
			t.Rows = append(t.Rows, []string{
				f.Date(line.Date), line.Description, f.Money(line.Debit, ""), f.Money(line.Credit, ""),
			})
		}
	}
	t.Empty = len(t.Rows) == 0
	return t
}

// AccountOptions maps bank accounts to the cash view's filter control.
func AccountOptions(accounts []source.BankAccount) []string {
	options := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		options = append(options, acc.Name)
	}
	return options
}
