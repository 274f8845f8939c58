package view

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/drill"
)

// WriteCSV serialises the result rows to CSV with a fixed column schema per
// shape. Callers pass the search-filtered result so the export matches what
// is on screen. A nil or empty result writes nothing at all: exporting no
// data is a no-op, not an error. Quoting and escaping of delimiters and
// quotes inside text fields is handled by encoding/csv.
func WriteCSV(w io.Writer, r *Result) error {
	if r == nil || r.RowCount() == 0 {
		return nil
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	switch r.Variant {
	case drill.VariantCash:
		if err := writer.Write([]string{"Date", "Description", "Counterparty", "Reference", "Amount", "Reconciled"}); err != nil {
			return err
		}
		for _, tx := range r.Transactions {
			if err := writer.Write([]string{
				tx.Date,
				tx.Description,
				tx.ContactName,
				tx.Reference,
				formatFloat(tx.Amount),
				formatBool(tx.IsReconciled),
			}); err != nil {
				return err
			}
		}
	case drill.VariantReceivables, drill.VariantPayables:
		if err := writer.Write([]string{"Number", "Counterparty", "Issue Date", "Due Date", "Amount Due", "Status", "Overdue"}); err != nil {
			return err
		}
		for _, inv := range r.Invoices {
			if err := writer.Write([]string{
				inv.Number,
				inv.ContactName,
				inv.IssueDate,
				inv.DueDate,
				formatFloat(inv.AmountDue),
				inv.Status,
				formatBool(inv.IsOverdue),
			}); err != nil {
				return err
			}
		}
	case drill.VariantReceivablesDetail, drill.VariantPayablesDetail:
		if err := writer.Write([]string{"Description", "Quantity", "Unit Amount", "Tax", "Line Total"}); err != nil {
			return err
		}
		for _, line := range r.Invoice.LineItems {
			if err := writer.Write([]string{
				line.Description,
				formatFloat(line.Quantity),
				formatFloat(line.UnitAmount),
				formatFloat(line.TaxAmount),
				formatFloat(line.LineTotal),
			}); err != nil {
				return err
			}
		}
	case drill.VariantPnLAccount:
		if err := writer.Write([]string{"Date", "Account", "Description", "Reference", "Debit", "Credit"}); err != nil {
			return err
		}
		for _, line := range r.Journals {
			if err := writer.Write([]string{
				line.Date,
				line.AccountName,
				line.Description,
				line.Reference,
				formatFloat(line.Debit),
				formatFloat(line.Credit),
			}); err != nil {
				return err
			}
		}
	case drill.VariantPnL:
		if err := writer.Write([]string{"Category", "Total"}); err != nil {
			return err
		}
		for _, cat := range r.Categories {
			if err := writer.Write([]string{cat.Category, formatFloat(cat.Total)}); err != nil {
				return err
			}
		}
	default:
		return ErrUnknownVariant
	}

	writer.Flush()
	return writer.Error()
}

// ExportFileName names the CSV download for a variant and day.
func ExportFileName(variant drill.Variant, now time.Time) string {
	return fmt.Sprintf("drill-%s-%s.csv", variant, now.UTC().Format("2006-01-02"))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatBool(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
