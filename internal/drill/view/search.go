package view

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/ledgerlens/ledgerlens/internal/drill"
)

var searchFolder = cases.Fold()

func foldContains(haystack, needle string) bool {
	return strings.Contains(searchFolder.String(haystack), needle)
}

func isRevenueCategory(name string) bool {
	folded := searchFolder.String(name)
	return strings.Contains(folded, "income") || strings.Contains(folded, "revenue")
}

func isExpenseCategory(name string) bool {
	folded := searchFolder.String(name)
	return strings.Contains(folded, "expense") || strings.Contains(folded, "cost")
}

// Search filters the result rows by a case-insensitive substring match against
// the text fields of the active shape, returning a new Result with refreshed
// summaries. It is pure client-side work over already-fetched rows: no fetch
// is ever triggered. An empty query returns the result unchanged.
//
// Fields matched per shape: transactions match description, reference and
// counterparty; invoices match number, reference and counterparty; journals
// match description, reference and account name; P&L categories match the
// category name. The detail variants hold a single record and pass through.
func Search(r *Result, query string) *Result {
	if r == nil {
		return nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return r
	}
	needle := searchFolder.String(query)

	filtered := *r
	switch r.Variant {
	case drill.VariantCash:
		filtered.Transactions = nil
		for _, tx := range r.Transactions {
			if foldContains(tx.Description, needle) ||
				foldContains(tx.Reference, needle) ||
				foldContains(tx.ContactName, needle) {
				filtered.Transactions = append(filtered.Transactions, tx)
			}
		}
	case drill.VariantReceivables, drill.VariantPayables:
		filtered.Invoices = nil
		for _, inv := range r.Invoices {
			if foldContains(inv.Number, needle) ||
				foldContains(inv.Reference, needle) ||
				foldContains(inv.ContactName, needle) {
				filtered.Invoices = append(filtered.Invoices, inv)
			}
		}
	case drill.VariantPnLAccount:
		filtered.Journals = nil
		for _, line := range r.Journals {
			if foldContains(line.Description, needle) ||
				foldContains(line.Reference, needle) ||
				foldContains(line.AccountName, needle) {
				filtered.Journals = append(filtered.Journals, line)
			}
		}
	case drill.VariantPnL:
		filtered.Categories = nil
		for _, cat := range r.Categories {
			if foldContains(cat.Category, needle) {
				filtered.Categories = append(filtered.Categories, cat)
			}
		}
	default:
		return r
	}
	filtered.Summarize()
	return &filtered
}
