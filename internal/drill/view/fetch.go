package view

import (
	"context"
	"fmt"

	"github.com/ledgerlens/ledgerlens/internal/drill"
	"github.com/ledgerlens/ledgerlens/internal/source"
)

// FetchParams is the full input set of one variant fetch. The orchestrator
// fills it from its captured inputs; the HTTP layer fills it straight from
// request parameters.
type FetchParams struct {
	Variant  drill.Variant
	Filters  drill.FilterSet
	Page     int
	PageSize int
	Status   StatusFilter
	CashMode CashSourceMode
	FromDate string
	ToDate   string
}

// Fetch runs the one query operation mapped to the variant and shapes the
// response into the tagged Result, with summaries computed.
func Fetch(ctx context.Context, src source.DataSource, p FetchParams) (*Result, error) {
	pageSize := source.ClampPageSize(p.PageSize)
	res := &Result{Variant: p.Variant, FromDate: p.FromDate, ToDate: p.ToDate}
	switch p.Variant {
	case drill.VariantCash:
		q := source.TransactionQuery{
			FromDate:  p.FromDate,
			ToDate:    p.ToDate,
			AccountID: p.Filters.AccountID,
			Page:      p.Page,
			PageSize:  pageSize,
		}
		var page *source.TransactionPage
		var err error
		if p.CashMode == ModeStatements {
			page, err = src.BankStatements(ctx, q)
		} else {
			page, err = src.BankTransactions(ctx, q)
		}
		if err != nil {
			return nil, err
		}
		res.Transactions = page.Transactions
		res.HasMore = page.HasMore
	case drill.VariantReceivables, drill.VariantPayables:
		kind := source.KindReceivable
		if p.Variant == drill.VariantPayables {
			kind = source.KindPayable
		}
		page, err := src.Invoices(ctx, source.InvoiceQuery{
			Kind:        kind,
			FromDate:    p.FromDate,
			ToDate:      p.ToDate,
			Status:      p.Status.upstream(),
			OverdueOnly: p.Filters.OverdueOnly,
			Page:        p.Page,
			PageSize:    pageSize,
		})
		if err != nil {
			return nil, err
		}
		res.Invoices = page.Invoices
		res.HasMore = page.HasMore
	case drill.VariantReceivablesDetail, drill.VariantPayablesDetail:
		if p.Filters.InvoiceID == "" {
			return nil, fmt.Errorf("view: %s requires an invoice id", p.Variant)
		}
		detail, err := src.InvoiceDetail(ctx, p.Filters.InvoiceID)
		if err != nil {
			return nil, err
		}
		res.Invoice = detail
	case drill.VariantPnL:
		page, err := src.ProfitAndLoss(ctx, source.PnLQuery{FromDate: p.FromDate, ToDate: p.ToDate})
		if err != nil {
			return nil, err
		}
		res.Categories = page.Categories
	case drill.VariantPnLAccount:
		if p.Filters.AccountID == "" {
			return nil, fmt.Errorf("view: %s requires an account id", p.Variant)
		}
		page, err := src.AccountJournals(ctx, source.JournalQuery{
			AccountID: p.Filters.AccountID,
			FromDate:  p.FromDate,
			ToDate:    p.ToDate,
			Page:      p.Page,
			PageSize:  pageSize,
		})
		if err != nil {
			return nil, err
		}
		res.Journals = page.Journals
		res.HasMore = page.HasMore
	default:
		return nil, ErrUnknownVariant
	}
	res.Summarize()
	return res, nil
}
