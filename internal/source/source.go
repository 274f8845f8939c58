package source

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a single-record lookup matches nothing.
var ErrNotFound = errors.New("source: not found")

// DataSource is the data-fetch collaborator behind the drill views. Each
// method corresponds to exactly one drill variant (plus BankAccounts, which
// feeds the cash view's account filter).
type DataSource interface {
	BankTransactions(ctx context.Context, q TransactionQuery) (*TransactionPage, error)
	BankStatements(ctx context.Context, q TransactionQuery) (*TransactionPage, error)
	BankAccounts(ctx context.Context) ([]BankAccount, error)
	Invoices(ctx context.Context, q InvoiceQuery) (*InvoicePage, error)
	InvoiceDetail(ctx context.Context, invoiceID string) (*InvoiceDetail, error)
	ProfitAndLoss(ctx context.Context, q PnLQuery) (*CategoryPage, error)
	AccountJournals(ctx context.Context, q JournalQuery) (*JournalPage, error)
}
