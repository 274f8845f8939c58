// Package source defines the data-fetch contract the drill subsystem consumes:
// one query operation per drill variant, each returning its own result shape.
// Implementations live in subpackages (upstream ledger API client) and sibling
// packages (historical store); Cache and Composite decorate any DataSource.
package source

// Page sizing shared by all paged operations.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// ClampPageSize normalizes a requested page size to the allowed window.
func ClampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Transaction is a single bank transaction or statement line.
type Transaction struct {
	ID           string  `json:"transaction_id"`
	Date         string  `json:"date"`
	Description  string  `json:"description"`
	Reference    string  `json:"reference"`
	ContactName  string  `json:"contact_name"`
	AccountID    string  `json:"account_id"`
	AccountName  string  `json:"account_name"`
	Amount       float64 `json:"amount"`
	IsReconciled bool    `json:"is_reconciled"`
	Source       string  `json:"source,omitempty"`
}

// BankAccount describes a bank account offered as a cash drill filter.
type BankAccount struct {
	ID           string `json:"account_id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	CurrencyCode string `json:"currency_code"`
}

// Invoice is a sales invoice (receivable) or bill (payable) summary row.
type Invoice struct {
	ID           string  `json:"invoice_id"`
	Number       string  `json:"invoice_number"`
	ContactName  string  `json:"contact_name"`
	Reference    string  `json:"reference"`
	Status       string  `json:"status"`
	Total        float64 `json:"total"`
	AmountDue    float64 `json:"amount_due"`
	AmountPaid   float64 `json:"amount_paid"`
	IssueDate    string  `json:"issue_date"`
	DueDate      string  `json:"due_date"`
	IsOverdue    bool    `json:"is_overdue"`
	DaysOverdue  int     `json:"days_overdue"`
	Currency     string  `json:"currency,omitempty"`
	IsCreditNote bool    `json:"is_credit_note,omitempty"`
	Source       string  `json:"source,omitempty"`
}

// InvoiceLine is one line item of an invoice or bill.
type InvoiceLine struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitAmount  float64 `json:"unit_amount"`
	TaxAmount   float64 `json:"tax_amount"`
	LineTotal   float64 `json:"line_total"`
	AccountCode string  `json:"account_code,omitempty"`
}

// InvoiceDetail is a full invoice including its line items.
type InvoiceDetail struct {
	Invoice
	LineItems []InvoiceLine `json:"line_items"`
	// PortalURL links to the invoice in the provider's web UI, when a portal
	// base URL is configured.
	PortalURL string `json:"portal_url,omitempty"`
}

// JournalLine is a general ledger posting against one account.
type JournalLine struct {
	ID          string  `json:"journal_id"`
	Date        string  `json:"date"`
	AccountID   string  `json:"account_id"`
	AccountName string  `json:"account_name"`
	Description string  `json:"description"`
	Reference   string  `json:"reference"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
}

// CategoryAccount is an account row nested under a P&L category.
type CategoryAccount struct {
	AccountID string  `json:"account_id"`
	Name      string  `json:"name"`
	Total     float64 `json:"total"`
}

// Category is one P&L report category with its account breakdown.
type Category struct {
	Category string            `json:"category"`
	Total    float64           `json:"total"`
	Accounts []CategoryAccount `json:"accounts,omitempty"`
}

// InvoiceKind selects the invoice direction.
type InvoiceKind string

const (
	KindReceivable InvoiceKind = "receivable"
	KindPayable    InvoiceKind = "payable"
)

// Upstream invoice statuses. An empty status means no status filter.
const (
	StatusOutstanding = "AUTHORISED"
	StatusPaid        = "PAID"
)

// TransactionQuery narrows bank transaction and statement fetches. Dates are
// ISO strings; an empty FromDate leaves the start unbounded.
type TransactionQuery struct {
	FromDate  string
	ToDate    string
	AccountID string
	Page      int
	PageSize  int
}

// InvoiceQuery narrows invoice and bill fetches.
type InvoiceQuery struct {
	Kind        InvoiceKind
	FromDate    string
	ToDate      string
	Status      string
	OverdueOnly bool
	Page        int
	PageSize    int
}

// PnLQuery bounds the profit and loss breakdown.
type PnLQuery struct {
	FromDate string
	ToDate   string
}

// JournalQuery narrows journal fetches to one account in a range.
type JournalQuery struct {
	AccountID string
	FromDate  string
	ToDate    string
	Page      int
	PageSize  int
}

// TransactionPage is a page of transactions plus the resolved range.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	HasMore      bool          `json:"has_more"`
	FromDate     string        `json:"from_date,omitempty"`
	ToDate       string        `json:"to_date,omitempty"`
}

// InvoicePage is a page of invoices plus the resolved range.
type InvoicePage struct {
	Invoices []Invoice `json:"invoices"`
	HasMore  bool      `json:"has_more"`
	FromDate string    `json:"from_date,omitempty"`
	ToDate   string    `json:"to_date,omitempty"`
}

// JournalPage is a page of journal lines plus the resolved range.
type JournalPage struct {
	Journals []JournalLine `json:"journals"`
	HasMore  bool          `json:"has_more"`
	FromDate string        `json:"from_date,omitempty"`
	ToDate   string        `json:"to_date,omitempty"`
}

// CategoryPage is the P&L breakdown for a range. The report is not paged.
type CategoryPage struct {
	Categories []Category `json:"categories"`
	FromDate   string     `json:"from_date,omitempty"`
	ToDate     string     `json:"to_date,omitempty"`
}
