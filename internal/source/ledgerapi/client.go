// Package ledgerapi talks to the upstream accounting provider's REST API and
// maps its responses onto the normalized drill row shapes.
package ledgerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/source"
)

// TokenProvider yields a bearer token for the upstream API. Implementations
// handle refresh; the client just asks before every request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider for a fixed credential, useful in tests and
// for PAT-style deployments.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Client implements source.DataSource against the provider API.
type Client struct {
	baseURL    string
	tokens     TokenProvider
	tenantID   string
	portalBase string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL, tenantID string, tokens TokenProvider) *Client {
	return &Client{
		baseURL:  baseURL,
		tokens:   tokens,
		tenantID: tenantID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithPortal sets the provider's web UI base URL, enabling deep links on
// invoice detail responses.
func (c *Client) WithPortal(portalBase string) *Client {
	c.portalBase = portalBase
	return c
}

// Ping checks if the provider API is reachable with the current credentials.
func (c *Client) Ping(ctx context.Context) error {
	var out struct{}
	return c.get(ctx, "health", nil, &out)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("fetch token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if c.tenantID != "" {
		req.Header.Set("Ledger-Tenant-Id", c.tenantID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return source.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func pageParams(params url.Values, page, pageSize int) {
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(source.ClampPageSize(pageSize)))
}

func dateParams(params url.Values, fromDate, toDate string) {
	if fromDate != "" {
		params.Set("from_date", fromDate)
	}
	if toDate != "" {
		params.Set("to_date", toDate)
	}
}

// BankTransactions lists reconciled and unreconciled bank transactions.
func (c *Client) BankTransactions(ctx context.Context, q source.TransactionQuery) (*source.TransactionPage, error) {
	params := url.Values{}
	dateParams(params, q.FromDate, q.ToDate)
	if q.AccountID != "" {
		params.Set("account_id", q.AccountID)
	}
	pageParams(params, q.Page, q.PageSize)

	var page source.TransactionPage
	if err := c.get(ctx, "bank/transactions", params, &page); err != nil {
		return nil, fmt.Errorf("bank transactions: %w", err)
	}
	return &page, nil
}

// BankStatements lists imported statement lines for the same query surface.
func (c *Client) BankStatements(ctx context.Context, q source.TransactionQuery) (*source.TransactionPage, error) {
	params := url.Values{}
	dateParams(params, q.FromDate, q.ToDate)
	if q.AccountID != "" {
		params.Set("account_id", q.AccountID)
	}
	pageParams(params, q.Page, q.PageSize)

	var page source.TransactionPage
	if err := c.get(ctx, "bank/statements", params, &page); err != nil {
		return nil, fmt.Errorf("bank statements: %w", err)
	}
	return &page, nil
}

// BankAccounts lists the organisation's bank accounts.
func (c *Client) BankAccounts(ctx context.Context) ([]source.BankAccount, error) {
	var out struct {
		Accounts []source.BankAccount `json:"accounts"`
	}
	if err := c.get(ctx, "accounts/bank", nil, &out); err != nil {
		return nil, fmt.Errorf("bank accounts: %w", err)
	}
	return out.Accounts, nil
}

// Invoices lists sales or purchase invoices depending on the query kind.
func (c *Client) Invoices(ctx context.Context, q source.InvoiceQuery) (*source.InvoicePage, error) {
	params := url.Values{}
	params.Set("kind", string(q.Kind))
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.OverdueOnly {
		params.Set("overdue_only", "true")
	}
	dateParams(params, q.FromDate, q.ToDate)
	pageParams(params, q.Page, q.PageSize)

	var page source.InvoicePage
	if err := c.get(ctx, "invoices", params, &page); err != nil {
		return nil, fmt.Errorf("invoices: %w", err)
	}
	return &page, nil
}

// InvoiceDetail fetches a single invoice with its line items.
func (c *Client) InvoiceDetail(ctx context.Context, invoiceID string) (*source.InvoiceDetail, error) {
	var detail source.InvoiceDetail
	if err := c.get(ctx, "invoices/"+url.PathEscape(invoiceID), nil, &detail); err != nil {
		if err == source.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, err)
	}
	if detail.PortalURL == "" {
		detail.PortalURL = DeepLinkURL(c.portalBase, detail.ID)
	}
	return &detail, nil
}

// ProfitAndLoss fetches the categorised P&L breakdown for a date range.
func (c *Client) ProfitAndLoss(ctx context.Context, q source.PnLQuery) (*source.CategoryPage, error) {
	params := url.Values{}
	dateParams(params, q.FromDate, q.ToDate)

	var page source.CategoryPage
	if err := c.get(ctx, "reports/profit-and-loss", params, &page); err != nil {
		return nil, fmt.Errorf("profit and loss: %w", err)
	}
	return &page, nil
}

// AccountJournals lists journal lines posted to a single account.
func (c *Client) AccountJournals(ctx context.Context, q source.JournalQuery) (*source.JournalPage, error) {
	params := url.Values{}
	params.Set("account_id", q.AccountID)
	dateParams(params, q.FromDate, q.ToDate)
	pageParams(params, q.Page, q.PageSize)

	var page source.JournalPage
	if err := c.get(ctx, "reports/journals", params, &page); err != nil {
		return nil, fmt.Errorf("account journals: %w", err)
	}
	return &page, nil
}

// DeepLinkURL builds the provider web UI link for an invoice, so detail views
// can offer a jump straight into the source record.
func DeepLinkURL(portalBase, invoiceID string) string {
	if portalBase == "" || invoiceID == "" {
		return ""
	}
	return fmt.Sprintf("%s/invoices/view?id=%s", portalBase, url.QueryEscape(invoiceID))
}
