package drillhttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/source"
	_ "github.com/ledgerlens/ledgerlens/testing"
)

type stubSource struct {
	transactionsFn func(q source.TransactionQuery) (*source.TransactionPage, error)
	invoicesFn     func(q source.InvoiceQuery) (*source.InvoicePage, error)
	detailFn       func(invoiceID string) (*source.InvoiceDetail, error)
	pnlFn          func(q source.PnLQuery) (*source.CategoryPage, error)
	journalsFn     func(q source.JournalQuery) (*source.JournalPage, error)
	accountsFn     func() ([]source.BankAccount, error)
}

func (s *stubSource) BankTransactions(ctx context.Context, q source.TransactionQuery) (*source.TransactionPage, error) {
	if s.transactionsFn != nil {
		return s.transactionsFn(q)
	}
	return &source.TransactionPage{}, nil
}

func (s *stubSource) BankStatements(ctx context.Context, q source.TransactionQuery) (*source.TransactionPage, error) {
	return s.BankTransactions(ctx, q)
}

func (s *stubSource) BankAccounts(ctx context.Context) ([]source.BankAccount, error) {
	if s.accountsFn != nil {
		return s.accountsFn()
	}
	return nil, nil
}

func (s *stubSource) Invoices(ctx context.Context, q source.InvoiceQuery) (*source.InvoicePage, error) {
	if s.invoicesFn != nil {
		return s.invoicesFn(q)
	}
	return &source.InvoicePage{}, nil
}

func (s *stubSource) InvoiceDetail(ctx context.Context, invoiceID string) (*source.InvoiceDetail, error) {
	if s.detailFn != nil {
		return s.detailFn(invoiceID)
	}
	return &source.InvoiceDetail{}, nil
}

func (s *stubSource) ProfitAndLoss(ctx context.Context, q source.PnLQuery) (*source.CategoryPage, error) {
	if s.pnlFn != nil {
		return s.pnlFn(q)
	}
	return &source.CategoryPage{}, nil
}

func (s *stubSource) AccountJournals(ctx context.Context, q source.JournalQuery) (*source.JournalPage, error) {
	if s.journalsFn != nil {
		return s.journalsFn(q)
	}
	return &source.JournalPage{}, nil
}

func newTestRouter(t *testing.T, src source.DataSource) http.Handler {
	t.Helper()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), src)
	h.WithNow(func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) })
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDrillEnvelopeSuccess(t *testing.T) {
	src := &stubSource{invoicesFn: func(q source.InvoiceQuery) (*source.InvoicePage, error) {
		return &source.InvoicePage{
			Invoices: []source.Invoice{
				{Number: "INV-1", ContactName: "Acme Ltd", AmountDue: 150, Status: source.StatusOutstanding},
				{Number: "INV-2", ContactName: "Globex", AmountDue: 50, Status: source.StatusOutstanding, IsOverdue: true},
			},
			HasMore: true,
		}, nil
	}}
	rec := get(t, newTestRouter(t, src), "/api/drill?drill=receivables")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool `json:"success"`
		Summary struct {
			TotalOutstanding float64 `json:"total_outstanding"`
			OverdueCount     int     `json:"overdue_count"`
		} `json:"summary"`
		Invoices []json.RawMessage `json:"invoices"`
		HasMore  bool              `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, float64(200), body.Summary.TotalOutstanding)
	require.Equal(t, 1, body.Summary.OverdueCount)
	require.Len(t, body.Invoices, 2)
	require.True(t, body.HasMore)
}

func TestDrillPassesParamsUpstream(t *testing.T) {
	var got source.InvoiceQuery
	src := &stubSource{invoicesFn: func(q source.InvoiceQuery) (*source.InvoicePage, error) {
		got = q
		return &source.InvoicePage{}, nil
	}}
	rec := get(t, newTestRouter(t, src),
		"/api/drill?drill=payables&from=2026-01-01&to=2026-06-30&status=paid&overdue=true&page=3&page_size=25")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, source.KindPayable, got.Kind)
	require.Equal(t, "2026-01-01", got.FromDate)
	require.Equal(t, "2026-06-30", got.ToDate)
	require.Equal(t, source.StatusPaid, got.Status)
	require.True(t, got.OverdueOnly)
	require.Equal(t, 3, got.Page)
	require.Equal(t, 25, got.PageSize)
}

func TestDrillDefaultPresetResolvesAgainstClock(t *testing.T) {
	var got source.PnLQuery
	src := &stubSource{pnlFn: func(q source.PnLQuery) (*source.CategoryPage, error) {
		got = q
		return &source.CategoryPage{}, nil
	}}
	rec := get(t, newTestRouter(t, src), "/api/drill?drill=pnl")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2026-08-01", got.FromDate)
	require.Equal(t, "2026-08-28", got.ToDate)
}

func TestDrillRejectsBadParams(t *testing.T) {
	router := newTestRouter(t, &stubSource{})
	for _, target := range []string{
		"/api/drill",
		"/api/drill?drill=treasure",
		"/api/drill?drill=cash&from=yesterday",
		"/api/drill?drill=cash&page=0",
		"/api/drill?drill=cash&page_size=101",
		"/api/drill?drill=receivables&status=overdue",
		"/api/drill?drill=pnl&preset=last_century",
	} {
		rec := get(t, router, target)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
		require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	}
}

func TestDrillFetchFailureEnvelope(t *testing.T) {
	src := &stubSource{pnlFn: func(q source.PnLQuery) (*source.CategoryPage, error) {
		return nil, context.DeadlineExceeded
	}}
	rec := get(t, newTestRouter(t, src), "/api/drill?drill=pnl")

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.NotEmpty(t, body.Error)
}

func TestDrillDetailNotFound(t *testing.T) {
	src := &stubSource{detailFn: func(invoiceID string) (*source.InvoiceDetail, error) {
		return nil, source.ErrNotFound
	}}
	rec := get(t, newTestRouter(t, src), "/api/drill?drill=receivables_detail&invoice_id=missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDrillSearchFiltersRows(t *testing.T) {
	src := &stubSource{invoicesFn: func(q source.InvoiceQuery) (*source.InvoicePage, error) {
		return &source.InvoicePage{Invoices: []source.Invoice{
			{Number: "INV-1", ContactName: "Acme Ltd", AmountDue: 100},
			{Number: "INV-2", ContactName: "Globex", AmountDue: 100},
		}}, nil
	}}
	rec := get(t, newTestRouter(t, src), "/api/drill?drill=receivables&q=acme")

	var body struct {
		Invoices []struct {
			ContactName string `json:"contact_name"`
		} `json:"invoices"`
		Summary struct {
			InvoiceCount int `json:"invoice_count"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Invoices, 1)
	require.Equal(t, "Acme Ltd", body.Invoices[0].ContactName)
	require.Equal(t, 1, body.Summary.InvoiceCount)
}

func TestExportCSVAttachment(t *testing.T) {
	src := &stubSource{transactionsFn: func(q source.TransactionQuery) (*source.TransactionPage, error) {
		return &source.TransactionPage{Transactions: []source.Transaction{
			{Date: "2026-08-01", Description: "Stripe payout", Amount: 10},
		}}, nil
	}}
	rec := get(t, newTestRouter(t, src), "/api/drill/export.csv?drill=cash")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	require.Equal(t, `attachment; filename="drill-cash-2026-08-28.csv"`, rec.Header().Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "Date,Description"))
}

func TestExportDetailNotFound(t *testing.T) {
	src := &stubSource{detailFn: func(invoiceID string) (*source.InvoiceDetail, error) {
		return nil, source.ErrNotFound
	}}
	rec := get(t, newTestRouter(t, src), "/api/drill/export.csv?drill=receivables_detail&invoice_id=missing")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
}

func TestAccountsEndpoint(t *testing.T) {
	src := &stubSource{accountsFn: func() ([]source.BankAccount, error) {
		return []source.BankAccount{{ID: "a-1", Name: "Main GBP"}}, nil
	}}
	rec := get(t, newTestRouter(t, src), "/api/drill/accounts")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success  bool                 `json:"success"`
		Accounts []source.BankAccount `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, "Main GBP", body.Accounts[0].Name)
}
