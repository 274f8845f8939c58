package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	DataSource
	invoiceCalls atomic.Int64
	pnlCalls     atomic.Int64
	pnlErr       error
}

func (s *countingSource) Invoices(ctx context.Context, q InvoiceQuery) (*InvoicePage, error) {
	s.invoiceCalls.Add(1)
	return &InvoicePage{
		Invoices: []Invoice{{ID: "i-1", Number: "INV-1", AmountDue: 100}},
		HasMore:  false,
	}, nil
}

func (s *countingSource) ProfitAndLoss(ctx context.Context, q PnLQuery) (*CategoryPage, error) {
	s.pnlCalls.Add(1)
	if s.pnlErr != nil {
		return nil, s.pnlErr
	}
	return &CategoryPage{Categories: []Category{{Category: "Revenue", Total: 10}}}, nil
}

func newCachedSource(t *testing.T) (*countingSource, *CachedSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	inner := &countingSource{}
	return inner, NewCachedSource(inner, NewCache(client, time.Minute))
}

func TestCachedSourceReadThrough(t *testing.T) {
	ctx := context.Background()
	inner, cached := newCachedSource(t)

	q := InvoiceQuery{Kind: KindReceivable, Status: StatusOutstanding, Page: 1}
	first, err := cached.Invoices(ctx, q)
	require.NoError(t, err)
	second, err := cached.Invoices(ctx, q)
	require.NoError(t, err)

	require.EqualValues(t, 1, inner.invoiceCalls.Load())
	require.Equal(t, first.Invoices, second.Invoices)
}

func TestCachedSourceKeysOnQueryShape(t *testing.T) {
	ctx := context.Background()
	inner, cached := newCachedSource(t)

	_, err := cached.Invoices(ctx, InvoiceQuery{Kind: KindReceivable, Page: 1})
	require.NoError(t, err)
	_, err = cached.Invoices(ctx, InvoiceQuery{Kind: KindReceivable, Page: 2})
	require.NoError(t, err)
	_, err = cached.Invoices(ctx, InvoiceQuery{Kind: KindPayable, Page: 1})
	require.NoError(t, err)

	require.EqualValues(t, 3, inner.invoiceCalls.Load())
}

func TestCachedSourceBumpInvalidates(t *testing.T) {
	ctx := context.Background()
	inner, cached := newCachedSource(t)

	q := PnLQuery{FromDate: "2026-08-01", ToDate: "2026-08-28"}
	_, err := cached.ProfitAndLoss(ctx, q)
	require.NoError(t, err)
	_, err = cached.ProfitAndLoss(ctx, q)
	require.NoError(t, err)
	require.EqualValues(t, 1, inner.pnlCalls.Load())

	require.NoError(t, cached.Bump(ctx))

	_, err = cached.ProfitAndLoss(ctx, q)
	require.NoError(t, err)
	require.EqualValues(t, 2, inner.pnlCalls.Load())
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	inner, cached := newCachedSource(t)

	inner.pnlErr = errors.New("upstream down")
	_, err := cached.ProfitAndLoss(ctx, PnLQuery{})
	require.Error(t, err)

	inner.pnlErr = nil
	page, err := cached.ProfitAndLoss(ctx, PnLQuery{})
	require.NoError(t, err)
	require.Len(t, page.Categories, 1)
	require.EqualValues(t, 2, inner.pnlCalls.Load())
}

type blockingSource struct {
	DataSource
	release chan struct{}
	calls   atomic.Int64
}

func (s *blockingSource) BankTransactions(ctx context.Context, q TransactionQuery) (*TransactionPage, error) {
	s.calls.Add(1)
	<-s.release
	return &TransactionPage{
		Transactions: []Transaction{{ID: "t-1", Description: "Stripe payout", Amount: 25}},
		HasMore:      true,
	}, nil
}

func TestCachedSourceConcurrentCallersShareOneFetch(t *testing.T) {
	ctx := context.Background()
	inner := &blockingSource{release: make(chan struct{})}
	cached := NewCachedSource(inner, NewCache(nil, time.Minute))

	q := TransactionQuery{FromDate: "2026-01-01", ToDate: "2026-06-30", Page: 1}
	type outcome struct {
		page *TransactionPage
		err  error
	}
	results := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			page, err := cached.BankTransactions(ctx, q)
			results <- outcome{page: page, err: err}
		}()
	}

	// Let both callers collapse onto the single in-flight load, then resolve it.
	require.Eventually(t, func() bool { return inner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(inner.release)

	for i := 0; i < 2; i++ {
		res := <-results
		require.NoError(t, res.err)
		require.Len(t, res.page.Transactions, 1)
		require.Equal(t, "t-1", res.page.Transactions[0].ID)
		require.True(t, res.page.HasMore)
	}
	require.EqualValues(t, 1, inner.calls.Load())
}

func TestCacheNilClientCallsLoader(t *testing.T) {
	ctx := context.Background()
	inner := &countingSource{}
	cached := NewCachedSource(inner, nil)

	page, err := cached.Invoices(ctx, InvoiceQuery{Kind: KindReceivable})
	require.NoError(t, err)
	require.Len(t, page.Invoices, 1)
	_, err = cached.Invoices(ctx, InvoiceQuery{Kind: KindReceivable})
	require.NoError(t, err)
	require.EqualValues(t, 2, inner.invoiceCalls.Load())
}
