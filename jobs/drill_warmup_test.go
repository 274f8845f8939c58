package jobs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/ledgerlens/ledgerlens/internal/jobs"
	"github.com/ledgerlens/ledgerlens/internal/source"
)

type recordingSource struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingSource) record(op string) {
	s.mu.Lock()
	s.calls = append(s.calls, op)
	s.mu.Unlock()
}

func (s *recordingSource) ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *recordingSource) BankTransactions(ctx context.Context, q source.TransactionQuery) (*source.TransactionPage, error) {
	s.record("bank_transactions")
	return &source.TransactionPage{}, nil
}

func (s *recordingSource) BankStatements(ctx context.Context, q source.TransactionQuery) (*source.TransactionPage, error) {
	s.record("bank_statements")
	return &source.TransactionPage{}, nil
}

func (s *recordingSource) BankAccounts(ctx context.Context) ([]source.BankAccount, error) {
	s.record("bank_accounts")
	return nil, nil
}

func (s *recordingSource) Invoices(ctx context.Context, q source.InvoiceQuery) (*source.InvoicePage, error) {
	s.record("invoices:" + string(q.Kind))
	return &source.InvoicePage{}, nil
}

func (s *recordingSource) InvoiceDetail(ctx context.Context, invoiceID string) (*source.InvoiceDetail, error) {
	s.record("invoice_detail")
	return &source.InvoiceDetail{}, nil
}

func (s *recordingSource) ProfitAndLoss(ctx context.Context, q source.PnLQuery) (*source.CategoryPage, error) {
	s.record("profit_and_loss")
	return &source.CategoryPage{}, nil
}

func (s *recordingSource) AccountJournals(ctx context.Context, q source.JournalQuery) (*source.JournalPage, error) {
	s.record("account_journals")
	return &source.JournalPage{}, nil
}

func newWarmupJob(src source.DataSource) *DrillWarmupJob {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	return NewDrillWarmupJob(src, logger, metrics)
}

func TestDrillWarmupFetchesAllListVariants(t *testing.T) {
	src := &recordingSource{}
	job := newWarmupJob(src)

	task, err := NewDrillWarmupTask(DrillWarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	ops := src.ops()
	require.Len(t, ops, 4)
	require.Contains(t, ops, "bank_transactions")
	require.Contains(t, ops, "invoices:receivable")
	require.Contains(t, ops, "invoices:payable")
	require.Contains(t, ops, "profit_and_loss")
}

func TestDrillWarmupHonoursVariantSelection(t *testing.T) {
	src := &recordingSource{}
	job := newWarmupJob(src)

	task, err := NewDrillWarmupTask(DrillWarmupPayload{Variants: []string{"pnl"}})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []string{"profit_and_loss"}, src.ops())
}

func TestDrillWarmupSkipsUnknownAndDetailVariants(t *testing.T) {
	src := &recordingSource{}
	job := newWarmupJob(src)

	payload, err := json.Marshal(DrillWarmupPayload{Variants: []string{"treasure", "receivables_detail"}})
	require.NoError(t, err)
	err = job.Handle(context.Background(), asynq.NewTask(TaskDrillWarmup, payload))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, src.ops())
}

func TestDrillWarmupRejectsBadPayload(t *testing.T) {
	job := newWarmupJob(&recordingSource{})
	err := job.Handle(context.Background(), asynq.NewTask(TaskDrillWarmup, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
