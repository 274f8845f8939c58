package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerlens/ledgerlens/internal/drill"
	"github.com/ledgerlens/ledgerlens/internal/drill/view"
	jobmetrics "github.com/ledgerlens/ledgerlens/internal/jobs"
	"github.com/ledgerlens/ledgerlens/internal/source"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// warmableVariants are the list views worth pre-fetching. Detail variants
// need a concrete invoice or account id and are never warmed.
var warmableVariants = []drill.Variant{
	drill.VariantCash,
	drill.VariantReceivables,
	drill.VariantPayables,
	drill.VariantPnL,
}

// DrillWarmupJob pre-populates the drill cache with the first page of each
// list variant at its default range, so the first open after a cache bump is
// served warm.
type DrillWarmupJob struct {
	Source  source.DataSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDrillWarmupJob wires dependencies for the warmup handler.
func NewDrillWarmupJob(src source.DataSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *DrillWarmupJob {
	return &DrillWarmupJob{
		Source:  src,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes drill warmup tasks.
func (j *DrillWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("drill warmup: handler not configured")
	}
	var payload DrillWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	variants := j.selectVariants(payload)
	if len(variants) == 0 {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskDrillWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting drill warmup", slog.Int("variants", len(variants)))
	start := j.now()

	g, gctx := errgroup.WithContext(ctx)
	for _, variant := range variants {
		variant := variant
		g.Go(func() error {
			return j.warmVariant(gctx, variant)
		})
	}
	if err := g.Wait(); err != nil {
		resultErr = err
		logger.Error("drill warmup", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed drill warmup", slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *DrillWarmupJob) selectVariants(payload DrillWarmupPayload) []drill.Variant {
	if len(payload.Variants) == 0 {
		return warmableVariants
	}
	var variants []drill.Variant
	for _, raw := range payload.Variants {
		v, ok := drill.ParseVariant(raw)
		if !ok {
			continue
		}
		for _, w := range warmableVariants {
			if v == w {
				variants = append(variants, v)
				break
			}
		}
	}
	return variants
}

func (j *DrillWarmupJob) warmVariant(ctx context.Context, variant drill.Variant) error {
	warmCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	preset := view.DefaultPreset(variant, view.ModeTransactions)
	from, to := preset.Resolve(j.now())
	_, err := view.Fetch(warmCtx, j.Source, view.FetchParams{
		Variant:  variant,
		Page:     1,
		Status:   view.StatusOutstanding,
		CashMode: view.ModeTransactions,
		FromDate: from,
		ToDate:   to,
	})
	if err != nil {
		return err
	}
	j.metrics().AddWarmedPages(string(variant), 1)
	return nil
}

func (j *DrillWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDrillWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDrillWarmup))
}

func (j *DrillWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DrillWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
