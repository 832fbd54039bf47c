// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/metrics"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"go.uber.org/zap"
)

const (
	sweepTimeout  = 30 * time.Second
	sweepLogLimit = 20
)

// PendingStore finds interbank transfers that are still waiting for settlement.
type PendingStore interface {
	CountStalePending(ctx context.Context, cutoff time.Time) (int, error)
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.TransactionView, error)
}

type Jobs struct {
	pending    PendingStore
	staleAfter time.Duration
	metrics    metrics.MetricsCollector
	logger     *logging.Logger
	now        func() time.Time
}

func NewJobs(pending PendingStore, staleAfter time.Duration, collector metrics.MetricsCollector) *Jobs {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &Jobs{
		pending:    pending,
		staleAfter: staleAfter,
		metrics:    collector,
		logger:     logging.L().Named("scheduler"),
		now:        time.Now,
	}
}

// SweepStalePending reports interbank transfers left pending longer than
// staleAfter. It only observes: settlement is an operator action.
func (j *Jobs) SweepStalePending() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := j.sweep(ctx); err != nil {
		j.logger.Error("pending sweep failed", zap.Error(err))
	}
}

func (j *Jobs) sweep(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.staleAfter)

	count, err := j.pending.CountStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	j.metrics.RecordStalePending(count)
	if count == 0 {
		j.logger.Debug("no stale pending transfers")
		return 0, nil
	}

	stale, err := j.pending.ListStalePending(ctx, cutoff, sweepLogLimit)
	if err != nil {
		return count, err
	}
	for _, t := range stale {
		j.logger.Warn("interbank transfer awaiting settlement",
			zap.String("transaction_id", t.ID),
			zap.String("reference", t.Reference),
			zap.String("account_number", t.AccountNumber),
			zap.String("amount", t.Amount.String()),
			zap.Duration("age", j.now().Sub(t.CreatedAt).Round(time.Minute)),
		)
	}
	j.logger.Warn("stale pending transfers found", zap.Int("count", count), zap.Duration("older_than", j.staleAfter))
	return count, nil
}
