package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/metrics"
	"github.com/Addisu87/bank-support-agent/internal/models"
)

type pendingStoreStub struct {
	count      int
	countErr   error
	listed     bool
	gotCutoff  time.Time
	gotLimit   int
	pendingTxs []models.TransactionView
}

func (s *pendingStoreStub) CountStalePending(_ context.Context, cutoff time.Time) (int, error) {
	s.gotCutoff = cutoff
	return s.count, s.countErr
}

func (s *pendingStoreStub) ListStalePending(_ context.Context, _ time.Time, limit int) ([]models.TransactionView, error) {
	s.listed = true
	s.gotLimit = limit
	return s.pendingTxs, nil
}

type gaugeRecorder struct {
	metrics.NoOpCollector
	values []int
}

func (g *gaugeRecorder) RecordStalePending(count int) {
	g.values = append(g.values, count)
}

func newTestJobs(store PendingStore, collector metrics.MetricsCollector) *Jobs {
	j := NewJobs(store, time.Hour, collector)
	j.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return j
}

func TestSweepReportsStaleTransfers(t *testing.T) {
	store := &pendingStoreStub{
		count: 2,
		pendingTxs: []models.TransactionView{
			{Transaction: models.Transaction{ID: "t1", Reference: "TRF-1", Status: models.TxPending, CreatedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}},
			{Transaction: models.Transaction{ID: "t2", Reference: "TRF-2", Status: models.TxPending, CreatedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}},
		},
	}
	gauge := &gaugeRecorder{}
	j := newTestJobs(store, gauge)

	count, err := j.sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2, got %d", count)
	}
	if want := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC); !store.gotCutoff.Equal(want) {
		t.Errorf("expected cutoff %v, got %v", want, store.gotCutoff)
	}
	if !store.listed || store.gotLimit != sweepLogLimit {
		t.Errorf("expected stale rows to be listed with limit %d", sweepLogLimit)
	}
	if len(gauge.values) != 1 || gauge.values[0] != 2 {
		t.Errorf("unexpected gauge values %v", gauge.values)
	}
}

func TestSweepWithNothingPending(t *testing.T) {
	store := &pendingStoreStub{}
	gauge := &gaugeRecorder{}
	j := newTestJobs(store, gauge)

	if _, err := j.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if store.listed {
		t.Error("should not list when count is zero")
	}
	if len(gauge.values) != 1 || gauge.values[0] != 0 {
		t.Errorf("gauge should be reset to zero, got %v", gauge.values)
	}
}

func TestSweepErrorLeavesGaugeUntouched(t *testing.T) {
	store := &pendingStoreStub{countErr: errors.New("db down")}
	gauge := &gaugeRecorder{}
	j := newTestJobs(store, gauge)

	if _, err := j.sweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(gauge.values) != 0 {
		t.Errorf("gauge should not be set on error, got %v", gauge.values)
	}

	// The cron entry point swallows the error after logging it.
	j.SweepStalePending()
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(newTestJobs(&pendingStoreStub{}, nil))
	if err := s.Start("not a schedule"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}

	s = NewScheduler(newTestJobs(&pendingStoreStub{}, nil))
	if err := s.Start("@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-s.Stop().Done()
}
