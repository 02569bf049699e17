// Package service provides the metrics-sink implementation (C9): in-memory
// daily counters plus a persisted aggregate recompute
package service

import (
	"context"
	"sync"

	"ncsrpipe/internal/modkit/repokit"
	"ncsrpipe/internal/platform/logger"

	mdomain "ncsrpipe/internal/services/metrics/domain"
)

// Service owns the in-memory per-day counters and the persisted upsert path
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[mdomain.StorageRepo]

	mu       sync.Mutex
	counters map[string]*mdomain.Counters
}

// New constructs the metrics service
func New(db repokit.TxRunner, binder repokit.Binder[mdomain.StorageRepo]) *Service {
	if db == nil {
		panic("metrics.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("metrics.Service requires a non nil Repo binder")
	}
	return &Service{DB: db, Binder: binder, counters: map[string]*mdomain.Counters{}}
}

// Record updates the in-memory counters for date. The caller (the
// orchestrator) is the sole writer; concurrent calls are still
// synchronized by mu since night-batch retries may land on the same date
// as a backfill run in progress
func (s *Service) Record(date string, tier string, durationMS int64, large bool, deadLettered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[date]
	if !ok {
		c = &mdomain.Counters{Date: date, ByTier: map[string]int{}}
		s.counters[date] = c
	}
	c.ByTier[tier]++
	c.TotalProcessed++
	c.TotalDurationMS += durationMS
	if large {
		c.LargeFilesCount++
	}
	if deadLettered {
		c.DeadLetteredCount++
	}
}

// Snapshot returns a copy of the in-memory counters for date, or a zeroed
// Counters if nothing has been recorded yet
func (s *Service) Snapshot(date string) mdomain.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[date]
	if !ok {
		return mdomain.Counters{Date: date, ByTier: map[string]int{}}
	}
	return c.Clone()
}

// PersistDaily upserts agg into processing_metrics_daily
func (s *Service) PersistDaily(ctx context.Context, agg mdomain.DailyAggregate) error {
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).UpsertDaily(ctx, agg)
	})
	if err != nil {
		logger.C(ctx).Error().Err(err).Str("date", agg.Date).Msg("metrics: persist daily failed")
	}
	return err
}
