// Package repo implements the metrics storage repository against Postgres
// with hand-written SQL, following the same pgStore shape as
// services/filings/repo and services/deadletter/repo
package repo

import (
	"context"
	"fmt"

	"ncsrpipe/internal/modkit/repokit"

	mdomain "ncsrpipe/internal/services/metrics/domain"
)

// NewPG returns a binder producing a Postgres-backed StorageRepo
func NewPG() repokit.Binder[mdomain.StorageRepo] {
	return repokit.BindFunc[mdomain.StorageRepo](func(q repokit.Queryer) mdomain.StorageRepo {
		return &pgStore{q: q}
	})
}

type pgStore struct{ q repokit.Queryer }

// UpsertDaily inserts or replaces the processing_metrics_daily row for
// agg.Date; this is a recompute, not an increment, so every field is
// simply overwritten (spec.md §4.9, "recomputed from ProcessingResult rows")
func (s *pgStore) UpsertDaily(ctx context.Context, agg mdomain.DailyAggregate) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO processing_metrics_daily (
			date, total_filings, completed_filings, failed_filings,
			dead_letter_count, avg_duration_ms, total_xbrl_facts
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date) DO UPDATE SET
			total_filings      = EXCLUDED.total_filings,
			completed_filings  = EXCLUDED.completed_filings,
			failed_filings     = EXCLUDED.failed_filings,
			dead_letter_count  = EXCLUDED.dead_letter_count,
			avg_duration_ms    = EXCLUDED.avg_duration_ms,
			total_xbrl_facts   = EXCLUDED.total_xbrl_facts`,
		agg.Date, agg.TotalFilings, agg.CompletedFilings, agg.FailedFilings,
		agg.DeadLetterCount, agg.AvgDurationMS, agg.TotalXBRLFacts,
	)
	if err != nil {
		return fmt.Errorf("metrics: upsert daily %s: %w", agg.Date, err)
	}
	return nil
}
