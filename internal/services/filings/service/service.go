// Package service provides the filings persistence-layer implementation (C6)
package service

import (
	"context"
	"fmt"
	"time"

	"ncsrpipe/internal/modkit/repokit"
	"ncsrpipe/internal/platform/logger"

	pdomain "ncsrpipe/internal/adapters/parse/domain"
	fdomain "ncsrpipe/internal/services/filings/domain"
)

// Service wires TxRunner + Binder into the domain operations. Every
// top-level operation opens exactly one transaction; sessions are never
// shared across goroutines (spec.md §4.6, "Session discipline")
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[fdomain.StorageRepo]
}

// New constructs the filings service
func New(db repokit.TxRunner, binder repokit.Binder[fdomain.StorageRepo]) *Service {
	if db == nil {
		panic("filings.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("filings.Service requires a non nil Repo binder")
	}
	return &Service{DB: db, Binder: binder}
}

// EnsureFiling upserts a Filing row for a freshly discovered descriptor
func (s *Service) EnsureFiling(ctx context.Context, f fdomain.NewFiling) (int64, error) {
	var id int64
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		got, err := s.Binder.Bind(q).EnsureFiling(ctx, f)
		id = got
		return err
	})
	return id, err
}

// SetStatus updates only the processing_status column
func (s *Service) SetStatus(ctx context.Context, filingID int64, status fdomain.ProcessingStatus) error {
	return s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).SetStatus(ctx, filingID, status)
	})
}

// Save writes the full result of a parse+extraction pass for filingID
// inside a single transaction. A parse/extraction failure is recorded on
// the Filing row (processing_status=failed); Save itself only errors when
// a write inside the transaction or its commit fails
func (s *Service) Save(ctx context.Context, filingID int64, tier fdomain.Tier, result pdomain.Result) error {
	l := logger.C(ctx).With().Str("mod", "filings").Int64("filing_id", filingID).Logger()
	db := repokit.WithBeginHooks(s.DB, statementTimeoutHook(tier))
	err := db.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).Save(ctx, filingID, tier, result)
	})
	if err != nil {
		l.Error().Err(err).Msg("filings: save failed")
	}
	return err
}

// statementTimeoutHook caps how long Save's transaction may run at the same
// budget the orchestrator already gives the tier's parse step (spec.md
// §4.5), so a pathological persist on a large result can't outlast it
func statementTimeoutHook(tier fdomain.Tier) repokit.BeginHook {
	ms := statementTimeoutMS(tier)
	return func(ctx context.Context, q repokit.Queryer) error {
		if ms <= 0 {
			return nil
		}
		_, err := q.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", ms))
		return err
	}
}

func statementTimeoutMS(tier fdomain.Tier) int {
	switch tier {
	case fdomain.TierStandard:
		return 300_000
	case fdomain.TierLimited:
		return 120_000
	case fdomain.TierMinimal:
		return 60_000
	default:
		return 0
	}
}

// GetByAccession fetches a Filing by accession number
func (s *Service) GetByAccession(ctx context.Context, accession string) (*fdomain.Filing, error) {
	var f *fdomain.Filing
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		got, err := s.Binder.Bind(q).GetByAccession(ctx, accession)
		f = got
		return err
	})
	return f, err
}

// ExistingAccessions filters candidates down to those already persisted
func (s *Service) ExistingAccessions(ctx context.Context, candidates []string) (map[string]bool, error) {
	var out map[string]bool
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		got, err := s.Binder.Bind(q).ExistingAccessions(ctx, candidates)
		out = got
		return err
	})
	return out, err
}

// DailyMetrics recomputes the aggregate counters for one UTC date
func (s *Service) DailyMetrics(ctx context.Context, date time.Time) (fdomain.DailyMetrics, error) {
	var m fdomain.DailyMetrics
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		got, err := s.Binder.Bind(q).DailyMetrics(ctx, date)
		m = got
		return err
	})
	return m, err
}

// LogOperation appends one ProcessingLog row on its own Queryer, outside
// any Save transaction, so a stage log survives a later stage's rollback
func (s *Service) LogOperation(ctx context.Context, filingID int64, operation string, status fdomain.LogStatus, message string, executionTimeMS int64) error {
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).LogOperation(ctx, filingID, operation, status, message, executionTimeMS)
	})
	if err != nil {
		logger.C(ctx).Warn().Err(err).Int64("filing_id", filingID).Str("operation", operation).Msg("filings: log operation failed")
	}
	return err
}

// Cleanup deletes filings older than retentionDays, cascading to children
func (s *Service) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	var n int64
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		got, err := s.Binder.Bind(q).Cleanup(ctx, retentionDays)
		n = got
		return err
	})
	return n, err
}
