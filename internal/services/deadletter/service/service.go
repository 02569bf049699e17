// Package service provides the dead-letter-queue implementation (C7)
package service

import (
	"context"
	"time"

	"ncsrpipe/internal/modkit/repokit"
	"ncsrpipe/internal/platform/logger"

	ddomain "ncsrpipe/internal/services/deadletter/domain"
)

// Service wires TxRunner + Binder into the DLQ operations
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[ddomain.StorageRepo]

	// now is overridable for deterministic tests
	now func() time.Time
}

// New constructs the dead-letter-queue service
func New(db repokit.TxRunner, binder repokit.Binder[ddomain.StorageRepo]) *Service {
	if db == nil {
		panic("deadletter.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("deadletter.Service requires a non nil Repo binder")
	}
	return &Service{DB: db, Binder: binder, now: time.Now}
}

// AddFiling records a new failure or updates an existing entry for the same
// filing_id, recomputing eligibility, backoff, priority, and suggested tier
// from the post-increment attempt count
func (s *Service) AddFiling(ctx context.Context, in ddomain.AddFilingInput) (ddomain.Entry, error) {
	now := s.now()
	var out ddomain.Entry
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		attempts := 1
		if existing, _ := repo.Get(ctx, in.FilingID); existing != nil {
			attempts = existing.Attempts + 1
		}

		e := ddomain.Entry{
			FilingID:        in.FilingID,
			AccessionNumber: in.AccessionNumber,
			SizeMB:          in.SizeMB,
			Attempts:        attempts,
			FailureType:     in.FailureType,
			Priority:        ddomain.Priority(in.SizeMB, in.FailureType),
		}
		applyRetrySchedule(&e, now, attempts, in.SizeMB, in.FailureType)
		got, err := repo.Upsert(ctx, e)
		out = got
		return err
	})
	if err != nil {
		logger.C(ctx).Error().Err(err).Int64("filing_id", in.FilingID).Msg("deadletter: add filing failed")
	}
	return out, err
}

// MarkProcessed records the outcome of a night-batch retry attempt.
// success=true removes the entry (spec.md §4.7 state diagram, "eligible
// pending" → removed). success=false re-derives the entry exactly as
// AddFiling would, given the existing attempt count plus one
func (s *Service) MarkProcessed(ctx context.Context, filingID int64, success bool, failureType ddomain.FailureType) error {
	if success {
		return s.DB.Tx(ctx, func(q repokit.Queryer) error {
			return s.Binder.Bind(q).Remove(ctx, filingID)
		})
	}

	return s.DB.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		existing, err := repo.Get(ctx, filingID)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil
		}
		now := s.now()
		attempts := existing.Attempts + 1
		e := ddomain.Entry{
			FilingID:        existing.FilingID,
			AccessionNumber: existing.AccessionNumber,
			SizeMB:          existing.SizeMB,
			Attempts:        attempts,
			FailureType:     failureType,
			Priority:        ddomain.Priority(existing.SizeMB, failureType),
		}
		applyRetrySchedule(&e, now, attempts, existing.SizeMB, failureType)
		_, err = repo.Upsert(ctx, e)
		return err
	})
}

// applyRetrySchedule computes RetryEligible and, only when eligible, the
// NextRetry/SuggestedTier to go with it. An exhausted entry has nothing to
// schedule or suggest a tier for (spec.md §4.7 state diagram, "exhausted:
// retry_eligible=false, next_retry=null"), so both are left nil rather than
// computed and discarded
func applyRetrySchedule(e *ddomain.Entry, now time.Time, attempts int, sizeMB float64, failureType ddomain.FailureType) {
	e.RetryEligible = ddomain.Eligible(attempts, sizeMB, failureType)
	if !e.RetryEligible {
		e.NextRetry = nil
		e.SuggestedTier = nil
		return
	}
	nextRetry := ddomain.Backoff(now, attempts)
	suggested := ddomain.SuggestTier(failureType, sizeMB, attempts)
	e.NextRetry = &nextRetry
	e.SuggestedTier = &suggested
}

// GetNightBatch returns up to limit eligible entries ready for retry
func (s *Service) GetNightBatch(ctx context.Context, limit int, maxSizeMB float64) ([]ddomain.Entry, error) {
	var out []ddomain.Entry
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		got, err := s.Binder.Bind(q).NightBatch(ctx, limit, maxSizeMB)
		out = got
		return err
	})
	return out, err
}
