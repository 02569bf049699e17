// Package repo implements the dead-letter-queue storage repository against
// Postgres with hand-written SQL, modeled on the teacher's utterances/repo
// dynamic-argument style
package repo

import (
	"context"
	"fmt"

	"ncsrpipe/internal/modkit/repokit"

	ddomain "ncsrpipe/internal/services/deadletter/domain"
)

// NewPG returns a binder producing a Postgres-backed StorageRepo
func NewPG() repokit.Binder[ddomain.StorageRepo] {
	return repokit.BindFunc[ddomain.StorageRepo](func(q repokit.Queryer) ddomain.StorageRepo {
		return &pgStore{q: q}
	})
}

type pgStore struct{ q repokit.Queryer }

// Upsert inserts or updates the dead-letter row for e.FilingID and returns
// the row as persisted (ON CONFLICT DO UPDATE never duplicates, per
// spec.md §4.7 "Idempotence")
func (s *pgStore) Upsert(ctx context.Context, e ddomain.Entry) (ddomain.Entry, error) {
	var out ddomain.Entry
	var failureType string
	var suggestedTier *string
	err := s.q.QueryRow(ctx, `
		INSERT INTO dead_letter_queue (
			filing_id, accession_number, size_mb, attempts, failure_type,
			retry_eligible, next_retry, priority, suggested_tier, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (filing_id) DO UPDATE SET
			size_mb        = EXCLUDED.size_mb,
			attempts       = EXCLUDED.attempts,
			failure_type   = EXCLUDED.failure_type,
			retry_eligible = EXCLUDED.retry_eligible,
			next_retry     = EXCLUDED.next_retry,
			priority       = EXCLUDED.priority,
			suggested_tier = EXCLUDED.suggested_tier,
			updated_at     = now()
		RETURNING filing_id, accession_number, size_mb, attempts, failure_type,
		          retry_eligible, next_retry, priority, suggested_tier, created_at, updated_at`,
		e.FilingID, e.AccessionNumber, e.SizeMB, e.Attempts, string(e.FailureType),
		e.RetryEligible, e.NextRetry, e.Priority, suggestedTierArg(e.SuggestedTier),
	).Scan(
		&out.FilingID, &out.AccessionNumber, &out.SizeMB, &out.Attempts, &failureType,
		&out.RetryEligible, &out.NextRetry, &out.Priority, &suggestedTier,
		&out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return ddomain.Entry{}, fmt.Errorf("deadletter: upsert filing %d: %w", e.FilingID, err)
	}
	out.FailureType = ddomain.FailureType(failureType)
	out.SuggestedTier = suggestedTierPtr(suggestedTier)
	return out, nil
}

// suggestedTierArg converts a nullable domain SuggestedTier into a query
// argument, preserving NULL when the entry is exhausted (t == nil)
func suggestedTierArg(t *ddomain.SuggestedTier) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

// suggestedTierPtr converts a nullable suggested_tier column back into a
// domain SuggestedTier pointer
func suggestedTierPtr(s *string) *ddomain.SuggestedTier {
	if s == nil {
		return nil
	}
	t := ddomain.SuggestedTier(*s)
	return &t
}

// Get fetches the dead-letter row for filingID, or (nil, nil) if absent
func (s *pgStore) Get(ctx context.Context, filingID int64) (*ddomain.Entry, error) {
	var e ddomain.Entry
	var failureType string
	var suggestedTier *string
	err := s.q.QueryRow(ctx, `
		SELECT filing_id, accession_number, size_mb, attempts, failure_type,
		       retry_eligible, next_retry, priority, suggested_tier, created_at, updated_at
		FROM dead_letter_queue WHERE filing_id = $1`,
		filingID,
	).Scan(
		&e.FilingID, &e.AccessionNumber, &e.SizeMB, &e.Attempts, &failureType,
		&e.RetryEligible, &e.NextRetry, &e.Priority, &suggestedTier,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, nil
	}
	e.FailureType = ddomain.FailureType(failureType)
	e.SuggestedTier = suggestedTierPtr(suggestedTier)
	return &e, nil
}

// Remove deletes the dead-letter row for filingID (a successful retry)
func (s *pgStore) Remove(ctx context.Context, filingID int64) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM dead_letter_queue WHERE filing_id = $1`, filingID); err != nil {
		return fmt.Errorf("deadletter: remove filing %d: %w", filingID, err)
	}
	return nil
}

// NightBatch returns up to limit eligible entries ready for retry, ordered
// per spec.md §4.7 "Night-batch selection"
func (s *pgStore) NightBatch(ctx context.Context, limit int, maxSizeMB float64) ([]ddomain.Entry, error) {
	rows, err := s.q.Query(ctx, `
		SELECT filing_id, accession_number, size_mb, attempts, failure_type,
		       retry_eligible, next_retry, priority, suggested_tier, created_at, updated_at
		FROM dead_letter_queue
		WHERE retry_eligible
		  AND next_retry <= now()
		  AND attempts < $1
		  AND size_mb <= $2
		ORDER BY priority DESC, size_mb ASC, attempts ASC, created_at ASC
		LIMIT $3`,
		ddomain.MaxAttempts, maxSizeMB, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("deadletter: night batch: %w", err)
	}
	defer rows.Close()

	var out []ddomain.Entry
	for rows.Next() {
		var e ddomain.Entry
		var failureType string
		var suggestedTier *string
		if err := rows.Scan(
			&e.FilingID, &e.AccessionNumber, &e.SizeMB, &e.Attempts, &failureType,
			&e.RetryEligible, &e.NextRetry, &e.Priority, &suggestedTier,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("deadletter: scan night batch row: %w", err)
		}
		e.FailureType = ddomain.FailureType(failureType)
		e.SuggestedTier = suggestedTierPtr(suggestedTier)
		out = append(out, e)
	}
	return out, rows.Err()
}
