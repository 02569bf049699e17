package domain

import "context"

// RunnerPort is the public entrypoint exposed by the dead-letter module
type RunnerPort interface {
	// AddFiling records a new failure, or updates an existing entry for the
	// same filing_id (increments attempts, recomputes eligibility, backoff,
	// priority, suggested_tier). Never duplicates rows (spec.md §4.7, "Idempotence")
	AddFiling(ctx context.Context, in AddFilingInput) (Entry, error)

	// MarkProcessed records the outcome of a retry attempt served from a
	// night batch. success=true removes the entry; success=false re-runs
	// the same eligibility/backoff/priority recomputation as AddFiling
	MarkProcessed(ctx context.Context, filingID int64, success bool, failureType FailureType) error

	// GetNightBatch returns up to limit eligible entries whose next_retry
	// has elapsed and whose size is within maxSizeMB, ordered by
	// (priority desc, size asc, attempts asc, created_at asc)
	GetNightBatch(ctx context.Context, limit int, maxSizeMB float64) ([]Entry, error)
}

// AddFilingInput is the input to AddFiling
type AddFilingInput struct {
	FilingID        int64
	AccessionNumber string
	SizeMB          float64
	FailureType     FailureType
}

// StorageRepo encapsulates all storage actions the dead-letter service performs
type StorageRepo interface {
	Upsert(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, filingID int64) (*Entry, error)
	Remove(ctx context.Context, filingID int64) error
	NightBatch(ctx context.Context, limit int, maxSizeMB float64) ([]Entry, error)
}
