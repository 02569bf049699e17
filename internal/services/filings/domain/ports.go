package domain

import (
	"context"
	"time"

	pdomain "ncsrpipe/internal/adapters/parse/domain"
)

// RunnerPort is the public entrypoint exposed by the filings module
type RunnerPort interface {
	// Save updates the Filing row for filingID and, inside one transaction,
	// writes its full set of child records derived from result. Returns an
	// error when a write or the transaction fails; parser/extraction failures
	// are recorded on the Filing row, not surfaced as a Save error (spec.md §4.6)
	Save(ctx context.Context, filingID int64, tier Tier, result pdomain.Result) error

	// EnsureFiling upserts the Filing row for a freshly discovered
	// descriptor, returning its id. Safe to call before parsing so a
	// filing_id exists for DLQ bookkeeping even if parsing later fails
	EnsureFiling(ctx context.Context, f NewFiling) (int64, error)

	// SetStatus updates only the processing_status column, independent of
	// Save. Used by the orchestrator to mark a filing processing before a
	// fetch/parse attempt, and to mark it dead_letter on the DLQ's behalf
	// after an exhausted or file-too-large entry is recorded (spec.md §9,
	// "C7's insert is the sole writer of that status; C6 must not set it" —
	// Save itself never writes dead_letter; only this explicit call does,
	// and only ever at the orchestrator's direction after consulting C7)
	SetStatus(ctx context.Context, filingID int64, status ProcessingStatus) error

	// GetByAccession fetches a Filing by accession number; its child records
	// are not loaded
	GetByAccession(ctx context.Context, accession string) (*Filing, error)

	// ExistingAccessions returns the subset of candidates already persisted,
	// used by the orchestrator to filter discovered descriptors
	ExistingAccessions(ctx context.Context, candidates []string) (map[string]bool, error)

	// DailyMetrics recomputes the aggregate counters for one UTC date
	DailyMetrics(ctx context.Context, date time.Time) (DailyMetrics, error)

	// Cleanup deletes Filing rows (and cascading children) older than
	// retentionDays, returning the number of filings removed
	Cleanup(ctx context.Context, retentionDays int) (int64, error)

	// LogOperation appends one ProcessingLog row recording the outcome of a
	// single pipeline stage (fetch/parse/persist) for filingID. Best-effort:
	// callers log and continue on error rather than failing the stage over
	// an observability write (spec.md §7, "a single filing's failure is
	// isolated"; this supplements that, it never causes one)
	LogOperation(ctx context.Context, filingID int64, operation string, status LogStatus, message string, executionTimeMS int64) error
}

// NewFiling is the minimal shape needed to upsert a Filing row before
// parsing begins
type NewFiling struct {
	AccessionNumber string
	CIK             string
	CompanyName     string
	FormType        string
	FilingDate      string
	SizeMB          float64
	SourceURL       string
}

// StorageRepo encapsulates all storage actions the filings service performs
type StorageRepo interface {
	EnsureFiling(ctx context.Context, f NewFiling) (int64, error)
	SetStatus(ctx context.Context, filingID int64, status ProcessingStatus) error
	Save(ctx context.Context, filingID int64, tier Tier, result pdomain.Result) error
	GetByAccession(ctx context.Context, accession string) (*Filing, error)
	ExistingAccessions(ctx context.Context, candidates []string) (map[string]bool, error)
	DailyMetrics(ctx context.Context, date time.Time) (DailyMetrics, error)
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
	LogOperation(ctx context.Context, filingID int64, operation string, status LogStatus, message string, executionTimeMS int64) error
}
