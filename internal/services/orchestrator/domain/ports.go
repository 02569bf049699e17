package domain

import (
	"context"
	"time"

	pdomain "ncsrpipe/internal/adapters/parse/domain"
	tierdomain "ncsrpipe/internal/services/tier/domain"
)

// Discoverer finds the filing descriptors published for a date; satisfied
// by adapters/edgarindex.Source
type Discoverer interface {
	FilingsFor(ctx context.Context, date time.Time, formTypes []string) ([]Descriptor, error)
}

// Sizer reports a filing's size in megabytes without downloading its body;
// satisfied by adapters/secfetch.Client.Size
type Sizer interface {
	Size(ctx context.Context, url string) (mb float64, ok bool, err error)
}

// BodyFetcher downloads a filing's full body; satisfied by
// adapters/secfetch.Client.Fetch
type BodyFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Parser runs the parse pipeline over raw filing bytes; satisfied by
// adapters/parse.Pipeline
type Parser interface {
	Parse(raw []byte) pdomain.Result
}

// TierRouter assigns a processing tier by filing size; satisfied by
// services/tier/service.Service
type TierRouter interface {
	TierFor(sizeMB float64) tierdomain.Tier
}

// ExtractFunc depth-varies a parsed Result by tier; satisfied by
// services/extraction.Apply
type ExtractFunc func(tier tierdomain.Tier, raw []byte, result pdomain.Result) pdomain.Result

// RunnerPort is the public entrypoint exposed by the orchestrator module
type RunnerPort interface {
	// RunDate discovers and processes every filing published for date that
	// matches formTypes (empty means all form types). maxFilings caps how
	// many of the discovered-and-not-yet-persisted filings are attempted;
	// 0 means unlimited
	RunDate(ctx context.Context, date time.Time, formTypes []string, maxFilings int) (Summary, error)

	// RunBackfill runs RunDate for every day in [start, end], inclusive
	RunBackfill(ctx context.Context, start, end time.Time, formTypes []string, maxFilings int) ([]Summary, error)

	// RunNightBatch serves up to limit eligible dead-letter entries within
	// maxSizeMB, reprocessing each at its suggested tier
	RunNightBatch(ctx context.Context, limit int, maxSizeMB float64) (NightBatchSummary, error)

	// Cleanup deletes filings (and their dead-letter entries) older than
	// retentionDays
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}
