package domain

import "context"

// RunnerPort is the public entrypoint exposed by the metrics module
type RunnerPort interface {
	// Record updates the in-memory counters for date with the outcome of
	// one processed filing. Called only by the orchestrator, possibly from
	// several of its worker goroutines at once; implementations serialize
	// concurrent calls
	Record(date string, tier string, durationMS int64, large bool, deadLettered bool)

	// Snapshot returns a copy of the in-memory counters for date; safe for
	// concurrent readers since it never returns the live map
	Snapshot(date string) Counters

	// PersistDaily upserts the persisted daily aggregate, recomputed by the
	// caller (typically from services/filings.RunnerPort.DailyMetrics) and
	// handed in rather than queried here, keeping this module free of a
	// cross-service import
	PersistDaily(ctx context.Context, agg DailyAggregate) error
}

// StorageRepo encapsulates the storage action the metrics service performs
type StorageRepo interface {
	UpsertDaily(ctx context.Context, agg DailyAggregate) error
}
