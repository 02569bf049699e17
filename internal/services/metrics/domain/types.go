// Package domain defines the metrics-sink core ports and types (C9):
// in-memory daily counters plus the persisted aggregate recomputed from
// ProcessingResult rows. Pure reporting; no feedback into routing
// (spec.md §4.9)
package domain

// DailyAggregate mirrors services/filings/domain.DailyMetrics by value, so
// this package has no import-time dependency on the filings service. It is
// the row shape of processing_metrics_daily, recomputed (never incremented)
// from persisted ProcessingResult rows
type DailyAggregate struct {
	Date             string
	TotalFilings     int
	CompletedFilings int
	FailedFilings    int
	DeadLetterCount  int
	AvgDurationMS    float64
	TotalXBRLFacts   int
}

// Counters are in-memory per-day counters. They are mutated only through
// the metrics service's Record, which the orchestrator's worker goroutines
// call under the service's mutex; readers take a snapshot copy rather than
// touching the live map (spec.md §5, "Shared resources: In-memory metrics
// counters")
type Counters struct {
	Date              string
	ByTier            map[string]int
	TotalProcessed    int
	TotalDurationMS   int64
	LargeFilesCount   int
	DeadLetteredCount int
}

// clone returns a deep copy of c safe for a reader to keep indefinitely
func (c Counters) clone() Counters {
	cp := c
	cp.ByTier = make(map[string]int, len(c.ByTier))
	for k, v := range c.ByTier {
		cp.ByTier[k] = v
	}
	return cp
}

// Clone is the exported form of clone, used by the service's snapshot path
func (c Counters) Clone() Counters { return c.clone() }
