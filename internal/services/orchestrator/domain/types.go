// Package domain defines the orchestrator's core ports and types (C8): the
// per-date and per-batch drivers that compose C1-C7 and C9 into the
// process-filing path described in spec.md §4.8
package domain

// Descriptor is the subset of a discovered filing the orchestrator needs to
// drive one process-filing attempt; mirrors adapters/edgarindex.Descriptor
// by value so this package has no import-time dependency on that adapter
type Descriptor struct {
	AccessionNumber string
	CIK             string
	CompanyName     string
	FormType        string
	FilingDate      string
	SourceURL       string
}

// Summary reports the outcome of one date's run
type Summary struct {
	Date            string
	Discovered      int
	SkippedExisting int
	Attempted       int
	Completed       int
	Failed          int
	DeadLettered    int
}

// NightBatchSummary reports the outcome of one night-batch retry run
type NightBatchSummary struct {
	Served       int
	Completed    int
	Failed       int
	StillEligible int
}
