// Package domain defines the dead-letter queue core ports and types (C7):
// retry-eligibility scoring, priority, and exponential backoff over failed
// filings. Grounded on original_source/sec_extractor/storage/dead_letter_queue.py
package domain

import "time"

// FailureType classifies why a filing was routed to the DLQ
type FailureType string

const (
	FailureNetwork     FailureType = "network"
	FailureTemporary   FailureType = "temporary"
	FailureMemory      FailureType = "memory"
	FailureTimeout     FailureType = "timeout"
	FailureParsing     FailureType = "parsing"
	FailureProcessing  FailureType = "processing"
	FailureFileTooLarge FailureType = "file_too_large"
	FailureUnknown     FailureType = "unknown"
)

// SuggestedTier names the tier the next retry attempt should use; mirrors
// services/filings/domain.Tier by value to avoid a cross-service import
type SuggestedTier string

const (
	SuggestedStandard SuggestedTier = "standard"
	SuggestedLimited  SuggestedTier = "limited"
	SuggestedMinimal  SuggestedTier = "minimal"
)

// Entry is one dead-letter-queue row, keyed by filing_id
type Entry struct {
	FilingID        int64
	AccessionNumber string
	SizeMB          float64

	// FailureReason is a free-text description of the triggering error,
	// e.g. an error's Error() string; FailureType is the fixed enum
	// classification used for eligibility and priority
	FailureReason string

	// OriginalTier is the tier the filing was attempted at when it failed
	// (empty for file_too_large, which is routed here without an attempt)
	OriginalTier string

	Attempts    int
	FailureType FailureType

	MaxAttempts int

	RetryEligible bool
	LastAttempt   time.Time

	// NextRetry and SuggestedTier are nil once an entry is exhausted
	// (RetryEligible=false): spec.md §4.7's state diagram has no next
	// attempt to schedule or suggest a tier for, so neither is computed
	// (original_source/.../dead_letter_queue.py sets next_retry=None,
	// suggested_tier=None on the same branch)
	NextRetry     *time.Time
	Priority      int
	SuggestedTier *SuggestedTier

	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	// MaxAttempts is the hard ceiling on retry attempts, independent of
	// eligibility; night batches never serve an entry at or past this
	MaxAttempts = 5

	maxBackoffHours = 192
)

// Eligible evaluates the fixed eligibility rules from spec.md §4.7, in order
func Eligible(attempts int, sizeMB float64, failureType FailureType) bool {
	switch {
	case attempts >= MaxAttempts:
		return false
	case sizeMB > 100:
		return false
	case sizeMB > 50 && attempts >= 2:
		return false
	case failureType == FailureMemory && sizeMB > 25:
		return false
	case failureType == FailureParsing && attempts >= 3:
		return false
	default:
		return true
	}
}

// Backoff computes next_retry = now + min(24*2^(attempts-1), 192) hours.
// attempts must be ≥ 1 (the count after the triggering failure is recorded)
func Backoff(now time.Time, attempts int) time.Time {
	hours := backoffHours(attempts)
	return now.Add(time.Duration(hours) * time.Hour)
}

func backoffHours(attempts int) int {
	if attempts < 1 {
		attempts = 1
	}
	h := 24
	for i := 1; i < attempts; i++ {
		h *= 2
		if h >= maxBackoffHours {
			return maxBackoffHours
		}
	}
	if h > maxBackoffHours {
		return maxBackoffHours
	}
	return h
}

// SuggestTier picks the tier the next retry attempt should use
func SuggestTier(failureType FailureType, sizeMB float64, attempts int) SuggestedTier {
	switch {
	case failureType == FailureMemory, sizeMB > 30:
		return SuggestedMinimal
	case attempts >= 2, sizeMB > 15:
		return SuggestedLimited
	default:
		return SuggestedStandard
	}
}

// Priority computes the 1..5 priority score
func Priority(sizeMB float64, failureType FailureType) int {
	p := 1
	switch {
	case sizeMB < 5:
		p += 2
	case sizeMB < 15:
		p += 1
	}
	switch failureType {
	case FailureNetwork, FailureTemporary:
		p++
	case FailureMemory, FailureTimeout:
		p--
	}
	if p < 1 {
		p = 1
	}
	if p > 5 {
		p = 5
	}
	return p
}
