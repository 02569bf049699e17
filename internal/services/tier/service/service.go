// Package service implements the processing-tier router
package service

import (
	"fmt"

	tierdom "ncsrpipe/internal/services/tier/domain"
)

// Service routes filings to a processing tier by document size
type Service struct {
	th tierdom.Thresholds
}

// New validates the thresholds and constructs a Service.
// Thresholds must be strictly ascending (Small < Medium < Large); a
// misconfigured boundary is a programmer error and panics at construction
// rather than silently misrouting filings
func New(th tierdom.Thresholds) *Service {
	if !(th.SmallMB < th.MediumMB && th.MediumMB < th.LargeMB) {
		panic(fmt.Sprintf("tier: thresholds must be strictly ascending, got small=%v medium=%v large=%v",
			th.SmallMB, th.MediumMB, th.LargeMB))
	}
	return &Service{th: th}
}

// TierFor reports the tier for a filing of the given size in megabytes
func (s *Service) TierFor(sizeMB float64) tierdom.Tier {
	switch {
	case sizeMB <= s.th.SmallMB:
		return tierdom.TierStandard
	case sizeMB <= s.th.MediumMB:
		return tierdom.TierLimited
	case sizeMB <= s.th.LargeMB:
		return tierdom.TierMinimal
	default:
		return tierdom.TierDeadLetter
	}
}
