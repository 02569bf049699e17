package service

import (
	"testing"

	tierdom "ncsrpipe/internal/services/tier/domain"
)

func TestNewPanicsOnNonAscendingThresholds(t *testing.T) {
	cases := []tierdom.Thresholds{
		{SmallMB: 50, MediumMB: 10, LargeMB: 100},
		{SmallMB: 10, MediumMB: 50, LargeMB: 50},
		{SmallMB: 10, MediumMB: 10, LargeMB: 100},
	}
	for _, th := range cases {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("New(%+v): expected panic on non-ascending thresholds", th)
				}
			}()
			New(th)
		}()
	}
}

func TestTierForBoundaries(t *testing.T) {
	s := New(tierdom.DefaultThresholds)

	cases := []struct {
		sizeMB float64
		want   tierdom.Tier
	}{
		{0, tierdom.TierStandard},
		{9.9, tierdom.TierStandard},
		{10.0, tierdom.TierStandard}, // exactly-on-threshold: strictly-greater comparison keeps it in standard
		{10.1, tierdom.TierLimited},
		{49.9, tierdom.TierLimited},
		{50.0, tierdom.TierLimited},
		{50.1, tierdom.TierMinimal},
		{99.9, tierdom.TierMinimal},
		{100.0, tierdom.TierMinimal},
		{100.1, tierdom.TierDeadLetter},
		{500, tierdom.TierDeadLetter},
	}
	for _, c := range cases {
		if got := s.TierFor(c.sizeMB); got != c.want {
			t.Errorf("TierFor(%v) = %v, want %v", c.sizeMB, got, c.want)
		}
	}
}

func TestTierForIsMonotonicNonIncreasingInWorkPerByte(t *testing.T) {
	s := New(tierdom.DefaultThresholds)
	rank := map[tierdom.Tier]int{
		tierdom.TierStandard:   3,
		tierdom.TierLimited:    2,
		tierdom.TierMinimal:    1,
		tierdom.TierDeadLetter: 0,
	}
	sizes := []float64{0, 1, 5, 9.999, 10, 10.001, 25, 50, 50.001, 75, 100, 100.001, 1000}
	prev := rank[s.TierFor(sizes[0])]
	for _, sz := range sizes[1:] {
		cur := rank[s.TierFor(sz)]
		if cur > prev {
			t.Fatalf("tier work-per-byte rank increased from %d to %d at size %v", prev, cur, sz)
		}
		prev = cur
	}
}

func TestTimeoutPerTier(t *testing.T) {
	cases := map[tierdom.Tier]int{
		tierdom.TierStandard:   300,
		tierdom.TierLimited:    120,
		tierdom.TierMinimal:    60,
		tierdom.TierDeadLetter: 0,
	}
	for tier, wantSeconds := range cases {
		if got := tier.Timeout().Seconds(); got != float64(wantSeconds) {
			t.Errorf("%s.Timeout() = %vs, want %vs", tier, got, wantSeconds)
		}
	}
}

func TestTierForThresholdsRoundTrip(t *testing.T) {
	th := tierdom.Thresholds{SmallMB: 12, MediumMB: 48, LargeMB: 96}
	s1 := New(th)
	want := s1.TierFor(60)

	s2 := New(th)
	if got := s2.TierFor(60); got != want {
		t.Errorf("reloading identical thresholds changed tier_for(60): got %v, want %v", got, want)
	}
}
