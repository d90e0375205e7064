package limiter

import "testing"

// newWarmingUpPolicyForTest builds a warmingUpPolicy with its derived fields
// (thresholdPermits, slope) populated, the way NewWarmingUp -> SetRate ->
// doSetRate does via steadyStateMaxPermits.
func newWarmingUpPolicyForTest(ratePerSecond, warmupPeriodMicros, coldFactor float64) (*warmingUpPolicy, float64) {
	p := &warmingUpPolicy{warmupPeriodMicros: warmupPeriodMicros, coldFactor: coldFactor}
	stableIntervalMicros := 1e6 / ratePerSecond
	maxPermits := p.steadyStateMaxPermits(ratePerSecond, stableIntervalMicros)
	return p, maxPermits
}

// At the threshold, the instantaneous interval must equal stableInterval
// from both sides: this is the defining boundary condition of the
// trapezoid/flat split, and it's what makes the linear segment continuous
// with the flat region below it.
func TestWarmingUpPolicy_ContinuousAtThreshold(t *testing.T) {
	p, _ := newWarmingUpPolicyForTest(1, 2_000_000, 3)
	got := p.permitsToTime(0, 1e6)
	if got != 1e6 {
		t.Errorf("permitsToTime(0) = %v, want stableIntervalMicros = 1e6", got)
	}
}

// At maxPermits (i.e. maxPermits - thresholdPermits above the threshold), the
// instantaneous interval must equal coldIntervalMicros = stableInterval *
// coldFactor.
func TestWarmingUpPolicy_ColdIntervalAtMax(t *testing.T) {
	p, maxPermits := newWarmingUpPolicyForTest(1, 2_000_000, 3)
	aboveThreshold := maxPermits - p.thresholdPermits
	got := p.permitsToTime(aboveThreshold, 1e6)
	want := 1e6 * 3
	if got != want {
		t.Errorf("permitsToTime(maxPermits) = %v, want %v", got, want)
	}
}

// A take entirely below thresholdPermits still costs stableIntervalMicros
// per permit — stored permits are never free, only fresh ones are (and
// those are priced separately, by the accounting core's fresh-permits
// term).
func TestWarmingUpPolicy_BelowThresholdCostsFlatRate(t *testing.T) {
	p, _ := newWarmingUpPolicyForTest(1, 2_000_000, 3)
	stable := 1e6
	take := p.thresholdPermits
	got := p.storedPermitsToWaitTime(p.thresholdPermits, take, stable)
	want := int64(stable * take)
	if got != want {
		t.Errorf("storedPermitsToWaitTime entirely below threshold = %v, want %v", got, want)
	}
}

// A take that straddles thresholdPermits must cost the above-threshold
// trapezoid plus stableIntervalMicros for each permit of the take that
// falls at or below the threshold — mirroring Guava's
// storedPermitsToWaitTime, which always adds stableIntervalMicros times the
// leftover permitsToTake after subtracting the above-threshold slice.
func TestWarmingUpPolicy_StraddlingThresholdAddsFlatRemainder(t *testing.T) {
	p, maxPermits := newWarmingUpPolicyForTest(1, 2_000_000, 3)
	stable := 1e6

	stored := maxPermits // 2.0, with threshold 1.0
	aboveThreshold := stored - p.thresholdPermits
	take := maxPermits // straddles: 1.0 above threshold, 1.0 below

	straddling := p.storedPermitsToWaitTime(stored, take, stable)
	aboveOnly := p.storedPermitsToWaitTime(stored, aboveThreshold, stable)
	want := aboveOnly + int64(stable*(take-aboveThreshold))
	if straddling != want {
		t.Errorf("straddling take cost %d, want %d (above-threshold trapezoid + flat remainder)", straddling, want)
	}
}

func TestBurstyPolicy_StoredPermitsAreFree(t *testing.T) {
	p := &burstyPolicy{maxBurstSeconds: 5}
	if got := p.storedPermitsToWaitTime(100, 50, 1e6); got != 0 {
		t.Errorf("burstyPolicy.storedPermitsToWaitTime = %d, want 0", got)
	}
}

func TestBurstyPolicy_CoolDownEqualsStableInterval(t *testing.T) {
	p := &burstyPolicy{maxBurstSeconds: 5}
	if got := p.coolDownIntervalMicros(200000, 999); got != 200000 {
		t.Errorf("burstyPolicy.coolDownIntervalMicros = %v, want 200000", got)
	}
}

func TestWarmingUpPolicy_CoolDownSpreadsWarmupOverMaxPermits(t *testing.T) {
	p, maxPermits := newWarmingUpPolicyForTest(1, 2_000_000, 3)
	got := p.coolDownIntervalMicros(1e6, maxPermits)
	want := 2_000_000.0 / maxPermits
	if got != want {
		t.Errorf("coolDownIntervalMicros = %v, want %v", got, want)
	}
}
