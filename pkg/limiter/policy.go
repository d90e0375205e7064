package limiter

import "math"

// policy is the pacing strategy of a Limiter. The accounting core in
// limiter.go knows nothing about a policy beyond these four hooks; Bursty
// and WarmingUp are the only two realizations, selected at construction and
// never switched afterward.
type policy interface {
	// initialStoredPermits returns the stored-permits level a freshly
	// (re)configured limiter starts at, given the just-computed
	// maxPermits.
	initialStoredPermits(maxPermits float64) float64

	// steadyStateMaxPermits recomputes the policy's derived fields from
	// the new rate and stable interval, and returns the new maxPermits.
	steadyStateMaxPermits(ratePerSecond, stableIntervalMicros float64) float64

	// storedPermitsToWaitTime integrates the throttling cost of spending
	// the top `take` permits out of a pool of `stored`. Always
	// 0 <= take <= stored.
	storedPermitsToWaitTime(stored, take, stableIntervalMicros float64) int64

	// coolDownIntervalMicros is the time cost of accruing one stored
	// permit while idle, given the current maxPermits.
	coolDownIntervalMicros(stableIntervalMicros, maxPermits float64) float64
}

// burstyPolicy grants stored permits for free: the entire throttling cost of
// a request comes from its fresh-permit term. Stored permits accrue at the
// same rate they're spent, bounded by maxBurstSeconds worth of permits.
type burstyPolicy struct {
	maxBurstSeconds float64
}

func (p *burstyPolicy) initialStoredPermits(maxPermits float64) float64 {
	return 0
}

func (p *burstyPolicy) steadyStateMaxPermits(ratePerSecond, stableIntervalMicros float64) float64 {
	return p.maxBurstSeconds * ratePerSecond
}

func (p *burstyPolicy) storedPermitsToWaitTime(stored, take, stableIntervalMicros float64) int64 {
	return 0
}

func (p *burstyPolicy) coolDownIntervalMicros(stableIntervalMicros, maxPermits float64) float64 {
	return stableIntervalMicros
}

// warmingUpPolicy makes stored permits progressively more expensive the more
// of them are held, so that emerging from a cold state ramps up to full
// speed over warmupPeriodMicros instead of serving a burst at full rate.
type warmingUpPolicy struct {
	warmupPeriodMicros float64
	coldFactor         float64

	// Recomputed on every steadyStateMaxPermits call.
	thresholdPermits float64
	slope            float64
}

func (p *warmingUpPolicy) initialStoredPermits(maxPermits float64) float64 {
	return maxPermits
}

func (p *warmingUpPolicy) steadyStateMaxPermits(ratePerSecond, stableIntervalMicros float64) float64 {
	coldIntervalMicros := stableIntervalMicros * p.coldFactor
	p.thresholdPermits = 0.5 * p.warmupPeriodMicros / stableIntervalMicros
	maxPermits := p.thresholdPermits + 2.0*p.warmupPeriodMicros/(stableIntervalMicros+coldIntervalMicros)
	p.slope = (coldIntervalMicros - stableIntervalMicros) / (maxPermits - p.thresholdPermits)
	return maxPermits
}

// permitsToTime evaluates I(s) = stableInterval + s*slope, where s is
// measured as the amount of stored permits above thresholdPermits.
func (p *warmingUpPolicy) permitsToTime(permitsAboveThreshold, stableIntervalMicros float64) float64 {
	return stableIntervalMicros + permitsAboveThreshold*p.slope
}

// storedPermitsToWaitTime prices the above-threshold trapezoid for the
// portion of take lying above thresholdPermits, then adds the flat-region
// cost — stableIntervalMicros per permit — for whatever's left of take. Only
// fresh permits (priced separately, by the accounting core's fresh-permits
// term) are ever free; stored permits are not, regardless of which side of
// thresholdPermits they sit on.
func (p *warmingUpPolicy) storedPermitsToWaitTime(stored, take, stableIntervalMicros float64) int64 {
	availableAboveThreshold := stored - p.thresholdPermits
	var micros float64
	aboveThresholdToTake := 0.0
	if availableAboveThreshold > 0 {
		aboveThresholdToTake = math.Min(availableAboveThreshold, take)
		micros = aboveThresholdToTake * (p.permitsToTime(availableAboveThreshold, stableIntervalMicros) +
			p.permitsToTime(availableAboveThreshold-aboveThresholdToTake, stableIntervalMicros)) / 2.0
	}
	remainingTake := take - aboveThresholdToTake
	micros += stableIntervalMicros * remainingTake
	return int64(micros)
}

func (p *warmingUpPolicy) coolDownIntervalMicros(stableIntervalMicros, maxPermits float64) float64 {
	return p.warmupPeriodMicros / maxPermits
}
