package limiter

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
)

// MetricsRecorder receives observations from a Limiter. It mirrors a
// dogstatsd-style client: Add for counters, Observe for timings/histograms.
// A nil Recorder on a Limiter is never dereferenced — NoOpMetricsRecorder is
// used instead, so the hot path never has to branch on nil.
type MetricsRecorder interface {
	Add(name string, value float64, tags map[string]string)
	Observe(name string, value float64, tags map[string]string)
}

// Limiter paces the issuance of permits so that, averaged over time, the
// rate of issuance never exceeds the configured rate. It is safe for
// concurrent use by multiple goroutines.
//
// All mutable state is guarded by mu. Acquire and TryAcquire reserve a slot
// while holding mu, then release it before sleeping, so that other callers
// can reserve (and begin sleeping for) their own slots concurrently.
type Limiter struct {
	mu sync.Mutex

	clock    Clock
	policy   policy
	recorder MetricsRecorder
	log      *zap.Logger

	storedPermits        float64
	maxPermits           float64
	stableIntervalMicros float64
	nextFreeTicketMicros int64
	ratePerSecond        float64
}

// Option configures a Limiter at construction time.
type Option func(*Limiter)

// WithClock overrides the default SystemClock. Intended for tests and for
// embedding a Limiter behind a simulated or virtual clock.
func WithClock(c Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithMetrics attaches a MetricsRecorder. Without this option, metrics are
// discarded by NoOpMetricsRecorder.
func WithMetrics(r MetricsRecorder) Option {
	return func(l *Limiter) {
		if r != nil {
			l.recorder = r
		}
	}
}

// WithLogger attaches a structured logger. Without this option, a no-op
// logger is used.
func WithLogger(log *zap.Logger) Option {
	return func(l *Limiter) { l.log = log }
}

func newLimiter(p policy, opts ...Option) *Limiter {
	l := &Limiter{
		clock:      NewSystemClock(),
		policy:     p,
		recorder:   &NoOpMetricsRecorder{},
		log:        zap.NewNop(),
		maxPermits: math.Inf(1), // sentinel: never configured
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewBursty creates a Limiter using the Bursty pacing policy: stored permits
// are free, and up to maxBurstSeconds worth of permits at ratePerSecond may
// accumulate during idleness.
func NewBursty(ratePerSecond, maxBurstSeconds float64, opts ...Option) (*Limiter, error) {
	if maxBurstSeconds <= 0 {
		return nil, ErrInvalidBurst
	}
	l := newLimiter(&burstyPolicy{maxBurstSeconds: maxBurstSeconds}, opts...)
	if err := l.SetRate(ratePerSecond); err != nil {
		return nil, err
	}
	return l, nil
}

// NewWarmingUp creates a Limiter using the WarmingUp pacing policy: stored
// permits grow more expensive the more of them are held, producing a
// cold-start ramp of warmupPeriodMicros before the limiter reaches full
// speed, with the coldest permit coldFactor times as expensive as a permit
// at steady state.
func NewWarmingUp(ratePerSecond, warmupPeriodMicros, coldFactor float64, opts ...Option) (*Limiter, error) {
	if warmupPeriodMicros <= 0 {
		return nil, ErrInvalidWarmupPeriod
	}
	if coldFactor <= 1 {
		return nil, ErrInvalidColdFactor
	}
	l := newLimiter(&warmingUpPolicy{warmupPeriodMicros: warmupPeriodMicros, coldFactor: coldFactor}, opts...)
	if err := l.SetRate(ratePerSecond); err != nil {
		return nil, err
	}
	return l, nil
}

// SetRate reconfigures the limiter to a new steady-state rate. It first
// re-syncs accrued stored permits against the old rate, then rescales
// storedPermits to preserve the fraction of capacity held.
func (l *Limiter) SetRate(ratePerSecond float64) error {
	if ratePerSecond <= 0 {
		return ErrInvalidRate
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doSetRate(ratePerSecond, l.clock.NowMicros())
	return nil
}

func (l *Limiter) doSetRate(ratePerSecond float64, nowMicros int64) {
	l.resync(nowMicros)
	oldMaxPermits := l.maxPermits
	stableIntervalMicros := 1e6 / ratePerSecond

	newMaxPermits := l.policy.steadyStateMaxPermits(ratePerSecond, stableIntervalMicros)

	switch {
	case math.IsInf(oldMaxPermits, 1):
		l.storedPermits = l.policy.initialStoredPermits(newMaxPermits)
	case oldMaxPermits == 0:
		l.storedPermits = l.policy.initialStoredPermits(newMaxPermits)
	default:
		l.storedPermits = l.storedPermits * newMaxPermits / oldMaxPermits
	}

	l.stableIntervalMicros = stableIntervalMicros
	l.maxPermits = newMaxPermits
	l.ratePerSecond = ratePerSecond
	l.log.Debug("limiter: rate set",
		zap.Float64("rate_per_second", ratePerSecond),
		zap.Float64("max_permits", newMaxPermits),
		zap.Float64("stored_permits", l.storedPermits),
	)
}

// GetRate returns the currently configured rate, in permits per second.
func (l *Limiter) GetRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ratePerSecond
}

// resync accrues stored permits for any idle time since the last reserved
// slot. It is idempotent: calling it twice with the same now is equivalent
// to calling it once, since the second call observes nowMicros <=
// nextFreeTicketMicros and does nothing.
func (l *Limiter) resync(nowMicros int64) {
	if nowMicros > l.nextFreeTicketMicros {
		cooldown := l.policy.coolDownIntervalMicros(l.stableIntervalMicros, l.maxPermits)
		newPermits := float64(nowMicros-l.nextFreeTicketMicros) / cooldown
		l.storedPermits = math.Min(l.maxPermits, l.storedPermits+newPermits)
		l.nextFreeTicketMicros = nowMicros
	}
}

// reserveEarliestAvailable must be called while holding mu. It returns the
// instant at which this request is considered scheduled (which may be
// before nowMicros, if the limiter was idle) and pushes nextFreeTicketMicros
// out by this request's cost, so that the cost is paid by whichever caller
// reserves next.
func (l *Limiter) reserveEarliestAvailable(permits float64, nowMicros int64) int64 {
	l.resync(nowMicros)
	grantedAt := l.nextFreeTicketMicros

	storedToSpend := math.Min(permits, l.storedPermits)
	fresh := permits - storedToSpend

	wait := l.policy.storedPermitsToWaitTime(l.storedPermits, storedToSpend, l.stableIntervalMicros) +
		int64(fresh*l.stableIntervalMicros)

	l.nextFreeTicketMicros = saturatingAddInt64(l.nextFreeTicketMicros, wait)
	if l.nextFreeTicketMicros == math.MaxInt64 {
		l.log.Warn("limiter: next free ticket saturated, limiter will stall",
			zap.Int64("wait_micros", wait))
	}
	l.storedPermits -= storedToSpend
	return grantedAt
}

// saturatingAddInt64 adds a and b, clamping to math.MaxInt64 on overflow
// instead of wrapping.
func saturatingAddInt64(a, b int64) int64 {
	sum := a + b
	if b > 0 && sum < a {
		return math.MaxInt64
	}
	if b < 0 && sum > a {
		return math.MinInt64
	}
	return sum
}

// Acquire reserves n permits, blocking until they are available, and
// returns the wait, in microseconds, that the reservation was scheduled for.
// It returns ErrInvalidPermits if n < 1. If ctx is done when the sleep
// ends, it returns ctx's error; the reservation is kept and the scheduled
// wait is still returned.
func (l *Limiter) Acquire(ctx context.Context, n int) (int64, error) {
	if n < 1 {
		return 0, ErrInvalidPermits
	}
	l.mu.Lock()
	callStart := l.clock.NowMicros()
	grantedAt := l.reserveEarliestAvailable(float64(n), callStart)
	l.mu.Unlock()

	l.clock.SleepUntilContext(ctx, grantedAt)

	waited := grantedAt - callStart
	if waited < 0 {
		waited = 0
	}
	l.recorder.Observe("limiter.acquire.wait_micros", float64(waited), map[string]string{"permits": fmt.Sprint(n)})
	l.recorder.Add("limiter.acquire.count", 1, nil)
	if err := ctx.Err(); err != nil {
		return waited, err
	}
	return waited, nil
}

// TryAcquire attempts to reserve n permits without waiting longer than
// timeoutMicros. It either reserves the permits in full — behaving exactly
// like Acquire, including the wait — or leaves the limiter's state
// completely unchanged and returns false. There is no partial grant.
func (l *Limiter) TryAcquire(ctx context.Context, n int, timeoutMicros int64) (bool, error) {
	if n < 1 {
		return false, ErrInvalidPermits
	}
	if timeoutMicros < 0 {
		return false, ErrNegativeTimeout
	}

	l.mu.Lock()
	nowMicros := l.clock.NowMicros()
	l.resync(nowMicros)
	if l.nextFreeTicketMicros > nowMicros+timeoutMicros {
		l.mu.Unlock()
		l.recorder.Add("limiter.try_acquire.denied", 1, nil)
		return false, nil
	}
	grantedAt := l.reserveEarliestAvailable(float64(n), nowMicros)
	l.mu.Unlock()

	l.clock.SleepUntilContext(ctx, grantedAt)
	l.recorder.Add("limiter.try_acquire.granted", 1, nil)
	if err := ctx.Err(); err != nil {
		return true, err
	}
	return true, nil
}
