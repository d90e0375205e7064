// Package limiter implements a smooth, single-process rate limiter.
//
// The primary entry points are NewBursty and NewWarmingUp:
//
//	l, err := limiter.NewBursty(5, 1) // 5 permits/s, up to 1s of burst
//	waited, err := l.Acquire(context.Background(), 1)
//
// # Overview
//
// This package paces the issuance of permits so that, averaged over time,
// callers never exceed a configured rate, while absorbing short bursts and
// (optionally) warming up gradually from a cold start. It is a Go port of
// Guava's SmoothRateLimiter: a "stored permits" pool accumulates credit
// during idle periods, up to a policy-defined ceiling, and a forward-looking
// "next free ticket" timestamp records when the next request is scheduled so
// that an expensive request can return immediately while pushing its cost
// onto whoever asks next.
//
// # Pacing policies
//
// Two policies share the same accounting core and differ only in how stored
// permits are priced:
//
//   - Bursty: stored permits are free. Idle capacity is immediately usable at
//     full speed; only the configured burst window limits how much can
//     accumulate.
//   - WarmingUp: stored permits get progressively more expensive as more of
//     them are held, producing a cold-start ramp that gives a downstream
//     cache or connection pool time to warm up before full-rate traffic
//     resumes.
//
// # Concurrency
//
// Limiter is safe for concurrent use by multiple goroutines. A single mutex
// serializes reservations; it is released before a caller sleeps, so the next
// waiter can reserve (and begin sleeping for) its own slot concurrently.
//
// # Context and Error Policy
//
// Acquire and TryAcquire accept a context.Context and return promptly if it
// is canceled while sleeping. Constructors and SetRate return an error for
// invalid arguments; the accounting core itself never returns an error once
// constructed — arithmetic overflow on the internal scheduling clock
// saturates silently rather than panicking or erroring.
//
// # Backends
//
// Registry (see registry.go) manages many independently-configured named
// limiters sharded across internal lock stripes with rendezvous hashing, for
// callers that rate-limit many tenants/keys rather than a single resource.
// RateConfigWatcher (see redisconfig.go) lets many processes, each with its
// own Registry, pick up SetRate changes published over Redis Pub/Sub without
// sharing permit state — configuration distribution, not distributed permit
// accounting.
package limiter
