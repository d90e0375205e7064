package limiter

import "errors"

// Sentinel errors for invalid arguments, checked with errors.Is. The
// accounting core itself never returns an error once constructed: runtime
// arithmetic overflow saturates silently rather than failing a caller (see
// reserveEarliestAvailable).
var (
	ErrInvalidRate         = errors.New("limiter: rate must be positive")
	ErrInvalidBurst        = errors.New("limiter: max burst seconds must be positive")
	ErrInvalidWarmupPeriod = errors.New("limiter: warmup period must be positive")
	ErrInvalidColdFactor   = errors.New("limiter: cold factor must be greater than 1")
	ErrInvalidPermits      = errors.New("limiter: permits must be at least 1")
	ErrNegativeTimeout     = errors.New("limiter: timeout must not be negative")
)
