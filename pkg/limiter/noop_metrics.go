package limiter

// NoOpMetricsRecorder is a placeholder that does nothing. It ensures the
// hot path in Acquire/TryAcquire never has to check "if recorder != nil".
type NoOpMetricsRecorder struct{}

func (n *NoOpMetricsRecorder) Add(name string, value float64, tags map[string]string)     {}
func (n *NoOpMetricsRecorder) Observe(name string, value float64, tags map[string]string) {}
