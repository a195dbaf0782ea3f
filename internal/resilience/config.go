package resilience

import (
	"time"

	"github.com/sells-group/alpha-grader/internal/config"
)

// GuardConfigFrom converts provider settings into a GuardConfig. Zero values
// fall back to the package defaults.
func GuardConfigFrom(p config.ProviderConfig) GuardConfig {
	cfg := DefaultGuardConfig()
	if p.RatePerSec > 0 {
		cfg.RatePerSec = p.RatePerSec
	}
	if p.Burst > 0 {
		cfg.Burst = p.Burst
	}
	if p.MaxAttempts > 0 {
		cfg.Retry.MaxAttempts = p.MaxAttempts
	}
	if p.InitialBackoffMs > 0 {
		cfg.Retry.InitialBackoff = time.Duration(p.InitialBackoffMs) * time.Millisecond
	}
	if p.CircuitThreshold > 0 {
		cfg.Breaker.FailureThreshold = p.CircuitThreshold
	}
	return cfg
}
