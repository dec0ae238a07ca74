package resilience

import (
	"time"

	"github.com/wahlkarte/wahlkarte/internal/config"
)

// FromGeocodeConfig derives the sweep retry policy and the per-provider
// breaker settings from the geocode section.
func FromGeocodeConfig(cfg config.GeocodeConfig) (RetryConfig, CircuitBreakerConfig) {
	retry := DefaultRetryConfig()
	if cfg.Retries > 0 {
		retry.MaxAttempts = cfg.Retries
	}
	if cfg.RetryPauseMs >= 0 {
		retry.Pause = time.Duration(cfg.RetryPauseMs) * time.Millisecond
	}

	breaker := DefaultCircuitBreakerConfig()
	if cfg.BreakerFailures > 0 {
		breaker.FailureThreshold = cfg.BreakerFailures
	}
	if cfg.BreakerResetSecs > 0 {
		breaker.ResetTimeout = time.Duration(cfg.BreakerResetSecs) * time.Second
	}
	return retry, breaker
}
