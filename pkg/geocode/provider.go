package geocode

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/resilience"
)

// Provider is one geocoding backend in a cascade.
type Provider interface {
	Client
	Name() string
	Available() bool
}

// CascadeClient tries providers in order until one matches. Providers whose
// circuit breaker is open are skipped. Matches and definitive misses are
// cached.
type CascadeClient struct {
	providers []Provider
	breakers  *resilience.ServiceBreakers
	cache     Cache
	cacheTTL  time.Duration
}

// CascadeOption configures a CascadeClient.
type CascadeOption func(*CascadeClient)

// WithCache stores answers in cache and trusts them for ttl (0 = forever).
func WithCache(cache Cache, ttl time.Duration) CascadeOption {
	return func(c *CascadeClient) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithBreakers sets the per-provider circuit breakers.
func WithBreakers(sb *resilience.ServiceBreakers) CascadeOption {
	return func(c *CascadeClient) {
		if sb != nil {
			c.breakers = sb
		}
	}
}

// NewCascadeClient returns a CascadeClient over providers.
func NewCascadeClient(providers []Provider, opts ...CascadeOption) *CascadeClient {
	c := &CascadeClient{
		providers: providers,
		breakers:  resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode implements Client. A transient error is returned only when no
// provider gave a definitive answer, so the caller can retry the query.
// Permanent provider errors abort the cascade.
func (c *CascadeClient) Geocode(ctx context.Context, q Query) (*Result, error) {
	key := CacheKey(q)
	if c.cache != nil {
		cached, ok, err := c.cache.GetGeocode(ctx, key, c.cacheTTL)
		if err != nil {
			zap.L().Warn("geocode: cache lookup failed", zap.String("key", shortKey(key)), zap.Error(err))
		} else if ok {
			zap.L().Debug("geocode: cache hit",
				zap.String("key", shortKey(key)),
				zap.Bool("matched", cached.Matched),
			)
			return cached, nil
		}
	}

	var (
		miss    *Result
		lastErr error
	)
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		cb := c.breakers.Get(p.Name())
		result, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (*Result, error) {
			return p.Geocode(ctx, q)
		})
		if err != nil {
			if errors.Is(err, resilience.ErrCircuitOpen) || resilience.IsTransient(err) {
				zap.L().Debug("geocode: provider unavailable, trying next",
					zap.String("provider", p.Name()),
					zap.Error(err),
				)
				lastErr = err
				continue
			}
			return nil, err
		}
		if result.Matched {
			c.store(ctx, key, q, result)
			return result, nil
		}
		miss = result
	}

	if miss == nil {
		if lastErr == nil {
			return &Result{Source: "cascade"}, nil
		}
		if !resilience.IsTransient(lastErr) {
			lastErr = resilience.NewTransientError(lastErr, 0)
		}
		return nil, lastErr
	}
	if lastErr == nil {
		c.store(ctx, key, q, miss)
	}
	return miss, nil
}

// ProviderStates reports each provider's breaker state for logging.
func (c *CascadeClient) ProviderStates() map[string]resilience.CircuitState {
	return c.breakers.States()
}

func (c *CascadeClient) store(ctx context.Context, key string, q Query, r *Result) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SetGeocode(ctx, key, q.Text, r); err != nil {
		zap.L().Warn("geocode: cache store failed", zap.String("key", shortKey(key)), zap.Error(err))
	}
}
