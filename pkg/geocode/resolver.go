package geocode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/normalize"
	"github.com/wahlkarte/wahlkarte/internal/resilience"
)

// ErrNoMatch is returned when no query variant matched and fallback is off.
var ErrNoMatch = eris.New("geocode: no match")

// Region is the municipality queries are anchored to.
type Region struct {
	City       string
	PostalCode string
	Country    string
	CenterLat  float64
	CenterLon  float64
}

// Resolution is the coordinate chosen for one street or address.
type Resolution struct {
	Latitude  float64
	Longitude float64
	Info      string // provider display name or fallback note
	Query     string // the variant that matched
	Source    string
	Fallback  bool
}

// Resolver geocodes street names by sweeping query variants, retrying the
// sweep on transient errors and falling back to the town centre.
type Resolver struct {
	client   Client
	region   Region
	retry    resilience.RetryConfig
	fallback bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRetry sets the sweep retry policy.
func WithRetry(cfg resilience.RetryConfig) ResolverOption {
	return func(r *Resolver) { r.retry = cfg }
}

// WithFallback toggles the town-centre fallback.
func WithFallback(enabled bool) ResolverOption {
	return func(r *Resolver) { r.fallback = enabled }
}

// NewResolver returns a Resolver with fallback enabled and the default
// retry policy.
func NewResolver(client Client, region Region, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:   client,
		region:   region,
		retry:    resilience.DefaultRetryConfig(),
		fallback: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retry.OnRetry == nil {
		r.retry.OnRetry = resilience.RetryLogger("geocode", "variant sweep")
	}
	return r
}

// Variants lists the queries tried for street, most specific first.
func (r *Resolver) Variants(street string) []string {
	reg := r.region
	out := []string{
		fmt.Sprintf("%s, %s %s, %s", street, reg.PostalCode, reg.City, reg.Country),
		fmt.Sprintf("%s, %s, %s", street, reg.City, reg.Country),
		fmt.Sprintf("%s, %s", street, reg.City),
		fmt.Sprintf("%s, %s", reg.City, street),
	}
	if hamlet, ok := normalize.Hamlet(street); ok {
		out = append(out, fmt.Sprintf("%s, %s, %s", hamlet, reg.City, reg.Country))
	}
	return out
}

// Lookup sweeps the variants for street without falling back. It returns
// ErrNoMatch when nothing matched or transient errors outlasted the retries.
func (r *Resolver) Lookup(ctx context.Context, street string) (*Resolution, error) {
	return r.sweep(ctx, street, r.Variants(street))
}

// Resolve is Lookup with the town-centre fallback applied on a miss.
func (r *Resolver) Resolve(ctx context.Context, street string) (*Resolution, error) {
	res, err := r.Lookup(ctx, street)
	if eris.Is(err, ErrNoMatch) && r.fallback {
		zap.L().Warn("geocode: using town centre", zap.String("street", street))
		return r.Center(), nil
	}
	return res, err
}

// ResolveAddress geocodes an address read from a PDF: the full address,
// then "<street>, <city>", then the city alone. There is no fallback; the
// caller drops addresses that return ErrNoMatch.
func (r *Resolver) ResolveAddress(ctx context.Context, addr model.Address) (*Resolution, error) {
	city := addr.City
	if city == "" {
		city = r.region.City
	}
	var variants []string
	if addr.FullAddress != "" {
		variants = append(variants, addr.FullAddress)
	}
	if addr.Street != "" {
		variants = append(variants, fmt.Sprintf("%s, %s", addr.Street, city))
	}
	variants = append(variants, city)
	return r.sweep(ctx, addr.FullAddress, variants)
}

// Center is the fallback resolution at the configured town centre.
func (r *Resolver) Center() *Resolution {
	return &Resolution{
		Latitude:  r.region.CenterLat,
		Longitude: r.region.CenterLon,
		Info:      "Fallback: Zentrum " + r.region.City,
		Source:    "fallback",
		Fallback:  true,
	}
}

func (r *Resolver) sweep(ctx context.Context, label string, variants []string) (*Resolution, error) {
	res, err := resilience.DoVal(ctx, r.retry, func(ctx context.Context) (*Resolution, error) {
		for _, v := range variants {
			if strings.TrimSpace(v) == "" {
				continue
			}
			result, err := r.client.Geocode(ctx, Query{Text: v})
			if err != nil {
				return nil, err
			}
			if result.Matched {
				return &Resolution{
					Latitude:  result.Latitude,
					Longitude: result.Longitude,
					Info:      result.DisplayName,
					Query:     v,
					Source:    result.Source,
				}, nil
			}
		}
		return nil, ErrNoMatch
	})
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "geocode: resolve")
	}
	if resilience.IsTransient(err) {
		zap.L().Warn("geocode: retries exhausted", zap.String("label", label), zap.Error(err))
		return nil, ErrNoMatch
	}
	return nil, err
}
