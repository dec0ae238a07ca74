// Package geocode turns free-form street queries into coordinates using
// Nominatim (primary) and Google (fallback), with caching, circuit breaking
// and the street query variants used for canvassing maps.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client geocodes a single free-form query.
type Client interface {
	Geocode(ctx context.Context, q Query) (*Result, error)
}

// Query is one free-form search string, e.g. "Hauptstraße, 51588 Nümbrecht, Deutschland".
type Query struct {
	Text string
}

// Result holds a provider answer. Matched=false is a definitive miss, not an error.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Source      string // "nominatim" or "google"
	Quality     string
	Matched     bool
}

// Option configures an HTTP provider.
type Option func(*httpOptions)

type httpOptions struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	baseURL      string
	userAgent    string
	countryCodes []string
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *httpOptions) { o.httpClient = hc }
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *httpOptions) {
		if d > 0 {
			o.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithInterval allows one request per interval. Zero disables limiting.
func WithInterval(d time.Duration) Option {
	return func(o *httpOptions) {
		if d <= 0 {
			o.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		o.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) Option {
	return func(o *httpOptions) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header. Nominatim rejects requests
// without one.
func WithUserAgent(ua string) Option {
	return func(o *httpOptions) { o.userAgent = ua }
}

// WithCountryCodes restricts results to ISO 3166-1 alpha-2 countries.
func WithCountryCodes(codes ...string) Option {
	return func(o *httpOptions) { o.countryCodes = codes }
}

func newHTTPOptions(baseURL string, interval time.Duration, opts []Option) httpOptions {
	o := httpOptions{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		baseURL:    baseURL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
