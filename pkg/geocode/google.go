package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/wahlkarte/wahlkarte/internal/resilience"
)

const (
	googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"
	googleInterval   = 100 * time.Millisecond
)

type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// Google queries the Google Geocoding API. It is only available with an API key.
type Google struct {
	key    string
	region string
	opts   httpOptions
}

// NewGoogle returns a Google provider biased to German results.
func NewGoogle(key string, opts ...Option) *Google {
	return &Google{
		key:    key,
		region: "de",
		opts:   newHTTPOptions(googleGeocodeURL, googleInterval, opts),
	}
}

// Name implements Provider.
func (g *Google) Name() string { return "google" }

// Available implements Provider.
func (g *Google) Available() bool { return g.key != "" }

// Geocode implements Client.
func (g *Google) Geocode(ctx context.Context, q Query) (*Result, error) {
	if g.key == "" {
		return nil, eris.New("geocode: google api key not configured")
	}

	if err := g.opts.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: google rate limit")
	}

	params := url.Values{
		"address":  {q.Text},
		"region":   {g.region},
		"language": {"de"},
		"key":      {g.key},
	}
	if len(g.opts.countryCodes) > 0 {
		var parts []string
		for _, c := range g.opts.countryCodes {
			parts = append(parts, "country:"+strings.ToUpper(c))
		}
		params.Set("components", strings.Join(parts, "|"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.opts.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google build request")
	}

	resp, err := g.opts.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "geocode: google request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: google returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "geocode: google read body"), 0)
	}

	var gr googleGeocodeResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, eris.Wrap(err, "geocode: google parse response")
	}

	switch gr.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &Result{Source: g.Name()}, nil
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return nil, resilience.NewTransientError(eris.Errorf("geocode: google status %s", gr.Status), 0)
	default:
		return nil, eris.Errorf("geocode: google status %s: %s", gr.Status, gr.ErrorMessage)
	}
	if len(gr.Results) == 0 {
		return &Result{Source: g.Name()}, nil
	}

	r := gr.Results[0]
	return &Result{
		Latitude:    r.Geometry.Location.Lat,
		Longitude:   r.Geometry.Location.Lng,
		DisplayName: r.FormattedAddress,
		Source:      g.Name(),
		Quality:     googleLocationTypeToQuality(r.Geometry.LocationType),
		Matched:     true,
	}, nil
}

func googleLocationTypeToQuality(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "range"
	case "GEOMETRIC_CENTER":
		return "street"
	}
	return "approximate"
}
