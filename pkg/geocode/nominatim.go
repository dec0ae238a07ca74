package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/wahlkarte/wahlkarte/internal/resilience"
)

const (
	nominatimURL = "https://nominatim.openstreetmap.org"

	// Nominatim's usage policy allows at most one request per second.
	nominatimInterval = 1200 * time.Millisecond
)

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	AddressType string `json:"addresstype"`
}

// Nominatim queries the OpenStreetMap search API.
type Nominatim struct {
	opts httpOptions
}

// NewNominatim returns a Nominatim provider limited to one request per 1.2 s
// unless WithInterval says otherwise.
func NewNominatim(opts ...Option) *Nominatim {
	return &Nominatim{opts: newHTTPOptions(nominatimURL, nominatimInterval, opts)}
}

// Name implements Provider.
func (n *Nominatim) Name() string { return "nominatim" }

// Available implements Provider.
func (n *Nominatim) Available() bool { return n.opts.userAgent != "" }

// Geocode implements Client.
func (n *Nominatim) Geocode(ctx context.Context, q Query) (*Result, error) {
	if n.opts.userAgent == "" {
		return nil, eris.New("geocode: nominatim requires a user agent")
	}
	if strings.TrimSpace(q.Text) == "" {
		return &Result{Source: n.Name()}, nil
	}

	if err := n.opts.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"q":      {q.Text},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	if len(n.opts.countryCodes) > 0 {
		params.Set("countrycodes", strings.Join(n.opts.countryCodes, ","))
	}

	reqURL := strings.TrimRight(n.opts.baseURL, "/") + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", n.opts.userAgent)
	req.Header.Set("Accept-Language", "de")

	resp, err := n.opts.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "geocode: nominatim request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "geocode: nominatim read body"), 0)
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}
	if len(places) == 0 {
		return &Result{Source: n.Name()}, nil
	}

	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: nominatim bad lat %q", p.Lat)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: nominatim bad lon %q", p.Lon)
	}

	return &Result{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: p.DisplayName,
		Source:      n.Name(),
		Quality:     nominatimQuality(p),
		Matched:     true,
	}, nil
}

// nominatimQuality maps the OSM feature kind onto the quality labels used
// for Google results.
func nominatimQuality(p nominatimPlace) string {
	kind := p.AddressType
	if kind == "" {
		kind = p.Type
	}
	switch kind {
	case "house", "building":
		return "rooftop"
	case "road", "street", "residential", "living_street", "service", "tertiary", "secondary", "primary", "unclassified", "track", "pedestrian":
		return "street"
	case "hamlet", "village", "isolated_dwelling", "suburb", "neighbourhood", "quarter", "locality":
		return "locality"
	}
	return "approximate"
}
