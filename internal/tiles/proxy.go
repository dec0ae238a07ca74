package tiles

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/resilience"
)

// MaxZoom is the deepest zoom level the proxy forwards.
const MaxZoom = 19

var subdomains = []string{"a", "b", "c"}

// Proxy fetches tiles from an upstream URL template such as
// "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png".
type Proxy struct {
	template  string
	userAgent string
	client    *http.Client
	cache     *Cache
	retry     resilience.RetryConfig
}

// NewProxy returns a proxy for template. cache may be nil.
func NewProxy(template, userAgent string, cache *Cache) *Proxy {
	return &Proxy{
		template:  template,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 30 * time.Second},
		cache:     cache,
		retry: resilience.RetryConfig{
			MaxAttempts: 2,
			Pause:       500 * time.Millisecond,
			Multiplier:  1,
			OnRetry:     resilience.RetryLogger("tiles", "fetch"),
		},
	}
}

// URL expands the template for tc. {s} rotates over the a/b/c subdomains.
func (p *Proxy) URL(tc Coord) string {
	sub := (tc.X + tc.Y) % len(subdomains)
	if sub < 0 {
		sub += len(subdomains)
	}
	r := strings.NewReplacer(
		"{s}", subdomains[sub],
		"{z}", strconv.Itoa(tc.Z),
		"{x}", strconv.Itoa(tc.X),
		"{y}", strconv.Itoa(tc.Y),
		"{r}", "",
	)
	return r.Replace(p.template)
}

// Fetch returns the tile image from the cache or upstream.
func (p *Proxy) Fetch(ctx context.Context, tc Coord) ([]byte, error) {
	if p.cache != nil {
		if data := p.cache.Get(tc); data != nil {
			return data, nil
		}
	}

	url := p.URL(tc)
	data, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) ([]byte, error) {
		return p.get(ctx, url)
	})
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.Put(tc, data)
	}
	zap.L().Debug("tiles: fetched", zap.String("url", url), zap.Int("bytes", len(data)))
	return data, nil
}

func (p *Proxy) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "tiles: create request")
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "tiles: fetch"), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("tiles: upstream returned %d for %s", resp.StatusCode, url)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "tiles: read body")
	}
	return data, nil
}

// ParsePath parses "{z}/{x}/{y}.png" and checks the tile exists at z.
func ParsePath(p string) (Coord, error) {
	var tc Coord
	var ext string
	if _, err := fmt.Sscanf(strings.TrimPrefix(p, "/"), "%d/%d/%d.%s", &tc.Z, &tc.X, &tc.Y, &ext); err != nil {
		return Coord{}, eris.Errorf("tiles: invalid path %q", p)
	}
	if tc.Z < 0 || tc.Z > MaxZoom {
		return Coord{}, eris.Errorf("tiles: zoom %d out of range", tc.Z)
	}
	n := 1 << tc.Z
	if tc.X < 0 || tc.X >= n || tc.Y < 0 || tc.Y >= n {
		return Coord{}, eris.Errorf("tiles: tile %d/%d out of range at zoom %d", tc.X, tc.Y, tc.Z)
	}
	return tc, nil
}

// ServeHTTP serves /{z}/{x}/{y}.png relative to where the proxy is mounted.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tc, err := ParsePath(path.Clean("/" + r.URL.Path))
	if err != nil {
		http.Error(w, "invalid tile path", http.StatusBadRequest)
		return
	}

	data, err := p.Fetch(r.Context(), tc)
	if err != nil {
		zap.L().Warn("tiles: upstream fetch failed", zap.Error(err))
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", contentType(p.template))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

// CacheStats returns the tile cache usage, zero without a cache.
func (p *Proxy) CacheStats() CacheStats {
	if p.cache == nil {
		return CacheStats{}
	}
	return p.cache.Stats()
}

func contentType(template string) string {
	switch strings.ToLower(path.Ext(template)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
