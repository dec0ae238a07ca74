package geocode

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// newRewriteClient creates an HTTP client that sends requests for
// targetPrefix to the test server instead.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if strings.HasPrefix(origURL, t.targetPrefix) {
		newReq := req.Clone(req.Context())
		parsed, err := req.URL.Parse(t.testServer + origURL[len(t.targetPrefix):])
		if err != nil {
			return nil, err
		}
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}

// stubProvider answers from a table keyed by query text.
type stubProvider struct {
	name      string
	available bool
	answers   map[string]*Result
	err       error

	mu      sync.Mutex
	queries []string
}

func (s *stubProvider) Name() string    { return s.name }
func (s *stubProvider) Available() bool { return s.available }

func (s *stubProvider) Geocode(_ context.Context, q Query) (*Result, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q.Text)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if r, ok := s.answers[q.Text]; ok {
		return r, nil
	}
	return &Result{Source: s.name}, nil
}

func (s *stubProvider) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.queries))
	copy(out, s.queries)
	return out
}

// memCache is an in-memory Cache.
type memCache struct {
	mu      sync.Mutex
	entries map[string]*Result
	sets    int
}

func newMemCache() *memCache { return &memCache{entries: make(map[string]*Result)} }

func (m *memCache) GetGeocode(_ context.Context, key string, _ time.Duration) (*Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[key]
	return r, ok, nil
}

func (m *memCache) SetGeocode(_ context.Context, key, _ string, r *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = r
	m.sets++
	return nil
}
