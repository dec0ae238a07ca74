package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/wahlkarte/wahlkarte/internal/normalize"
)

// Cache persists provider answers, misses included, keyed by CacheKey.
type Cache interface {
	// GetGeocode returns the cached result for key if it is younger than
	// maxAge. maxAge <= 0 means no expiry. ok is false on a miss.
	GetGeocode(ctx context.Context, key string, maxAge time.Duration) (r *Result, ok bool, err error)

	// SetGeocode stores r under key, replacing any earlier entry.
	SetGeocode(ctx context.Context, key, query string, r *Result) error
}

// CacheKey is the SHA-256 hex digest of the folded query text, so that
// "Hauptstraße, Nümbrecht" and "hauptstrasse,  NÜMBRECHT" differ only where
// the spelling really differs.
func CacheKey(q Query) string {
	sum := sha256.Sum256([]byte(normalize.Fold(q.Text)))
	return hex.EncodeToString(sum[:])
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
