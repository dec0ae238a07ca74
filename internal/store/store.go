// Package store persists geocoder answers so repeated runs do not hit the
// public geocoding services again.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/wahlkarte/wahlkarte/internal/config"
	"github.com/wahlkarte/wahlkarte/pkg/geocode"
)

const cacheTable = "geocode_cache"

var cacheColumns = []string{
	"query_hash", "query", "latitude", "longitude", "display_name",
	"source", "quality", "matched", "cached_at",
}

// Stats summarises cache contents.
type Stats struct {
	Entries int64
	Matched int64
	Misses  int64
	Oldest  time.Time
	Newest  time.Time
}

// Cache is a geocode cache backend.
type Cache interface {
	geocode.Cache

	Stats(ctx context.Context) (Stats, error)
	// Purge deletes entries older than olderThan; zero deletes everything.
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		c, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		c, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Migrate(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func cutoff(now time.Time, maxAge time.Duration) time.Time {
	if maxAge <= 0 {
		return time.Unix(0, 0).UTC()
	}
	return now.Add(-maxAge)
}
