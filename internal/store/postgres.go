package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/wahlkarte/wahlkarte/internal/db"
	"github.com/wahlkarte/wahlkarte/pkg/geocode"
)

// PostgresCache is a shared geocode cache for teams running several
// canvassing maps against one database.
type PostgresCache struct {
	pool    db.Pool
	upsert  string
	nowFunc func() time.Time
}

// NewPostgres connects a small pool and pings it.
func NewPostgres(ctx context.Context, connString string) (*PostgresCache, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresCache(pool)
}

func newPostgresCache(pool db.Pool) (*PostgresCache, error) {
	upsert, err := db.UpsertSQL(db.UpsertConfig{
		Table:        cacheTable,
		Columns:      cacheColumns,
		ConflictKeys: []string{"query_hash"},
	}, db.Dollar)
	if err != nil {
		return nil, err
	}
	return &PostgresCache{pool: pool, upsert: upsert, nowFunc: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	query_hash   TEXT PRIMARY KEY,
	query        TEXT NOT NULL,
	latitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
	display_name TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	quality      TEXT NOT NULL DEFAULT '',
	matched      BOOLEAN NOT NULL DEFAULT false,
	cached_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_cached_at ON geocode_cache(cached_at);
`

// Migrate creates the cache table.
func (s *PostgresCache) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresCache) Close() error {
	s.pool.Close()
	return nil
}

// GetGeocode implements geocode.Cache.
func (s *PostgresCache) GetGeocode(ctx context.Context, key string, maxAge time.Duration) (*geocode.Result, bool, error) {
	var r geocode.Result
	err := s.pool.QueryRow(ctx,
		`SELECT latitude, longitude, display_name, source, quality, matched
		 FROM geocode_cache WHERE query_hash = $1 AND cached_at >= $2`,
		key, cutoff(s.nowFunc(), maxAge),
	).Scan(&r.Latitude, &r.Longitude, &r.DisplayName, &r.Source, &r.Quality, &r.Matched)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: get geocode")
	}
	return &r, true, nil
}

// SetGeocode implements geocode.Cache.
func (s *PostgresCache) SetGeocode(ctx context.Context, key, query string, r *geocode.Result) error {
	_, err := s.pool.Exec(ctx, s.upsert,
		key, query, r.Latitude, r.Longitude, r.DisplayName, r.Source, r.Quality, r.Matched, s.nowFunc(),
	)
	return eris.Wrap(err, "postgres: set geocode")
}

// Stats implements Cache.
func (s *PostgresCache) Stats(ctx context.Context) (Stats, error) {
	var (
		st             Stats
		oldest, newest *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE matched), MIN(cached_at), MAX(cached_at) FROM geocode_cache`,
	).Scan(&st.Entries, &st.Matched, &oldest, &newest)
	if err != nil {
		return Stats{}, eris.Wrap(err, "postgres: cache stats")
	}
	st.Misses = st.Entries - st.Matched
	if oldest != nil {
		st.Oldest = oldest.UTC()
	}
	if newest != nil {
		st.Newest = newest.UTC()
	}
	return st, nil
}

// Purge implements Cache.
func (s *PostgresCache) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		tag, err := s.pool.Exec(ctx, `DELETE FROM geocode_cache`)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: purge")
		}
		return tag.RowsAffected(), nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM geocode_cache WHERE cached_at < $1`, s.nowFunc().Add(-olderThan))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge")
	}
	return tag.RowsAffected(), nil
}
