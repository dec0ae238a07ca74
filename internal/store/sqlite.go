package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/wahlkarte/wahlkarte/internal/db"
	"github.com/wahlkarte/wahlkarte/pkg/geocode"
)

// SQLiteCache is a file-backed geocode cache. Timestamps are unix seconds.
type SQLiteCache struct {
	db      *sql.DB
	upsert  string
	nowFunc func() time.Time
}

// NewSQLite opens the SQLite file at dsn in WAL mode.
func NewSQLite(dsn string) (*SQLiteCache, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}

	upsert, err := db.UpsertSQL(db.UpsertConfig{
		Table:        cacheTable,
		Columns:      cacheColumns,
		ConflictKeys: []string{"query_hash"},
	}, db.Question)
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}
	return &SQLiteCache{db: conn, upsert: upsert, nowFunc: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	query_hash   TEXT PRIMARY KEY,
	query        TEXT NOT NULL,
	latitude     REAL NOT NULL DEFAULT 0,
	longitude    REAL NOT NULL DEFAULT 0,
	display_name TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	quality      TEXT NOT NULL DEFAULT '',
	matched      INTEGER NOT NULL DEFAULT 0,
	cached_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_cached_at ON geocode_cache(cached_at);
`

// Migrate creates the cache table.
func (s *SQLiteCache) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

// GetGeocode implements geocode.Cache.
func (s *SQLiteCache) GetGeocode(ctx context.Context, key string, maxAge time.Duration) (*geocode.Result, bool, error) {
	var (
		r       geocode.Result
		matched int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, display_name, source, quality, matched
		 FROM geocode_cache WHERE query_hash = ? AND cached_at >= ?`,
		key, cutoff(s.nowFunc(), maxAge).Unix(),
	).Scan(&r.Latitude, &r.Longitude, &r.DisplayName, &r.Source, &r.Quality, &matched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get geocode")
	}
	r.Matched = matched != 0
	return &r, true, nil
}

// SetGeocode implements geocode.Cache.
func (s *SQLiteCache) SetGeocode(ctx context.Context, key, query string, r *geocode.Result) error {
	matched := 0
	if r.Matched {
		matched = 1
	}
	_, err := s.db.ExecContext(ctx, s.upsert,
		key, query, r.Latitude, r.Longitude, r.DisplayName, r.Source, r.Quality, matched, s.nowFunc().Unix(),
	)
	return eris.Wrap(err, "sqlite: set geocode")
}

// Stats implements Cache.
func (s *SQLiteCache) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var oldest, newest int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(matched), 0), COALESCE(MIN(cached_at), 0), COALESCE(MAX(cached_at), 0)
		 FROM geocode_cache`,
	).Scan(&st.Entries, &st.Matched, &oldest, &newest)
	if err != nil {
		return Stats{}, eris.Wrap(err, "sqlite: cache stats")
	}
	st.Misses = st.Entries - st.Matched
	if st.Entries > 0 {
		st.Oldest = time.Unix(oldest, 0).UTC()
		st.Newest = time.Unix(newest, 0).UTC()
	}
	return st, nil
}

// Purge implements Cache.
func (s *SQLiteCache) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if olderThan <= 0 {
		res, err = s.db.ExecContext(ctx, `DELETE FROM geocode_cache`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM geocode_cache WHERE cached_at < ?`,
			s.nowFunc().Add(-olderThan).Unix())
	}
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge rows affected")
	}
	return n, nil
}
