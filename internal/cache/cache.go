// Package cache provides a sqlite-backed cache for provider search results
// so repeated searches near the same center skip live provider calls.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/envirowatch/envirowatch/internal/model"
)

// keyPrecision rounds cache-key coordinates to two decimals, about 1 km, so
// searches issued from nearby points share an entry.
const keyPrecision = 100.0

// SearchCache stores normalized provider results keyed by provider, rounded
// center, and radius.
type SearchCache struct {
	db  *sql.DB
	ttl time.Duration
}

// New opens a SQLite cache at the given DSN and configures WAL mode.
// Use ":memory:" for an ephemeral cache.
func New(dsn string, ttl time.Duration) (*SearchCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	c := &SearchCache{db: db, ttl: ttl}
	if err := c.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS search_cache (
	cache_key  TEXT PRIMARY KEY,
	provider   TEXT NOT NULL,
	records    TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);
`

func (c *SearchCache) migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "cache: migrate")
}

// Close releases the underlying database handle.
func (c *SearchCache) Close() error {
	return c.db.Close()
}

func cacheKey(provider string, center model.Coordinate, radiusMeters float64) string {
	lat := math.Round(center.Lat*keyPrecision) / keyPrecision
	lng := math.Round(center.Lng*keyPrecision) / keyPrecision
	return fmt.Sprintf("%s|%.2f|%.2f|%.0f", provider, lat, lng, radiusMeters)
}

// Get returns the cached records for a provider query, or ok=false when the
// entry is missing or expired.
func (c *SearchCache) Get(ctx context.Context, provider string, center model.Coordinate, radiusMeters float64) ([]model.FacilityRecord, bool, error) {
	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT records FROM search_cache WHERE cache_key = ? AND expires_at > datetime('now')`,
		cacheKey(provider, center, radiusMeters),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: get")
	}

	var records []model.FacilityRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, false, eris.Wrap(err, "cache: unmarshal records")
	}
	return records, true, nil
}

// Put stores the records for a provider query, replacing any prior entry.
func (c *SearchCache) Put(ctx context.Context, provider string, center model.Coordinate, radiusMeters float64, records []model.FacilityRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "cache: marshal records")
	}

	expires := time.Now().UTC().Add(c.ttl)
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO search_cache (cache_key, provider, records, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
			records = excluded.records,
			cached_at = datetime('now'),
			expires_at = excluded.expires_at`,
		cacheKey(provider, center, radiusMeters), provider, string(raw), expires.Format("2006-01-02 15:04:05"),
	)
	return eris.Wrap(err, "cache: put")
}

// PurgeExpired deletes expired entries and returns how many were removed.
func (c *SearchCache) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM search_cache WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, eris.Wrap(err, "cache: purge")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "cache: rows affected")
	}
	return n, nil
}
