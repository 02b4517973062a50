// Package store provides the SQLite-backed feed metadata table and the
// atomic per-feed-per-day resolve counter.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/feedkit/resolver/internal/feed"
)

// ErrFeedNotFound is returned when no metadata row exists for a feed id.
var ErrFeedNotFound = errors.New("feed not found")

const createTableSQL = `
CREATE TABLE IF NOT EXISTS feeds (
    feed_id        TEXT PRIMARY KEY,
    provider       TEXT NOT NULL,
    format         TEXT NOT NULL,
    quality        TEXT NOT NULL,
    feature_level  INTEGER NOT NULL DEFAULT 0,
    last_access    DATETIME
);

CREATE TABLE IF NOT EXISTS resolve_counters (
    feed_id     TEXT NOT NULL,
    day         INTEGER NOT NULL,
    count       INTEGER NOT NULL DEFAULT 0,
    expires_at  INTEGER NOT NULL,
    PRIMARY KEY (feed_id, day)
);

CREATE INDEX IF NOT EXISTS idx_resolve_counters_expires ON resolve_counters(expires_at);
`

// Store wraps an SQLite connection holding feeds and resolve counters.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	// SQLite pragmas for performance and reliability
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if _, err := sqlDB.Exec(createTableSQL); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: sqlDB}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetFeed returns the metadata record for a feed id, or ErrFeedNotFound.
func (s *Store) GetFeed(ctx context.Context, feedID string) (feed.Metadata, error) {
	if s == nil || s.db == nil {
		return feed.Metadata{}, fmt.Errorf("store not initialized")
	}

	var meta feed.Metadata
	var lastAccess sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT provider, format, quality, feature_level, last_access
		FROM feeds WHERE feed_id = ?
	`, feedID).Scan(&meta.Provider, &meta.Format, &meta.Quality, &meta.FeatureLevel, &lastAccess)
	if errors.Is(err, sql.ErrNoRows) {
		return feed.Metadata{}, ErrFeedNotFound
	}
	if err != nil {
		return feed.Metadata{}, fmt.Errorf("querying feed %s: %w", feedID, err)
	}
	if lastAccess.Valid {
		meta.LastAccess = lastAccess.Time
	}
	return meta, nil
}

// PutFeed inserts or replaces the metadata record for a feed id.
func (s *Store) PutFeed(ctx context.Context, feedID string, meta feed.Metadata) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if err := meta.Validate(); err != nil {
		return fmt.Errorf("invalid feed metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feeds (feed_id, provider, format, quality, feature_level)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(feed_id) DO UPDATE SET
			provider=excluded.provider, format=excluded.format,
			quality=excluded.quality, feature_level=excluded.feature_level
	`, feedID, string(meta.Provider), string(meta.Format), string(meta.Quality), meta.FeatureLevel)
	if err != nil {
		return fmt.Errorf("upserting feed %s: %w", feedID, err)
	}
	return nil
}

// TouchFeed records the time of the latest successful resolution.
func (s *Store) TouchFeed(ctx context.Context, feedID string, when time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE feeds SET last_access = ? WHERE feed_id = ?", when.UTC(), feedID)
	if err != nil {
		return fmt.Errorf("touching feed %s: %w", feedID, err)
	}
	return nil
}

// IncrementResolveCounter adds 1 to the (feedID, day) counter and returns
// the post-increment count. The row is created with count=1 and the given
// expiry on the first increment of the day; later increments never
// overwrite expires_at. The whole operation is a single statement so
// concurrent resolutions for the same feed and day cannot lose updates.
func (s *Store) IncrementResolveCounter(ctx context.Context, feedID string, day int, expires time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store not initialized")
	}

	var count int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO resolve_counters (feed_id, day, count, expires_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(feed_id, day) DO UPDATE SET count = count + 1
		RETURNING count
	`, feedID, day, expires.Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("incrementing resolve counter for %s/%d: %w", feedID, day, err)
	}
	return count, nil
}

// CounterExpiry returns the stored expiry for a (feedID, day) counter row.
func (s *Store) CounterExpiry(ctx context.Context, feedID string, day int) (time.Time, error) {
	if s == nil || s.db == nil {
		return time.Time{}, fmt.Errorf("store not initialized")
	}

	var epoch int64
	err := s.db.QueryRowContext(ctx,
		"SELECT expires_at FROM resolve_counters WHERE feed_id = ? AND day = ?",
		feedID, day).Scan(&epoch)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("no counter for %s/%d", feedID, day)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("querying counter expiry for %s/%d: %w", feedID, day, err)
	}
	return time.Unix(epoch, 0).UTC(), nil
}

// CounterStats reports the number of live counter rows and their summed
// resolution count, skipping rows whose expiry has already passed.
func (s *Store) CounterStats(ctx context.Context, now time.Time) (rows, resolutions int64, err error) {
	if s == nil || s.db == nil {
		return 0, 0, fmt.Errorf("store not initialized")
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(count), 0)
		FROM resolve_counters WHERE expires_at >= ?
	`, now.Unix()).Scan(&rows, &resolutions)
	if err != nil {
		return 0, 0, fmt.Errorf("querying counter stats: %w", err)
	}
	return rows, resolutions, nil
}

// PurgeExpiredCounters deletes counter rows whose expiry has passed and
// returns the number of rows removed.
func (s *Store) PurgeExpiredCounters(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM resolve_counters WHERE expires_at < ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("purging expired counters: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading purge row count: %w", err)
	}
	return removed, nil
}
