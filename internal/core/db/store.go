package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
)

// cacheSchemaVersion participates in every cache key. Bump it when the
// synthesized payload shape changes so stale entries are recomputed
// instead of deserialized into the wrong shape.
const cacheSchemaVersion = 1

// Key identifies one memoized analysis: a request type plus a fingerprint
// of the source file that declares it.
type Key struct {
	Hash       string
	TypeName   string
	SourceFile string
}

// NewKey fingerprints a request type's source file (path, size, mtime)
// into a cache key. Any edit to the file changes the key, so a stale
// entry is never served.
func NewKey(typeName, sourceFile string) (Key, error) {
	info, err := os.Stat(sourceFile)
	if err != nil {
		return Key{}, fmt.Errorf("failed to stat source file: %w", err)
	}

	h := sha256.New()
	fmt.Fprintf(h, "v%d|%s|%s|%d|%d",
		cacheSchemaVersion, typeName, sourceFile, info.Size(), info.ModTime().UnixNano())

	return Key{
		Hash:       fmt.Sprintf("%x", h.Sum(nil)),
		TypeName:   typeName,
		SourceFile: sourceFile,
	}, nil
}

// CacheEntry describes one stored analysis for listings.
type CacheEntry struct {
	CacheKey   string
	TypeName   string
	SourceFile string
	CreatedAt  time.Time
}

// Store memoizes per-type analysis payloads keyed by source fingerprint.
type Store struct {
	db *sqlx.DB
	q  *Queries
}

// NewStore wraps an open cache database in the memoization API. The
// caller runs migrations first; NewStore only loads the named queries.
func NewStore(db *sqlx.DB) (*Store, error) {
	q, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, q: q}, nil
}

// Fetch returns the cached payload for key, computing and storing it on a
// miss. The bool reports whether the payload came from the cache. When the
// payload computes but the write-back fails, the payload is still returned
// together with the error so callers can degrade to uncached operation.
func (s *Store) Fetch(ctx context.Context, key Key, compute func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	var payload []byte
	err := s.q.GetContext(ctx, "get-analysis", &payload, key.Hash)
	if err == nil {
		return payload, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	payload, err = compute(ctx)
	if err != nil {
		return nil, false, err
	}

	_, err = s.q.ExecContext(ctx, "upsert-analysis",
		key.Hash, key.TypeName, key.SourceFile, payload, s.timeValue(time.Now()))
	if err != nil {
		return payload, false, fmt.Errorf("failed to store cache entry: %w", err)
	}

	return payload, false, nil
}

// Count reports the number of cached analyses.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.q.GetContext(ctx, "count-analysis", &n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Purge deletes entries created before the cutoff and reports how many
// were removed.
func (s *Store) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.q.ExecContext(ctx, "purge-analysis", s.timeValue(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Entries lists stored analyses, newest first.
func (s *Store) Entries(ctx context.Context) ([]CacheEntry, error) {
	if s.db.DriverName() == "sqlite3" {
		var rows []textTimeRow
		if err := s.q.SelectContext(ctx, "list-analysis", &rows); err != nil {
			return nil, fmt.Errorf("failed to list cache entries: %w", err)
		}
		entries := make([]CacheEntry, 0, len(rows))
		for _, r := range rows {
			ts, err := time.Parse(time.RFC3339, r.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("malformed created_at for %s: %w", r.CacheKey, err)
			}
			entries = append(entries, CacheEntry{
				CacheKey:   r.CacheKey,
				TypeName:   r.TypeName,
				SourceFile: r.SourceFile,
				CreatedAt:  ts,
			})
		}
		return entries, nil
	}

	var rows []nativeTimeRow
	if err := s.q.SelectContext(ctx, "list-analysis", &rows); err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	entries := make([]CacheEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, CacheEntry{
			CacheKey:   r.CacheKey,
			TypeName:   r.TypeName,
			SourceFile: r.SourceFile,
			CreatedAt:  r.CreatedAt,
		})
	}
	return entries, nil
}

// timeValue renders a timestamp in the driver's storage form: RFC3339
// text for SQLite, native timestamp for PostgreSQL.
func (s *Store) timeValue(t time.Time) interface{} {
	if s.db.DriverName() == "sqlite3" {
		return t.UTC().Format(time.RFC3339)
	}
	return t.UTC()
}

// textTimeRow mirrors analysis_cache for drivers storing created_at as
// RFC3339 text (SQLite).
type textTimeRow struct {
	CacheKey   string `db:"cache_key"`
	TypeName   string `db:"type_name"`
	SourceFile string `db:"source_file"`
	CreatedAt  string `db:"created_at"`
}

// nativeTimeRow mirrors analysis_cache for drivers with a native
// timestamp column (PostgreSQL).
type nativeTimeRow struct {
	CacheKey   string    `db:"cache_key"`
	TypeName   string    `db:"type_name"`
	SourceFile string    `db:"source_file"`
	CreatedAt  time.Time `db:"created_at"`
}
