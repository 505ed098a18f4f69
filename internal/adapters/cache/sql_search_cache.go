package cache

import (
	"context"
	"database/sql"
	"event-location-service/internal/domain"
	"event-location-service/internal/platform/obs"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLSearchCache is a Postgres-backed cache mapping search queries to
// ranked results.
type SQLSearchCache struct {
	DB  *sql.DB
	Now func() time.Time
	// MaxAge makes older entries read as misses; zero keeps them forever.
	MaxAge time.Duration
}

func NewSQLSearchCache(db *sql.DB) *SQLSearchCache {
	return &SQLSearchCache{DB: db, Now: time.Now}
}

// Fetch cached results for a query.
func (s *SQLSearchCache) Get(ctx context.Context, query string) (_ []domain.SearchResult, _ bool, err error) {
	defer obs.Time(ctx, "search.cache.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("search cache: db is nil")
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false, nil
	}

	var fetchedAt int64
	err = s.DB.QueryRowContext(ctx, `
	SELECT fetched_at
	FROM search_queries
	WHERE query = $1;
	`, query).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get search cache: query search_queries table: %w", err)
	}
	if stale(fetchedAt, s.Now(), s.MaxAge) {
		return nil, false, nil
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT label, lat, lon
	FROM search_results
	WHERE query = $1
	ORDER BY rank;
	`, query)
	if err != nil {
		return nil, false, fmt.Errorf("get search cache: query search_results table: %w", err)
	}
	defer rows.Close()

	out, err := scanResults(rows)
	if err != nil {
		return nil, false, fmt.Errorf("get search cache: %w", err)
	}
	return out, true, nil
}

// Store the ranked results of a query, replacing any previous entry.
func (s *SQLSearchCache) Put(ctx context.Context, query string, results []domain.SearchResult) error {
	if s.DB == nil {
		return errors.New("search cache: db is nil")
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return fmt.Errorf("insert search cache: empty query key")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert search cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM search_results WHERE query = $1;`, query); err != nil {
		return fmt.Errorf("insert search cache: clear results: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO search_queries (query, fetched_at)
	VALUES ($1, $2)
	ON CONFLICT (query) DO UPDATE
	SET fetched_at = EXCLUDED.fetched_at;
	`, query, s.Now().Unix()); err != nil {
		return fmt.Errorf("insert search cache: upsert query: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO search_results (query, rank, label, lat, lon)
	VALUES ($1, $2, $3, $4, $5);
	`)
	if err != nil {
		return fmt.Errorf("insert search cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for rank, r := range results {
		if _, err := stmt.ExecContext(ctx, query, rank, r.Label, r.Coordinate.Lat, r.Coordinate.Lon); err != nil {
			return fmt.Errorf("insert search cache query=%q rank=%d: %w", query, rank, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert search cache commit: %w", err)
	}

	return nil
}
