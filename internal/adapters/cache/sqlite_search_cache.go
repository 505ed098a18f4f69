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

// SQLite backed cache mapping search queries to ranked results.
// Query keys are expected to be normalized by the caller.
type SqliteSearchCache struct {
	DB  *sql.DB
	Now func() time.Time
	// MaxAge makes older entries read as misses; zero keeps them forever.
	MaxAge time.Duration
}

func NewSqliteSearchCache(db *sql.DB) *SqliteSearchCache {
	return &SqliteSearchCache{DB: db, Now: time.Now}
}

// Fetch cached results for a query. ok is false on a miss; a hit may hold
// zero results.
func (s *SqliteSearchCache) Get(ctx context.Context, query string) (_ []domain.SearchResult, _ bool, err error) {
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
	WHERE query = ?;
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
	SELECT
		label,
		lat,
		lon
	FROM search_results
	WHERE query = ?
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
func (s *SqliteSearchCache) Put(ctx context.Context, query string, results []domain.SearchResult) error {
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

	if _, err := tx.ExecContext(ctx, `DELETE FROM search_results WHERE query = ?;`, query); err != nil {
		return fmt.Errorf("insert search cache: clear results: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
	INSERT OR REPLACE INTO search_queries (
		query,
		fetched_at
	)
	VALUES (?, ?);
	`, query, s.Now().Unix()); err != nil {
		return fmt.Errorf("insert search cache: upsert query: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO search_results (
		query,
		rank,
		label,
		lat,
		lon
	)
	VALUES (?, ?, ?, ?, ?);
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

func scanResults(rows *sql.Rows) ([]domain.SearchResult, error) {
	out := make([]domain.SearchResult, 0, 8)
	for rows.Next() {
		var label string
		var lat, lon float64
		if err := rows.Scan(&label, &lat, &lon); err != nil {
			return nil, fmt.Errorf("scan rows: %w", err)
		}
		out = append(out, domain.SearchResult{
			Label:      label,
			Coordinate: domain.Coordinates{Lat: lat, Lon: lon},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return out, nil
}
