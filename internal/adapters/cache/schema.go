package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dialect selects the SQL flavour for schema and placeholder syntax.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Initialize the search cache schema.
func InitSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	realType := "REAL"
	switch dialect {
	case DialectSQLite:
	case DialectPostgres:
		realType = "DOUBLE PRECISION"
	default:
		return fmt.Errorf("init schema: unknown dialect %q", dialect)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createQueriesQuery := `
	CREATE TABLE IF NOT EXISTS search_queries (
		query TEXT PRIMARY KEY,
		fetched_at BIGINT NOT NULL
	);
	`

	createResultsQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS search_results (
		query TEXT NOT NULL,
		rank INTEGER NOT NULL,
		label TEXT NOT NULL,
		lat %[1]s NOT NULL,
		lon %[1]s NOT NULL,
		PRIMARY KEY (query, rank)
	);
	`, realType)

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_search_queries_fetched_at
	ON search_queries(fetched_at);
	`

	statements := []string{
		createQueriesQuery,
		createResultsQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Purge removes cached queries fetched before cutoff.
// It returns the number of queries removed.
func Purge(ctx context.Context, db *sql.DB, dialect Dialect, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("purge search cache: DB is nil")
	}

	p1 := "?"
	if dialect == DialectPostgres {
		p1 = "$1"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("purge search cache: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
	DELETE FROM search_results
	WHERE query IN (SELECT query FROM search_queries WHERE fetched_at < %s);
	`, p1), cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge search cache: delete results: %w", err)
	}

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
	DELETE FROM search_queries WHERE fetched_at < %s;
	`, p1), cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge search cache: delete queries: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge search cache: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("purge search cache: commit tx: %w", err)
	}

	return n, nil
}

func stale(fetchedAt int64, now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && fetchedAt < now.Add(-maxAge).Unix()
}
