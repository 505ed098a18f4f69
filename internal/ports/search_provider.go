package ports

import (
	"context"
	"event-location-service/internal/domain"
)

// Contract for turning free text into ranked place candidates.
type SearchProvider interface {
	// Return an ordered, finite list of candidates for the query.
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// Persistent store of normalized query -> ordered results.
type SearchCache interface {
	Get(ctx context.Context, query string) ([]domain.SearchResult, bool, error)
	Put(ctx context.Context, query string, results []domain.SearchResult) error
}
