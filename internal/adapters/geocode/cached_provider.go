package geocode

import (
	"context"
	"event-location-service/internal/domain"
	"event-location-service/internal/platform/obs"
	"event-location-service/internal/ports"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultUpstreamTimeout = 15 * time.Second

// CachedProvider fronts a SearchProvider with a persistent cache.
// Concurrent identical queries share one upstream call. The shared call is
// detached from any single caller's cancellation and bounded by its own
// timeout; each caller still stops waiting when its own ctx ends.
type CachedProvider struct {
	next    ports.SearchProvider
	cache   ports.SearchCache
	group   singleflight.Group
	timeout time.Duration
}

func NewCachedProvider(next ports.SearchProvider, cache ports.SearchCache) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, timeout: defaultUpstreamTimeout}
}

func (c *CachedProvider) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	key := normalize(query)
	if key == "" {
		return []domain.SearchResult{}, nil
	}

	if c.cache != nil {
		hit, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			obs.Logger().Warn("search cache read failed", zap.String("query", key), zap.Error(err))
		} else if ok {
			return hit, nil
		}
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(shared, c.timeout)
		defer cancel()

		results, err := c.next.Search(callCtx, key)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			if err := c.cache.Put(callCtx, key, results); err != nil {
				obs.Logger().Warn("search cache write failed", zap.String("query", key), zap.Error(err))
			}
		}
		return results, nil
	})

	var v any
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("cached search %q: %w", key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("cached search %q: %w", key, res.Err)
		}
		v = res.Val
	}

	results := v.([]domain.SearchResult)
	out := make([]domain.SearchResult, len(results))
	copy(out, results)
	return out, nil
}
