package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"event-location-service/internal/domain"
	"event-location-service/internal/platform/obs"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// NominatimProvider implements SearchProvider using the OpenStreetMap
// Nominatim search API. It is safe for concurrent use.
type NominatimProvider struct {
	http    *httpClient
	baseURL string
	limit   int
}

func NewNominatimProvider(baseURL, userAgent string, limit int) (*NominatimProvider, error) {
	if userAgent == "" {
		return nil, errors.New("nominatim user agent is empty")
	}
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if limit <= 0 {
		limit = 5
	}

	return &NominatimProvider{
		http:    newHTTPClient(10*time.Second, map[string]string{"User-Agent": userAgent}),
		baseURL: baseURL,
		limit:   limit,
	}, nil
}

func (p *NominatimProvider) Search(ctx context.Context, query string) (_ []domain.SearchResult, err error) {
	defer obs.Time(ctx, "nominatim.Search")(&err)

	norm := normalize(query)
	if norm == "" {
		return []domain.SearchResult{}, nil
	}

	endpoint := p.baseURL + "/search"

	resp, err := p.http.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := p.http.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("q", norm)
		q.Set("format", "jsonv2")
		q.Set("limit", strconv.Itoa(p.limit))
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: nominatim search %q: %w", domain.ErrSearchProvider, norm, err)
	}
	defer resp.Body.Close()

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("%w: decode nominatim response: %w", domain.ErrSearchProvider, err)
	}

	out := make([]domain.SearchResult, 0, len(places))
	for _, pl := range places {
		lat, errLat := strconv.ParseFloat(pl.Lat, 64)
		lon, errLon := strconv.ParseFloat(pl.Lon, 64)
		if errLat != nil || errLon != nil {
			obs.Logger().Debug("skipping nominatim place with bad coordinates",
				zap.String("label", pl.DisplayName))
			continue
		}
		c, err := domain.NewCoordinates(lat, lon)
		if err != nil {
			continue
		}
		out = append(out, domain.SearchResult{Label: pl.DisplayName, Coordinate: c})
	}

	return out, nil
}
