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
)

const DefaultORSURL = "https://api.openrouteservice.org"

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// ORSProvider implements SearchProvider using OpenRouteService
// (/geocode/search). It is safe for concurrent use.
type ORSProvider struct {
	http    *httpClient
	baseURL string
	country string
	size    int
}

func NewORSProvider(apiKey, baseURL, country string, size int) (*ORSProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultORSURL
	}
	if size <= 0 {
		size = 5
	}

	return &ORSProvider{
		http:    newHTTPClient(10*time.Second, map[string]string{"Authorization": apiKey}),
		baseURL: baseURL,
		country: country,
		size:    size,
	}, nil
}

func (o *ORSProvider) Search(ctx context.Context, query string) (_ []domain.SearchResult, err error) {
	defer obs.Time(ctx, "ors.Search")(&err)

	norm := normalize(query)
	if norm == "" {
		return []domain.SearchResult{}, nil
	}

	endpoint := o.baseURL + "/geocode/search"

	resp, err := o.http.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.http.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", norm)
		if o.country != "" {
			q.Set("boundary.country", o.country)
		}
		q.Set("size", strconv.Itoa(o.size))
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ors search %q: %w", domain.ErrSearchProvider, norm, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode geocode response: %w", domain.ErrSearchProvider, err)
	}

	out := make([]domain.SearchResult, 0, len(decoded.Features))
	for _, f := range decoded.Features {
		coords := f.Geometry.Coordinates
		if len(coords) != 2 {
			continue
		}

		// ORS returns [lon, lat].
		c, err := domain.NewCoordinates(coords[1], coords[0])
		if err != nil {
			continue
		}
		out = append(out, domain.SearchResult{Label: f.Properties.Label, Coordinate: c})
	}

	return out, nil
}
