package surface

import (
	"context"
	"event-location-service/internal/domain"
	"event-location-service/internal/platform/metrics"
	"event-location-service/internal/platform/obs"
	"event-location-service/internal/ports"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// EventSurface is a server-side MapSurface.
//
// The browser renders the real map; interactions it observes (clicks, search
// selections) are replayed here and dispatched to registered listeners the way
// the browser map would. Listeners are invoked outside the surface lock so a
// handler may call back into the surface.
//
// The surface is safe for concurrent use.
type EventSurface struct {
	id string

	mu       sync.Mutex
	ready    bool
	nextID   ports.ListenerID
	clicks   map[ports.ListenerID]ports.ClickListener
	controls map[ports.ListenerID]ports.SearchControlConfig
	results  map[ports.ListenerID]ports.SearchResultListener

	rendered bool
	center   domain.Coordinates
	zoom     int

	metrics *metrics.Metrics
}

// Viewport is the last rendered centre and zoom.
type Viewport struct {
	Center   domain.Coordinates
	Zoom     int
	Rendered bool
}

// New returns a surface that is ready to accept listeners.
func New(id string, m *metrics.Metrics) *EventSurface {
	s := NewPending(id, m)
	s.ready = true
	return s
}

// NewPending returns a surface that rejects listeners and render calls with
// domain.ErrMapNotReady until MarkReady is called.
func NewPending(id string, m *metrics.Metrics) *EventSurface {
	return &EventSurface{
		id:       id,
		clicks:   make(map[ports.ListenerID]ports.ClickListener),
		controls: make(map[ports.ListenerID]ports.SearchControlConfig),
		results:  make(map[ports.ListenerID]ports.SearchResultListener),
		metrics:  m,
	}
}

func (s *EventSurface) ID() string { return s.id }

func (s *EventSurface) MarkReady() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
}

func (s *EventSurface) Render(center domain.Coordinates, zoom int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return fmt.Errorf("render surface %s: %w", s.id, domain.ErrMapNotReady)
	}
	s.center = center
	s.zoom = zoom
	s.rendered = true
	return nil
}

func (s *EventSurface) AddClickListener(cb ports.ClickListener) (ports.ListenerID, error) {
	if cb == nil {
		return 0, fmt.Errorf("add click listener: nil callback")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return 0, fmt.Errorf("add click listener on %s: %w", s.id, domain.ErrMapNotReady)
	}
	id := s.issueLocked()
	s.clicks[id] = cb
	s.metrics.ListenersDelta(1)
	return id, nil
}

func (s *EventSurface) RemoveClickListener(id ports.ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clicks[id]; ok {
		delete(s.clicks, id)
		s.metrics.ListenersDelta(-1)
	}
}

func (s *EventSurface) AddSearchControl(cfg ports.SearchControlConfig) (ports.ListenerID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return 0, fmt.Errorf("add search control on %s: %w", s.id, domain.ErrMapNotReady)
	}
	id := s.issueLocked()
	s.controls[id] = cfg
	s.metrics.ListenersDelta(1)
	return id, nil
}

func (s *EventSurface) RemoveSearchControl(id ports.ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.controls[id]; ok {
		delete(s.controls, id)
		s.metrics.ListenersDelta(-1)
	}
}

func (s *EventSurface) OnSearchResult(cb ports.SearchResultListener) (ports.ListenerID, error) {
	if cb == nil {
		return 0, fmt.Errorf("subscribe search result: nil callback")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return 0, fmt.Errorf("subscribe search result on %s: %w", s.id, domain.ErrMapNotReady)
	}
	id := s.issueLocked()
	s.results[id] = cb
	s.metrics.ListenersDelta(1)
	return id, nil
}

func (s *EventSurface) OffSearchResult(id ports.ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[id]; ok {
		delete(s.results, id)
		s.metrics.ListenersDelta(-1)
	}
}

// Click dispatches a map click to every click listener.
// It returns the number of listeners notified.
func (s *EventSurface) Click(c domain.Coordinates) int {
	s.mu.Lock()
	listeners := orderedValues(s.clicks)
	s.mu.Unlock()

	for _, cb := range listeners {
		cb(c)
	}
	return len(listeners)
}

// SelectResult dispatches a chosen search result to every subscriber.
// It returns the number of subscribers notified.
func (s *EventSurface) SelectResult(r domain.SearchResult) int {
	s.mu.Lock()
	listeners := orderedValues(s.results)
	s.mu.Unlock()

	for _, cb := range listeners {
		cb(r)
	}
	return len(listeners)
}

// Search runs a query through the provider of the mounted search control.
// Without a control there is nothing to search with: domain.ErrMapNotReady.
func (s *EventSurface) Search(ctx context.Context, query string) (_ []domain.SearchResult, err error) {
	defer obs.Time(ctx, "surface.Search")(&err)

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}

	s.mu.Lock()
	var provider ports.SearchProvider
	for _, id := range sortedKeys(s.controls) {
		if p := s.controls[id].Provider; p != nil {
			provider = p
			break
		}
	}
	s.mu.Unlock()

	if provider == nil {
		return nil, fmt.Errorf("search on %s: no search control: %w", s.id, domain.ErrMapNotReady)
	}

	results, err := provider.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search on %s: %w", s.id, err)
	}
	return results, nil
}

// ActiveListeners counts click listeners, search controls and search
// subscriptions currently registered.
func (s *EventSurface) ActiveListeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clicks) + len(s.controls) + len(s.results)
}

// Counts returns click listeners, search controls and search subscriptions
// separately.
func (s *EventSurface) Counts() (clicks, controls, subscriptions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clicks), len(s.controls), len(s.results)
}

func (s *EventSurface) Viewport() Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Viewport{Center: s.center, Zoom: s.zoom, Rendered: s.rendered}
}

func (s *EventSurface) issueLocked() ports.ListenerID {
	s.nextID++
	return s.nextID
}

func sortedKeys[V any](m map[ports.ListenerID]V) []ports.ListenerID {
	keys := make([]ports.ListenerID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Registration order keeps dispatch deterministic.
func orderedValues[V any](m map[ports.ListenerID]V) []V {
	keys := sortedKeys(m)
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
