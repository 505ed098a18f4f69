package ports

import "event-location-service/internal/domain"

// Opaque handle to a listener or control registered on a MapSurface.
// Zero is never issued and means "not registered".
type ListenerID uint64

type ClickListener func(domain.Coordinates)

type SearchResultListener func(domain.SearchResult)

// Options for the search affordance placed on the map.
type SearchControlConfig struct {
	Provider     SearchProvider
	Style        string
	AutoComplete bool
	ShowMarker   bool
	ShowPopup    bool
}

// Port: the rendering/interaction capability of a map.
// Implementations return domain.ErrMapNotReady when the surface cannot yet
// accept listeners or render calls.
type MapSurface interface {
	// Stable identity of the surface instance; listeners are keyed by it.
	ID() string
	Render(center domain.Coordinates, zoom int) error

	AddClickListener(cb ClickListener) (ListenerID, error)
	RemoveClickListener(id ListenerID)

	AddSearchControl(cfg SearchControlConfig) (ListenerID, error)
	RemoveSearchControl(id ListenerID)

	// Subscribe to the "result selected" notification of the search control.
	OnSearchResult(cb SearchResultListener) (ListenerID, error)
	OffSearchResult(id ListenerID)
}
