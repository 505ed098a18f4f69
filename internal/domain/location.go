package domain

// LocationSource tags where the current coordinate came from.
// It is used for precedence and diagnostics only; never persisted.
type LocationSource int

const (
	SourceDefault LocationSource = iota
	SourceDeviceGeolocation
	SourceSearchResult
	SourceMapClick
)

func (s LocationSource) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceDeviceGeolocation:
		return "device_geolocation"
	case SourceSearchResult:
		return "search_result"
	case SourceMapClick:
		return "map_click"
	default:
		return "unknown"
	}
}

// IsUserAction reports whether the source represents a deliberate user choice.
func (s LocationSource) IsUserAction() bool {
	return s == SourceSearchResult || s == SourceMapClick
}

// A single place candidate returned by a search provider.
// Consumed once by the controller and then discarded.
type SearchResult struct {
	Label      string
	Coordinate Coordinates
}

// Represents the picker's authoritative location.
// HasUserInteracted latches to true on the first search selection or map
// click; after that, device geolocation results are ignored.
type ControllerState struct {
	Current           Coordinates
	Source            LocationSource
	HasUserInteracted bool
}
