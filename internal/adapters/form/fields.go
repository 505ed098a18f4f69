package form

import (
	"event-location-service/internal/domain"
	"event-location-service/internal/ports"
	"fmt"
	"sync"
)

// Fields holds the event draft's lat/lon form values.
// It is the in-process CoordinateBinding used by picker sessions and is safe
// for concurrent use.
type Fields struct {
	mu  sync.RWMutex
	lat *float64
	lon *float64
}

// NewFields returns empty fields (nothing submitted yet).
func NewFields() *Fields { return &Fields{} }

// NewFieldsWithValue returns fields pre-filled by the form owner,
// e.g. when editing an existing event.
func NewFieldsWithValue(c domain.Coordinates) *Fields {
	lat, lon := c.Lat, c.Lon
	return &Fields{lat: &lat, lon: &lon}
}

func (f *Fields) Write(field ports.Field, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := value
	switch field {
	case ports.FieldLat:
		f.lat = &v
	case ports.FieldLon:
		f.lon = &v
	default:
		return fmt.Errorf("write form field: unknown field %q", field)
	}
	return nil
}

func (f *Fields) Current() (domain.Coordinates, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.lat == nil || f.lon == nil {
		return domain.Coordinates{}, false
	}
	return domain.Coordinates{Lat: *f.lat, Lon: *f.lon}, true
}

// Values returns copies of both fields; nil means unset.
func (f *Fields) Values() (lat, lon *float64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return copyPtr(f.lat), copyPtr(f.lon)
}

func copyPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
