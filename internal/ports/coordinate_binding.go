package ports

import "event-location-service/internal/domain"

// Name of a form field the picker writes to.
type Field string

const (
	FieldLat Field = "lat"
	FieldLon Field = "lon"
)

// Port: externally owned form fields holding the event location.
// Validation and submission belong to the form, not the picker.
type CoordinateBinding interface {
	Write(field Field, value float64) error
	// Externally supplied value for initial rendering, if any.
	Current() (domain.Coordinates, bool)
}
