package services

import (
	"event-location-service/internal/domain"
	"event-location-service/internal/ports"
	"fmt"
)

// writeThrough copies an accepted coordinate into the form fields.
// A nil binding is allowed (picker used without a form).
func writeThrough(binding ports.CoordinateBinding, c domain.Coordinates) error {
	if binding == nil {
		return nil
	}
	if err := binding.Write(ports.FieldLat, c.Lat); err != nil {
		return fmt.Errorf("write binding field=%s: %w", ports.FieldLat, err)
	}
	if err := binding.Write(ports.FieldLon, c.Lon); err != nil {
		return fmt.Errorf("write binding field=%s: %w", ports.FieldLon, err)
	}
	return nil
}

// InitialCoordinates picks the mount-time centre: the binding's externally
// supplied value when it holds a valid one, otherwise the fallback.
func InitialCoordinates(binding ports.CoordinateBinding, fallback domain.Coordinates) domain.Coordinates {
	if binding == nil {
		return fallback
	}
	c, ok := binding.Current()
	if !ok || c.Validate() != nil {
		return fallback
	}
	return c
}
