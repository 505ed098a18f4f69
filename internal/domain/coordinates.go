package domain

import (
	"fmt"
	"math"
)

// Immutable geographic coordinates (latitude, longitude).
// Values are replaced, never mutated in place.
type Coordinates struct {
	Lat float64
	Lon float64
}

// NewCoordinates builds a Coordinates value, rejecting NaN and infinities.
// Range checks are left to the providers that produced the values.
func NewCoordinates(lat, lon float64) (Coordinates, error) {
	c := Coordinates{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}

// Validate reports whether both components are finite numbers.
func (c Coordinates) Validate() error {
	if !isFinite(c.Lat) || !isFinite(c.Lon) {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinate, c.Lat, c.Lon)
	}
	return nil
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Lat, c.Lon)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
