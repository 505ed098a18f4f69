package ports

import (
	"context"
	"event-location-service/internal/domain"
)

// Contract for the device's one-shot position lookup.
type GeolocationProvider interface {
	// Return the current device position, or domain.ErrPermissionDenied /
	// domain.ErrGeolocationUnsupported.
	CurrentPosition(ctx context.Context) (domain.Coordinates, error)
}
