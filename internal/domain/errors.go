package domain

import "errors"

// Failure taxonomy for location resolution. Every one of these is recoverable:
// the controller degrades to "no update applied" and logs the cause.
var (
	ErrPermissionDenied       = errors.New("geolocation permission denied")
	ErrGeolocationUnsupported = errors.New("geolocation unsupported")
	ErrSearchProvider         = errors.New("search provider error")
	ErrMapNotReady            = errors.New("map surface not ready")
	ErrInvalidCoordinate      = errors.New("invalid coordinate")
)

// ErrSessionNotFound is returned when a picker session id is unknown or expired.
var ErrSessionNotFound = errors.New("picker session not found")
