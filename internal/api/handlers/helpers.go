package handlers

import (
	"encoding/json"
	"errors"
	"event-location-service/internal/domain"
	"event-location-service/internal/platform/obs"
	"io"
	"net/http"

	"go.uber.org/zap"
)

var errTrailingData = errors.New("body must contain only one JSON object")

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.Logger().Warn("encode failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object with no unknown fields.
// An empty body decodes to the zero value when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errTrailingData
	}
	return nil
}

// coordinatesFrom builds a coordinate from optional JSON fields.
func coordinatesFrom(lat, lon *float64) (domain.Coordinates, error) {
	if lat == nil || lon == nil {
		return domain.Coordinates{}, errors.New("lat and lon are required")
	}
	return domain.NewCoordinates(*lat, *lon)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCoordinate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMapNotReady):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSearchProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
