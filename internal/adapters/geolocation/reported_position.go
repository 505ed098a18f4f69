package geolocation

import (
	"context"
	"event-location-service/internal/domain"
	"fmt"
	"strings"
	"sync"
)

type outcome struct {
	coord domain.Coordinates
	err   error
}

// ReportedPosition is a GeolocationProvider fed by the client device.
//
// CurrentPosition blocks until the browser reports a position or a failure,
// or ctx ends. Only the first report counts; the device is asked once.
type ReportedPosition struct {
	once sync.Once
	ch   chan outcome
}

func NewReportedPosition() *ReportedPosition {
	return &ReportedPosition{ch: make(chan outcome, 1)}
}

func (r *ReportedPosition) CurrentPosition(ctx context.Context) (domain.Coordinates, error) {
	select {
	case o := <-r.ch:
		return o.coord, o.err
	case <-ctx.Done():
		return domain.Coordinates{}, fmt.Errorf("await device position: %w", ctx.Err())
	}
}

// Report delivers the device position. It returns false if a report was
// already made.
func (r *ReportedPosition) Report(c domain.Coordinates) bool {
	return r.deliver(outcome{coord: c})
}

// Fail delivers a failure such as domain.ErrPermissionDenied.
func (r *ReportedPosition) Fail(reason error) bool {
	if reason == nil {
		reason = domain.ErrGeolocationUnsupported
	}
	return r.deliver(outcome{err: reason})
}

func (r *ReportedPosition) deliver(o outcome) bool {
	delivered := false
	r.once.Do(func() {
		r.ch <- o
		delivered = true
	})
	return delivered
}

// ParseFailure maps a client failure code to the error taxonomy.
// Codes follow the browser's GeolocationPositionError names.
func ParseFailure(code string) error {
	normalized := strings.ToLower(strings.TrimSpace(code))
	switch normalized {
	case "permission_denied", "denied":
		return domain.ErrPermissionDenied
	case "unsupported", "":
		return domain.ErrGeolocationUnsupported
	case "position_unavailable", "timeout":
		return fmt.Errorf("%w: %s", domain.ErrGeolocationUnsupported, normalized)
	default:
		return fmt.Errorf("device geolocation failed: %s", code)
	}
}
