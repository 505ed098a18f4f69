package services

import (
	"context"
	"event-location-service/internal/domain"
	"event-location-service/internal/ports"
	"fmt"
	"sync"
)

// GeolocationProbe issues a single device position request.
//
// The request runs in its own goroutine so the caller never waits on a
// permission prompt. There is no retry: one probe, one prompt.
type GeolocationProbe struct {
	provider ports.GeolocationProvider
	once     sync.Once
	done     chan struct{}
}

func NewGeolocationProbe(provider ports.GeolocationProvider) *GeolocationProbe {
	return &GeolocationProbe{
		provider: provider,
		done:     make(chan struct{}),
	}
}

// RequestOnce starts the lookup and reports the outcome through at most one of
// the callbacks; neither is called once ctx has ended. Later calls are
// ignored and return false.
func (p *GeolocationProbe) RequestOnce(
	ctx context.Context,
	onResolved func(domain.Coordinates),
	onFailed func(error),
) bool {
	started := false
	p.once.Do(func() {
		started = true
		go p.run(ctx, onResolved, onFailed)
	})
	return started
}

// Done is closed once the probe has delivered its outcome.
func (p *GeolocationProbe) Done() <-chan struct{} { return p.done }

func (p *GeolocationProbe) run(
	ctx context.Context,
	onResolved func(domain.Coordinates),
	onFailed func(error),
) {
	defer close(p.done)

	if p.provider == nil {
		onFailed(domain.ErrGeolocationUnsupported)
		return
	}

	coord, err := p.provider.CurrentPosition(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Abandoned by the owner, not a device failure.
			return
		}
		onFailed(fmt.Errorf("geolocation probe: %w", err))
		return
	}

	onResolved(coord)
}
