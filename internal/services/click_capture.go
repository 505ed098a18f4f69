package services

import (
	"event-location-service/internal/domain"
	"event-location-service/internal/ports"
	"fmt"
)

// ClickCapture forwards map clicks to a handler.
// At most one listener is active per surface; Attach is idempotent.
// Callers serialize access.
type ClickCapture struct {
	onClick func(domain.Coordinates)
	surface ports.MapSurface
	id      ports.ListenerID
}

func NewClickCapture(onClick func(domain.Coordinates)) *ClickCapture {
	return &ClickCapture{onClick: onClick}
}

func (cc *ClickCapture) Attach(surface ports.MapSurface) error {
	if surface == nil {
		return fmt.Errorf("attach click capture: %w", domain.ErrMapNotReady)
	}
	if cc.Attached() && cc.surface.ID() == surface.ID() {
		return nil
	}
	cc.Detach()

	id, err := surface.AddClickListener(func(c domain.Coordinates) { cc.onClick(c) })
	if err != nil {
		return fmt.Errorf("attach click capture: %w", err)
	}

	cc.surface = surface
	cc.id = id
	return nil
}

func (cc *ClickCapture) Detach() {
	if !cc.Attached() {
		return
	}
	cc.surface.RemoveClickListener(cc.id)
	cc.surface = nil
	cc.id = 0
}

func (cc *ClickCapture) Attached() bool {
	return cc.surface != nil && cc.id != 0
}
