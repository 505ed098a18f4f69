package services

import (
	"event-location-service/internal/domain"
	"event-location-service/internal/ports"
	"fmt"
)

// SearchAdapter places a search control on the map and forwards selected
// results to a handler.
//
// Attaching registers two things on the surface: the control itself and a
// subscription to its "result selected" notification. Detach releases both.
// Like ClickCapture, it is idempotent per surface and callers serialize access.
type SearchAdapter struct {
	provider   ports.SearchProvider
	onSelected func(domain.SearchResult)

	surface      ports.MapSurface
	controlID    ports.ListenerID
	subscription ports.ListenerID
}

func NewSearchAdapter(provider ports.SearchProvider, onSelected func(domain.SearchResult)) *SearchAdapter {
	return &SearchAdapter{provider: provider, onSelected: onSelected}
}

// Settings used for the map's search affordance.
func (a *SearchAdapter) controlConfig() ports.SearchControlConfig {
	return ports.SearchControlConfig{
		Provider:     a.provider,
		Style:        "button",
		AutoComplete: true,
		ShowMarker:   false,
		ShowPopup:    false,
	}
}

func (a *SearchAdapter) Attach(surface ports.MapSurface) error {
	if surface == nil {
		return fmt.Errorf("attach search adapter: %w", domain.ErrMapNotReady)
	}
	if a.Attached() && a.surface.ID() == surface.ID() {
		return nil
	}
	a.Detach()

	controlID, err := surface.AddSearchControl(a.controlConfig())
	if err != nil {
		return fmt.Errorf("attach search adapter: add control: %w", err)
	}

	subID, err := surface.OnSearchResult(func(r domain.SearchResult) { a.onSelected(r) })
	if err != nil {
		surface.RemoveSearchControl(controlID)
		return fmt.Errorf("attach search adapter: subscribe: %w", err)
	}

	a.surface = surface
	a.controlID = controlID
	a.subscription = subID
	return nil
}

func (a *SearchAdapter) Detach() {
	if a.surface == nil {
		return
	}
	if a.subscription != 0 {
		a.surface.OffSearchResult(a.subscription)
	}
	if a.controlID != 0 {
		a.surface.RemoveSearchControl(a.controlID)
	}
	a.surface = nil
	a.controlID = 0
	a.subscription = 0
}

func (a *SearchAdapter) Attached() bool {
	return a.surface != nil && a.controlID != 0 && a.subscription != 0
}
