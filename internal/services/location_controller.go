package services

import (
	"context"
	"event-location-service/internal/domain"
	"event-location-service/internal/platform/metrics"
	"event-location-service/internal/platform/obs"
	"event-location-service/internal/ports"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const DefaultZoom = 10

type ControllerConfig struct {
	Surface        ports.MapSurface
	Binding        ports.CoordinateBinding
	Geolocation    ports.GeolocationProvider
	SearchProvider ports.SearchProvider
	Zoom           int
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

// LocationController is the single owner of an event draft's location.
//
// It reconciles three asynchronous producers:
//   - Device geolocation (one shot, lowest priority)
//   - Search result selection
//   - Map clicks
//
// A device result is applied only while the user has not yet searched or
// clicked. User actions always apply. Every accepted update is written to the
// form binding and re-rendered before the handler returns.
//
// Handlers may be called from any goroutine; each runs to completion under mu.
type LocationController struct {
	mu sync.Mutex

	state       domain.ControllerState
	initialized bool
	tornDown    bool

	zoom    int
	surface ports.MapSurface
	binding ports.CoordinateBinding

	probe  *GeolocationProbe
	search *SearchAdapter
	clicks *ClickCapture

	cancelProbe context.CancelFunc
	metrics     *metrics.Metrics
	log         *zap.Logger
}

func NewLocationController(cfg ControllerConfig) *LocationController {
	zoom := cfg.Zoom
	if zoom <= 0 {
		zoom = DefaultZoom
	}

	log := cfg.Logger
	if log == nil {
		log = obs.Logger()
	}

	c := &LocationController{
		zoom:    zoom,
		surface: cfg.Surface,
		binding: cfg.Binding,
		probe:   NewGeolocationProbe(cfg.Geolocation),
		metrics: cfg.Metrics,
		log:     log,
	}
	c.search = NewSearchAdapter(cfg.SearchProvider, c.OnSearchResultSelected)
	c.clicks = NewClickCapture(c.OnMapClicked)

	return c
}

// Initialize shows the fallback immediately, attaches map listeners and
// starts the geolocation probe in the background.
//
// ctx bounds the probe; Teardown cancels it as well. Only an invalid fallback
// is reported: map and geolocation failures are logged and degrade.
func (c *LocationController) Initialize(ctx context.Context, fallback domain.Coordinates) error {
	if err := fallback.Validate(); err != nil {
		return fmt.Errorf("initialize location controller: %w", err)
	}

	c.mu.Lock()
	if c.initialized || c.tornDown {
		c.mu.Unlock()
		c.log.Warn("location controller already initialized")
		return nil
	}

	c.initialized = true
	c.state = domain.ControllerState{
		Current:           fallback,
		Source:            domain.SourceDefault,
		HasUserInteracted: false,
	}
	c.renderLocked()
	c.attachLocked()

	probeCtx, cancel := context.WithCancel(ctx)
	c.cancelProbe = cancel
	c.mu.Unlock()

	c.probe.RequestOnce(probeCtx, c.OnDeviceLocationResolved, c.OnDeviceLocationFailed)
	return nil
}

// Render re-runs the mount step against the current surface.
// Repeated calls never add listeners beyond one click listener and one
// search control.
func (c *LocationController) Render() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live() {
		return
	}
	c.renderLocked()
	c.attachLocked()
}

func (c *LocationController) OnDeviceLocationResolved(coord domain.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()

	source := domain.SourceDeviceGeolocation
	if !c.live() {
		c.drop(source, "controller not mounted")
		return
	}
	if err := coord.Validate(); err != nil {
		c.reject(source, err)
		return
	}
	if c.state.HasUserInteracted {
		c.drop(source, "user already chose a location")
		return
	}

	c.applyLocked(coord, source)
}

// OnDeviceLocationFailed records the failure and leaves the state untouched.
func (c *LocationController) OnDeviceLocationFailed(reason error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live() {
		c.log.Debug("device geolocation failure ignored", zap.Error(reason))
		return
	}
	c.log.Info("device geolocation unavailable", zap.Error(reason))
	c.metrics.LocationUpdate(domain.SourceDeviceGeolocation.String(), metrics.OutcomeFailed)
}

func (c *LocationController) OnSearchResultSelected(result domain.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	source := domain.SourceSearchResult
	if !c.live() {
		c.drop(source, "controller not mounted")
		return
	}
	if err := result.Coordinate.Validate(); err != nil {
		c.reject(source, err)
		return
	}

	c.log.Debug("search result selected", zap.String("label", result.Label))
	c.applyLocked(result.Coordinate, source)
}

func (c *LocationController) OnMapClicked(coord domain.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()

	source := domain.SourceMapClick
	if !c.live() {
		c.drop(source, "controller not mounted")
		return
	}
	if err := coord.Validate(); err != nil {
		c.reject(source, err)
		return
	}

	c.applyLocked(coord, source)
}

// Teardown releases every listener the controller registered and stops the
// probe. Safe to call more than once and before Initialize.
func (c *LocationController) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tornDown {
		return
	}
	c.tornDown = true

	if c.cancelProbe != nil {
		c.cancelProbe()
	}
	c.search.Detach()
	c.clicks.Detach()
}

func (c *LocationController) State() domain.ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ProbeDone is closed once the geolocation probe has reported.
func (c *LocationController) ProbeDone() <-chan struct{} { return c.probe.Done() }

func (c *LocationController) live() bool {
	return c.initialized && !c.tornDown
}

func (c *LocationController) applyLocked(coord domain.Coordinates, source domain.LocationSource) {
	c.state.Current = coord
	c.state.Source = source
	if source.IsUserAction() {
		c.state.HasUserInteracted = true
	}

	if err := writeThrough(c.binding, coord); err != nil {
		c.log.Warn("coordinate binding write failed", zap.Error(err))
	}
	c.renderLocked()

	c.metrics.LocationUpdate(source.String(), metrics.OutcomeAccepted)
	c.log.Debug("location updated",
		zap.String("source", source.String()),
		zap.Float64("lat", coord.Lat),
		zap.Float64("lon", coord.Lon),
	)
}

func (c *LocationController) renderLocked() {
	if c.surface == nil {
		c.log.Debug("render skipped", zap.Error(domain.ErrMapNotReady))
		return
	}
	if err := c.surface.Render(c.state.Current, c.zoom); err != nil {
		c.log.Warn("map render failed", zap.Error(err))
	}
}

func (c *LocationController) attachLocked() {
	if err := c.clicks.Attach(c.surface); err != nil {
		c.log.Warn("click capture unavailable", zap.Error(err))
	}
	if err := c.search.Attach(c.surface); err != nil {
		c.log.Warn("search control unavailable", zap.Error(err))
	}
}

func (c *LocationController) drop(source domain.LocationSource, why string) {
	c.metrics.LocationUpdate(source.String(), metrics.OutcomeDropped)
	c.log.Debug("location update dropped",
		zap.String("source", source.String()),
		zap.String("reason", why),
	)
}

func (c *LocationController) reject(source domain.LocationSource, err error) {
	c.metrics.LocationUpdate(source.String(), metrics.OutcomeRejected)
	c.log.Warn("location update rejected",
		zap.String("source", source.String()),
		zap.Error(err),
	)
}
