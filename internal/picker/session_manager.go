package picker

import (
	"context"
	"event-location-service/internal/adapters/form"
	"event-location-service/internal/adapters/geolocation"
	"event-location-service/internal/adapters/surface"
	"event-location-service/internal/domain"
	"event-location-service/internal/platform/metrics"
	"event-location-service/internal/platform/obs"
	"event-location-service/internal/ports"
	"event-location-service/internal/services"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one mounted location picker: a controller together with the
// map surface, form fields and device channel it was mounted against.
type Session struct {
	ID         string
	Controller *services.LocationController
	Surface    *surface.EventSurface
	Fields     *form.Fields
	Position   *geolocation.ReportedPosition
	CreatedAt  time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type Config struct {
	SearchProvider ports.SearchProvider
	Fallback       domain.Coordinates
	Zoom           int
	TTL            time.Duration
	Metrics        *metrics.Metrics
	Now            func() time.Time
}

// Manager owns mounted picker sessions.
//
// Mount creates a session and initializes its controller; Unmount (or TTL
// expiry) tears it down, releasing every map listener it registered.
// The manager is safe for concurrent use.
type Manager struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Fallback.Validate(); err != nil {
		return nil, fmt.Errorf("new picker manager: fallback: %w", err)
	}
	if cfg.Zoom <= 0 {
		cfg.Zoom = services.DefaultZoom
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}, nil
}

// Mount starts a picker session. initial is the value already present in
// the form, if any; otherwise the configured fallback is shown.
func (m *Manager) Mount(ctx context.Context, initial *domain.Coordinates) (_ *Session, err error) {
	defer obs.Time(ctx, "picker.Mount")(&err)

	fields := form.NewFields()
	if initial != nil {
		if err := initial.Validate(); err != nil {
			return nil, fmt.Errorf("mount picker: initial value: %w", err)
		}
		fields = form.NewFieldsWithValue(*initial)
	}

	id := uuid.NewString()
	now := m.cfg.Now()
	sess := &Session{
		ID:        id,
		Surface:   surface.New(id, m.cfg.Metrics),
		Fields:    fields,
		Position:  geolocation.NewReportedPosition(),
		CreatedAt: now,
		lastSeen:  now,
	}
	sess.Controller = services.NewLocationController(services.ControllerConfig{
		Surface:        sess.Surface,
		Binding:        sess.Fields,
		Geolocation:    sess.Position,
		SearchProvider: m.cfg.SearchProvider,
		Zoom:           m.cfg.Zoom,
		Metrics:        m.cfg.Metrics,
		Logger:         obs.Logger().With(zap.String("session_id", id)),
	})

	start := services.InitialCoordinates(sess.Fields, m.cfg.Fallback)
	if err := sess.Controller.Initialize(m.ctx, start); err != nil {
		sess.Controller.Teardown()
		return nil, fmt.Errorf("mount picker: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.cfg.Metrics.SessionMounted()
	obs.Logger().Info("picker session mounted",
		zap.String("session_id", id),
		zap.Stringer("center", start),
	)
	return sess, nil
}

// Get returns a live session and refreshes its idle timer.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("get picker session %q: %w", id, domain.ErrSessionNotFound)
	}
	sess.touch(m.cfg.Now())
	return sess, nil
}

func (m *Manager) Unmount(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("unmount picker session %q: %w", id, domain.ErrSessionNotFound)
	}
	m.teardown(sess, "unmounted")
	return nil
}

// Reap tears down sessions idle for longer than the TTL.
// It returns the number of sessions removed.
func (m *Manager) Reap() int {
	if m.cfg.TTL <= 0 {
		return 0
	}
	cutoff := m.cfg.Now().Add(-m.cfg.TTL)

	m.mu.Lock()
	expired := make([]*Session, 0)
	for id, sess := range m.sessions {
		if sess.LastSeen().Before(cutoff) {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		m.teardown(sess, "expired")
	}
	return len(expired)
}

// Run reaps expired sessions every interval until ctx ends.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Reap(); n > 0 {
				obs.Logger().Info("expired picker sessions reaped", zap.Int("count", n))
			}
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close tears down every session and cancels outstanding probes.
func (m *Manager) Close() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		all = append(all, sess)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range all {
		m.teardown(sess, "shutdown")
	}
	m.cancel()
}

func (m *Manager) teardown(sess *Session, why string) {
	sess.Controller.Teardown()
	m.cfg.Metrics.SessionUnmounted()
	obs.Logger().Info("picker session closed",
		zap.String("session_id", sess.ID),
		zap.String("reason", why),
		zap.Int("listeners_left", sess.Surface.ActiveListeners()),
	)
}
