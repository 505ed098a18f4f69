package picker

import (
	"context"
	"event-location-service/internal/domain"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fallback = domain.Coordinates{Lat: 31.900144, Lon: 35.206644}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newManager(t *testing.T, ttl time.Duration, clock *fakeClock) *Manager {
	t.Helper()
	cfg := Config{Fallback: fallback, TTL: ttl}
	if clock != nil {
		cfg.Now = clock.Now
	}
	m, err := NewManager(cfg)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestMountUsesFallback(t *testing.T) {
	m := newManager(t, 0, nil)

	sess, err := m.Mount(context.Background(), nil)
	require.NoError(t, err)

	st := sess.Controller.State()
	assert.Equal(t, fallback, st.Current)
	assert.Equal(t, domain.SourceDefault, st.Source)
	assert.Equal(t, 3, sess.Surface.ActiveListeners())
	assert.Equal(t, 1, m.Len())
}

func TestMountPrefersFormValue(t *testing.T) {
	m := newManager(t, 0, nil)
	initial := domain.Coordinates{Lat: 29.53, Lon: 35.0}

	sess, err := m.Mount(context.Background(), &initial)
	require.NoError(t, err)
	assert.Equal(t, initial, sess.Controller.State().Current)
	assert.Equal(t, domain.SourceDefault, sess.Controller.State().Source)
}

func TestMountRejectsInvalidInitial(t *testing.T) {
	m := newManager(t, 0, nil)
	bad := domain.Coordinates{Lat: math.NaN(), Lon: 0}

	_, err := m.Mount(context.Background(), &bad)
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
	assert.Equal(t, 0, m.Len())
}

func TestNewManagerRejectsInvalidFallback(t *testing.T) {
	_, err := NewManager(Config{Fallback: domain.Coordinates{Lat: math.Inf(1)}})
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}

func TestUnmountReleasesListeners(t *testing.T) {
	m := newManager(t, 0, nil)
	sess, err := m.Mount(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, m.Unmount(sess.ID))
	assert.Equal(t, 0, sess.Surface.ActiveListeners())

	_, err = m.Get(sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, m.Unmount(sess.ID), domain.ErrSessionNotFound)
}

func TestReapExpiresIdleSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
	m := newManager(t, 10*time.Minute, clock)

	idle, err := m.Mount(context.Background(), nil)
	require.NoError(t, err)
	active, err := m.Mount(context.Background(), nil)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	_, err = m.Get(active.ID)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	assert.Equal(t, 1, m.Reap())

	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, 0, idle.Surface.ActiveListeners())

	_, err = m.Get(active.ID)
	assert.NoError(t, err)
}

func TestCloseTearsDownEverything(t *testing.T) {
	m := newManager(t, 0, nil)

	var sessions []*Session
	for i := 0; i < 3; i++ {
		s, err := m.Mount(context.Background(), nil)
		require.NoError(t, err)
		sessions = append(sessions, s)
	}

	m.Close()
	assert.Equal(t, 0, m.Len())
	for _, s := range sessions {
		assert.Equal(t, 0, s.Surface.ActiveListeners())
		select {
		case <-s.Controller.ProbeDone():
		case <-time.After(2 * time.Second):
			t.Fatal("probe still waiting after Close")
		}
	}
}
