package services

import (
	"context"
	"event-location-service/internal/adapters/form"
	"event-location-service/internal/adapters/geolocation"
	"event-location-service/internal/adapters/surface"
	"event-location-service/internal/domain"
	"event-location-service/internal/platform/metrics"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fallback = domain.Coordinates{Lat: 31.900144, Lon: 35.206644}
	device   = domain.Coordinates{Lat: 32.0, Lon: 35.1}
	clicked  = domain.Coordinates{Lat: 31.95, Lon: 35.22}
	amman    = domain.SearchResult{Label: "Amman", Coordinate: domain.Coordinates{Lat: 31.9454, Lon: 35.9284}}
)

type fixture struct {
	ctrl     *LocationController
	surface  *surface.EventSurface
	fields   *form.Fields
	position *geolocation.ReportedPosition
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		surface:  surface.New("map-test", nil),
		fields:   form.NewFields(),
		position: geolocation.NewReportedPosition(),
	}
	f.ctrl = NewLocationController(ControllerConfig{
		Surface:     f.surface,
		Binding:     f.fields,
		Geolocation: f.position,
	})
	t.Cleanup(f.ctrl.Teardown)
	return f
}

func (f *fixture) waitProbe(t *testing.T) {
	t.Helper()
	select {
	case <-f.ctrl.ProbeDone():
	case <-time.After(2 * time.Second):
		t.Fatal("geolocation probe did not finish")
	}
}

func TestFallbackFirst(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))

	st := f.ctrl.State()
	assert.Equal(t, fallback, st.Current)
	assert.Equal(t, domain.SourceDefault, st.Source)
	assert.False(t, st.HasUserInteracted)

	vp := f.surface.Viewport()
	assert.True(t, vp.Rendered, "fallback must render without waiting on geolocation")
	assert.Equal(t, fallback, vp.Center)
	assert.Equal(t, DefaultZoom, vp.Zoom)
}

func TestInitializeRejectsNonFiniteFallback(t *testing.T) {
	f := newFixture(t)

	err := f.ctrl.Initialize(context.Background(), domain.Coordinates{Lat: math.NaN(), Lon: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
	assert.Equal(t, 0, f.surface.ActiveListeners())
}

func TestDeviceLocationAppliedBeforeInteraction(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))

	f.position.Report(device)
	f.waitProbe(t)

	st := f.ctrl.State()
	assert.Equal(t, device, st.Current)
	assert.Equal(t, domain.SourceDeviceGeolocation, st.Source)
	assert.False(t, st.HasUserInteracted)

	got, ok := f.fields.Current()
	require.True(t, ok)
	assert.Equal(t, device, got)
	assert.Equal(t, device, f.surface.Viewport().Center)
}

func TestDeviceLocationDroppedAfterClick(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))

	f.surface.Click(clicked)
	f.position.Report(device)
	f.waitProbe(t)

	st := f.ctrl.State()
	assert.Equal(t, clicked, st.Current)
	assert.Equal(t, domain.SourceMapClick, st.Source)
	assert.True(t, st.HasUserInteracted)

	got, _ := f.fields.Current()
	assert.Equal(t, clicked, got)
}

func TestDeviceLocationDroppedAfterSearch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))

	f.surface.SelectResult(amman)
	f.ctrl.OnDeviceLocationResolved(device)

	st := f.ctrl.State()
	assert.Equal(t, amman.Coordinate, st.Current)
	assert.Equal(t, domain.SourceSearchResult, st.Source)
}

func TestSearchResultSelected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))

	n := f.surface.SelectResult(amman)
	require.Equal(t, 1, n)

	st := f.ctrl.State()
	assert.Equal(t, domain.Coordinates{Lat: 31.9454, Lon: 35.9284}, st.Current)
	assert.Equal(t, domain.SourceSearchResult, st.Source)
	assert.True(t, st.HasUserInteracted)

	lat, lon := f.fields.Values()
	require.NotNil(t, lat)
	require.NotNil(t, lon)
	assert.Equal(t, 31.9454, *lat)
	assert.Equal(t, 35.9284, *lon)
}

func TestUserActionsAlwaysOverwrite(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))

	f.surface.SelectResult(amman)
	f.surface.Click(clicked)
	assert.Equal(t, clicked, f.ctrl.State().Current)
	assert.Equal(t, domain.SourceMapClick, f.ctrl.State().Source)

	f.surface.SelectResult(amman)
	assert.Equal(t, amman.Coordinate, f.ctrl.State().Current)
	assert.Equal(t, domain.SourceSearchResult, f.ctrl.State().Source)
	assert.True(t, f.ctrl.State().HasUserInteracted)
}

func TestWriteThroughOnEveryAcceptedUpdate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))

	_, ok := f.fields.Current()
	assert.False(t, ok, "fallback is not written to the form")

	for _, c := range []domain.Coordinates{clicked, {Lat: 30, Lon: 36}, {Lat: -1.5, Lon: 2.25}} {
		f.ctrl.OnMapClicked(c)
		got, ok := f.fields.Current()
		require.True(t, ok)
		assert.Equal(t, c, got)
		assert.Equal(t, c, f.surface.Viewport().Center)
	}
}

func TestDeviceFailureLeavesDefault(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))

	f.position.Fail(domain.ErrPermissionDenied)
	f.waitProbe(t)

	st := f.ctrl.State()
	assert.Equal(t, fallback, st.Current)
	assert.Equal(t, domain.SourceDefault, st.Source)
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

const deviceFailed = `location_updates_total{outcome="failed",source="device_geolocation"}`

func TestDeviceFailureIsCounted(t *testing.T) {
	m := metrics.New()
	position := geolocation.NewReportedPosition()
	ctrl := NewLocationController(ControllerConfig{
		Surface:     surface.New("map-fail", nil),
		Geolocation: position,
		Metrics:     m,
	})
	defer ctrl.Teardown()

	require.NoError(t, ctrl.Initialize(context.Background(), fallback))
	position.Fail(domain.ErrPermissionDenied)
	<-ctrl.ProbeDone()

	assert.Contains(t, scrape(t, m), deviceFailed+" 1")
}

func TestTeardownBeforeDeviceReportIsNotAFailure(t *testing.T) {
	m := metrics.New()
	ctrl := NewLocationController(ControllerConfig{
		Surface:     surface.New("map-unmount", nil),
		Geolocation: geolocation.NewReportedPosition(),
		Metrics:     m,
	})

	require.NoError(t, ctrl.Initialize(context.Background(), fallback))
	ctrl.Teardown()

	select {
	case <-ctrl.ProbeDone():
	case <-time.After(2 * time.Second):
		t.Fatal("probe did not stop after teardown")
	}
	assert.NotContains(t, scrape(t, m), deviceFailed)
}

func TestMissingGeolocationProviderIsUnsupported(t *testing.T) {
	s := surface.New("map-nogeo", nil)
	ctrl := NewLocationController(ControllerConfig{Surface: s})
	defer ctrl.Teardown()

	require.NoError(t, ctrl.Initialize(context.Background(), fallback))

	select {
	case <-ctrl.ProbeDone():
	case <-time.After(2 * time.Second):
		t.Fatal("probe did not report")
	}
	assert.Equal(t, domain.SourceDefault, ctrl.State().Source)
}

func TestNonFiniteUpdatesRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))

	f.surface.Click(domain.Coordinates{Lat: math.Inf(1), Lon: 0})
	f.surface.SelectResult(domain.SearchResult{Label: "bad", Coordinate: domain.Coordinates{Lat: math.NaN(), Lon: 0}})

	st := f.ctrl.State()
	assert.Equal(t, fallback, st.Current)
	assert.False(t, st.HasUserInteracted)
}

func TestNoDuplicateListenersAcrossRenders(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))

	for i := 0; i < 25; i++ {
		f.ctrl.Render()
	}

	clicks, controls, subs := f.surface.Counts()
	assert.Equal(t, 1, clicks)
	assert.Equal(t, 1, controls)
	assert.Equal(t, 1, subs)

	assert.Equal(t, 1, f.surface.Click(clicked))
}

func TestTeardownIsIdempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))
	require.Equal(t, 3, f.surface.ActiveListeners())

	assert.NotPanics(t, func() {
		f.ctrl.Teardown()
		f.ctrl.Teardown()
	})
	assert.Equal(t, 0, f.surface.ActiveListeners())

	f.surface.Click(clicked)
	assert.Equal(t, fallback, f.ctrl.State().Current)
}

func TestTeardownBeforeInitialize(t *testing.T) {
	f := newFixture(t)

	assert.NotPanics(t, f.ctrl.Teardown)
	assert.Equal(t, 0, f.surface.ActiveListeners())

	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))
	assert.Equal(t, 0, f.surface.ActiveListeners(), "a torn down controller must not re-register")
}

func TestMapNotReadyDegrades(t *testing.T) {
	s := surface.NewPending("map-pending", nil)
	ctrl := NewLocationController(ControllerConfig{Surface: s, Binding: form.NewFields()})

	require.NoError(t, ctrl.Initialize(context.Background(), fallback))
	assert.Equal(t, fallback, ctrl.State().Current)
	assert.Equal(t, 0, s.ActiveListeners())

	s.MarkReady()
	ctrl.Render()
	assert.Equal(t, 3, s.ActiveListeners())

	ctrl.Teardown()
	ctrl.Teardown()
	assert.Equal(t, 0, s.ActiveListeners())
}

func TestNilSurfaceTeardownIsSafe(t *testing.T) {
	ctrl := NewLocationController(ControllerConfig{})

	require.NoError(t, ctrl.Initialize(context.Background(), fallback))
	ctrl.OnMapClicked(clicked)
	assert.Equal(t, clicked, ctrl.State().Current)

	assert.NotPanics(t, func() {
		ctrl.Teardown()
		ctrl.Teardown()
	})
}

func TestRepeatedMountCyclesDoNotAccumulate(t *testing.T) {
	s := surface.New("map-shared", nil)

	for i := 0; i < 10; i++ {
		ctrl := NewLocationController(ControllerConfig{Surface: s})
		require.NoError(t, ctrl.Initialize(context.Background(), fallback))
		ctrl.Render()
		ctrl.Teardown()
	}

	assert.Equal(t, 0, s.ActiveListeners())
}

func TestLateDeviceResultAfterTeardownDropped(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))

	f.ctrl.Teardown()
	f.ctrl.OnDeviceLocationResolved(device)

	assert.Equal(t, fallback, f.ctrl.State().Current)
	_, ok := f.fields.Current()
	assert.False(t, ok)
}

func TestConcurrentProducers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Initialize(context.Background(), fallback))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			f.surface.Click(clicked)
		}
	}()
	for i := 0; i < 100; i++ {
		f.surface.SelectResult(amman)
	}
	<-done

	f.position.Report(device)
	f.waitProbe(t)

	st := f.ctrl.State()
	assert.True(t, st.HasUserInteracted)
	assert.True(t, st.Source.IsUserAction())
	got, _ := f.fields.Current()
	assert.Equal(t, st.Current, got)
}
