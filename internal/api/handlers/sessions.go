package handlers

import (
	"errors"
	"event-location-service/internal/adapters/geolocation"
	"event-location-service/internal/api/dto"
	"event-location-service/internal/domain"
	"event-location-service/internal/picker"
	"event-location-service/internal/platform/obs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SessionHandler exposes the location picker to the browser.
//
// The browser mounts a session when the event form opens, forwards what the
// user does on its map (clicks, search selections) and what the device
// reports (position or failure), and unmounts when the form closes.
type SessionHandler struct {
	Manager *picker.Manager
}

func (h *SessionHandler) Mount(w http.ResponseWriter, r *http.Request) {
	var req dto.MountRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	var initial *domain.Coordinates
	if req.Lat != nil || req.Lon != nil {
		c, err := coordinatesFrom(req.Lat, req.Lon)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		initial = &c
	}

	sess, err := h.Manager.Mount(r.Context(), initial)
	if err != nil {
		h.fail(w, r, "mount picker session", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, snapshot(sess))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, snapshot(sess))
}

func (h *SessionHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.Unmount(chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "unmount picker session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Render re-runs the mount step; listeners are never duplicated.
func (h *SessionHandler) Render(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Controller.Render()
	writeJSON(w, r, http.StatusOK, snapshot(sess))
}

func (h *SessionHandler) Click(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.CoordinateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	c, err := coordinatesFrom(req.Lat, req.Lon)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sess.Surface.Click(c)
	writeJSON(w, r, http.StatusOK, snapshot(sess))
}

// Search runs the query through the mounted search control. Provider
// failures degrade to an empty result list.
func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, r, http.StatusBadRequest, "q is required")
		return
	}

	res := dto.SearchResponse{Query: query, Results: []dto.SearchResultResponse{}}

	results, err := sess.Surface.Search(r.Context(), query)
	if err != nil {
		obs.Logger().Warn("place search degraded",
			zap.String("session_id", sess.ID),
			zap.String("query", query),
			zap.Error(err),
		)
		res.Degraded = true
		writeJSON(w, r, http.StatusOK, res)
		return
	}

	for _, sr := range results {
		res.Results = append(res.Results, dto.SearchResultResponse{
			Label: sr.Label,
			Lat:   sr.Coordinate.Lat,
			Lon:   sr.Coordinate.Lon,
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *SessionHandler) SelectResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.SelectResultRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	c, err := coordinatesFrom(req.Lat, req.Lon)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sess.Surface.SelectResult(domain.SearchResult{Label: strings.TrimSpace(req.Label), Coordinate: c})
	writeJSON(w, r, http.StatusOK, snapshot(sess))
}

// Geolocation receives the device's answer to the one position request.
func (h *SessionHandler) Geolocation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.GeolocationReportRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	var accepted bool
	if req.Error != "" {
		accepted = sess.Position.Fail(geolocation.ParseFailure(req.Error))
	} else {
		c, err := coordinatesFrom(req.Lat, req.Lon)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		accepted = sess.Position.Report(c)
	}

	writeJSON(w, r, http.StatusAccepted, dto.GeolocationReportResponse{Accepted: accepted})
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*picker.Session, bool) {
	sess, err := h.Manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get picker session", err)
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		obs.Logger().Error(op+" failed", zap.Error(err))
		writeError(w, r, status, "internal server error")
		return
	}

	msg := err.Error()
	if errors.Is(err, domain.ErrSessionNotFound) {
		msg = "session not found"
	}
	writeError(w, r, status, msg)
}

func snapshot(sess *picker.Session) dto.SessionResponse {
	st := sess.Controller.State()
	lat, lon := sess.Fields.Values()
	vp := sess.Surface.Viewport()

	return dto.SessionResponse{
		SessionID:         sess.ID,
		Current:           dto.CoordinateResponse{Lat: st.Current.Lat, Lon: st.Current.Lon},
		Source:            st.Source.String(),
		HasUserInteracted: st.HasUserInteracted,
		Form:              dto.FormResponse{Lat: lat, Lon: lon},
		Map: dto.MapResponse{
			Center:          dto.CoordinateResponse{Lat: vp.Center.Lat, Lon: vp.Center.Lon},
			Zoom:            vp.Zoom,
			Rendered:        vp.Rendered,
			ActiveListeners: sess.Surface.ActiveListeners(),
		},
	}
}
