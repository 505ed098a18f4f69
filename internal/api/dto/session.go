package dto

type CoordinateRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type MountRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type SelectResultRequest struct {
	Label string   `json:"label"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
}

// Either a position or an error code such as "permission_denied".
type GeolocationReportRequest struct {
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Error string   `json:"error"`
}

type GeolocationReportResponse struct {
	Accepted bool `json:"accepted"`
}

type CoordinateResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type FormResponse struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type MapResponse struct {
	Center          CoordinateResponse `json:"center"`
	Zoom            int                `json:"zoom"`
	Rendered        bool               `json:"rendered"`
	ActiveListeners int                `json:"active_listeners"`
}

type SessionResponse struct {
	SessionID         string             `json:"session_id"`
	Current           CoordinateResponse `json:"current"`
	Source            string             `json:"source"`
	HasUserInteracted bool               `json:"has_user_interacted"`
	Form              FormResponse       `json:"form"`
	Map               MapResponse        `json:"map"`
}

type SearchResultResponse struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

type SearchResponse struct {
	Query    string                 `json:"query"`
	Results  []SearchResultResponse `json:"results"`
	Degraded bool                   `json:"degraded"`
}
