package api

import (
	"event-location-service/internal/platform/obs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// loggingMiddleware logs end-to-end request duration and response size for
// basic observability, and threads the request id into the context for
// obs.Time.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		r = r.WithContext(obs.WithRequestID(r.Context(), reqID))

		next.ServeHTTP(ww, r)

		// Record implicit 200 responses when handlers write without calling WriteHeader.
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		obs.Logger().Info("request",
			zap.String("req_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.RequestURI()),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Int64("dur_ms", time.Since(start).Milliseconds()),
		)
	})
}
