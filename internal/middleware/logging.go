package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const requestIDKey ctxKey = "request_id"

const RequestIDHeader = "X-Request-ID"

// RequestID returns the id assigned by Logging, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func wrap(w http.ResponseWriter) *statusRecorder {
	if sr, ok := w.(*statusRecorder); ok {
		return sr
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// Logging tags every request with an id (taken from X-Request-ID when the
// caller sent one) and writes one log line when it completes.
func Logging(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			start := time.Now()
			sr := wrap(w)
			next.ServeHTTP(sr, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

			entry := logger.WithFields(logrus.Fields{
				"request_id": id,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     sr.status,
				"duration":   time.Since(start).String(),
				"remote":     clientIP(r),
			})
			switch {
			case sr.status >= 500:
				entry.Error("request")
			case sr.status >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
		})
	}
}

// HTTPRecorder is satisfied by *metrics.Metrics.
type HTTPRecorder interface {
	InFlight(delta float64)
	RecordHTTPRequest(method, route string, status int, d time.Duration)
}

// Instrument records request counts and latency by route template so ids in
// paths do not explode label cardinality.
func Instrument(rec HTTPRecorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec.InFlight(1)
			defer rec.InFlight(-1)

			start := time.Now()
			sr := wrap(w)
			next.ServeHTTP(sr, r)

			route := "unmatched"
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			rec.RecordHTTPRequest(r.Method, route, sr.status, time.Since(start))
		})
	}
}
