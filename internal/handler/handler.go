// Package handler serves the clinic's REST API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"clinic-booking-api/internal/apperr"
	"clinic-booking-api/internal/metrics"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/notify"
	"clinic-booking-api/internal/store"
)

type Handler struct {
	store   store.Store
	secret  string
	notify  notify.Notifier
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func New(st store.Store, secret string, n notify.Notifier, m *metrics.Metrics, logger *logrus.Logger) *Handler {
	if n == nil {
		n = notify.Nop{}
	}
	if m == nil {
		m = metrics.New()
	}
	return &Handler{store: st, secret: secret, notify: n, metrics: m, logger: logger}
}

// RouterConfig holds the HTTP-surface settings that are not part of request
// handling itself. A nil limiter leaves its route unlimited.
type RouterConfig struct {
	Origins        []string
	LoginLimiter   *middleware.RateLimiter
	BookingLimiter *middleware.RateLimiter
	StaticDir      string
}

func (h *Handler) Router(cfg RouterConfig) http.Handler {
	logged := func(next http.Handler) http.Handler {
		return middleware.Logging(h.logger)(middleware.Instrument(h.metrics)(next))
	}

	r := mux.NewRouter()
	r.Use(middleware.Logging(h.logger), middleware.Instrument(h.metrics))
	// mux skips Use middleware when nothing matches
	r.NotFoundHandler = logged(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.WriteError(w, req, apperr.NotFound("Not found"))
	}))
	r.MethodNotAllowedHandler = logged(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.WriteError(w, req, apperr.MethodNotAllowed("Method not allowed"))
	}))

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/auth/login", h.limit(cfg.LoginLimiter, h.Login)).Methods(http.MethodPost)
	api.Handle("/appointments", h.limit(cfg.BookingLimiter, h.CreateAppointment)).Methods(http.MethodPost)

	admin := api.NewRoute().Subrouter()
	admin.Use(middleware.Auth(h.secret, h.logger, h.WriteError))
	admin.HandleFunc("/auth/verify", h.Verify).Methods(http.MethodGet)
	admin.HandleFunc("/appointments", h.ListAppointments).Methods(http.MethodGet)
	admin.HandleFunc("/appointments/{id}", h.GetAppointment).Methods(http.MethodGet)
	admin.HandleFunc("/appointments/{id}", h.UpdateAppointment).Methods(http.MethodPut)
	admin.HandleFunc("/appointments/{id}", h.DeleteAppointment).Methods(http.MethodDelete)

	if cfg.StaticDir != "" {
		h.mountStatic(r, cfg.StaticDir)
	}
	// outside the router so preflights never hit method matching
	return middleware.CORS(cfg.Origins)(r)
}

func (h *Handler) limit(rl *middleware.RateLimiter, f http.HandlerFunc) http.Handler {
	if rl == nil {
		return f
	}
	return middleware.RateLimit(rl, h.WriteError)(f)
}

// WriteError renders err as {message}. Causes of internal errors are logged,
// never sent to the client.
func (h *Handler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	if e.Kind == apperr.KindInternal {
		fields := logrus.Fields{"path": r.URL.Path, "method": r.Method}
		if id := middleware.RequestID(r.Context()); id != "" {
			fields["request_id"] = id
		}
		h.logger.WithFields(fields).WithError(e.Err).Error(e.Message)
	}
	writeJSON(w, e.HTTPStatus(), map[string]string{"message": e.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func message(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// validate checks presence only; trimming happens before it runs.
var validate = validator.New()

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	return nil
}

var errBadID = errors.New("bad id")

// pathID parses {id}; anything that is not a positive integer cannot name a
// stored row.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}
