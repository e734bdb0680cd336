package handler

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// mountStatic serves the booking page at / and the admin page at /admin;
// anything else under / is looked up in dir.
func (h *Handler) mountStatic(r *mux.Router, dir string) {
	page := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			http.ServeFile(w, req, filepath.Join(dir, name))
		}
	}
	r.HandleFunc("/", page("index.html")).Methods(http.MethodGet)
	r.HandleFunc("/admin", page("admin.html")).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(dir))).Methods(http.MethodGet)
}
