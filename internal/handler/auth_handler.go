package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"clinic-booking-api/internal/apperr"
	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/store"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.WriteError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(&req); err != nil {
		h.WriteError(w, r, apperr.BadRequest("Username and password are required"))
		return
	}

	u, err := h.store.AdminByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.loginFailed(w, r, req.Username)
			return
		}
		h.WriteError(w, r, apperr.Internal("Internal server error", err))
		return
	}
	// same answer for unknown user and wrong password
	if !auth.PasswordMatches(u.PasswordHash, req.Password) {
		h.loginFailed(w, r, req.Username)
		return
	}

	tok, err := auth.MakeToken(u.ID, u.Username, h.secret)
	if err != nil {
		h.WriteError(w, r, apperr.Internal("Internal server error", err))
		return
	}

	h.metrics.LoginAttempt("success")
	h.logger.WithFields(logrus.Fields{
		"username":   u.Username,
		"request_id": middleware.RequestID(r.Context()),
	}).Info("admin logged in")
	writeJSON(w, http.StatusOK, map[string]string{"token": tok, "message": "Login successful"})
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, username string) {
	h.metrics.LoginAttempt("failure")
	h.logger.WithFields(logrus.Fields{
		"username":   username,
		"request_id": middleware.RequestID(r.Context()),
	}).Warn("login failed")
	h.WriteError(w, r, apperr.Unauthorized("Invalid credentials"))
}

// Verify echoes the identity of a token that made it through the auth
// middleware.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	c, ok := middleware.Claims(r.Context())
	if !ok {
		h.WriteError(w, r, apperr.Unauthorized("Access denied. No token provided."))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "user": c})
}
