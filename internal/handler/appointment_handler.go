package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"clinic-booking-api/internal/apperr"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/notify"
	"clinic-booking-api/internal/store"
)

var errNotFound = apperr.NotFound("Appointment not found")

type createRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Date    string `json:"date" validate:"required"`
	Time    string `json:"time" validate:"required"`
	Service string `json:"service" validate:"required"`
	Notes   string `json:"notes"`
}

func (c *createRequest) trim() {
	for _, f := range []*string{&c.Name, &c.Email, &c.Phone, &c.Date, &c.Time, &c.Service, &c.Notes} {
		*f = strings.TrimSpace(*f)
	}
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		h.WriteError(w, r, err)
		return
	}
	req.trim()
	if err := validate.Struct(&req); err != nil {
		h.WriteError(w, r, apperr.BadRequest("Missing required fields"))
		return
	}

	a, err := h.store.CreateAppointment(r.Context(), model.Appointment{
		PatientName: req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Date:        req.Date,
		Time:        req.Time,
		Service:     req.Service,
		Notes:       req.Notes,
	})
	if err != nil {
		h.WriteError(w, r, apperr.Internal("Failed to book appointment", err))
		return
	}
	h.metrics.AppointmentEvent("created", string(a.Status))
	h.logger.WithFields(logrus.Fields{
		"appointment_id": a.ID,
		"date":           a.Date,
		"service":        a.Service,
		"request_id":     middleware.RequestID(r.Context()),
	}).Info("appointment booked")

	h.notify.Notify(r.Context(), *a, notify.KindNew)

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Appointment booked successfully",
		"appointment": a,
	})
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListAppointments(r.Context())
	if err != nil {
		h.WriteError(w, r, apperr.Internal("Failed to fetch appointments", err))
		return
	}
	if list == nil {
		list = []model.Appointment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.WriteError(w, r, errNotFound)
		return
	}
	a, err := h.store.GetAppointment(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.WriteError(w, r, errNotFound)
	case err != nil:
		h.WriteError(w, r, apperr.Internal("Failed to fetch appointment", err))
	default:
		writeJSON(w, http.StatusOK, a)
	}
}

type statusRequest struct {
	Status model.Status `json:"status"`
}

func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		h.WriteError(w, r, err)
		return
	}
	if !req.Status.Valid() {
		h.WriteError(w, r, apperr.BadRequest("Invalid status"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.WriteError(w, r, errNotFound)
		return
	}

	n, err := h.store.UpdateAppointmentStatus(r.Context(), id, req.Status)
	if err != nil {
		h.WriteError(w, r, apperr.Internal("Failed to update appointment", err))
		return
	}
	if n == 0 {
		h.WriteError(w, r, errNotFound)
		return
	}
	h.metrics.AppointmentEvent("status", string(req.Status))
	h.logger.WithFields(logrus.Fields{
		"appointment_id": id,
		"status":         req.Status,
		"request_id":     middleware.RequestID(r.Context()),
	}).Info("appointment status changed")

	h.notifyUpdate(r.Context(), id)
	message(w, http.StatusOK, "Appointment updated successfully")
}

// notifyUpdate re-reads the row so the message carries the stored state.
func (h *Handler) notifyUpdate(ctx context.Context, id int64) {
	a, err := h.store.GetAppointment(ctx, id)
	if err != nil {
		h.logger.WithField("appointment_id", id).WithError(err).Error("load appointment for notification")
		return
	}
	h.notify.Notify(ctx, *a, notify.KindUpdate)
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.WriteError(w, r, errNotFound)
		return
	}
	n, err := h.store.DeleteAppointment(r.Context(), id)
	if err != nil {
		h.WriteError(w, r, apperr.Internal("Failed to delete appointment", err))
		return
	}
	if n == 0 {
		h.WriteError(w, r, errNotFound)
		return
	}
	h.metrics.AppointmentEvent("deleted", "")
	h.logger.WithFields(logrus.Fields{
		"appointment_id": id,
		"request_id":     middleware.RequestID(r.Context()),
	}).Info("appointment deleted")
	message(w, http.StatusOK, "Appointment deleted successfully")
}
