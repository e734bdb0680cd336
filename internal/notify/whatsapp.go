package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"clinic-booking-api/internal/model"
)

// WhatsApp has no provider behind it. Send only logs and reports success so
// callers can treat it like any other channel.
type WhatsApp struct {
	logger *logrus.Logger
}

var _ Channel = (*WhatsApp)(nil)

func NewWhatsApp(logger *logrus.Logger) *WhatsApp {
	return &WhatsApp{logger: logger}
}

func (w *WhatsApp) Name() string { return "whatsapp" }

func (w *WhatsApp) Send(_ context.Context, a model.Appointment, kind Kind) error {
	w.logger.WithFields(logrus.Fields{
		"kind":           kind,
		"appointment_id": a.ID,
	}).Debug("whatsapp delivery not implemented, skipping")
	return nil
}
