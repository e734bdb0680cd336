// Package notify delivers best-effort appointment notifications. Failures are
// logged and counted, never returned to the request that triggered them.
package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"clinic-booking-api/internal/model"
)

type Kind string

const (
	KindNew      Kind = "new"
	KindUpdate   Kind = "update"
	KindReminder Kind = "reminder"
)

// ErrNotConfigured is returned by a channel that is intentionally disabled.
var ErrNotConfigured = errors.New("channel not configured")

// Channel is one delivery route (email, whatsapp, ...).
type Channel interface {
	Name() string
	Send(ctx context.Context, a model.Appointment, kind Kind) error
}

// Notifier is what handlers and the reminder job depend on.
type Notifier interface {
	Notify(ctx context.Context, a model.Appointment, kind Kind)
}

// Recorder receives delivery outcomes; metrics implements it.
type Recorder interface {
	NotificationResult(channel, result string)
}

type Dispatcher struct {
	channels []Channel
	logger   *logrus.Logger
	rec      Recorder
}

var _ Notifier = (*Dispatcher)(nil)

func NewDispatcher(logger *logrus.Logger, rec Recorder, channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels, logger: logger, rec: rec}
}

// Notify tries every channel in order. A failing channel does not stop the
// others.
func (d *Dispatcher) Notify(ctx context.Context, a model.Appointment, kind Kind) {
	for _, ch := range d.channels {
		fields := logrus.Fields{
			"channel":        ch.Name(),
			"kind":           kind,
			"appointment_id": a.ID,
		}
		err := ch.Send(ctx, a, kind)
		switch {
		case err == nil:
			d.record(ch.Name(), "sent")
		case errors.Is(err, ErrNotConfigured):
			d.logger.WithFields(fields).Info("notification skipped")
			d.record(ch.Name(), "skipped")
		default:
			d.logger.WithFields(fields).WithError(err).Error("notification failed")
			d.record(ch.Name(), "failed")
		}
	}
}

func (d *Dispatcher) record(channel, result string) {
	if d.rec != nil {
		d.rec.NotificationResult(channel, result)
	}
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, model.Appointment, Kind) {}
