// Package reminder sends a reminder for every appointment booked for the
// following day.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/notify"
)

const dateLayout = "2006-01-02"

// Lister is the part of the store a reminder pass reads.
type Lister interface {
	ListAppointmentsByDate(ctx context.Context, date string) ([]model.Appointment, error)
}

type Scheduler struct {
	store  Lister
	notify notify.Notifier
	logger *logrus.Logger
	cron   *cron.Cron
}

func New(st Lister, n notify.Notifier, logger *logrus.Logger) *Scheduler {
	return &Scheduler{store: st, notify: n, logger: logger}
}

// Start registers the job on spec (standard five-field cron syntax). Passes
// run under ctx, so cancelling it aborts an in-flight pass.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, s.job(ctx)); err != nil {
		return fmt.Errorf("reminder: schedule %q: %w", spec, err)
	}
	s.cron = c
	c.Start()
	s.logger.WithField("schedule", spec).Info("reminder job scheduled")
	return nil
}

func (s *Scheduler) job(ctx context.Context) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.RunOnce(ctx, time.Now()); err != nil {
			s.logger.WithError(err).Error("reminder pass failed")
		}
	}
}

// Stop waits for a running pass to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce reminds every pending or confirmed appointment dated the day after
// now and reports how many were sent.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (int, error) {
	date := now.AddDate(0, 0, 1).Format(dateLayout)
	list, err := s.store.ListAppointmentsByDate(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("reminder: list %s: %w", date, err)
	}

	sent := 0
	for _, a := range list {
		if a.Status != model.StatusPending && a.Status != model.StatusConfirmed {
			continue
		}
		s.notify.Notify(ctx, a, notify.KindReminder)
		sent++
	}
	s.logger.WithFields(logrus.Fields{"date": date, "sent": sent}).Info("reminder pass done")
	return sent, nil
}
