package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"clinic-booking-api/internal/model"
)

// Mailer is satisfied by *gomail.Dialer.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailConfig struct {
	User     string
	Pass     string
	Host     string
	Port     int
	Clinic   string
	Location string
	Doctor   string
}

type Email struct {
	cfg    EmailConfig
	mailer Mailer
	logger *logrus.Logger
}

var _ Channel = (*Email)(nil)

// NewEmail builds the SMTP channel. Without credentials it stays inert and
// every Send reports ErrNotConfigured.
func NewEmail(cfg EmailConfig, logger *logrus.Logger) *Email {
	e := &Email{cfg: cfg, logger: logger}
	if e.configured() {
		e.mailer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	}
	return e
}

// NewEmailWithMailer is NewEmail with the transport supplied.
func NewEmailWithMailer(cfg EmailConfig, m Mailer, logger *logrus.Logger) *Email {
	return &Email{cfg: cfg, mailer: m, logger: logger}
}

func (e *Email) Name() string { return "email" }

func (e *Email) configured() bool { return e.cfg.User != "" && e.cfg.Pass != "" }

func (e *Email) Send(ctx context.Context, a model.Appointment, kind Kind) error {
	if !e.configured() || e.mailer == nil {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.User)
	m.SetHeader("To", a.Email)
	m.SetHeader("Subject", e.Subject(kind))
	m.SetBody("text/plain", e.Body(a, kind))

	e.logger.WithFields(logrus.Fields{
		"kind":           kind,
		"appointment_id": a.ID,
	}).Info("sending email")
	if err := e.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (e *Email) Subject(kind Kind) string {
	switch kind {
	case KindNew:
		return "Appointment Confirmation - " + e.cfg.Clinic
	case KindReminder:
		return "Appointment Reminder - " + e.cfg.Clinic
	default:
		return "Appointment Update - " + e.cfg.Clinic
	}
}

func (e *Email) Body(a model.Appointment, kind Kind) string {
	var lead string
	switch kind {
	case KindNew:
		lead = "Your appointment has been successfully booked."
	case KindReminder:
		lead = "This is a reminder of your appointment tomorrow."
	default:
		lead = fmt.Sprintf("Your appointment details have been updated. Current status: %s.", a.Status)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", a.PatientName)
	fmt.Fprintf(&b, "%s\n\n", lead)
	b.WriteString("Details:\n")
	fmt.Fprintf(&b, "Date: %s\n", a.Date)
	fmt.Fprintf(&b, "Time: %s\n", a.Time)
	fmt.Fprintf(&b, "Service: %s\n\n", a.Service)
	fmt.Fprintf(&b, "Location: %s\n", e.cfg.Location)
	fmt.Fprintf(&b, "%s\n\n", e.cfg.Doctor)
	b.WriteString("If you have any questions, please reply to this email.")
	return b.String()
}
