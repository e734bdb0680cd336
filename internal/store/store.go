// Package store defines the persistence contract shared by the PostgreSQL
// and SQLite backends.
package store

import (
	"context"
	"errors"

	"clinic-booking-api/internal/model"
)

var ErrNotFound = errors.New("not found")

// Store is implemented by every backend. Both must return identical shapes:
// same ordering, same status defaults, row counts for writes.
type Store interface {
	// ListAppointments orders by date DESC, time DESC.
	ListAppointments(ctx context.Context) ([]model.Appointment, error)
	// ListAppointmentsByDate orders by time ASC.
	ListAppointmentsByDate(ctx context.Context, date string) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, id int64) (*model.Appointment, error)
	// CreateAppointment ignores a.Status and always stores pending.
	CreateAppointment(ctx context.Context, a model.Appointment) (*model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status model.Status) (int64, error)
	DeleteAppointment(ctx context.Context, id int64) (int64, error)

	AdminByUsername(ctx context.Context, username string) (*model.AdminUser, error)
	CreateAdminIfAbsent(ctx context.Context, username, passwordHash string) (bool, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
