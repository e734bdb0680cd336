package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS appointments (
	id SERIAL PRIMARY KEY,
	patient_name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL,
	date TEXT NOT NULL,
	time TEXT NOT NULL,
	service TEXT NOT NULL,
	notes TEXT,
	status TEXT DEFAULT 'pending',
	created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS admin_users (
	id SERIAL PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ DEFAULT NOW()
);
`

const appointmentCols = `id, patient_name, email, phone, date, time, service,
	COALESCE(notes, ''), COALESCE(status, 'pending'), created_at`

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects a pool to dsn and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return New(pool), nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	a := &model.Appointment{}
	var status string
	err := row.Scan(&a.ID, &a.PatientName, &a.Email, &a.Phone, &a.Date, &a.Time,
		&a.Service, &a.Notes, &status, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = model.Status(status)
	return a, nil
}

func (s *Store) listWhere(ctx context.Context, q string, args ...any) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) ListAppointments(ctx context.Context) ([]model.Appointment, error) {
	out, err := s.listWhere(ctx,
		`SELECT `+appointmentCols+`
		 FROM appointments
		 ORDER BY date DESC, time DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out, nil
}

func (s *Store) ListAppointmentsByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	out, err := s.listWhere(ctx,
		`SELECT `+appointmentCols+`
		 FROM appointments
		 WHERE date = $1
		 ORDER BY time ASC, id ASC`, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments by date: %w", err)
	}
	return out, nil
}

func (s *Store) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a model.Appointment) (*model.Appointment, error) {
	a.Status = model.StatusPending
	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointments (patient_name, email, phone, date, time, service, notes, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING id, created_at`,
		a.PatientName, a.Email, a.Phone, a.Date, a.Time, a.Service, a.Notes, string(a.Status),
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return &a, nil
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, id int64, status model.Status) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return 0, fmt.Errorf("update appointment status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete appointment: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) AdminByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	u := &model.AdminUser{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at
		 FROM admin_users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("admin by username: %w", err)
	}
	return u, nil
}

func (s *Store) CreateAdminIfAbsent(ctx context.Context, username, passwordHash string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO admin_users (username, password_hash) VALUES ($1, $2)
		 ON CONFLICT (username) DO NOTHING`, username, passwordHash)
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
