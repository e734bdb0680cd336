package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS appointments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL,
	date TEXT NOT NULL,
	time TEXT NOT NULL,
	service TEXT NOT NULL,
	notes TEXT,
	status TEXT DEFAULT 'pending',
	created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS admin_users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
`

// sqlite keeps timestamps as text; CURRENT_TIMESTAMP uses the first layout.
const timeLayout = "2006-01-02 15:04:05"

var timeLayouts = []string{timeLayout, time.RFC3339Nano, "2006-01-02T15:04:05Z"}

const appointmentCols = `id, patient_name, email, phone, date, time, service,
	COALESCE(notes, '') AS notes, COALESCE(status, 'pending') AS status,
	COALESCE(created_at, '') AS created_at`

type appointmentRow struct {
	ID          int64  `db:"id"`
	PatientName string `db:"patient_name"`
	Email       string `db:"email"`
	Phone       string `db:"phone"`
	Date        string `db:"date"`
	Time        string `db:"time"`
	Service     string `db:"service"`
	Notes       string `db:"notes"`
	Status      string `db:"status"`
	CreatedAt   string `db:"created_at"`
}

func (r appointmentRow) model() model.Appointment {
	return model.Appointment{
		ID:          r.ID,
		PatientName: r.PatientName,
		Email:       r.Email,
		Phone:       r.Phone,
		Date:        r.Date,
		Time:        r.Time,
		Service:     r.Service,
		Notes:       r.Notes,
		Status:      model.Status(r.Status),
		CreatedAt:   parseTime(r.CreatedAt),
	}
}

type adminRow struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open opens the database file at path (":memory:" for a throwaway store).
// One connection is kept so every statement is serialised by the driver.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	return New(db), nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) selectAppointments(ctx context.Context, q string, args ...any) ([]model.Appointment, error) {
	var rows []appointmentRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]model.Appointment, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}

func (s *Store) ListAppointments(ctx context.Context) ([]model.Appointment, error) {
	out, err := s.selectAppointments(ctx,
		`SELECT `+appointmentCols+`
		 FROM appointments
		 ORDER BY date DESC, time DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out, nil
}

func (s *Store) ListAppointmentsByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	out, err := s.selectAppointments(ctx,
		`SELECT `+appointmentCols+`
		 FROM appointments
		 WHERE date = ?
		 ORDER BY time ASC, id ASC`, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments by date: %w", err)
	}
	return out, nil
}

func (s *Store) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	var row appointmentRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	a := row.model()
	return &a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a model.Appointment) (*model.Appointment, error) {
	a.Status = model.StatusPending
	a.CreatedAt = s.now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO appointments (patient_name, email, phone, date, time, service, notes, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.PatientName, a.Email, a.Phone, a.Date, a.Time, a.Service, a.Notes,
		string(a.Status), a.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create appointment: last insert id: %w", err)
	}
	a.ID = id
	return &a, nil
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, id int64, status model.Status) (int64, error) {
	n, err := s.exec(ctx, `UPDATE appointments SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return 0, fmt.Errorf("update appointment status: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id int64) (int64, error) {
	n, err := s.exec(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete appointment: %w", err)
	}
	return n, nil
}

func (s *Store) AdminByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	var row adminRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, username, password_hash, COALESCE(created_at, '') AS created_at
		 FROM admin_users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("admin by username: %w", err)
	}
	return &model.AdminUser{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		CreatedAt:    parseTime(row.CreatedAt),
	}, nil
}

func (s *Store) CreateAdminIfAbsent(ctx context.Context, username, passwordHash string) (bool, error) {
	n, err := s.exec(ctx,
		`INSERT OR IGNORE INTO admin_users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, s.now().UTC().Format(timeLayout))
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return n == 1, nil
}
