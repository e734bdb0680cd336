package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

func setup(t *testing.T) *Store {
	t.Helper()
	_ = godotenv.Load("../../../.env")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	st, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

// far-future dates keep test rows at the top of the list and away from real data
func testAppointment(date, tm string) model.Appointment {
	return model.Appointment{
		PatientName: "Test Patient",
		Email:       "test@example.com",
		Phone:       "1234567890",
		Date:        date,
		Time:        tm,
		Service:     "musculoskeletal",
		Status:      model.StatusCompleted,
	}
}

func TestCreateAndGet(t *testing.T) {
	st := setup(t)
	ctx := context.Background()

	a, err := st.CreateAppointment(ctx, testAppointment("2999-01-10", "10:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { st.DeleteAppointment(ctx, a.ID) })

	if a.ID == 0 {
		t.Fatal("empty id")
	}
	if a.Status != model.StatusPending {
		t.Errorf("status: got %s", a.Status)
	}

	got, err := st.GetAppointment(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PatientName != a.PatientName || got.Status != model.StatusPending {
		t.Errorf("mismatch: %+v", got)
	}
}

func TestOrdering(t *testing.T) {
	st := setup(t)
	ctx := context.Background()

	first, err := st.CreateAppointment(ctx, testAppointment("2999-06-10", "10:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := st.CreateAppointment(ctx, testAppointment("2999-06-12", "09:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() {
		st.DeleteAppointment(ctx, first.ID)
		st.DeleteAppointment(ctx, second.ID)
	})

	list, err := st.ListAppointments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	pos := map[int64]int{}
	for i, a := range list {
		pos[a.ID] = i
	}
	if pos[second.ID] > pos[first.ID] {
		t.Errorf("expected %d before %d", second.ID, first.ID)
	}
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	st := setup(t)
	ctx := context.Background()

	n, err := st.UpdateAppointmentStatus(ctx, -1, model.StatusConfirmed)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 rows, got %d", n)
	}

	n, err = st.DeleteAppointment(ctx, -1)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 rows, got %d", n)
	}

	if _, err := st.GetAppointment(ctx, -1); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdminSeed(t *testing.T) {
	st := setup(t)
	ctx := context.Background()

	name := fmt.Sprintf("test-%s", uuid.New().String()[:8])
	created, err := st.CreateAdminIfAbsent(ctx, name, "hash")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !created {
		t.Fatal("expected row to be created")
	}
	t.Cleanup(func() {
		st.pool.Exec(ctx, `DELETE FROM admin_users WHERE username = $1`, name)
	})

	created, err = st.CreateAdminIfAbsent(ctx, name, "other")
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if created {
		t.Error("second seed should be a no-op")
	}

	u, err := st.AdminByUsername(ctx, name)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.PasswordHash != "hash" {
		t.Errorf("hash overwritten: %s", u.PasswordHash)
	}
}
