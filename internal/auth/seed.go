package auth

import (
	"context"
	"fmt"
)

// AdminStore is the slice of the storage adapter seeding needs.
type AdminStore interface {
	CreateAdminIfAbsent(ctx context.Context, username, passwordHash string) (bool, error)
}

// SeedAdmin makes sure an admin row exists for username. Existing rows are
// left untouched, so it is safe to call on every start.
func SeedAdmin(ctx context.Context, st AdminStore, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, fmt.Errorf("seed admin: username and password required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("seed admin: hash: %w", err)
	}
	created, err := st.CreateAdminIfAbsent(ctx, username, hash)
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return created, nil
}
