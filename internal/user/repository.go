package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrAlreadyExists is returned when creating a user whose email is taken.
var ErrAlreadyExists = errors.New("user already exists")

// Repository is a database-backed repository for users.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, name, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		u.Email, u.Name, u.PasswordHash, time.Now().UTC(),
	)
	if err != nil {
		// The sqlite driver reports the duplicate primary key by name.
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user, or nil when no account exists.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, `
		SELECT email, name, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
