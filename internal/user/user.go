package user

import "time"

// User is an account keyed by email. The password hash never leaves the
// backend.
type User struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}
