package domain

import "time"

// User represents an account. Password holds the salt.hash digest, never plaintext.
type User struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
