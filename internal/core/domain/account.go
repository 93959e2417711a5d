package domain

import "time"

// Account is a registered identity keyed by its normalized email.
// Accounts are never mutated after creation.
type Account struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Token is a bearer credential issued for an account.
type Token struct {
	ID        string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Raw       string
}
