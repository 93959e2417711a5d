package ports

import "context"

// PasswordHasher produces and checks salted one-way password hashes.
// Compare reports false with a nil error when the password does not match.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, hash, password string) (bool, error)
}
