package ports

import "github.com/99minutos/auth-service/internal/core/domain"

// TokenVerifier resolves a raw bearer token to its subject.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// TokenIssuer mints bearer tokens for an authenticated subject.
type TokenIssuer interface {
	TokenVerifier
	Issue(subject string) (domain.Token, error)
}
