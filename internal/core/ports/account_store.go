package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// AccountStore persists accounts keyed by normalized email.
// Create must be atomic per email: of any number of concurrent calls for the
// same address exactly one succeeds and the rest get domain.ErrDuplicateEmail.
type AccountStore interface {
	Create(ctx context.Context, email, passwordHash string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
}
