package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, email, password, confirm string) (domain.Token, error)
	Login(ctx context.Context, email, password string) (domain.Token, error)
	Me(ctx context.Context, subject string) (*domain.Account, error)
}
