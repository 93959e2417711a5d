package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/99minutos/auth-service/internal/core/credentials"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// AccountStore implements ports.AccountStore on the accounts table. The
// email primary key makes concurrent creates for one address collide.
type AccountStore struct {
	db  Querier
	now func() time.Time
}

func NewAccountStore(db Querier) *AccountStore {
	return &AccountStore{db: db, now: time.Now}
}

const (
	insertAccountSQL = `INSERT INTO accounts (email, password_hash, created_at) VALUES ($1, $2, $3)`
	selectAccountSQL = `SELECT email, password_hash, created_at FROM accounts WHERE email = $1`
)

func (s *AccountStore) Create(ctx context.Context, email, passwordHash string) (*domain.Account, error) {
	a := &domain.Account{
		Email:        credentials.NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}

	if _, err := s.db.Exec(ctx, insertAccountSQL, a.Email, a.PasswordHash, a.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	err := s.db.QueryRow(ctx, selectAccountSQL, credentials.NormalizeEmail(email)).
		Scan(&a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

// Ping checks database reachability.
func (s *AccountStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
