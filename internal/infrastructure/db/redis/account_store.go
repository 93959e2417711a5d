package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/auth-service/internal/core/credentials"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// AccountStore implements ports.AccountStore on Redis.
// Key format: account:<normalized_email>, value is a JSON document.
// Accounts have no expiry.
type AccountStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewAccountStore creates an AccountStore wrapping the given Redis client.
func NewAccountStore(client *redis.Client) *AccountStore {
	return &AccountStore{client: client, now: time.Now}
}

type accountRecord struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Create stores the account with SETNX so only the first writer wins.
func (s *AccountStore) Create(ctx context.Context, email, passwordHash string) (*domain.Account, error) {
	rec := accountRecord{
		Email:        credentials.NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}

	ok, err := s.client.SetNX(ctx, accountKey(rec.Email), payload, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("store account: %w", err)
	}
	if !ok {
		return nil, domain.ErrDuplicateEmail
	}
	return rec.toDomain(), nil
}

// FindByEmail loads the account stored under the normalized email.
func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	raw, err := s.client.Get(ctx, accountKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return decodeAccount(raw)
}

func (r accountRecord) toDomain() *domain.Account {
	return &domain.Account{Email: r.Email, PasswordHash: r.PasswordHash, CreatedAt: r.CreatedAt}
}

func decodeAccount(raw []byte) (*domain.Account, error) {
	var rec accountRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return rec.toDomain(), nil
}

func accountKey(email string) string {
	return "account:" + credentials.NormalizeEmail(email)
}
