package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-service/internal/core/credentials"
	"github.com/99minutos/auth-service/internal/core/domain"
)

const collectionAccounts = "accounts"

// AccountStore implements ports.AccountStore using MongoDB. Uniqueness of
// email is enforced by the index created in EnsureIndexes.
type AccountStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewAccountStore(db *mongo.Database) *AccountStore {
	return &AccountStore{col: db.Collection(collectionAccounts), now: time.Now}
}

type accountDoc struct {
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d accountDoc) toDomain() *domain.Account {
	return &domain.Account{
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

// Create inserts a new account document.
func (s *AccountStore) Create(ctx context.Context, email, passwordHash string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := newAccountDoc(email, passwordHash, s.now())
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return doc.toDomain(), nil
}

// FindByEmail retrieves an account by normalized email.
func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDoc
	err := s.col.FindOne(ctx, bson.M{"email": credentials.NormalizeEmail(email)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates the unique email index on the accounts collection.
func (s *AccountStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	return err
}

// newAccountDoc builds the stored form. BSON dates keep millisecond precision,
// so CreatedAt is truncated to match what a later read returns.
func newAccountDoc(email, passwordHash string, now time.Time) accountDoc {
	return accountDoc{
		Email:        credentials.NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now.UTC().Truncate(time.Millisecond),
	}
}
