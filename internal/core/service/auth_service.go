package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/credentials"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/pkg/metrics"
)

// DefaultRequestTimeout bounds a single Register, Login or Me call.
const DefaultRequestTimeout = 5 * time.Second

// dummyPassword is hashed once and compared against on logins for unknown
// emails so both failure paths do the same amount of work. A failed attempt
// to hash it is retried on the next unknown-email login.
const dummyPassword = "dummy-password-for-timing"

// AuthService implements registration and login.
type AuthService struct {
	store     ports.AccountStore
	hasher    ports.PasswordHasher
	issuer    ports.TokenIssuer
	validator *credentials.Validator
	timeout   time.Duration
	log       zerolog.Logger

	dummyMu   sync.Mutex
	dummyHash string
}

func NewAuthService(
	store ports.AccountStore,
	hasher ports.PasswordHasher,
	issuer ports.TokenIssuer,
	timeout time.Duration,
	log zerolog.Logger,
) *AuthService {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &AuthService{
		store:     store,
		hasher:    hasher,
		issuer:    issuer,
		validator: credentials.NewValidator(),
		timeout:   timeout,
		log:       log,
	}
}

// Register validates the submitted credentials, creates the account and
// returns a token for it.
func (s *AuthService) Register(ctx context.Context, email, password, confirm string) (domain.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.validator.ValidateRegistration(email, password, confirm); err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return domain.Token{}, err
	}
	email = credentials.NormalizeEmail(email)

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return domain.Token{}, fmt.Errorf("register: hash password: %w", err)
	}

	if _, err := s.store.Create(ctx, email, hash); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			metrics.RegistrationsTotal.WithLabelValues(metrics.ResultRejected).Inc()
			s.log.Info().Str("email", email).Msg("registration rejected, email taken")
			return domain.Token{}, domain.ErrAlreadyRegistered
		}
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return domain.Token{}, fmt.Errorf("register: %w", err)
	}

	tok, err := s.issue(email)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return domain.Token{}, fmt.Errorf("register: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Info().Str("email", email).Msg("account registered")
	return tok, nil
}

// Login checks the password against the stored hash. Unknown email and wrong
// password both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.validator.ValidateLogin(email, password); err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return domain.Token{}, err
	}
	email = credentials.NormalizeEmail(email)

	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.burnCompare(ctx, password)
			metrics.LoginsTotal.WithLabelValues(metrics.ResultRejected).Inc()
			s.log.Debug().Str("email", email).Msg("login for unknown email")
			return domain.Token{}, domain.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return domain.Token{}, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Compare(ctx, account.PasswordHash, password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return domain.Token{}, fmt.Errorf("login: compare password: %w", err)
	}
	if !ok {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		s.log.Info().Str("email", email).Msg("login rejected, wrong password")
		return domain.Token{}, domain.ErrInvalidCredentials
	}

	tok, err := s.issue(account.Email)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return domain.Token{}, fmt.Errorf("login: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Info().Str("email", email).Msg("login succeeded")
	return tok, nil
}

// Me returns the account named by subject, the email carried in a token that
// has already been verified. A subject with no account is reported as
// domain.ErrInvalidToken.
func (s *AuthService) Me(ctx context.Context, subject string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if subject == "" {
		return nil, domain.ErrInvalidToken
	}

	account, err := s.store.FindByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("me: %w", err)
	}
	return account, nil
}

func (s *AuthService) issue(email string) (domain.Token, error) {
	tok, err := s.issuer.Issue(email)
	if err != nil {
		return domain.Token{}, fmt.Errorf("issue token: %w", err)
	}
	metrics.TokensIssuedTotal.Inc()
	return tok, nil
}

// Warmup prepares the dummy hash used for unknown-email logins so the first
// such login does not pay for it.
func (s *AuthService) Warmup(ctx context.Context) error {
	_, err := s.dummyHashFor(ctx)
	return err
}

// burnCompare spends the same hashing effort as a real password check.
func (s *AuthService) burnCompare(ctx context.Context, password string) {
	hash, err := s.dummyHashFor(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not prepare dummy hash")
		return
	}
	_, _ = s.hasher.Compare(ctx, hash, password)
}

func (s *AuthService) dummyHashFor(ctx context.Context) (string, error) {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return s.dummyHash, nil
	}
	hash, err := s.hasher.Hash(ctx, dummyPassword)
	if err != nil {
		return "", err
	}
	s.dummyHash = hash
	return hash, nil
}
