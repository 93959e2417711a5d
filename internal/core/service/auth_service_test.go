package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type stubStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	calls    atomic.Int32
	failWith error
}

func newStubStore() *stubStore {
	return &stubStore{accounts: make(map[string]*domain.Account)}
}

func (s *stubStore) Create(_ context.Context, email, passwordHash string) (*domain.Account, error) {
	s.calls.Add(1)
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[email]; exists {
		return nil, domain.ErrDuplicateEmail
	}
	a := &domain.Account{Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	s.accounts[email] = a
	clone := *a
	return &clone, nil
}

func (s *stubStore) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.calls.Add(1)
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[email]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

func (s *stubStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

type stubHasher struct {
	compares atomic.Int32
}

func (h *stubHasher) Hash(_ context.Context, password string) (string, error) {
	return "hashed:" + password, nil
}

func (h *stubHasher) Compare(_ context.Context, hash, password string) (bool, error) {
	h.compares.Add(1)
	return hash == "hashed:"+password, nil
}

type stubIssuer struct {
	seq atomic.Int64
}

func (i *stubIssuer) Issue(subject string) (domain.Token, error) {
	n := i.seq.Add(1)
	return domain.Token{
		ID:      fmt.Sprint(n),
		Subject: subject,
		Raw:     fmt.Sprintf("token-%d.%s", n, subject),
	}, nil
}

func (i *stubIssuer) Verify(raw string) (string, error) {
	_, subject, ok := strings.Cut(raw, ".")
	if !ok || !strings.HasPrefix(raw, "token-") {
		return "", domain.ErrInvalidToken
	}
	return subject, nil
}

func newTestService(store *stubStore) (*AuthService, *stubHasher) {
	hasher := &stubHasher{}
	return NewAuthService(store, hasher, &stubIssuer{}, time.Second, zerolog.Nop()), hasher
}

func TestAuthService_Register_Success(t *testing.T) {
	store := newStubStore()
	svc, _ := newTestService(store)

	tok, err := svc.Register(context.Background(), "alice@example.com", "Secret123!", "Secret123!")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if tok.Subject != "alice@example.com" {
		t.Fatalf("unexpected subject: %s", tok.Subject)
	}

	stored, err := store.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("account not stored: %v", err)
	}
	if stored.PasswordHash == "Secret123!" {
		t.Fatalf("expected password to be hashed")
	}
}

func TestAuthService_Register_NormalizesEmail(t *testing.T) {
	store := newStubStore()
	svc, _ := newTestService(store)

	if _, err := svc.Register(context.Background(), "  Alice@Example.com ", "Secret123!", "Secret123!"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := svc.Register(context.Background(), "alice@example.com", "Another123!", "Another123!"); !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	store := newStubStore()
	svc, _ := newTestService(store)

	_, _ = svc.Register(context.Background(), "bob@example.com", "Password1", "Password1")
	_, err := svc.Register(context.Background(), "bob@example.com", "Different2", "Different2")
	if !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if err.Error() != "Email already registered" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestAuthService_Register_ValidationSkipsStore(t *testing.T) {
	cases := []struct {
		name     string
		email    string
		password string
		confirm  string
		want     error
	}{
		{"mismatch", "carol@example.com", "Password1", "Password2", domain.ErrPasswordMismatch},
		{"short", "carol@example.com", "short", "short", domain.ErrPasswordTooShort},
		{"invalid email", "carol-at-example", "Password1", "Password1", domain.ErrInvalidEmail},
		{"blank", "carol@example.com", "         ", "         ", domain.ErrPasswordBlank},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStubStore()
			svc, _ := newTestService(store)

			_, err := svc.Register(context.Background(), tc.email, tc.password, tc.confirm)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if n := store.calls.Load(); n != 0 {
				t.Fatalf("expected no store calls, got %d", n)
			}
		})
	}
}

func TestAuthService_Register_StoreFailureIsInternal(t *testing.T) {
	store := newStubStore()
	store.failWith = errors.New("connection reset")
	svc, _ := newTestService(store)

	_, err := svc.Register(context.Background(), "dave@example.com", "Password1", "Password1")
	if err == nil {
		t.Fatalf("expected error")
	}
	var ae *domain.AuthError
	if errors.As(err, &ae) {
		t.Fatalf("store failure must not surface as an auth error kind, got %v", ae.Kind)
	}
}

func TestAuthService_Register_Concurrent(t *testing.T) {
	store := newStubStore()
	svc, _ := newTestService(store)

	const n = 32
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		dupes     atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "race@example.com", "Password1", "Password1")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, domain.ErrAlreadyRegistered):
				dupes.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes.Load() != 1 || dupes.Load() != n-1 {
		t.Fatalf("expected 1 success and %d duplicates, got %d and %d", n-1, successes.Load(), dupes.Load())
	}
	if store.size() != 1 {
		t.Fatalf("expected one stored account, got %d", store.size())
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	store := newStubStore()
	svc, _ := newTestService(store)

	if _, err := svc.Register(context.Background(), "erin@example.com", "Password1", "Password1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	tok, err := svc.Login(context.Background(), "ERIN@example.com", "Password1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if len(tok.Raw) <= 10 {
		t.Fatalf("expected token longer than 10 chars, got %q", tok.Raw)
	}
}

func TestAuthService_Login_SameErrorForUnknownAndWrongPassword(t *testing.T) {
	store := newStubStore()
	svc, hasher := newTestService(store)
	_, _ = svc.Register(context.Background(), "frank@example.com", "Password1", "Password1")

	_, wrongPw := svc.Login(context.Background(), "frank@example.com", "Password2")
	comparesAfterWrong := hasher.compares.Load()
	_, unknown := svc.Login(context.Background(), "ghost@example.com", "Password1")

	if !errors.Is(wrongPw, domain.ErrInvalidCredentials) || !errors.Is(unknown, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", wrongPw, unknown)
	}
	if wrongPw.Error() != unknown.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPw.Error(), unknown.Error())
	}
	if hasher.compares.Load() != comparesAfterWrong+1 {
		t.Fatalf("expected a dummy compare on the unknown email path")
	}
}

// flakyHasher fails its first failHashes Hash calls.
type flakyHasher struct {
	stubHasher
	failHashes int32
	hashes     atomic.Int32
}

func (h *flakyHasher) Hash(ctx context.Context, password string) (string, error) {
	if h.hashes.Add(1) <= h.failHashes {
		return "", context.DeadlineExceeded
	}
	return h.stubHasher.Hash(ctx, password)
}

func TestAuthService_Login_DummyHashRetriedAfterFailure(t *testing.T) {
	hasher := &flakyHasher{failHashes: 1}
	svc := NewAuthService(newStubStore(), hasher, &stubIssuer{}, time.Second, zerolog.Nop())

	if _, err := svc.Login(context.Background(), "ghost@example.com", "Password1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if n := hasher.compares.Load(); n != 0 {
		t.Fatalf("expected no compare while the dummy hash is missing, got %d", n)
	}

	for i := 0; i < 5; i++ {
		if _, err := svc.Login(context.Background(), "ghost@example.com", "Password1"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if n := hasher.compares.Load(); n != 5 {
		t.Fatalf("expected 5 dummy compares after recovery, got %d", n)
	}
	if n := hasher.hashes.Load(); n != 2 {
		t.Fatalf("expected the dummy hash to be built once after the failure, got %d Hash calls", n)
	}
}

func TestAuthService_Warmup(t *testing.T) {
	hasher := &flakyHasher{failHashes: 1}
	svc := NewAuthService(newStubStore(), hasher, &stubIssuer{}, time.Second, zerolog.Nop())

	if err := svc.Warmup(context.Background()); err == nil {
		t.Fatal("expected the first warmup to fail")
	}
	if err := svc.Warmup(context.Background()); err != nil {
		t.Fatalf("second warmup failed: %v", err)
	}
	if _, err := svc.Login(context.Background(), "ghost@example.com", "Password1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if n := hasher.hashes.Load(); n != 2 {
		t.Fatalf("expected login to reuse the warmed dummy hash, got %d Hash calls", n)
	}
	if n := hasher.compares.Load(); n != 1 {
		t.Fatalf("expected one dummy compare, got %d", n)
	}
}

func TestAuthService_Login_ShortPasswordSkipsStore(t *testing.T) {
	store := newStubStore()
	svc, _ := newTestService(store)

	if _, err := svc.Login(context.Background(), "gina@example.com", "short"); !errors.Is(err, domain.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if n := store.calls.Load(); n != 0 {
		t.Fatalf("expected no store calls, got %d", n)
	}
}

func TestAuthService_Login_RepeatedInvalidEmail(t *testing.T) {
	svc, _ := newTestService(newStubStore())
	for i := 0; i < 3; i++ {
		if _, err := svc.Login(context.Background(), "nope", "Password1"); !errors.Is(err, domain.ErrInvalidEmail) {
			t.Fatalf("attempt %d: expected ErrInvalidEmail, got %v", i, err)
		}
	}
}

func TestAuthService_Me(t *testing.T) {
	store := newStubStore()
	svc, _ := newTestService(store)

	tok, err := svc.Register(context.Background(), "hank@example.com", "Password1", "Password1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	account, err := svc.Me(context.Background(), tok.Subject)
	if err != nil {
		t.Fatalf("Me returned error: %v", err)
	}
	if account.Email != "hank@example.com" {
		t.Fatalf("unexpected account: %+v", account)
	}

	if _, err := svc.Me(context.Background(), ""); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty subject, got %v", err)
	}
	if _, err := svc.Me(context.Background(), "nobody@example.com"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown subject, got %v", err)
	}
}

func TestAuthService_Me_StoreFailureIsInternal(t *testing.T) {
	store := newStubStore()
	store.failWith = errors.New("connection reset")
	svc, _ := newTestService(store)

	_, err := svc.Me(context.Background(), "hank@example.com")
	if err == nil || errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected an internal error, got %v", err)
	}
}

func TestAuthService_AliceScenario(t *testing.T) {
	store := newStubStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "Secret123!", "Secret123!"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.Register(ctx, "alice@example.com", "Secret123!", "Secret123!"); !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	tok, err := svc.Login(ctx, "alice@example.com", "Secret123!")
	if err != nil || len(tok.Raw) <= 10 {
		t.Fatalf("expected login success, got tok=%q err=%v", tok.Raw, err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "wrongpassword"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
