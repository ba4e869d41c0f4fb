// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
	"github.com/taibuivan/bcbbs/internal/platform/sec"
	"github.com/taibuivan/bcbbs/internal/users/auth"
	"github.com/taibuivan/bcbbs/pkg/pointer"
)

// # Challenge Store

type memoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]auth.CaptchaChallenge
	consumes   int
}

func newMemoryChallengeStore() *memoryChallengeStore {
	return &memoryChallengeStore{challenges: make(map[string]auth.CaptchaChallenge)}
}

func (store *memoryChallengeStore) Create(_ context.Context, challenge *auth.CaptchaChallenge) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, exists := store.challenges[challenge.Token]; exists {
		return fmt.Errorf("duplicate token %s", challenge.Token)
	}
	store.challenges[challenge.Token] = *challenge
	return nil
}

func (store *memoryChallengeStore) Consume(_ context.Context, token string) (*auth.CaptchaChallenge, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.consumes++
	challenge, ok := store.challenges[token]
	if !ok || challenge.Used {
		return nil, apperr.NotFound("Captcha")
	}

	challenge.Used = true
	store.challenges[token] = challenge
	return &challenge, nil
}

func (store *memoryChallengeStore) consumeCalls() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.consumes
}

// # Principal Repository

type memoryPrincipals struct {
	mu    sync.Mutex
	byKey map[string]*auth.Principal
	saves int
}

func newMemoryPrincipals(principals ...*auth.Principal) *memoryPrincipals {
	repo := &memoryPrincipals{byKey: make(map[string]*auth.Principal)}
	for _, principal := range principals {
		repo.byKey[principal.Username] = clonePrincipal(principal)
	}
	return repo
}

func clonePrincipal(principal *auth.Principal) *auth.Principal {
	copied := *principal
	if principal.PasswordChanged != nil {
		copied.PasswordChanged = pointer.To(*principal.PasswordChanged)
	}
	if principal.LoginCountWithoutChange != nil {
		copied.LoginCountWithoutChange = pointer.To(*principal.LoginCountWithoutChange)
	}
	return &copied
}

func (repo *memoryPrincipals) FindByID(_ context.Context, id string) (*auth.Principal, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, principal := range repo.byKey {
		if principal.ID == id {
			return clonePrincipal(principal), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryPrincipals) FindByUsername(_ context.Context, username string) (*auth.Principal, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	principal, ok := repo.byKey[username]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return clonePrincipal(principal), nil
}

func (repo *memoryPrincipals) Create(_ context.Context, principal *auth.Principal) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.byKey[principal.Username]; ok {
		return apperr.Conflict("Username already exists")
	}
	repo.byKey[principal.Username] = clonePrincipal(principal)
	return nil
}

func (repo *memoryPrincipals) Save(_ context.Context, principal *auth.Principal) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.byKey[principal.Username]; !ok {
		return apperr.NotFound("User")
	}
	repo.saves++
	repo.byKey[principal.Username] = clonePrincipal(principal)
	return nil
}

func (repo *memoryPrincipals) ExistsByUsername(_ context.Context, username string) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	_, ok := repo.byKey[username]
	return ok, nil
}

func (repo *memoryPrincipals) ExistsByEmail(_ context.Context, email string) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, principal := range repo.byKey {
		if principal.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// stored returns the persisted state of username, failing the test if absent.
func (repo *memoryPrincipals) stored(t *testing.T, username string) *auth.Principal {
	t.Helper()
	principal, err := repo.FindByUsername(context.Background(), username)
	require.NoError(t, err)
	return principal
}

// # Hashers & Tokens

// plainHasher is a transparent stand-in for bcrypt.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (plainHasher) Verify(plain, hash string) bool { return hash == "hashed:"+plain }

// mockHasher records calls so tests can assert that verification never ran.
type mockHasher struct {
	mock.Mock
}

func (m *mockHasher) Hash(plain string) (string, error) {
	args := m.Called(plain)
	return args.String(0), args.Error(1)
}

func (m *mockHasher) Verify(plain, hash string) bool {
	args := m.Called(plain, hash)
	return args.Bool(0)
}

type stubTokens struct {
	issued []string
}

func (tokens *stubTokens) GenerateAccessToken(userID, username, role string, _ time.Duration) (string, error) {
	token := strings.Join([]string{"token", userID, username, role}, ":")
	tokens.issued = append(tokens.issued, token)
	return token, nil
}

// # Fixtures

type fixture struct {
	principals *memoryPrincipals
	challenges *memoryChallengeStore
	tokens     *stubTokens
	service    *auth.Service
	now        time.Time
}

func newFixture(hasher auth.PasswordHasher, principals ...*auth.Principal) *fixture {
	fx := &fixture{
		principals: newMemoryPrincipals(principals...),
		challenges: newMemoryChallengeStore(),
		tokens:     &stubTokens{},
		now:        time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	gate := auth.NewCaptchaGate(fx.challenges, auth.WithCaptchaClock(func() time.Time { return fx.now }))

	fx.service = auth.NewService(auth.ServiceDependencies{
		Principals: fx.principals,
		Hasher:     hasher,
		Tokens:     fx.tokens,
		Captcha:    gate,
		Policy:     auth.NewLifecyclePolicy(),
	})

	return fx
}

// captcha issues a fresh challenge and returns its token and code.
func (fx *fixture) captcha(t *testing.T) (string, string) {
	t.Helper()
	challenge, err := fx.service.IssueCaptcha(context.Background())
	require.NoError(t, err)
	return challenge.Token, challenge.Code
}

func principal(id, username string, role sec.UserRole, enabled bool, changed *bool, count *int) *auth.Principal {
	return &auth.Principal{
		ID:                      id,
		Username:                username,
		Email:                   username + "@bcbbs.test",
		PasswordHash:            "hashed:secret",
		Nickname:                username,
		Role:                    role,
		Enabled:                 enabled,
		PasswordChanged:         changed,
		LoginCountWithoutChange: count,
	}
}

func requireCode(t *testing.T, err error, code string, status int) {
	t.Helper()
	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr, "expected an AppError, got %v", err)
	require.Equal(t, code, appErr.Code)
	require.Equal(t, status, appErr.HTTPStatus)
}
