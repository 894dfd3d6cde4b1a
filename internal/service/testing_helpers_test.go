package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/session-auth-api/internal/models"
	"github.com/noah-isme/session-auth-api/internal/repository"
)

const (
	testSecret   = "test-secret"
	testIssuer   = "session-auth-test"
	testPassword = "correct horse"
)

type stubUsers struct {
	mu       sync.Mutex
	byNo     map[int64]*models.User
	emailErr error
	noErr    error
}

func newStubUsers(users ...*models.User) *stubUsers {
	s := &stubUsers{byNo: make(map[int64]*models.User)}
	for _, u := range users {
		s.byNo[u.UserNo] = u
	}
	return s
}

func (s *stubUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailErr != nil {
		return nil, s.emailErr
	}
	for _, u := range s.byNo {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubUsers) FindByNo(ctx context.Context, userNo int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.noErr != nil {
		return nil, s.noErr
	}
	u, ok := s.byNo[userNo]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (s *stubUsers) update(userNo int64, fn func(u *models.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.byNo[userNo])
}

func (s *stubUsers) remove(userNo int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byNo, userNo)
}

func newTestUser(t *testing.T, userNo int64, email string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{UserNo: userNo, Email: email, PasswordHash: string(hash), Nickname: "user", CreatedAt: time.Now()}
}

type testStack struct {
	mr       *miniredis.Miniredis
	users    *stubUsers
	sessions *repository.SessionRepository
	tokens   *TokenService
	metrics  *MetricsService
	auth     *AuthService
}

func newTestStack(t *testing.T, users ...*models.User) *testStack {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	metrics := NewMetricsService()
	store := newStubUsers(users...)
	sessions := repository.NewSessionRepository(repository.NewCacheRepository(client, nil).WithObserver(metrics), "test", nil)

	tokens, err := NewTokenService(TokenConfig{
		Secret:     testSecret,
		Issuer:     testIssuer,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, sessions)
	require.NoError(t, err)

	credentials, err := NewCredentialService(store, bcrypt.MinCost, nil)
	require.NoError(t, err)

	return &testStack{
		mr:       mr,
		users:    store,
		sessions: sessions,
		tokens:   tokens,
		metrics:  metrics,
		auth:     NewAuthService(credentials, tokens, sessions, store, nil, nil, metrics),
	}
}

// sessionKeys counts live refresh sessions in the cache.
func (s *testStack) sessionKeys() int {
	return len(s.mr.Keys())
}
