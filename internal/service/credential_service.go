package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/session-auth-api/internal/models"
	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
)

type userReader interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByNo(ctx context.Context, userNo int64) (*models.User, error)
}

// CredentialService verifies email/password pairs against user storage.
type CredentialService struct {
	users  userReader
	logger *zap.Logger

	mu        sync.RWMutex
	dummyHash []byte
	dummyCost int
}

// NewCredentialService constructs a CredentialService. The dummy hash is compared
// against when no user matches so that unknown emails cost the same as wrong passwords.
// cost should match the work factor of hashes in user storage; zero means bcrypt.DefaultCost.
func NewCredentialService(users userReader, cost int, logger *zap.Logger) (*CredentialService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := newDummyHash(cost)
	if err != nil {
		return nil, err
	}
	return &CredentialService{users: users, logger: logger, dummyHash: dummy, dummyCost: cost}, nil
}

// Authenticate returns the user owning email when password matches its hash.
// Unknown email, wrong password and lookup failures all yield ErrInvalidCredentials.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("credential lookup failed", zap.Error(err))
		}
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, invalidCredentials()
	}

	s.alignDummyCost([]byte(user.PasswordHash))

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn("password hash comparison failed", zap.Int64("user_no", user.UserNo), zap.Error(err))
		}
		return nil, invalidCredentials()
	}

	if user.IsDeleted {
		return nil, invalidCredentials()
	}
	if user.IsBanned {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account is banned")
	}

	return user, nil
}

func invalidCredentials() error {
	return appErrors.Clone(appErrors.ErrInvalidCredentials, "")
}

func (s *CredentialService) dummy() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dummyHash
}

// alignDummyCost raises the dummy hash cost to the cost of a stored hash. It never
// lowers it, so mixed-cost storage settles on the most expensive hash.
func (s *CredentialService) alignDummyCost(stored []byte) {
	cost, err := bcrypt.Cost(stored)
	if err != nil {
		return
	}
	s.mu.RLock()
	current := s.dummyCost
	s.mu.RUnlock()
	if cost <= current {
		return
	}

	dummy, err := newDummyHash(cost)
	if err != nil {
		s.logger.Warn("failed to regenerate dummy hash", zap.Int("cost", cost), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cost > s.dummyCost {
		s.logger.Warn("stored password hash cost exceeds configured BCRYPT_COST", zap.Int("configured", s.dummyCost), zap.Int("stored", cost))
		s.dummyHash = dummy
		s.dummyCost = cost
	}
}

func newDummyHash(cost int) ([]byte, error) {
	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return bcrypt.GenerateFromPassword(secret, cost)
}
