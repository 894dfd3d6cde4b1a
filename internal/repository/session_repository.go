package repository

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/noah-isme/session-auth-api/internal/models"
	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
)

const (
	refreshTokenBytes    = 32
	maxCreateAttempts    = 3
	defaultSessionPrefix = "auth"
)

// sessionCache is the slice of CacheRepository the session store needs.
type sessionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	GetDel(ctx context.Context, key string, dest interface{}) error
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// SessionRepository maps refresh tokens to RefreshSession records in the shared cache.
// Entries expire through the cache TTL; deleting an entry revokes the token.
type SessionRepository struct {
	cache    sessionCache
	prefix   string
	logger   *zap.Logger
	now      func() time.Time
	newToken func() (string, error)
}

// NewSessionRepository constructs a refresh session store.
func NewSessionRepository(cache sessionCache, prefix string, logger *zap.Logger) *SessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = defaultSessionPrefix
	}
	return &SessionRepository{
		cache:    cache,
		prefix:   prefix,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: randomToken,
	}
}

// Create stores a new session for userNo and returns it with its freshly generated token.
func (r *SessionRepository) Create(ctx context.Context, userNo int64, ttl time.Duration) (*models.RefreshSession, error) {
	now := r.now()
	sess := &models.RefreshSession{
		SessionID: ksuid.New().String(),
		UserNo:    userNo,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := r.insert(ctx, sess, ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

// ConsumeAndReplace redeems oldToken exactly once. The old entry is read and deleted
// in a single GETDEL, so a concurrent redemption of the same token finds nothing and
// fails with ErrSessionInvalid. The replacement keeps the lineage (session id, owner).
func (r *SessionRepository) ConsumeAndReplace(ctx context.Context, oldToken string, ttl time.Duration) (*models.RefreshSession, *models.RefreshSession, error) {
	if oldToken == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrSessionInvalid, "")
	}

	var old models.RefreshSession
	if err := r.cache.GetDel(ctx, r.key(oldToken), &old); err != nil {
		return nil, nil, r.mapErr(err, "failed to consume refresh session")
	}
	old.Token = oldToken

	now := r.now()
	if old.Expired(now) {
		return nil, nil, appErrors.WithDetails(appErrors.ErrSessionInvalid, "refresh session expired")
	}

	next := &models.RefreshSession{
		SessionID: old.SessionID,
		UserNo:    old.UserNo,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		RotatedAt: &now,
	}
	if err := r.insert(ctx, next, ttl); err != nil {
		r.logger.Warn("refresh session consumed without replacement", zap.String("session_id", old.SessionID), zap.Error(err))
		return nil, nil, err
	}
	return &old, next, nil
}

// Revoke deletes the session for token. Revoking an unknown token succeeds.
func (r *SessionRepository) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := r.cache.Delete(ctx, r.key(token)); err != nil {
		return r.mapErr(err, "failed to revoke refresh session")
	}
	return nil
}

// Lookup reads a session without mutating it. It is for diagnostics only; rotation
// decisions go through ConsumeAndReplace.
func (r *SessionRepository) Lookup(ctx context.Context, token string) (*models.RefreshSession, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrSessionInvalid, "")
	}
	var sess models.RefreshSession
	if err := r.cache.Get(ctx, r.key(token), &sess); err != nil {
		return nil, r.mapErr(err, "failed to load refresh session")
	}
	if sess.Expired(r.now()) {
		return nil, appErrors.WithDetails(appErrors.ErrSessionInvalid, "refresh session expired")
	}
	sess.Token = token
	return &sess, nil
}

func (r *SessionRepository) insert(ctx context.Context, sess *models.RefreshSession, ttl time.Duration) error {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		token, err := r.newToken()
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate refresh token")
		}
		ok, err := r.cache.SetNX(ctx, r.key(token), sess, ttl)
		if err != nil {
			return r.mapErr(err, "failed to persist refresh session")
		}
		if ok {
			sess.Token = token
			return nil
		}
		r.logger.Warn("refresh token collision, regenerating", zap.Int("attempt", attempt+1))
	}
	return appErrors.Clone(appErrors.ErrInternal, "failed to allocate a unique refresh token")
}

// key hashes the token so raw credentials never appear in cache keys or logs.
func (r *SessionRepository) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return r.prefix + ":refresh:" + hex.EncodeToString(sum[:])
}

func (r *SessionRepository) mapErr(err error, message string) error {
	switch {
	case errors.Is(err, appErrors.ErrCacheMiss), errors.Is(err, ErrCorruptEntry):
		return appErrors.Clone(appErrors.ErrSessionInvalid, "")
	case errors.Is(err, ErrCacheUnavailable):
		return appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, appErrors.ErrServiceUnavailable.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}

func randomToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
