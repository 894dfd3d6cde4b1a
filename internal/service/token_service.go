package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/session-auth-api/internal/models"
	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
)

type sessionStore interface {
	Create(ctx context.Context, userNo int64, ttl time.Duration) (*models.RefreshSession, error)
	ConsumeAndReplace(ctx context.Context, oldToken string, ttl time.Duration) (*models.RefreshSession, *models.RefreshSession, error)
	Revoke(ctx context.Context, token string) error
	Lookup(ctx context.Context, token string) (*models.RefreshSession, error)
}

// TokenConfig defines the signing material and lifetimes of issued tokens.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService mints stateless access tokens and opaque refresh tokens.
type TokenService struct {
	config   TokenConfig
	sessions sessionStore
	now      func() time.Time
}

// NewTokenService validates the config and constructs a TokenService.
func NewTokenService(config TokenConfig, sessions sessionStore) (*TokenService, error) {
	if config.Secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	if config.AccessTTL <= 0 || config.AccessTTL >= config.RefreshTTL {
		return nil, errors.New("access token ttl must be positive and shorter than refresh token ttl")
	}
	return &TokenService{
		config:   config,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// RefreshTTL is the lifetime given to every refresh session.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.config.RefreshTTL
}

// Issue creates a new refresh session for user and a paired access token.
func (s *TokenService) Issue(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	sess, err := s.sessions.Create(ctx, user.UserNo, s.config.RefreshTTL)
	if err != nil {
		return nil, err
	}

	access, expiresAt, err := s.IssueAccess(user.UserNo, sess.SessionID)
	if err != nil {
		_ = s.sessions.Revoke(context.WithoutCancel(ctx), sess.Token)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return &models.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  expiresAt,
		RefreshToken:     sess.Token,
		RefreshExpiresAt: sess.ExpiresAt,
		SessionID:        sess.SessionID,
	}, nil
}

// IssueAccess signs an access token for an existing session lineage.
func (s *TokenService) IssueAccess(userNo int64, sessionID string) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.config.AccessTTL)
	claims := &models.AccessClaims{
		UserNo:    userNo,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   strconv.FormatInt(userNo, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies signature, algorithm, issuer and expiry. It never
// consults the session store.
func (s *TokenService) ValidateAccessToken(tokenString string) (*models.AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		detail := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			detail = "token expired"
		}
		return nil, appErrors.WithDetails(appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, appErrors.ErrUnauthorized.Message), detail)
	}

	claims, ok := token.Claims.(*models.AccessClaims)
	if !ok || !token.Valid || claims.UserNo <= 0 {
		return nil, appErrors.WithDetails(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
