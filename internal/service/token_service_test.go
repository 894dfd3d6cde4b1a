package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/session-auth-api/internal/models"
	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
)

func TestNewTokenServiceRejectsBadConfig(t *testing.T) {
	_, err := NewTokenService(TokenConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour}, nil)
	assert.Error(t, err)

	_, err = NewTokenService(TokenConfig{Secret: "s", AccessTTL: time.Hour, RefreshTTL: time.Hour}, nil)
	assert.Error(t, err)

	_, err = NewTokenService(TokenConfig{Secret: "s", AccessTTL: 0, RefreshTTL: time.Hour}, nil)
	assert.Error(t, err)
}

func TestTokenServiceIssue(t *testing.T) {
	stack := newTestStack(t)
	user := &models.User{UserNo: 42}

	pair, err := stack.tokens.Issue(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEmpty(t, pair.SessionID)
	assert.True(t, pair.AccessExpiresAt.Before(pair.RefreshExpiresAt))

	claims, err := stack.tokens.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserNo)
	assert.Equal(t, pair.SessionID, claims.SessionID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, testIssuer, claims.Issuer)

	sess, err := stack.sessions.Lookup(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), sess.UserNo)
	assert.Equal(t, pair.SessionID, sess.SessionID)
}

func TestTokenServiceRefreshTokensAreUnique(t *testing.T) {
	stack := newTestStack(t)
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		pair, err := stack.tokens.Issue(context.Background(), &models.User{UserNo: 1})
		require.NoError(t, err)
		_, dup := seen[pair.RefreshToken]
		require.False(t, dup)
		seen[pair.RefreshToken] = struct{}{}
	}
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	stack := newTestStack(t)
	stack.tokens.now = func() time.Time { return time.Now().UTC().Add(-time.Hour) }
	token, _, err := stack.tokens.IssueAccess(1, "sid")
	require.NoError(t, err)

	stack.tokens.now = func() time.Time { return time.Now().UTC() }
	_, err = stack.tokens.ValidateAccessToken(token)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "token expired")
}

func TestTokenServiceRejectsForgedTokens(t *testing.T) {
	stack := newTestStack(t)
	now := time.Now().UTC()
	claims := &models.AccessClaims{
		UserNo:    1,
		SessionID: "sid",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   strconv.Itoa(1),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}

	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	foreign := *claims
	foreign.Issuer = "someone-else"
	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &foreign).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry := *claims
	noExpiry.ExpiresAt = nil
	unbounded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &noExpiry).SignedString([]byte(testSecret))
	require.NoError(t, err)

	anonymous := *claims
	anonymous.UserNo = 0
	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &anonymous).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tokens := map[string]string{
		"other key":      otherKey,
		"wrong alg":      wrongAlg,
		"alg none":       none,
		"wrong issuer":   wrongIssuer,
		"no expiry":      unbounded,
		"missing userNo": noUser,
		"garbage":        "not.a.jwt",
	}
	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			_, err := stack.tokens.ValidateAccessToken(token)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
		})
	}
}

func TestTokenServiceValidationIsStateless(t *testing.T) {
	stack := newTestStack(t)
	pair, err := stack.tokens.Issue(context.Background(), &models.User{UserNo: 5})
	require.NoError(t, err)

	require.NoError(t, stack.sessions.Revoke(context.Background(), pair.RefreshToken))

	_, err = stack.tokens.ValidateAccessToken(pair.AccessToken)
	assert.NoError(t, err)
}
