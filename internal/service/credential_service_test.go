package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/session-auth-api/internal/models"
	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
)

func TestCredentialServiceAuthenticate(t *testing.T) {
	active := newTestUser(t, 1, "alice@example.com")
	banned := newTestUser(t, 2, "banned@example.com")
	banned.IsBanned = true
	deleted := newTestUser(t, 3, "deleted@example.com")
	deleted.IsDeleted = true

	svc, err := NewCredentialService(newStubUsers(active, banned, deleted), bcrypt.MinCost, nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantNo   int64
		wantCode string
	}{
		{name: "valid credentials", email: "alice@example.com", password: testPassword, wantNo: 1},
		{name: "email is normalised", email: "  Alice@Example.COM ", password: testPassword, wantNo: 1},
		{name: "wrong password", email: "alice@example.com", password: "nope", wantCode: appErrors.ErrInvalidCredentials.Code},
		{name: "unknown email", email: "ghost@example.com", password: testPassword, wantCode: appErrors.ErrInvalidCredentials.Code},
		{name: "deleted user looks absent", email: "deleted@example.com", password: testPassword, wantCode: appErrors.ErrInvalidCredentials.Code},
		{name: "banned user", email: "banned@example.com", password: testPassword, wantCode: appErrors.ErrForbidden.Code},
		{name: "banned user with wrong password", email: "banned@example.com", password: "nope", wantCode: appErrors.ErrInvalidCredentials.Code},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			user, err := svc.Authenticate(context.Background(), tc.email, tc.password)
			if tc.wantCode != "" {
				require.Error(t, err)
				assert.Nil(t, user)
				assert.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantNo, user.UserNo)
		})
	}
}

func TestCredentialServiceUnknownAndWrongPasswordAreIndistinguishable(t *testing.T) {
	svc, err := NewCredentialService(newStubUsers(newTestUser(t, 1, "alice@example.com")), bcrypt.MinCost, nil)
	require.NoError(t, err)

	_, unknownErr := svc.Authenticate(context.Background(), "ghost@example.com", testPassword)
	_, wrongErr := svc.Authenticate(context.Background(), "alice@example.com", "nope")

	unknown := appErrors.FromError(unknownErr)
	wrong := appErrors.FromError(wrongErr)
	assert.Equal(t, http.StatusUnauthorized, unknown.Status)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Message, wrong.Message)
	assert.Equal(t, "Unauthorized", wrong.Message)
}

func TestCredentialServiceLookupFailure(t *testing.T) {
	users := newStubUsers()
	users.emailErr = errors.New("db down")
	svc, err := NewCredentialService(users, bcrypt.MinCost, nil)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "alice@example.com", testPassword)
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestCredentialServiceCorruptHash(t *testing.T) {
	user := &models.User{UserNo: 1, Email: "alice@example.com", PasswordHash: "not-bcrypt"}
	svc, err := NewCredentialService(newStubUsers(user), bcrypt.MinCost, nil)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "alice@example.com", testPassword)
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestCredentialServiceDummyHashUsesConfiguredCost(t *testing.T) {
	cost := bcrypt.MinCost + 1
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), cost)
	require.NoError(t, err)
	user := &models.User{UserNo: 1, Email: "alice@example.com", PasswordHash: string(hash)}

	svc, err := NewCredentialService(newStubUsers(user), cost, nil)
	require.NoError(t, err)

	stored, err := bcrypt.Cost([]byte(user.PasswordHash))
	require.NoError(t, err)
	dummy, err := bcrypt.Cost(svc.dummy())
	require.NoError(t, err)
	assert.Equal(t, stored, dummy)

	_, err = svc.Authenticate(context.Background(), "ghost@example.com", testPassword)
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestCredentialServiceDummyHashFollowsCostlierStoredHash(t *testing.T) {
	cost := bcrypt.MinCost + 2
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), cost)
	require.NoError(t, err)
	costly := &models.User{UserNo: 1, Email: "alice@example.com", PasswordHash: string(hash)}
	cheap := newTestUser(t, 2, "bob@example.com")

	svc, err := NewCredentialService(newStubUsers(costly, cheap), bcrypt.MinCost, nil)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)
	dummy, err := bcrypt.Cost(svc.dummy())
	require.NoError(t, err)
	assert.Equal(t, cost, dummy)

	_, err = svc.Authenticate(context.Background(), "bob@example.com", testPassword)
	require.NoError(t, err)
	dummy, err = bcrypt.Cost(svc.dummy())
	require.NoError(t, err)
	assert.Equal(t, cost, dummy, "a cheaper stored hash must not lower the dummy cost")
}

func TestCredentialServiceZeroCostFallsBackToDefault(t *testing.T) {
	svc, err := NewCredentialService(newStubUsers(), 0, nil)
	require.NoError(t, err)

	dummy, err := bcrypt.Cost(svc.dummy())
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, dummy)
}
