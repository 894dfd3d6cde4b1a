package service

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/session-auth-api/internal/models"
	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
)

func TestAuthorizeOwnership(t *testing.T) {
	owner := &models.User{UserNo: 7}
	banned := &models.User{UserNo: 7, IsBanned: true}
	deleted := &models.User{UserNo: 7, IsDeleted: true}

	tests := []struct {
		name     string
		identity *models.User
		target   string
		status   int
	}{
		{name: "owner", identity: owner, target: "7", status: http.StatusOK},
		{name: "owner with padding", identity: owner, target: " 7 ", status: http.StatusOK},
		{name: "no identity", identity: nil, target: "7", status: http.StatusUnauthorized},
		{name: "blank target", identity: owner, target: "", status: http.StatusForbidden},
		{name: "non numeric target", identity: owner, target: "seven", status: http.StatusForbidden},
		{name: "other user", identity: owner, target: "8", status: http.StatusForbidden},
		{name: "banned owner", identity: banned, target: "7", status: http.StatusForbidden},
		{name: "deleted owner", identity: deleted, target: "7", status: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := AuthorizeOwnership(tc.identity, tc.target)
			if tc.status == http.StatusOK {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tc.status, appErrors.FromError(err).Status)
		})
	}
}
