package service

import (
	"strconv"
	"strings"

	"github.com/noah-isme/session-auth-api/internal/models"
	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
)

// AuthorizeOwnership allows identity to act on resources owned by targetUserNo.
// A missing identity is 401; everything else that is not the active owner is 403.
func AuthorizeOwnership(identity *models.User, targetUserNo string) error {
	if identity == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	target := strings.TrimSpace(targetUserNo)
	if target == "" {
		return appErrors.WithDetails(appErrors.ErrForbidden, "target userNo is required")
	}
	userNo, err := strconv.ParseInt(target, 10, 64)
	if err != nil || userNo != identity.UserNo {
		return appErrors.WithDetails(appErrors.ErrForbidden, "resource belongs to another user")
	}
	if identity.IsBanned || identity.IsDeleted {
		return appErrors.WithDetails(appErrors.ErrForbidden, "account is banned or deleted")
	}
	return nil
}
