package middleware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/session-auth-api/internal/models"
	"github.com/noah-isme/session-auth-api/internal/service"
	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
	"github.com/noah-isme/session-auth-api/pkg/response"
)

// ContextIdentityKey stores the acting user loaded by RequireOwnership.
const ContextIdentityKey = "currentIdentity"

type userFinder interface {
	FindByNo(ctx context.Context, userNo int64) (*models.User, error)
}

// RequireOwnership lets the request through only when the authenticated user owns
// the resource named by the path parameter param. It must run after JWT.
func RequireOwnership(users userFinder, param string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		var identity *models.User
		if claims, ok := ClaimsFromContext(c); ok {
			user, err := users.FindByNo(c.Request.Context(), claims.UserNo)
			switch {
			case err == nil:
				identity = user
			case errors.Is(err, sql.ErrNoRows):
			default:
				logger.Warn("failed to load acting user", zap.Int64("user_no", claims.UserNo), zap.Error(err))
				response.Abort(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user"))
				return
			}
		}

		if err := service.AuthorizeOwnership(identity, c.Param(param)); err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// IdentityFromContext returns the user stored by RequireOwnership.
func IdentityFromContext(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextIdentityKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}
