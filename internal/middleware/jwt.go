package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/session-auth-api/internal/models"
	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
	"github.com/noah-isme/session-auth-api/pkg/response"
)

// ContextUserKey is the gin context key storing verified access token claims.
const ContextUserKey = "currentUser"

type accessTokenValidator interface {
	ValidateAccessToken(token string) (*models.AccessClaims, error)
}

// JWT protects routes by requiring a valid bearer access token. Expired tokens are
// rejected outright; rotation is always an explicit client call to /token.
func JWT(tokens accessTokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Abort(c, appErrors.WithDetails(appErrors.ErrUnauthorized, "missing or malformed authorization header"))
			return
		}

		claims, err := tokens.ValidateAccessToken(raw)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// ClaimsFromContext returns the claims attached by JWT, if any.
func ClaimsFromContext(c *gin.Context) (*models.AccessClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.AccessClaims)
	return claims, ok && claims != nil
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
