package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/session-auth-api/internal/middleware"
	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
	"github.com/noah-isme/session-auth-api/pkg/response"
)

// UserHandler serves identity views for authenticated callers.
type UserHandler struct{}

// NewUserHandler constructs a user handler.
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me godoc
// @Summary Get current identity
// @Description Returns the identity encoded in the access token
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me [get]
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.OK(c, claims.Identity())
}

// Get godoc
// @Summary Get own profile
// @Description Returns the caller's profile; other users' profiles are forbidden
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param userNo path int true "User number"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/{userNo} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, ok := middleware.IdentityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.OK(c, user.Info())
}
