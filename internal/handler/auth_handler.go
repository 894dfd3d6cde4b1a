package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/session-auth-api/internal/middleware"
	"github.com/noah-isme/session-auth-api/internal/models"
	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
	"github.com/noah-isme/session-auth-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, models.CarrierAction, error)
	Rotate(ctx context.Context, req models.RotationRequest) (*models.TokenResponse, models.CarrierAction, error)
	Logout(ctx context.Context, req models.LogoutRequest) (models.CarrierAction, error)
	DescribeSession(ctx context.Context, refreshToken string, identity models.Identity) (*models.RefreshSession, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	carrier *SessionCarrier
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, carrier *SessionCarrier) *AuthHandler {
	return &AuthHandler{service: svc, carrier: carrier}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password; the refresh token is set as an HttpOnly cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, action, err := h.service.Login(c.Request.Context(), req)
	h.carrier.Apply(c, action)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, res)
}

// Token godoc
// @Summary Rotate refresh token
// @Description Redeem the carried refresh token for a new access token; the cookie is rotated
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SessionRequest true "Session owner"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	refreshToken := h.carrier.Read(c)
	body, bindErr := bindSessionRequest(c)
	if bindErr != nil && refreshToken != "" {
		response.Error(c, bindErr)
		return
	}

	res, action, err := h.service.Rotate(c.Request.Context(), models.RotationRequest{
		RefreshToken: refreshToken,
		UserNo:       body.UserNo,
	})
	h.carrier.Apply(c, action)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, res)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke the carried refresh token and clear the cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SessionRequest true "Session owner"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken := h.carrier.Read(c)
	body, bindErr := bindSessionRequest(c)
	if bindErr != nil && refreshToken != "" {
		response.Error(c, bindErr)
		return
	}

	action, err := h.service.Logout(c.Request.Context(), models.LogoutRequest{
		RefreshToken: refreshToken,
		UserNo:       body.UserNo,
	})
	h.carrier.Apply(c, action)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "logged out"})
}

// Session godoc
// @Summary Describe current refresh session
// @Description Diagnostics view of the carried refresh session
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	sess, err := h.service.DescribeSession(c.Request.Context(), h.carrier.Read(c), claims.Identity())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, sess)
}

// bindSessionRequest treats an empty body as a zero userNo. A body that does not decode
// is reported to the caller, who must still check the carrier first.
func bindSessionRequest(c *gin.Context) (models.SessionRequest, error) {
	var body models.SessionRequest
	if c.Request.ContentLength == 0 {
		return body, nil
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		bindErr := appErrors.WithDetails(appErrors.ErrBadRequest, "userNo must be a number")
		bindErr.Err = err
		return body, bindErr
	}
	return body, nil
}
