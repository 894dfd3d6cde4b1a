package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/session-auth-api/internal/models"
	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
)

const sessionMissingMessage = "Session does not exist"

// AuthService provides the login, rotation and logout use cases. Every operation
// returns the carrier action the transport layer must apply next to its result.
type AuthService struct {
	credentials *CredentialService
	tokens      *TokenService
	sessions    sessionStore
	users       userReader
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(credentials *CredentialService, tokens *TokenService, sessions sessionStore, users userReader, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		credentials: credentials,
		tokens:      tokens,
		sessions:    sessions,
		users:       users,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
	}
}

// Login authenticates a user and starts a new refresh session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, models.CarrierAction, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.ObserveAuthOutcome(OperationLogin, appErrors.ErrValidation.Code)
		return nil, models.NoCarrierChange(), appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.credentials.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		s.metrics.ObserveAuthOutcome(OperationLogin, appErrors.FromError(err).Code)
		return nil, models.NoCarrierChange(), err
	}

	pair, err := s.tokens.Issue(ctx, user)
	if err != nil {
		s.metrics.ObserveAuthOutcome(OperationLogin, appErrors.FromError(err).Code)
		s.logger.Warn("failed to issue tokens", zap.Int64("user_no", user.UserNo), zap.Error(err))
		return nil, models.NoCarrierChange(), err
	}

	s.metrics.ObserveAuthOutcome(OperationLogin, "success")
	s.logger.Info("user logged in", zap.Int64("user_no", user.UserNo), zap.String("session_id", pair.SessionID))

	return &models.LoginResponse{
		User:        user.Info(),
		AccessToken: pair.AccessToken,
	}, models.SetCarrier(pair.RefreshToken, pair.RefreshExpiresAt), nil
}

// Rotate redeems the carried refresh token for a new access token and a new
// refresh token in the same session lineage.
func (s *AuthService) Rotate(ctx context.Context, req models.RotationRequest) (*models.TokenResponse, models.CarrierAction, error) {
	flow := newRotation()
	defer func() {
		s.metrics.ObserveRotationState(flow.state.String())
	}()

	if req.RefreshToken == "" {
		return s.rejectRotation(flow, appErrors.Clone(appErrors.ErrBadRequest, sessionMissingMessage))
	}
	if req.UserNo <= 0 {
		return s.rejectRotation(flow, appErrors.WithDetails(appErrors.ErrBadRequest, "userNo is required"))
	}

	flow.advance(models.Rotating)

	old, next, err := s.sessions.ConsumeAndReplace(ctx, req.RefreshToken, s.tokens.RefreshTTL())
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Status == http.StatusServiceUnavailable {
			// the token may still be valid; keep it so the client can retry once the store is back
			return s.failRotation(ctx, flow, "", models.NoCarrierChange(), appErr)
		}
		return s.failRotation(ctx, flow, "", models.ClearCarrier(), appErr)
	}

	if old.UserNo != req.UserNo {
		s.logger.Warn("refresh token presented for another user",
			zap.Int64("claimed_user_no", req.UserNo),
			zap.Int64("session_user_no", old.UserNo),
			zap.String("session_id", old.SessionID))
		return s.failRotation(ctx, flow, next.Token, models.ClearCarrier(), appErrors.WithDetails(appErrors.ErrForbidden, "session does not belong to user"))
	}

	user, err := s.users.FindByNo(ctx, old.UserNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.failRotation(ctx, flow, next.Token, models.ClearCarrier(), appErrors.WithDetails(appErrors.ErrUnauthorized, "user no longer exists"))
		}
		s.logger.Warn("failed to load session owner", zap.Int64("user_no", old.UserNo), zap.Error(err))
		return s.failRotation(ctx, flow, next.Token, models.ClearCarrier(), appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user"))
	}
	if !user.Active() {
		return s.failRotation(ctx, flow, next.Token, models.ClearCarrier(), appErrors.WithDetails(appErrors.ErrForbidden, "account is banned or deleted"))
	}

	access, _, err := s.tokens.IssueAccess(user.UserNo, next.SessionID)
	if err != nil {
		return s.failRotation(ctx, flow, next.Token, models.ClearCarrier(), appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate access token"))
	}

	flow.advance(models.RotatedOK)
	s.metrics.ObserveAuthOutcome(OperationRotate, "success")
	s.logger.Info("refresh token rotated", zap.Int64("user_no", user.UserNo), zap.String("session_id", next.SessionID))

	return &models.TokenResponse{AccessToken: access}, models.SetCarrier(next.Token, next.ExpiresAt), nil
}

// Logout revokes the carried refresh token and clears the carrier.
func (s *AuthService) Logout(ctx context.Context, req models.LogoutRequest) (models.CarrierAction, error) {
	if req.RefreshToken == "" {
		s.metrics.ObserveAuthOutcome(OperationLogout, appErrors.ErrBadRequest.Code)
		return models.NoCarrierChange(), appErrors.Clone(appErrors.ErrBadRequest, sessionMissingMessage)
	}
	if req.UserNo <= 0 {
		s.metrics.ObserveAuthOutcome(OperationLogout, appErrors.ErrBadRequest.Code)
		return models.NoCarrierChange(), appErrors.WithDetails(appErrors.ErrBadRequest, "userNo is required")
	}

	if err := s.sessions.Revoke(ctx, req.RefreshToken); err != nil {
		s.metrics.ObserveAuthOutcome(OperationLogout, appErrors.FromError(err).Code)
		return models.NoCarrierChange(), err
	}

	s.metrics.ObserveAuthOutcome(OperationLogout, "success")
	s.logger.Info("user logged out", zap.Int64("user_no", req.UserNo))
	return models.ClearCarrier(), nil
}

// DescribeSession returns the carried session's metadata when it belongs to identity.
func (s *AuthService) DescribeSession(ctx context.Context, refreshToken string, identity models.Identity) (*models.RefreshSession, error) {
	if refreshToken == "" {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, sessionMissingMessage)
	}
	sess, err := s.sessions.Lookup(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if sess.UserNo != identity.UserNo {
		return nil, appErrors.WithDetails(appErrors.ErrForbidden, "session does not belong to user")
	}
	return sess, nil
}

func (s *AuthService) rejectRotation(flow *rotation, err *appErrors.Error) (*models.TokenResponse, models.CarrierAction, error) {
	s.metrics.ObserveAuthOutcome(OperationRotate, err.Code)
	return nil, models.NoCarrierChange(), err
}

// failRotation ends the flow in RotationFailed and revokes the replacement token, if any,
// so a rejected request never leaves a live session behind.
func (s *AuthService) failRotation(ctx context.Context, flow *rotation, replacement string, carrier models.CarrierAction, err *appErrors.Error) (*models.TokenResponse, models.CarrierAction, error) {
	flow.advance(models.RotationFailed)
	if replacement != "" {
		if revokeErr := s.sessions.Revoke(context.WithoutCancel(ctx), replacement); revokeErr != nil {
			s.logger.Error("failed to revoke replacement refresh token", zap.Error(revokeErr))
		}
	}
	s.metrics.ObserveAuthOutcome(OperationRotate, err.Code)
	return nil, carrier, err
}
