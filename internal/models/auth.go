package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the body returned by a successful login. The refresh token
// travels in the session carrier only.
type LoginResponse struct {
	User        UserInfo `json:"user"`
	AccessToken string   `json:"accessToken"`
}

// SessionRequest is the body of /token and /logout.
type SessionRequest struct {
	UserNo int64 `json:"userNo"`
}

// RotationRequest bundles the carried refresh token with the claimed owner.
type RotationRequest struct {
	RefreshToken string
	UserNo       int64
}

// LogoutRequest mirrors RotationRequest for session revocation.
type LogoutRequest struct {
	RefreshToken string
	UserNo       int64
}

// TokenResponse is the body returned by a successful rotation.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// TokenPair is the result of issuing credentials for a user.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

// AccessClaims represents the JWT payload for access tokens.
type AccessClaims struct {
	UserNo    int64  `json:"userNo"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Identity is the request-scoped view of a verified access token.
type Identity struct {
	UserNo    int64     `json:"userNo"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Identity projects the verified claims.
func (c *AccessClaims) Identity() Identity {
	id := Identity{UserNo: c.UserNo, SessionID: c.SessionID}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}
