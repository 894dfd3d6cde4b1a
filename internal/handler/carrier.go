package handler

import (
	"math"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/session-auth-api/internal/models"
	"github.com/noah-isme/session-auth-api/pkg/config"
)

// SessionCarrier hands the refresh token to the client in an HttpOnly cookie and reads it back.
type SessionCarrier struct {
	cfg config.CookieConfig
	now func() time.Time
}

// NewSessionCarrier constructs a cookie-backed carrier.
func NewSessionCarrier(cfg config.CookieConfig) *SessionCarrier {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &SessionCarrier{cfg: cfg, now: time.Now}
}

// Read returns the carried refresh token or an empty string.
func (s *SessionCarrier) Read(c *gin.Context) string {
	value, err := c.Cookie(s.cfg.Name)
	if err != nil {
		return ""
	}
	return value
}

// Apply executes the action decided by the service layer.
func (s *SessionCarrier) Apply(c *gin.Context, action models.CarrierAction) {
	switch action.Op {
	case models.CarrierSet:
		s.write(c, action.Token, s.maxAge(action.Expires))
	case models.CarrierClear:
		s.write(c, "", -1)
	}
}

func (s *SessionCarrier) write(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(s.cfg.SameSite)
	c.SetCookie(s.cfg.Name, value, maxAge, s.cfg.Path, s.cfg.Domain, s.cfg.Secure, true)
}

func (s *SessionCarrier) maxAge(expires time.Time) int {
	if expires.IsZero() {
		return 0
	}
	seconds := math.Ceil(expires.Sub(s.now()).Seconds())
	if seconds < 1 {
		return -1
	}
	return int(seconds)
}
