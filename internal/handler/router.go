package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/session-auth-api/internal/middleware"
	"github.com/noah-isme/session-auth-api/internal/models"
	"github.com/noah-isme/session-auth-api/internal/service"
)

type tokenValidator interface {
	ValidateAccessToken(token string) (*models.AccessClaims, error)
}

type userLookup interface {
	FindByNo(ctx context.Context, userNo int64) (*models.User, error)
}

// Routes bundles the collaborators needed to mount the auth API.
type Routes struct {
	Auth    *AuthHandler
	Users   *UserHandler
	Metrics *MetricsHandler
	Tokens  tokenValidator
	Lookup  userLookup
	Logger  *zap.Logger
}

// Register mounts every endpoint on r.
func Register(r gin.IRouter, routes Routes) {
	if routes.Metrics != nil {
		r.GET("/health", routes.Metrics.Health)
		r.GET("/ready", routes.Metrics.Ready)
		r.GET("/metrics", routes.Metrics.Prometheus)
	}

	r.POST("/login", routes.Auth.Login)
	r.POST("/logout", routes.Auth.Logout)
	r.POST("/token", routes.Auth.Token)

	secured := r.Group("/")
	secured.Use(middleware.JWT(routes.Tokens))
	secured.GET("/session", routes.Auth.Session)
	secured.GET("/me", routes.Users.Me)
	secured.GET("/users/:userNo", middleware.RequireOwnership(routes.Lookup, "userNo", routes.Logger), routes.Users.Get)
}

// NewEngine builds a gin engine with the ambient middleware chain and all routes.
func NewEngine(routes Routes, metrics *service.MetricsService, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(extra...)
	r.Use(middleware.Metrics(metrics))
	Register(r, routes)
	return r
}
