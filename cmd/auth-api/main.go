package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/session-auth-api/api/swagger"
	"github.com/noah-isme/session-auth-api/internal/handler"
	"github.com/noah-isme/session-auth-api/internal/repository"
	"github.com/noah-isme/session-auth-api/internal/service"
	"github.com/noah-isme/session-auth-api/pkg/cache"
	"github.com/noah-isme/session-auth-api/pkg/config"
	"github.com/noah-isme/session-auth-api/pkg/database"
	"github.com/noah-isme/session-auth-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/session-auth-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/session-auth-api/pkg/middleware/requestid"
)

// @title Session Auth API
// @version 1.0.0
// @description Login, refresh token rotation and logout
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}

	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr).WithObserver(metrics)
	defer cacheRepo.Close()
	sessionRepo := repository.NewSessionRepository(cacheRepo, cfg.Session.KeyPrefix, logr)
	userRepo := repository.NewUserRepository(db)

	credentials, err := service.NewCredentialService(userRepo, cfg.Credentials.BcryptCost, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init credential verifier", "error", err)
	}
	tokens, err := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.Expiration,
		RefreshTTL: cfg.JWT.RefreshExpiration,
	}, sessionRepo)
	if err != nil {
		logr.Sugar().Fatalw("failed to init token issuer", "error", err)
	}
	authService := service.NewAuthService(credentials, tokens, sessionRepo, userRepo, validator.New(), logr, metrics)

	routes := handler.Routes{
		Auth:  handler.NewAuthHandler(authService, handler.NewSessionCarrier(cfg.Cookie)),
		Users: handler.NewUserHandler(),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"postgres": userRepo,
			"redis":    cacheRepo,
		}),
		Tokens: tokens,
		Lookup: userRepo,
		Logger: logr,
	}

	r := handler.NewEngine(routes, metrics,
		reqidmiddleware.Middleware(),
		logger.GinMiddleware(logr),
		corsmiddleware.New(cfg.CORS.AllowedOrigins),
	)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown failed", "error", err)
	}
}
