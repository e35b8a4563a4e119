package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/torqueworks/workshop-api/internal/api/handler"
	"github.com/torqueworks/workshop-api/internal/api/middleware"
	"github.com/torqueworks/workshop-api/internal/core/domain"
	"github.com/torqueworks/workshop-api/internal/core/ports"
	"github.com/torqueworks/workshop-api/internal/core/service"
	mongodb "github.com/torqueworks/workshop-api/internal/infrastructure/db/mongo"
	redisdb "github.com/torqueworks/workshop-api/internal/infrastructure/db/redis"
)

// RouterConfig carries the token and code lifetimes the router wires into
// the authentication core.
type RouterConfig struct {
	JWTSecret       string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// publicPrefixes are the paths the authentication gate lets through without
// a bearer token.
var publicPrefixes = []string{"/auth", "/register", "/health", "/metrics", "/docs"}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, mailer ports.Mailer, cfg RouterConfig, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("workshop"))

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(db)
	tokenRepo := mongodb.NewTokenRepository(db)
	limiter := redisdb.NewAttemptLimiter(rdb)
	codec := service.NewTokenCodec(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	authService := service.NewAuthService(userRepo, tokenRepo, codec, mailer, limiter, service.AuthConfig{
		VerificationTTL: cfg.VerificationTTL,
		ResetTTL:        cfg.ResetTTL,
	}, log)
	userService := service.NewUserService(userRepo, tokenRepo, log)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)

	e.Use(middleware.Gate(codec, userRepo, tokenRepo, publicPrefixes...))

	// --- Auth routes (public) ---
	e.POST("/register", authHandler.Register)
	e.POST("/auth/authenticate", authHandler.Authenticate)
	e.POST("/auth/refresh-token", authHandler.Refresh)
	e.POST("/auth/verify", authHandler.Verify)
	e.POST("/auth/resend-code", authHandler.ResendCode)
	e.POST("/auth/forgot-password", authHandler.ForgotPassword)
	e.POST("/auth/reset-password", authHandler.ResetPassword)

	// --- User routes (authenticated) ---
	users := e.Group("/users")
	users.GET("/me", userHandler.Me, middleware.RequireAuthority(string(domain.PermUserRead)))
	users.GET("/:id", userHandler.Get, middleware.RequireAuthority(string(domain.PermAdminRead)))
	users.DELETE("/:id", userHandler.Delete, middleware.RequireAuthority(string(domain.PermAdminDelete)))

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/docs/*", echoswagger.WrapHandler)

	return e
}
