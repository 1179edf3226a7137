package server

import (
	"context"
	"dsatracker/configs"
	"dsatracker/internal/dbs"
	"dsatracker/internal/handlers"
	"dsatracker/internal/logger"
	"dsatracker/internal/middlewares"
	"dsatracker/internal/repositories"
	"dsatracker/internal/services"
	"dsatracker/internal/tracing"
	"dsatracker/internal/tracker"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultJWTSecret = "change-me"

// Deps holds everything the router needs.
type Deps struct {
	Config   *configs.Config
	Topics   repositories.TopicRepository
	Progress repositories.ProgressRepository
	Users    repositories.UserRepository
	Sessions repositories.SessionRepository
	Tokens   *services.TokenService
}

// NewDeps opens the configured store and cache. The returned function
// releases them.
func NewDeps(ctx context.Context, cfg *configs.Config) (Deps, func(), error) {
	if cfg.IsProduction() && cfg.JWTSecret == defaultJWTSecret {
		return Deps{}, nil, errors.New("JWT_SECRET must be set in production")
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := Deps{
		Config: cfg,
		Tokens: services.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
	}

	var cache services.Cache
	switch cfg.DBDriver {
	case configs.DriverMemory:
		store := repositories.NewMemoryStore()
		deps.Topics, deps.Progress, deps.Users = store, store, store
		cache = services.NewMemoryCache()
		logger.Log.Warn("Using in-memory store, data is lost on restart")

	case configs.DriverMySQL:
		db, err := dbs.Init(ctx, cfg)
		if err != nil {
			return Deps{}, nil, err
		}
		closers = append(closers, func() { db.Close() })

		if cfg.DBAutoMigrate {
			if err := dbs.EnsureSchema(ctx, db); err != nil {
				cleanup()
				return Deps{}, nil, err
			}
		}

		deps.Topics = repositories.NewTopicRepository(db)
		deps.Progress = repositories.NewProgressRepository(db)
		deps.Users = repositories.NewUserRepository(db)

		if err := dbs.InitRedis(ctx, cfg); err != nil {
			logger.Log.Warn("Redis unavailable, falling back to in-process cache", zap.Error(err))
			cache = services.NewMemoryCache()
		} else {
			closers = append(closers, dbs.CloseRedis)
			cache = services.NewRedisCache(dbs.RedisClient, "dsatracker:")
		}

	default:
		return Deps{}, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	deps.Sessions = repositories.NewSessionRepository(cache)
	if cfg.CatalogCacheTTL > 0 {
		deps.Topics = repositories.NewCachedTopicRepository(deps.Topics, cache, cfg.CatalogCacheTTL)
	}

	return deps, cleanup, nil
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	router := gin.New()
	router.Use(middlewares.ErrorHandlerMiddleware())
	router.Use(middlewares.RequestLogger())
	router.Use(middlewares.MetricsMiddleware())
	router.Use(tracing.GinMiddleware())
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", middlewares.PrometheusHandler())

	api := router.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(d.Users, d.Sessions, d.Tokens, cfg.CookieSecure)
	authHandler.RegisterRoutes(api, middlewares.RateLimiter(cfg.AuthRateLimit, time.Minute))

	topicHandler := handlers.NewTopicHandler(
		tracker.NewCatalogService(d.Topics),
		tracker.NewProgressService(d.Topics, d.Progress, d.Users),
	)
	topicHandler.RegisterRoutes(api, middlewares.AuthMiddleware(d.Tokens), middlewares.AdminOnly(d.Users))

	return router
}

func StartGinServer() {
	cfg := configs.LoadConfig()
	logger.InitLogger(cfg)
	defer logger.SyncLogger()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracer, err := tracing.InitTracer("dsa-tracker", cfg.JaegerEndpoint)
		if err != nil {
			logger.Log.Warn("Failed to initialize tracing", zap.Error(err))
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownTracer(flushCtx)
			}()
		}
	}

	deps, cleanup, err := NewDeps(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Starting server", zap.String("addr", srv.Addr), zap.String("driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shut down", zap.Error(err))
	}
}
