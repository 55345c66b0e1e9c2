package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nitishkumar124/vekonnect/internal/cache"
	"github.com/nitishkumar124/vekonnect/internal/config"
	"github.com/nitishkumar124/vekonnect/internal/domain"
	"github.com/nitishkumar124/vekonnect/internal/events"
	"github.com/nitishkumar124/vekonnect/internal/handler"
	"github.com/nitishkumar124/vekonnect/internal/metrics"
	"github.com/nitishkumar124/vekonnect/internal/middleware"
	"github.com/nitishkumar124/vekonnect/internal/repository"
	"github.com/nitishkumar124/vekonnect/internal/service"
	"github.com/nitishkumar124/vekonnect/pkg/database"
	"github.com/nitishkumar124/vekonnect/pkg/jwt"
	pkglog "github.com/nitishkumar124/vekonnect/pkg/log"
	"github.com/nitishkumar124/vekonnect/pkg/pubsub"
	"github.com/nitishkumar124/vekonnect/pkg/storage"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "vekonnect",
	})
	logger := pkglog.L()

	// 3. Init DB and migrate
	dbConfig := &database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get underlying sql.DB")
	}
	defer sqlDB.Close()

	if err := database.AutoMigrate(db,
		&domain.UserModel{},
		&domain.PostModel{},
		&domain.LikeModel{},
		&domain.CommentModel{},
		&domain.FollowModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// 4. Init Redis counter cache
	counters, err := cache.NewRedisCounterCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer counters.Close()
	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")

	// 5. Init storage backend
	var store storage.Storage
	switch cfg.Storage.Driver {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), cfg.Storage.S3)
	default:
		store, err = storage.NewLocalStorage(cfg.Storage.Local)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to init storage")
	}
	logger.Info().Str("driver", cfg.Storage.Driver).Msg("storage initialized")

	// 6. Init event bus and counter projector
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to init event bus")
	}
	defer bus.Close()

	publisher := events.NewPublisher(bus)

	projector := events.NewCounterProjector(bus, counters)
	if err := projector.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start counter projector")
	}

	// 7. Create repos and services
	if cfg.JWT.Secret == "" {
		logger.Fatal().Msg("JWT_SECRET must be set")
	}
	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Duration, cfg.JWT.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create jwt manager")
	}

	userRepo := repository.NewGormUserRepository(db)
	postRepo := repository.NewGormPostRepository(db)
	followRepo := repository.NewGormFollowRepository(db)

	authService := service.NewAuthService(userRepo, tokens)
	userService := service.NewUserService(userRepo, postRepo, followRepo, counters, store, publisher)
	postService := service.NewPostService(postRepo, userRepo, counters, store, publisher)

	// 8. Middleware and metrics
	authMiddleware := middleware.NewAuthMiddleware(tokens)
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rateLimiter.Stop()
	collector := metrics.NewCollector()

	// 9. Setup Gin router
	httpHandler := handler.NewHandler(authService, userService, postService, authMiddleware, rateLimiter, collector)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(collector.GinMiddleware())

	httpHandler.RegisterRoutes(r)

	if cfg.Storage.Driver != "s3" {
		// Local storage serves uploads straight off disk.
		r.Static("/posts", filepath.Join(cfg.Storage.Local.BasePath, "posts"))
		r.Static("/avatars", filepath.Join(cfg.Storage.Local.BasePath, "avatars"))
		r.Static("/static", "./static")
	}

	// 10. Start server goroutine
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Msg("vekonnect starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 11. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		cancel()
		<-projector.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("vekonnect stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
