package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/geolink/internal/auth"
	"github.com/SergeiKhy/geolink/internal/config"
	"github.com/SergeiKhy/geolink/internal/geo"
	"github.com/SergeiKhy/geolink/internal/handler"
	"github.com/SergeiKhy/geolink/internal/logger"
	"github.com/SergeiKhy/geolink/internal/middleware"
	"github.com/SergeiKhy/geolink/internal/repository"
	"github.com/SergeiKhy/geolink/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := repository.Migrate(cfg.DB.DSN()); err != nil {
		zlog.Fatal("failed to apply migrations", zap.Error(err))
	}

	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	zlog.Info("connected to PostgreSQL")

	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		zlog.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer func() { _ = redis.Close() }()
	zlog.Info("connected to Redis")

	linkRepo := repository.NewLinkRepository(db)
	cacheRepo := repository.NewCacheRepository(redis)
	clickRepo := repository.NewClickRepository(db)
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	deadLetters := repository.NewDeadLetterRepository(redis)

	resolver, closeResolver, err := newGeoResolver(cfg.Geo, repository.NewGeoCacheRepository(redis), zlog)
	if err != nil {
		zlog.Fatal("failed to init geo resolver", zap.Error(err))
	}
	defer func() { _ = closeResolver.Close() }()

	activities := service.NewActivityService(activityRepo, zlog)
	linkService := service.NewLinkService(linkRepo, cacheRepo, repository.NewTransactor(db), activities,
		service.LinkServiceConfig{
			BaseURL:        cfg.App.BaseURL,
			BlockedDomains: cfg.App.BlockedDomains,
		}, zlog)
	authService := service.NewAuthService(userRepo, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiresIn))

	clickProcessor := service.NewClickProcessor(clickRepo, linkRepo, deadLetters, service.ClickProcessorConfig{
		Workers:    cfg.Worker.Count,
		Buffer:     cfg.Worker.Buffer,
		MaxRetries: cfg.Worker.MaxRetries,
	}, zlog)
	clickProcessor.Start()

	scheduler, err := scheduleReplay(cfg.Worker, clickProcessor, zlog)
	if err != nil {
		zlog.Fatal("failed to schedule dead-letter replay", zap.Error(err))
	}
	scheduler.Start()

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	defer rateLimiter.Stop()

	router, err := handler.NewRouter(handler.Services{
		Links:      linkService,
		Redirects:  service.NewRedirectService(linkService, resolver, cfg.Geo.DevIP, zlog),
		Clicks:     clickProcessor,
		Analytics:  service.NewAnalyticsService(statsRepo, cfg.Location()),
		Activities: activities,
		Auth:       authService,
		Users:      service.NewUserService(userRepo),
	}, handler.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxies: cfg.App.TrustedProxies,
		RateLimiter:    rateLimiter,
		HealthDeps: map[string]handler.Pinger{
			"postgres": db,
			"redis":    redis,
		},
	}, zlog)
	if err != nil {
		zlog.Fatal("failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.App.Port), zap.String("base_url", cfg.App.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}

	// In-flight redirects have returned, so every queued click is drained before the stores close.
	clickProcessor.Stop()
	<-scheduler.Stop().Done()

	zlog.Info("server exited")
}

// newGeoResolver builds the configured provider behind the Redis cache.
// The returned closer releases provider resources.
func newGeoResolver(cfg config.GeoConfig, cache repository.GeoCacheRepository, zlog *zap.Logger) (geo.Resolver, io.Closer, error) {
	var (
		inner  geo.Resolver
		closer io.Closer = io.NopCloser(nil)
	)

	switch cfg.Provider {
	case config.GeoProviderMaxMind:
		mm, err := geo.NewMaxMindResolver(cfg.MaxMindDB)
		if err != nil {
			return nil, nil, err
		}
		inner, closer = mm, mm
	case config.GeoProviderNone:
		return geo.Noop{}, closer, nil
	default:
		inner = geo.NewIPAPIResolver(cfg.APIURL, cfg.Timeout)
	}

	zlog.Info("geo resolver ready", zap.String("provider", cfg.Provider))
	return geo.NewCachedResolver(inner, cache, cfg.CacheTTL, zlog), closer, nil
}

// scheduleReplay registers the dead-letter replay job.
func scheduleReplay(cfg config.WorkerConfig, processor service.ClickProcessor, zlog *zap.Logger) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(cfg.ReplaySchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		replayed, err := processor.ReplayDeadLetters(ctx, cfg.ReplayBatch)
		if err != nil {
			zlog.Error("dead-letter replay failed", zap.Error(err))
			return
		}
		if replayed > 0 {
			zlog.Info("dead letters replayed", zap.Int("count", replayed))
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
