package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sadwiik06/SocialFlow/internal/auth"
	"github.com/sadwiik06/SocialFlow/internal/cache"
	"github.com/sadwiik06/SocialFlow/internal/config"
	"github.com/sadwiik06/SocialFlow/internal/content"
	"github.com/sadwiik06/SocialFlow/internal/database"
	"github.com/sadwiik06/SocialFlow/internal/feed"
	"github.com/sadwiik06/SocialFlow/internal/handlers"
	"github.com/sadwiik06/SocialFlow/internal/interaction"
	"github.com/sadwiik06/SocialFlow/internal/jobs"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/media"
	"github.com/sadwiik06/SocialFlow/internal/middleware"
	"github.com/sadwiik06/SocialFlow/internal/realtime"
	"github.com/sadwiik06/SocialFlow/internal/telemetry"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 30 * time.Second
	previewTTL      = 10 * time.Minute
	sweepInterval   = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := run(cfg); err != nil {
		logger.Log.Fatal("Server failed", zap.Error(err))
	}
	logger.Log.Info("Server exited")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Info("=== SocialFlow server starting ===",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("relay", cfg.Realtime.Relay),
		zap.String("storage", cfg.Storage.Driver),
	)

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry)
	if err != nil {
		logger.WarnWithFields("Tracing disabled", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	db, err := database.Open(ctx, cfg.Database, cfg.GinMode == gin.DebugMode)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WarnWithFields("Database close failed", err)
		}
	}()

	uploader, err := media.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize media storage: %w", err)
	}
	if s3, ok := uploader.(*media.S3Uploader); ok {
		if err := s3.CheckBucketAccess(ctx); err != nil {
			logger.WarnWithFields("S3 bucket access failed, uploads will fail", err)
		}
	}

	hub := realtime.NewHub()
	limits := realtime.DefaultRateLimitConfig()
	limits.MaxMessagesPerSecond = cfg.Realtime.MessagesPerSecond
	limits.BurstSize = cfg.Realtime.Burst
	hub.SetRateLimitConfig(limits)
	hub.Start()

	relay, err := realtime.NewRelay(cfg.Realtime)
	if err != nil {
		return fmt.Errorf("failed to build realtime relay: %w", err)
	}
	if relay != nil {
		if err := hub.AttachRelay(ctx, relay); err != nil {
			return fmt.Errorf("failed to attach %s relay: %w", relay.Name(), err)
		}
		defer func() {
			if err := relay.Close(); err != nil {
				logger.WarnWithFields("Relay close failed", err)
			}
		}()
		logger.Log.Info("Realtime relay attached", zap.String("relay", relay.Name()))
	}

	previews, err := cache.New(previewTTL)
	if err != nil {
		return fmt.Errorf("failed to build preview cache: %w", err)
	}
	defer previews.Close()
	if err := previews.Watch(ctx, hub); err != nil {
		return err
	}

	strategy, err := feed.ParseStrategy(cfg.Feed.RankStrategy)
	if err != nil {
		return err
	}

	authService := auth.NewService(db.Users(), []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	items := db.Items()
	h := handlers.NewHandlers(handlers.Deps{
		Store:     db,
		Auth:      authService,
		Content:   content.NewService(items, uploader, hub, previews),
		Mutator:   interaction.NewMutator(items, hub),
		Resolver:  feed.NewResolver(items, strategy),
		Paginator: feed.NewPaginator(items, cfg.Feed.MaxPageSize),
		Uploader:  uploader,
		Socket:    realtime.NewHandler(hub, authService, db.Chats()),
	})

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if cfg.Telemetry.Enabled {
		r.Use(middleware.TracingMiddleware(telemetry.ServiceName))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/ws"})))

	if local, ok := uploader.(*media.LocalUploader); ok {
		r.Static("/uploads", local.Dir())
	}

	opts := handlers.RouteOptions{Auth: middleware.AuthMiddleware(authService)}
	stopLimiters := rateLimiters(ctx, cfg, &opts)
	defer stopLimiters()

	h.Routes(r.Group("/api"), opts)

	repair, err := jobs.NewRepairJob(db, cfg.RepairSchedule)
	if err != nil {
		return err
	}
	repair.Start()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Info("SocialFlow server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WarnWithFields("Server forced to shutdown", err)
	}
	if err := repair.Stop(shutdownCtx); err != nil {
		logger.WarnWithFields("Repair job did not stop in time", err)
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.WarnWithFields("Realtime hub shutdown warning", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.WarnWithFields("Tracer shutdown failed", err)
	}
	return nil
}

// rateLimiters fills the auth and upload limiters on opts. With the redis
// relay the counters live in redis so every instance shares them.
func rateLimiters(ctx context.Context, cfg *config.Config, opts *handlers.RouteOptions) func() {
	if cfg.Realtime.Relay == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Realtime.RedisAddr, Password: cfg.Realtime.RedisPassword})
		opts.AuthLimit = middleware.NewRedisRateLimiter(client, "socialflow:ratelimit:auth", middleware.AuthRateLimitConfig()).Middleware()
		opts.UploadLimit = middleware.NewRedisRateLimiter(client, "socialflow:ratelimit:upload", middleware.UploadRateLimitConfig()).Middleware()
		return func() { _ = client.Close() }
	}

	authLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
	uploadLimiter := middleware.NewRateLimiter(middleware.UploadRateLimitConfig())
	opts.AuthLimit = authLimiter.Middleware()
	opts.UploadLimit = uploadLimiter.Middleware()

	sweepCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				n := authLimiter.Sweep() + uploadLimiter.Sweep()
				logger.Log.Debug("Rate limiter buckets swept", zap.Int("removed", n))
			}
		}
	}()
	return cancel
}
