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

	"gorm.io/gorm"

	"github.com/timmy/rawgdex/internal/api"
	"github.com/timmy/rawgdex/internal/api/middleware"
	"github.com/timmy/rawgdex/internal/catalog"
	"github.com/timmy/rawgdex/internal/config"
	"github.com/timmy/rawgdex/internal/logger"
	"github.com/timmy/rawgdex/internal/metrics"
	"github.com/timmy/rawgdex/internal/rawg"
	"github.com/timmy/rawgdex/internal/repository"
	"github.com/timmy/rawgdex/internal/service"
)

func main() {
	// Load configuration (CONFIG_PATH is honored by config.Load)
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger.SetDefaultLogger(logger.New(logger.LoadFromEnv("rawgdex-api")))
	defer logger.Sync()
	appLog := logger.GetDefault()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLog.Fatalf("Failed to initialize database: %v", err)
	}

	m := metrics.New()
	client, err := rawg.New(rawg.Config{
		BaseURL:   cfg.RAWG.BaseURL,
		APIKey:    cfg.RAWG.APIKey,
		Timeout:   cfg.RAWG.Timeout,
		PageSize:  cfg.RAWG.PageSize,
		RateLimit: cfg.RAWG.RateLimit.RPS,
		Burst:     cfg.RAWG.RateLimit.Burst,
	}, rawg.WithObserver(m))
	if err != nil {
		appLog.Fatalf("Failed to create RAWG client: %v", err)
	}
	cat := catalog.New(client)

	cacheRepo := repository.NewGameCacheRepository(db)
	browseService := service.NewBrowseService(cat, appLog, service.BrowseConfig{
		SessionTTL:   cfg.Browse.SessionTTL,
		MaxSessions:  cfg.Browse.MaxSessions,
		FetchTimeout: cfg.RAWG.Timeout,
		Recorder:     m,
		Gauge:        m,
	})
	detailService := service.NewDetailService(client, cacheRepo, appLog, service.DetailConfig{
		TTL:      cfg.Cache.DetailTTL,
		Observer: m,
	})
	sweeper, err := service.NewSweeper(cfg.Cache.SweepCron, cacheRepo, browseService, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create sweeper: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go sweeper.Run(ctx)

	router := api.SetupRouter(api.Deps{
		Browse:  browseService,
		Detail:  detailService,
		Genres:  cat,
		Ping:    pinger(db),
		Metrics: m,
		Logger:  appLog,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		WaitTimeout: cfg.Browse.WaitTimeout,
	}, cfg.Server.Mode)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Errorf("Server forced to shutdown: %v", err)
	}
	browseService.Shutdown()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	appLog.Info("Server exited")
}

func pinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
