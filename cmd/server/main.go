package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brikr/codetango/internal/api"
	"github.com/brikr/codetango/internal/config"
	"github.com/brikr/codetango/internal/repository"
	"github.com/brikr/codetango/internal/service"
	"github.com/brikr/codetango/pkg/batch"
	"github.com/brikr/codetango/pkg/database"
	"github.com/brikr/codetango/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting CodeTango ratings backend",
		"port", cfg.Port,
		"env", cfg.Env,
	)

	var zapLogger *zap.Logger
	if cfg.Env == "production" {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Invalid Redis URL", "error", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}

	// Repositories
	matchRepo := repository.NewMatchRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	userRepo := repository.NewUserRepository(db)
	cursorRepo := repository.NewCursorRepository(db)

	// Services
	eloService := service.NewEloServiceFromConfig(cfg)
	recalcService := service.NewRecalcService(
		matchRepo,
		ledgerRepo,
		userRepo,
		cursorRepo,
		eloService,
		func() batch.Writer { return batch.NewSQLWriter(db) },
		cfg.RecalcPageSize,
		zapLogger,
	)
	userService := service.NewUserService(userRepo)

	// Recalc dispatch: pub/sub coordinator plus a cursor catch-up poller
	coordinator := service.NewRecalcCoordinator(redisClient, recalcService, zapLogger)
	go func() {
		if err := coordinator.Start(context.Background()); err != nil {
			logger.Error("Recalc coordinator exited", "error", err)
		}
	}()

	catchup := service.NewCatchupJob(cursorRepo, coordinator, cfg.CatchupInterval, zapLogger)
	if err := catchup.Start(); err != nil {
		logger.Fatal("Failed to start catch-up job", "error", err)
	}

	router := api.SetupRouter(cfg, matchRepo, recalcService, userService, coordinator)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	catchup.Stop()
	coordinator.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
