package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/stocktrackerst/stock-tracker/config"
	"github.com/stocktrackerst/stock-tracker/internal/database"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/handler"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/listener"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/reconcile"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/repository"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/usecase"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/watch"
	"github.com/stocktrackerst/stock-tracker/internal/middleware"
	"github.com/stocktrackerst/stock-tracker/pkg/broker"
	"github.com/stocktrackerst/stock-tracker/pkg/cache"
	"github.com/stocktrackerst/stock-tracker/pkg/logger"
	"github.com/stocktrackerst/stock-tracker/pkg/postgres"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}

	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3.5 Apply Schema
	if err := database.Migrate(ctx, db); err != nil {
		appLogger.Fatal("Could not apply schema", zap.Error(err))
	}

	// 4. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5. Initialize Kafka Consumer
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	// 6. Initialize Repository, Projection and UseCase
	repo := repository.NewPGRepository(db)
	hub := watch.NewHub(repo, appLogger)
	notifier := watch.NewRedisNotifier(redisClient, appLogger)
	uc := usecase.NewLedgerUseCase(repo, notifier, appLogger)

	go hub.Run(ctx, redisClient)

	// 6.5 Initialize Listeners
	movementListener := listener.NewMovementListener(kafkaConsumer, uc, appLogger)
	go movementListener.Start(ctx)

	// 6.8 Reconciliation Job
	if cfg.Reconcile.Enabled {
		reconciler := reconcile.NewReconciler(db, appLogger)
		go reconciler.Run(ctx, cfg.Reconcile.Interval)
	}

	// 7. Start HTTP Server
	if cfg.Server.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	ledgerHandler := handler.NewLedgerHandler(uc, hub, appLogger)
	ledgerHandler.RegisterRoutes(r, middleware.AuthMiddleware(cfg.JWT.SecretKey))

	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:    port,
		Handler: r,
	}

	appLogger.Info("Starting HTTP server", zap.String("port", port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("forced shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
