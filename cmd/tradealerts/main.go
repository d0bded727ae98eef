package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aidin1998/tradealerts/internal/alerts"
	"github.com/Aidin1998/tradealerts/internal/config"
	"github.com/Aidin1998/tradealerts/internal/database"
	"github.com/Aidin1998/tradealerts/internal/server"
	"github.com/Aidin1998/tradealerts/internal/session"
	"github.com/Aidin1998/tradealerts/internal/trading"
	"github.com/Aidin1998/tradealerts/pkg/logger"
	"github.com/Aidin1998/tradealerts/pkg/telemetry"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	bootLogger, err := logger.NewLogger(logger.Config{Level: os.Getenv("LOG_LEVEL")})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Load configuration
	cfgManager := config.NewManager(bootLogger)
	var paths []string
	if path := os.Getenv("TRADEALERTS_CONFIG_FILE"); path != "" {
		paths = append(paths, path)
	}
	cfg, err := cfgManager.Load(paths...)
	if err != nil {
		bootLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	zapLogger, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		bootLogger.Fatal("Failed to create logger", zap.Error(err))
	}
	defer zapLogger.Sync()
	zapLogger = zapLogger.With(zap.String("environment", cfg.Environment))

	if err := cfgManager.Watch(); err != nil {
		zapLogger.Warn("Config hot reload disabled", zap.Error(err))
	}
	defer cfgManager.Close()

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		zapLogger.Fatal("Failed to set up telemetry", zap.Error(err))
	}

	// Resolve the trading services for the configured runtime mode
	var db *gorm.DB
	if cfg.Trade.RuntimeMode == trading.RuntimeModeDirect {
		db, err = database.Open(cfg.Database)
		if err != nil {
			zapLogger.Fatal("Failed to connect to database", zap.Error(err))
		}
	}
	tradeSvc, err := trading.Select(ctx, cfg.Trade.RuntimeMode, trading.Deps{Logger: zapLogger, DB: db})
	if err != nil {
		zapLogger.Fatal("Failed to create trading services", zap.Error(err))
	}

	if len(cfg.Trade.Seed) > 0 {
		seed, err := cfg.Trade.SeedOrders()
		if err != nil {
			zapLogger.Fatal("Invalid order seed", zap.Error(err))
		}
		if _, err := tradeSvc.Seed(ctx, seed); err != nil {
			zapLogger.Fatal("Failed to seed orders", zap.Error(err))
		}
	}

	// Sessions
	var store session.Store
	var closeStore func() error
	switch cfg.Session.Store {
	case "redis":
		redisClient, err := database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		store = session.NewRedisStore(redisClient)
		closeStore = redisClient.Close
	default:
		mem := session.NewMemoryStore()
		store = mem
		sweepCtx, stopSweep := context.WithCancel(ctx)
		go sweepSessions(sweepCtx, zapLogger, mem, cfg.Session.TTL)
		closeStore = func() error { stopSweep(); return nil }
	}
	sessions := session.NewManager(store, cfg.Session)

	filter := alerts.NewOrdersAlertFilter(
		zapLogger,
		tradeSvc,
		cfgManager.Runtime(),
		sessions,
		alerts.Diagnostics{
			DriveMemory:  cfg.Diagnostics.DriveMemory,
			DriveLatency: cfg.Diagnostics.DriveLatency,
		},
	)
	filter.Init(alerts.FilterConfig{Path: cfg.Trade.AppPath})

	srv := server.New(zapLogger, cfg, filter, server.NewAppHandler(zapLogger, sessions), cfgManager.Runtime())

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	zapLogger.Info("Trade alerts server started",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("runtime_mode", tradeSvc.Mode()),
		zap.String("session_store", cfg.Session.Store))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	filter.Destroy()

	if err := closeStore(); err != nil {
		zapLogger.Error("Failed to close session store", zap.Error(err))
	}
	if db != nil {
		if err := database.Close(db); err != nil {
			zapLogger.Error("Failed to close database", zap.Error(err))
		}
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shut down telemetry", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

// sweepSessions evicts expired in-memory sessions until ctx is done
func sweepSessions(ctx context.Context, logger *zap.Logger, store *session.MemoryStore, ttl time.Duration) {
	interval := ttl / 2
	if interval <= 0 {
		interval = session.DefaultTTL / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				logger.Debug("Expired sessions evicted", zap.Int("count", n))
			}
		}
	}
}
