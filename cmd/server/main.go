package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cardarena/arena-server-go/internal/bus"
	"github.com/cardarena/arena-server-go/internal/chat"
	"github.com/cardarena/arena-server-go/internal/config"
	"github.com/cardarena/arena-server-go/internal/game"
	"github.com/cardarena/arena-server-go/internal/server"
	"github.com/cardarena/arena-server-go/internal/user"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting arena server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	registry := user.NewRegistry(logger)
	logger.Info("user registry initialized")

	gameMgr := game.NewManager(logger)
	logger.Info("game manager initialized")

	chatStore, err := newChatStore(cfg.Chat)
	if err != nil {
		logger.Fatal("failed to initialize chat store", zap.Error(err))
	}
	defer chatStore.Close()
	logger.Info("chat store initialized", zap.String("backend", cfg.Chat.Backend))

	publisher, err := newPublisher(cfg.Bus, logger)
	if err != nil {
		logger.Warn("failed to initialize event bus, publishing disabled", zap.Error(err))
		publisher = bus.NopPublisher{}
	}
	defer publisher.Close()

	srv := server.New(cfg.Server, registry, gameMgr, chatStore, publisher, logger)

	go func() {
		if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(serveErr))
		}
	}()

	logger.Info("arena server initialized",
		zap.String("version", version),
		zap.String("address", cfg.Server.Address),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("arena server stopped")
}

func newChatStore(cfg config.ChatConfig) (chat.Store, error) {
	if cfg.Backend == "redis" {
		return chat.NewRedisStore(cfg.RedisURL, cfg.PoolSize)
	}
	return chat.NewMemoryStore(), nil
}

func newPublisher(cfg config.BusConfig, logger *zap.Logger) (bus.Publisher, error) {
	if !cfg.Enabled {
		return bus.NopPublisher{}, nil
	}
	return bus.NewRedisPublisher(cfg.RedisURL, cfg.Channel, logger)
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
