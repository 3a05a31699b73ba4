// Package main is the entry point for the stockroom server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stockroom/internal/config"
	"stockroom/internal/server"
	"stockroom/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.Int("probe_port", cfg.ProbePort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("store_backend", cfg.StoreBackend),
	)

	// Connect the document store. An unreachable store is fatal; the
	// service never starts degraded.
	st, err := createStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect store", zap.Error(err))
	}

	// Create and start server
	srv := server.New(cfg, logger, st)

	serverErrors := make(chan error, 2)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Probe server on its own port, if enabled
	var probe *server.Probe
	if cfg.ProbePort != 0 {
		probe = server.NewProbe(cfg, logger, st)
		go func() {
			serverErrors <- probe.Start()
		}()
	}

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if probe != nil {
			if err := probe.Shutdown(ctx); err != nil {
				logger.Error("probe shutdown failed", zap.Error(err))
			}
		}

		// Graceful shutdown
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}

		if err := st.Close(ctx); err != nil {
			logger.Error("store close failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}

// createStore connects the document store selected by the configuration.
// The connection string is never logged because it may embed credentials.
func createStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Info("store backend: memory")
		return store.NewMemoryStore(), nil

	case config.BackendMongo:
		logger.Info("store backend: mongo", zap.String("database", cfg.MongoDatabase))

		connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoConnectTimeout)
		defer cancel()

		st, err := store.ConnectMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("connecting mongo store: %w", err)
		}
		return st, nil

	case config.BackendDynamo:
		logger.Info("store backend: dynamodb",
			zap.String("items_table", cfg.DynamoItemsTable),
			zap.String("users_table", cfg.DynamoUsersTable),
		)

		st, err := store.ConnectDynamo(ctx, store.DynamoOptions{
			Region:     cfg.DynamoRegion,
			Endpoint:   cfg.DynamoEndpoint,
			ItemsTable: cfg.DynamoItemsTable,
			UsersTable: cfg.DynamoUsersTable,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting dynamo store: %w", err)
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}
