// Command agentd runs the full agentd process: the HTTP control
// surface, the gRPC alternate transport, and (when configured) the
// outbound Cloud Bridge connection. Grounded on the teacher's
// cmd/gateway/main.go: load config, build the logger, construct the
// application container, wait for a shutdown signal, stop with a
// bounded grace period.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/application"
	"github.com/duskcore/agentd/internal/infrastructure/config"
	"github.com/duskcore/agentd/internal/infrastructure/logger"
)

const appName = "agentd"

func main() {
	log, err := logger.New(logger.Config{Level: "info", Format: "json", OutputPath: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	app, err := application.New(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize agentd", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatal("failed to start agentd", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
		os.Exit(1)
	}

	log.Info(appName + " stopped successfully")
}
