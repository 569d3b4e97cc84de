package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ichi0g0y/present-calendar/internal/cache"
	"github.com/ichi0g0y/present-calendar/internal/env"
	"github.com/ichi0g0y/present-calendar/internal/localdb"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"github.com/ichi0g0y/present-calendar/internal/shared/paths"
	"github.com/ichi0g0y/present-calendar/internal/version"
	"github.com/ichi0g0y/present-calendar/internal/webserver"
	"go.uber.org/zap"
)

func main() {
	memory := flag.Bool("memory", false, "keep reveal state in memory only (nothing is persisted)")
	flag.Parse()

	logger.Init(false)
	defer logger.Sync()

	logger.Info("Starting present-calendar server", zap.String("version", version.String()))

	if err := paths.EnsureDataDirs(); err != nil {
		logger.Fatal("Failed to ensure data directories", zap.Error(err))
	}

	if !*memory {
		if _, err := localdb.SetupDB(paths.GetDBPath()); err != nil {
			logger.Fatal("Failed to setup database", zap.Error(err))
		}
		defer localdb.CloseDB()
	} else {
		logger.Info("Memory mode: reveal state will not be persisted")
	}

	// env.LoadEnv must run after DB initialization.
	env.LoadEnv()
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	if !*memory {
		if disableCache := os.Getenv("DISABLE_CACHE"); disableCache == "true" {
			logger.Info("Cache system disabled by environment variable DISABLE_CACHE=true")
		} else if err := cache.InitializeCache(); err != nil {
			logger.Error("Failed to initialize cache system", zap.Error(err))
		}
	}

	ctl := newController(context.Background(), *memory)
	webserver.SetController(ctl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctl.StartTick(ctx, env.Value.TickInterval)

	port := 8080
	if env.Value.ServerPort != 0 {
		port = env.Value.ServerPort
	}

	if err := webserver.StartWebServer(port); err != nil {
		logger.Fatal("Failed to start web server", zap.Error(err))
	}

	logger.Info("Server started",
		zap.Int("port", port),
		zap.String("calendar", fmt.Sprintf("http://localhost:%d/api/calendar", port)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	ctl.StopTick()
	webserver.Shutdown()

	logger.Info("Shutdown complete")
}
