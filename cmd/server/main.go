package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/metaltracker/internal/logging"
	"github.com/dmitrijs2005/metaltracker/internal/server"
	"github.com/dmitrijs2005/metaltracker/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped with error", "error", err)
		os.Exit(1)
	}
}
