// Command snapshot records today's portfolio snapshot for every active user
// once and exits. It exits with status 1 when any user failed.
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
	defer app.Close()

	report, err := app.RunSnapshots(ctx)
	if report != nil {
		logger.Info(ctx, "snapshot run finished",
			"succeeded", report.Succeeded, "skipped", report.Skipped, "failed", report.Failed)
	}
	if err != nil {
		logger.Error(ctx, "snapshot run failed", "error", err)
		app.Close()
		os.Exit(1)
	}
}
