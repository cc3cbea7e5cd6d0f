// Command client is the Metal Tracker terminal client.
//
//	client [-s url] [-d file] [--api-key key] <command> [args]
//
// Run "client help" for the command list.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dmitrijs2005/metaltracker/internal/client/cli"
	"github.com/dmitrijs2005/metaltracker/internal/client/client"
	"github.com/dmitrijs2005/metaltracker/internal/client/config"
	"github.com/dmitrijs2005/metaltracker/internal/client/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, args, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	api := client.New(cfg.ServerURL, cfg.RequestTimeout)
	app := cli.NewApp(api, services.NewAuthService(api, db, cfg.APIKey), os.Stdin, os.Stdout)
	return app.Execute(ctx, args)
}
