package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clarifio/clarifio/internal/buildinfo"
	"github.com/clarifio/clarifio/internal/client/cli"
	"github.com/clarifio/clarifio/internal/client/config"
	"github.com/clarifio/clarifio/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	// The terminal belongs to the REPL; diagnostics go to a log file
	// next to the local database.
	logPath := filepath.Join(filepath.Dir(cfg.DatabaseDSN), "clarifio.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer logFile.Close()
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(logFile, nil)))

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
