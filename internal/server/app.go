// Package server wires the backend together: database, domain services,
// the HTTP API, and graceful shutdown on OS signals.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clarifio/clarifio/internal/logging"
	"github.com/clarifio/clarifio/internal/server/billing"
	"github.com/clarifio/clarifio/internal/server/config"
	"github.com/clarifio/clarifio/internal/server/definitions"
	"github.com/clarifio/clarifio/internal/server/httpapi"
	"github.com/clarifio/clarifio/internal/server/identity"
	"github.com/clarifio/clarifio/internal/server/records"
	"github.com/clarifio/clarifio/internal/server/repositories"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repositories.RepositoryManager
	api    *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	rm, err := repositories.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	ids := identity.NewService(rm.Users(), rm.RefreshTokens(), c)
	recs := records.NewService(rm.Records())
	defs := definitions.NewService(
		definitions.NewOpenAIProvider(c.OpenAIAPIKey, c.OpenAIModel),
		c.DefineRPS, c.DefineBurst, logger,
	)
	bill := billing.NewService(
		billing.NewHTTPOracle(c.BillingAPIBase, c.BillingAPIKey),
		rm.Subscriptions(), c, logger,
	)

	api := httpapi.NewServer(ids, recs, defs, bill, c, logger)

	return &App{config: c, logger: logger, repos: rm, api: api}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the HTTP API until the context is cancelled or a shutdown
// signal arrives, then drains in-flight requests.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.api.Router(),
	}

	go func() {
		app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "server error", "error", err)
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "shutdown error", "error", err)
	}
	app.logger.Info(shutdownCtx, "server stopped")
}
