package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "NetRisk/internal/domain/repository"
	"NetRisk/internal/usecase"
	pkgch "NetRisk/pkg/clickhouse"
	"NetRisk/pkg/config"
	xhttp "NetRisk/pkg/http"
	applogger "NetRisk/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	ticker    *usecase.Ticker
	alerts    *usecase.AlertManager
	archive   drepo.SnapshotArchive
	publisher drepo.AlertPublisher
	chClient  *pkgch.Client

	handlers   []xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	ticker *usecase.Ticker,
	alerts *usecase.AlertManager,
	archive drepo.SnapshotArchive,
	publisher drepo.AlertPublisher,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		ticker:    ticker,
		alerts:    alerts,
		archive:   archive,
		publisher: publisher,
		chClient:  chClient,
	}
}

// AddHTTPHandler registers an HTTP handler group with the server.
func (a *App) AddHTTPHandler(h xhttp.Handler) { a.handlers = append(a.handlers, h) }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.archive != nil {
		if err := a.archive.Init(ctx); err != nil {
			return err
		}
	}
	if err := a.alerts.Load(ctx); err != nil {
		return err
	}

	a.httpServer = xhttp.NewServer(xhttp.Handlers(a.handlers...),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithServerLogger(a.logger),
	)

	a.ticker.Start(ctx)

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("serving",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("environment", a.cfg.Environment),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.ticker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("alert publisher close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
