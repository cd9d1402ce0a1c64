package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domsvc "SigPull/internal/domain/service"
	"SigPull/internal/usecase"
	pkgch "SigPull/pkg/clickhouse"
	"SigPull/pkg/config"
	xhttp "SigPull/pkg/http"
	applogger "SigPull/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	ledger    *usecase.SignalLedger
	scanner   *usecase.Scanner
	collector *usecase.StreamCollector
	publisher domsvc.SignalPublisher
	archiver  domsvc.HistoryArchiver
	chClient  *pkgch.Client

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	ledger *usecase.SignalLedger,
	scanner *usecase.Scanner,
	collector *usecase.StreamCollector,
	publisher domsvc.SignalPublisher,
	archiver domsvc.HistoryArchiver,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		ledger:    ledger,
		scanner:   scanner,
		collector: collector,
		publisher: publisher,
		archiver:  archiver,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Restore persisted signals before any loop touches the ledger
	if err := a.ledger.Load(ctx); err != nil {
		a.log.Error("ledger load failed", applogger.Error(err))
		return err
	}

	// Price refresh runs for the life of the process
	a.scanner.StartRefreshLoop(ctx)
	a.log.Info("refresh loop started",
		applogger.Duration("interval", a.cfg.Scanner.RefreshInterval))

	if a.cfg.Scanner.AutoStart {
		if err := a.scanner.StartAutoScan(ctx, a.cfg.Scanner.ScanInterval); err != nil {
			a.log.Warn("auto-scan start failed", applogger.Error(err))
		}
	}

	// Live tick stream is optional; polling covers closures without it
	if a.collector != nil && a.cfg.Binance.StreamEnabled {
		if err := a.collector.Start(ctx); err != nil {
			a.log.Warn("price stream start failed", applogger.Error(err))
		} else {
			a.log.Info("price stream started",
				applogger.Strings("symbols", a.cfg.Binance.StreamSymbols))
		}
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.scanner.StopAutoScan()

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.archiver != nil {
		if err := a.archiver.Close(); err != nil {
			a.log.Warn("archiver close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
