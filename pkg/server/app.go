package server

import (
	"context"
	"errors"
	"io"

	"AlphaKit/internal/domain/models"
	"AlphaKit/internal/usecase"
	"AlphaKit/pkg/config"
	xhttp "AlphaKit/pkg/http"
	applogger "AlphaKit/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	runner     *usecase.ScenarioRunner
	httpServer *xhttp.Server
	log        *applogger.Logger
	closers    []io.Closer
}

// New creates a new App instance. closers are released in order by Close.
func New(
	cfg *config.Config,
	runner *usecase.ScenarioRunner,
	httpServer *xhttp.Server,
	log *applogger.Logger,
	closers ...io.Closer,
) *App {
	return &App{
		cfg:        cfg,
		runner:     runner,
		httpServer: httpServer,
		log:        log,
		closers:    closers,
	}
}

// RunOnce runs the configured scenario and returns its report.
func (a *App) RunOnce(ctx context.Context) (*models.Report, error) {
	start, err := a.cfg.ScenarioStart()
	if err != nil {
		return nil, err
	}
	end, err := a.cfg.ScenarioEnd()
	if err != nil {
		return nil, err
	}

	report, err := a.runner.Run(ctx, usecase.RunParams{
		Datasets: a.cfg.Scenario.Datasets,
		Start:    start,
		End:      end,
	})
	if report != nil {
		a.log.Info("scenario report",
			applogger.String("run_id", report.RunID),
			applogger.String("window", report.Window.String()),
			applogger.Int("members", len(report.Members)),
			applogger.Int("problems", len(report.Problems)),
		)
		for _, p := range report.Problems {
			a.log.Warn("scenario problem",
				applogger.String("series", p.Series),
				applogger.String("kind", string(p.Kind)),
				applogger.String("detail", p.Detail),
			)
		}
	}
	return report, err
}

// Serve starts the HTTP API and blocks until ctx is done or the listener fails.
func (a *App) Serve(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case serveErr = <-a.httpServer.Err():
	}

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	return serveErr
}

// Close releases sinks and caches.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
