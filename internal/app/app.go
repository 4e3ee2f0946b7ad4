package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"realestate-watch/internal/config"
	"realestate-watch/internal/crawljob"
	"realestate-watch/internal/logger"
	"realestate-watch/internal/model"
	"realestate-watch/internal/scheduler"
	"realestate-watch/internal/services/ingest"
	"realestate-watch/internal/statestore"
	"realestate-watch/internal/telegram"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Pool      *pgxpool.Pool
	Store     statestore.Store
	Ingest    *ingest.Service
	Runner    *crawljob.Runner
	Scheduler *scheduler.Scheduler
	Server    *http.Server

	ownsPool   bool
	ownsStore  bool
	sender     *telegram.Sender
	logFile    *os.File
	background background
}

// Serve runs the cron scheduler and the HTTP API until ctx is cancelled.
// Dispatches started over HTTP run on the same context and are waited for
// before Serve returns.
func (a *App) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	a.background.open(ctx)

	g.Go(func() error {
		if err := a.Scheduler.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		a.Scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		a.Logger.Info("HTTP server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err := a.Server.Shutdown(shutdownCtx)
		a.background.closeAndWait()
		return err
	})

	return g.Wait()
}

// Close releases everything the builder opened. It is safe on a partly
// built App.
func (a *App) Close() error {
	var errs []error
	if a.sender != nil {
		a.sender.Close()
	}
	if a.ownsPool && a.Pool != nil {
		a.Pool.Close()
	}
	if a.ownsStore && a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

func newLogger(cfg *config.Config) (*slog.Logger, *os.File, error) {
	opts := []logger.Option{
		logger.WithDebug(cfg.LogDebug),
		logger.WithFormat(cfg.LogFormat),
	}
	var file *os.File
	if cfg.LogFile != "" {
		f, err := logger.OpenFile(cfg.LogFile)
		if err != nil {
			return nil, nil, err
		}
		file = f
		opts = append(opts, logger.WithWriter(f))
	}
	return logger.New(opts...), file, nil
}

// logNotifier stands in for Telegram when no bot is configured.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) SendAlert(listing model.ScrapedListing) {
	n.logger.Info("new listing", "external_id", listing.ExternalID, "title", listing.Title, "link", listing.Link)
}
