package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"realestate-watch/internal/config"
	"realestate-watch/internal/crawljob"
	"realestate-watch/internal/db"
	"realestate-watch/internal/httpapi"
	"realestate-watch/internal/providers/realestate"
	"realestate-watch/internal/providers/rss"
	"realestate-watch/internal/repositories"
	pgrepo "realestate-watch/internal/repositories/postgres"
	"realestate-watch/internal/scheduler"
	"realestate-watch/internal/services/ingest"
	"realestate-watch/internal/statestore"
	"realestate-watch/internal/telegram"
)

// errNoDatabase is returned by scrapes in processes built without Postgres.
var errNoDatabase = errors.New("listing database not configured for this command")

type Builder struct {
	cfg          *config.Config
	basePath     string
	ensureSchema bool
	useDatabase  bool
	logger       *slog.Logger

	pool     *pgxpool.Pool
	repo     repositories.ListingRepository
	notifier ingest.Notifier
	feed     crawljob.FeedSource
	fetcher  ingest.ListingFetcher
	store    statestore.Store
	client   *http.Client
	clock    func() time.Time

	server *http.Server
}

type BuilderOption func(*Builder)

func NewBuilder(cfg *config.Config, options ...BuilderOption) *Builder {
	builder := &Builder{
		cfg:          cfg,
		ensureSchema: true,
		useDatabase:  true,
	}
	for _, option := range options {
		option(builder)
	}
	return builder
}

func WithBasePath(basePath string) BuilderOption {
	return func(b *Builder) {
		b.basePath = basePath
	}
}

func WithEnsureSchema(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.ensureSchema = enabled
	}
}

// WithDatabase controls whether Postgres is connected. Commands that never
// scrape (bootstrap, plan, prune, status) run without it.
func WithDatabase(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.useDatabase = enabled
	}
}

func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

func WithDBPool(pool *pgxpool.Pool) BuilderOption {
	return func(b *Builder) {
		b.pool = pool
	}
}

func WithRepository(repo repositories.ListingRepository) BuilderOption {
	return func(b *Builder) {
		b.repo = repo
	}
}

func WithNotifier(notifier ingest.Notifier) BuilderOption {
	return func(b *Builder) {
		b.notifier = notifier
	}
}

func WithFeed(feed crawljob.FeedSource) BuilderOption {
	return func(b *Builder) {
		b.feed = feed
	}
}

func WithFetcher(fetcher ingest.ListingFetcher) BuilderOption {
	return func(b *Builder) {
		b.fetcher = fetcher
	}
}

func WithStateStore(store statestore.Store) BuilderOption {
	return func(b *Builder) {
		b.store = store
	}
}

func WithHTTPClient(client *http.Client) BuilderOption {
	return func(b *Builder) {
		b.client = client
	}
}

func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.clock = now
	}
}

func WithHTTPServer(server *http.Server) BuilderOption {
	return func(b *Builder) {
		b.server = server
	}
}

func (b *Builder) Build(ctx context.Context) (_ *App, err error) {
	if b.cfg == nil {
		return nil, errors.New("config is required")
	}

	app := &App{Config: b.cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if b.logger == nil {
		b.logger, app.logFile, err = newLogger(b.cfg)
		if err != nil {
			return nil, err
		}
	}
	app.Logger = b.logger

	if b.store == nil {
		if dir := filepath.Dir(b.cfg.StatePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create state dir: %w", err)
			}
		}
		b.store, err = statestore.Open(b.cfg.StateBackend, b.cfg.StatePath)
		if err != nil {
			return nil, err
		}
		app.ownsStore = true
	}
	app.Store = b.store

	if b.client == nil {
		b.client = &http.Client{Timeout: 15 * time.Second}
	}
	if b.feed == nil {
		b.feed = rss.NewFeed(b.client, b.cfg.FeedURL, b.logger)
	}

	var scraper crawljob.Scraper = crawljob.ScraperFunc(func(context.Context, int64) error {
		return errNoDatabase
	})
	if b.useDatabase {
		if err := b.buildIngest(ctx, app); err != nil {
			return nil, err
		}
		scraper = app.Ingest
	}

	opts := crawljob.Options{
		Window:           b.cfg.Window,
		Tolerance:        b.cfg.Tolerance,
		RetentionHorizon: b.cfg.RetentionHorizon,
		ThrottleMin:      b.cfg.ThrottleMin,
		ThrottleMax:      b.cfg.ThrottleMax,
		FeedTimeout:      b.cfg.FeedTimeout,
		ScrapeTimeout:    b.cfg.ScrapeTimeout,
		MaxBatch:         b.cfg.MaxBatch,
		Location:         b.cfg.Location,
	}
	sched := crawljob.New(b.feed, scraper, opts, crawljob.WithLogger(b.logger))

	runnerOpts := []crawljob.RunnerOption{crawljob.WithRunnerLogger(b.logger)}
	if b.clock != nil {
		runnerOpts = append(runnerOpts, crawljob.WithClock(b.clock))
	}
	app.Runner = crawljob.NewRunner(app.Store, sched, runnerOpts...)

	app.Scheduler = scheduler.New(scheduler.Specs{
		Plan:     b.cfg.PlanCron,
		Dispatch: b.cfg.DispatchCron,
		Prune:    b.cfg.PruneCron,
	}, app.Runner, b.cfg.Location, b.logger)

	if b.server == nil {
		handlerOpts := []httpapi.Option{
			httpapi.WithLogger(b.logger),
			httpapi.WithLauncher(app.background.Go),
		}
		if app.Ingest != nil {
			handlerOpts = append(handlerOpts, httpapi.WithStats(app.Ingest.Stats))
		}
		if b.repo != nil {
			handlerOpts = append(handlerOpts, httpapi.WithListings(b.repo))
		}
		handler := httpapi.NewHandler(app.Runner, handlerOpts...)
		b.server = &http.Server{
			Addr:              ":" + b.cfg.HTTPPort,
			Handler:           handler.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	app.Server = b.server

	return app, nil
}

func (b *Builder) buildIngest(ctx context.Context, app *App) error {
	if b.repo == nil {
		if b.pool == nil {
			pool, err := db.NewPool(ctx, b.cfg.PostgresDSN())
			if err != nil {
				return err
			}
			b.pool = pool
			app.ownsPool = true
		}
		app.Pool = b.pool

		if b.ensureSchema {
			basePath := b.basePath
			if basePath == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				basePath = wd
			}
			path, err := filepath.Abs(basePath)
			if err != nil {
				return err
			}
			if err := db.EnsureSchema(ctx, b.pool, path); err != nil {
				return err
			}
		}
		b.repo = pgrepo.NewListingRepository(b.pool)
	}

	if b.notifier == nil {
		if b.cfg.TelegramEnabled() {
			sender := telegram.NewSender(b.cfg.TelegramToken, b.cfg.TelegramChat, b.cfg.TelegramThreadID,
				telegram.WithLogger(b.logger))
			app.sender = sender
			b.notifier = sender
		} else {
			b.notifier = logNotifier{logger: b.logger}
		}
	}

	if b.fetcher == nil {
		b.fetcher = realestate.NewScraper(b.client, b.cfg.ListingURLTemplate, b.logger)
	}

	app.Ingest = ingest.NewService(b.fetcher, b.repo, b.notifier, b.logger)
	return nil
}
