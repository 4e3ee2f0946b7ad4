// Package crawljob schedules the nightly listing crawl: it tracks the feed
// watermark, spreads each night's new IDs across an execution window, runs
// due items and prunes finished ones. Every operation takes a State and
// returns the next State; persistence lives behind StateStore.
package crawljob

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Options holds the tunables of the scheduler.
type Options struct {
	// Window is the span over which a night's batch is spread, starting at
	// the next local midnight.
	Window time.Duration
	// Tolerance is how long after its scheduled time an item is still due.
	Tolerance time.Duration
	// RetentionHorizon is how long completed items are kept for auditing.
	RetentionHorizon time.Duration
	ThrottleMin      time.Duration
	ThrottleMax      time.Duration
	// FeedTimeout and ScrapeTimeout bound each collaborator call; zero means no limit.
	FeedTimeout   time.Duration
	ScrapeTimeout time.Duration
	// MaxBatch caps how many IDs one night may schedule; feed IDs past
	// the watermark plus MaxBatch are ignored. Zero means no cap.
	MaxBatch int
	Location *time.Location
}

func DefaultOptions() Options {
	return Options{
		Window:           5 * time.Hour,
		Tolerance:        time.Minute,
		RetentionHorizon: 24 * time.Hour,
		ThrottleMin:      time.Second,
		ThrottleMax:      3 * time.Second,
		FeedTimeout:      30 * time.Second,
		ScrapeTimeout:    2 * time.Minute,
		MaxBatch:         5000,
		Location:         time.Local,
	}
}

// Scheduler runs the crawl operations against injected collaborators.
type Scheduler struct {
	feed    FeedSource
	scraper Scraper
	opts    Options
	logger  *slog.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(lo, hi time.Duration) time.Duration
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithSleep replaces the blocking pause used between scrapes.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scheduler) {
		s.sleep = sleep
	}
}

// WithJitter replaces the random throttle delay picker.
func WithJitter(jitter func(lo, hi time.Duration) time.Duration) Option {
	return func(s *Scheduler) {
		s.jitter = jitter
	}
}

func New(feed FeedSource, scraper Scraper, opts Options, options ...Option) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	s := &Scheduler{
		feed:    feed,
		scraper: scraper,
		opts:    opts,
		logger:  slog.Default(),
		sleep:   sleepContext,
		jitter:  uniformJitter,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Scheduler) Options() Options {
	return s.opts
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func uniformJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}
