package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"realestate-watch/internal/crawljob"
)

// Runner is the set of crawl entry points triggered on a timetable.
type Runner interface {
	Plan(ctx context.Context) (crawljob.PlanResult, error)
	Dispatch(ctx context.Context) (crawljob.RunSummary, error)
	Prune(ctx context.Context) (int, error)
}

// Specs are the cron expressions for each entry point.
type Specs struct {
	Plan     string
	Dispatch string
	Prune    string
}

type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	specs  Specs
	logger *slog.Logger
}

func New(specs Specs, runner Runner, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		specs:  specs,
		logger: logger,
	}
}

// Start registers the entry points and starts the cron loop. Jobs run with
// ctx, so cancelling it interrupts an in-flight dispatch.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"plan", s.specs.Plan, s.plan},
		{"dispatch", s.specs.Dispatch, s.dispatch},
		{"prune", s.specs.Prune, s.prune},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		run := job.run
		if _, err := s.cron.AddFunc(job.spec, func() { run(ctx) }); err != nil {
			return errors.Join(errors.New("invalid "+job.name+" cron spec "+job.spec), err)
		}
		s.logger.Info("scheduled entry point", "job", job.name, "spec", job.spec)
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) plan(ctx context.Context) {
	s.logger.Info("scheduled plan triggered")
	if _, err := s.runner.Plan(ctx); err != nil {
		s.logger.Error("plan failed", "error", err)
	}
}

func (s *Scheduler) dispatch(ctx context.Context) {
	summary, err := s.runner.Dispatch(ctx)
	if err != nil {
		s.logger.Error("dispatch failed", "error", err)
		return
	}
	if summary.Ran > 0 {
		s.logger.Info("scheduled dispatch finished", "ran", summary.Ran, "failed", len(summary.Failures))
	}
}

func (s *Scheduler) prune(ctx context.Context) {
	s.logger.Info("scheduled prune triggered")
	if _, err := s.runner.Prune(ctx); err != nil {
		s.logger.Error("prune failed", "error", err)
	}
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
