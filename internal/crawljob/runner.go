package crawljob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Runner exposes the externally triggered entry points. Each call loads the
// state, applies one operation and saves the result, holding the store lock
// for the whole cycle when the store supports it.
type Runner struct {
	store     StateStore
	scheduler *Scheduler
	logger    *slog.Logger
	now       func() time.Time
}

type RunnerOption func(*Runner)

func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

func NewRunner(store StateStore, scheduler *Scheduler, options ...RunnerOption) *Runner {
	r := &Runner{
		store:     store,
		scheduler: scheduler,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Bootstrap initializes the watermark. An empty or unreachable feed is
// logged and leaves the scheduler uninitialized; only a repeated bootstrap
// is returned as an error.
func (r *Runner) Bootstrap(ctx context.Context) (Status, error) {
	var status Status
	err := r.withState(ctx, func(state State) (State, bool, error) {
		next, err := r.scheduler.Bootstrap(ctx, state)
		if errors.Is(err, ErrEmptyFeed) {
			r.logger.Warn("bootstrap skipped: feed has no listing ids", "error", err)
			status = Snapshot(state)
			return state, false, nil
		}
		if err != nil {
			return state, false, err
		}
		status = Snapshot(next)
		return next, true, nil
	})
	return status, err
}

func (r *Runner) Plan(ctx context.Context) (PlanResult, error) {
	var result PlanResult
	err := r.withState(ctx, func(state State) (State, bool, error) {
		next, res, err := r.scheduler.PlanNightlyBatch(ctx, state, r.now())
		if err != nil {
			return state, false, err
		}
		result = res
		return next, true, nil
	})
	return result, err
}

func (r *Runner) Dispatch(ctx context.Context) (RunSummary, error) {
	var summary RunSummary
	err := r.withState(ctx, func(state State) (State, bool, error) {
		next, sum := r.scheduler.RunDue(ctx, state, r.now(), r.store.Save)
		summary = sum
		return next, sum.Ran > 0, nil
	})
	return summary, err
}

func (r *Runner) Prune(ctx context.Context) (int, error) {
	var removed int
	err := r.withState(ctx, func(state State) (State, bool, error) {
		var next State
		next, removed = Prune(state, r.now(), r.scheduler.Options().RetentionHorizon)
		if removed > 0 {
			r.logger.Info("pruned completed jobs", "removed", removed, "remaining", len(next.Jobs))
		}
		return next, true, nil
	})
	return removed, err
}

// Status reads the state without taking the lock or writing anything.
func (r *Runner) Status(ctx context.Context) (Status, error) {
	state, err := r.load(ctx)
	if err != nil {
		return Status{}, err
	}
	return Snapshot(state), nil
}

func (r *Runner) withState(ctx context.Context, fn func(State) (State, bool, error)) error {
	if locker, ok := r.store.(Locker); ok {
		unlock, err := locker.Lock(ctx)
		if err != nil {
			return fmt.Errorf("lock state: %w", err)
		}
		defer func() {
			if err := unlock(); err != nil {
				r.logger.Error("unlock state failed", "error", err)
			}
		}()
	}

	state, err := r.load(ctx)
	if err != nil {
		return err
	}

	next, changed, err := fn(state)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := r.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (r *Runner) load(ctx context.Context) (State, error) {
	state, err := r.store.Load(ctx)
	if err != nil {
		return State{}, fmt.Errorf("load state: %w", err)
	}
	if err := state.Validate(); err != nil {
		return State{}, fmt.Errorf("load state: %w", err)
	}
	return state, nil
}
