package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate-watch/internal/crawljob"
)

type countingRunner struct {
	plans, dispatches, prunes atomic.Int32
}

func (r *countingRunner) Plan(context.Context) (crawljob.PlanResult, error) {
	r.plans.Add(1)
	return crawljob.PlanResult{}, nil
}

func (r *countingRunner) Dispatch(context.Context) (crawljob.RunSummary, error) {
	r.dispatches.Add(1)
	return crawljob.RunSummary{}, nil
}

func (r *countingRunner) Prune(context.Context) (int, error) {
	r.prunes.Add(1)
	return 0, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerTriggersEntryPoints(t *testing.T) {
	runner := &countingRunner{}
	s := New(Specs{Plan: "@every 1s", Dispatch: "@every 1s"}, runner, time.UTC, quietLogger())
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return runner.plans.Load() > 0 && runner.dispatches.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)

	s.Stop()
	assert.Zero(t, runner.prunes.Load(), "empty cron expression must not be scheduled")
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := New(Specs{Plan: "every night"}, &countingRunner{}, time.UTC, quietLogger())
	err := s.Start(context.Background())
	require.ErrorContains(t, err, "invalid plan cron spec")
}
