package crawljob

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var windowStart = time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

func TestDueItems(t *testing.T) {
	state := State{Jobs: []WorkItem{
		{ExternalID: 3, ScheduledTime: windowStart.Add(30 * time.Second)},
		{ExternalID: 1, ScheduledTime: windowStart},
		{ExternalID: 2, ScheduledTime: windowStart.Add(10 * time.Second), Completed: true},
		{ExternalID: 4, ScheduledTime: windowStart.Add(2 * time.Minute)},
	}}

	tests := []struct {
		name string
		now  time.Time
		want []int64
	}{
		{name: "BeforeWindow", now: windowStart.Add(-time.Second), want: nil},
		{name: "AtScheduledTime", now: windowStart, want: []int64{1}},
		{name: "OrderedBySchedule", now: windowStart.Add(45 * time.Second), want: []int64{1, 3}},
		{name: "ToleranceBoundaryInclusive", now: windowStart.Add(time.Minute), want: []int64{1, 3}},
		{name: "PastTolerance", now: windowStart.Add(90 * time.Second), want: []int64{3}},
		{name: "MissedItemsStayMissed", now: windowStart.Add(10 * time.Minute), want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int64
			for _, item := range DueItems(state, tt.now, time.Minute) {
				got = append(got, item.ExternalID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkCompleted(t *testing.T) {
	state := State{Jobs: Spread(10, 12, windowStart, time.Hour)}

	once := MarkCompleted(state, 11)
	twice := MarkCompleted(once, 11)

	assert.Equal(t, once, twice)
	assert.True(t, once.Jobs[1].Completed)
	assert.False(t, once.Jobs[0].Completed)
	assert.False(t, state.Jobs[1].Completed, "input state must not be mutated")

	unknown := MarkCompleted(state, 99)
	assert.Equal(t, state, unknown)
}

func TestRunDue(t *testing.T) {
	ctx := context.Background()

	t.Run("FaultIsolation", func(t *testing.T) {
		scraper := &fakeScraper{fail: map[int64]error{1: errBoom}}
		s := newTestScheduler(&fakeFeed{}, scraper)
		state := State{Jobs: []WorkItem{
			{ExternalID: 2, ScheduledTime: windowStart.Add(10 * time.Second)},
			{ExternalID: 1, ScheduledTime: windowStart},
			{ExternalID: 3, ScheduledTime: windowStart.Add(20 * time.Second)},
		}}

		next, summary := s.RunDue(ctx, state, windowStart.Add(30*time.Second), nil)

		assert.Equal(t, []int64{1, 2, 3}, scraper.calls)
		assert.Equal(t, 3, summary.Due)
		assert.Equal(t, 3, summary.Ran)
		require.Len(t, summary.Failures, 1)
		assert.Equal(t, int64(1), summary.Failures[0].ExternalID)
		assert.ErrorIs(t, summary.Failures[0], errBoom)
		for _, job := range next.Jobs {
			assert.True(t, job.Completed, "job %d", job.ExternalID)
		}
	})

	t.Run("ThrottlesBetweenConsecutiveScrapes", func(t *testing.T) {
		var delays []time.Duration
		s := New(&fakeFeed{}, &fakeScraper{}, testOptions(),
			WithLogger(discardLogger()),
			WithJitter(func(lo, hi time.Duration) time.Duration {
				assert.Equal(t, time.Second, lo)
				assert.Equal(t, 3*time.Second, hi)
				return 2 * time.Second
			}),
			WithSleep(func(_ context.Context, d time.Duration) error {
				delays = append(delays, d)
				return nil
			}),
		)
		state := State{Jobs: Spread(1, 3, windowStart, 30*time.Second)}

		_, summary := s.RunDue(ctx, state, windowStart.Add(30*time.Second), nil)
		assert.Equal(t, 3, summary.Ran)
		assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, delays)
	})

	t.Run("CheckpointsAfterEachItem", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{}, &fakeScraper{})
		state := State{Jobs: Spread(1, 2, windowStart, 30*time.Second)}

		var completed []int
		checkpoint := func(_ context.Context, st State) error {
			completed = append(completed, Snapshot(st).CompletedJobs)
			return nil
		}
		s.RunDue(ctx, state, windowStart.Add(20*time.Second), checkpoint)
		assert.Equal(t, []int{1, 2}, completed)
	})

	t.Run("CancelledContextLeavesItemsPending", func(t *testing.T) {
		scraper := &fakeScraper{}
		cctx, cancel := context.WithCancel(ctx)
		s := New(&fakeFeed{}, scraper, testOptions(),
			WithLogger(discardLogger()),
			WithSleep(func(ctx context.Context, _ time.Duration) error {
				cancel()
				return ctx.Err()
			}),
		)
		state := State{Jobs: Spread(1, 3, windowStart, 30*time.Second)}

		next, summary := s.RunDue(cctx, state, windowStart.Add(30*time.Second), nil)
		assert.Equal(t, 1, summary.Ran)
		assert.Equal(t, []int64{1}, scraper.calls)
		assert.Equal(t, 2, Snapshot(next).PendingJobs)
	})

	t.Run("ScrapeCutShortByCancelStaysPending", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		scraper := ScraperFunc(func(ctx context.Context, id int64) error {
			if id == 2 {
				cancel()
				return ctx.Err()
			}
			return nil
		})
		s := newTestScheduler(&fakeFeed{}, scraper)
		state := State{Jobs: Spread(1, 3, windowStart, 30*time.Second)}

		next, summary := s.RunDue(cctx, state, windowStart.Add(30*time.Second), nil)
		assert.Equal(t, 1, summary.Ran)
		assert.Empty(t, summary.Failures)
		assert.True(t, next.Jobs[0].Completed)
		assert.False(t, next.Jobs[1].Completed)
		assert.False(t, next.Jobs[2].Completed)
	})

	t.Run("NothingDue", func(t *testing.T) {
		scraper := &fakeScraper{}
		s := newTestScheduler(&fakeFeed{}, scraper)
		state := State{Jobs: Spread(1, 3, windowStart, time.Hour)}

		next, summary := s.RunDue(ctx, state, windowStart.Add(-time.Hour), nil)
		assert.Zero(t, summary.Ran)
		assert.Empty(t, scraper.calls)
		assert.Equal(t, state, next)
	})

	t.Run("PanicIsAFailure", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{}, panicScraper{})
		state := State{Jobs: Spread(7, 7, windowStart, time.Hour)}

		next, summary := s.RunDue(ctx, state, windowStart, nil)
		require.Len(t, summary.Failures, 1)
		assert.True(t, next.Jobs[0].Completed)
	})
}

type panicScraper struct{}

func (panicScraper) Scrape(context.Context, int64) error {
	panic("parser exploded")
}

func TestPrune(t *testing.T) {
	now := windowStart.Add(72 * time.Hour)
	state := State{Jobs: []WorkItem{
		{ExternalID: 1, ScheduledTime: now.Add(-48 * time.Hour), Completed: true},
		{ExternalID: 2, ScheduledTime: now.Add(-48 * time.Hour)},
		{ExternalID: 3, ScheduledTime: now.Add(-12 * time.Hour), Completed: true},
		{ExternalID: 4, ScheduledTime: now.Add(time.Hour)},
	}}

	next, removed := Prune(state, now, 24*time.Hour)
	assert.Equal(t, 1, removed)
	var ids []int64
	for _, job := range next.Jobs {
		ids = append(ids, job.ExternalID)
	}
	assert.Equal(t, []int64{2, 3, 4}, ids)
	assert.Len(t, state.Jobs, 4)
	assert.Equal(t, int64(1), state.Jobs[0].ExternalID, "input state must not be mutated")
}

func TestSnapshot(t *testing.T) {
	assert.Equal(t, Status{}, Snapshot(State{}))

	state := initializedState(100)
	state.LastWatermark = int64Ptr(107)
	state.Jobs = Spread(100, 103, windowStart, time.Hour)
	state.Jobs[0].Completed = true

	st := Snapshot(state)
	assert.True(t, st.Initialized)
	assert.Equal(t, int64(100), *st.InitialWatermark)
	assert.Equal(t, int64(107), *st.LastWatermark)
	assert.Equal(t, int64(108), *st.NextLowerBound)
	assert.Equal(t, 4, st.TotalJobs)
	assert.Equal(t, 1, st.CompletedJobs)
	assert.Equal(t, 3, st.PendingJobs)
	require.NotNil(t, st.NextDue)
	assert.Equal(t, state.Jobs[1].ScheduledTime, *st.NextDue)

	bootstrapped := Snapshot(initializedState(100))
	assert.Equal(t, int64(100), *bootstrapped.NextLowerBound)
}
